package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
	"github.com/DoyleJ11/flags-quiz-client/internal/view"
)

func finishedView() view.View {
	return view.View{
		RoomCode: "4821",
		Mode:     engine.ModeMCQ,
		Username: "alice",
		GameOver: true,
		Cause:    engine.CauseAllPlayersFinished,
		Leaderboard: []view.Row{
			{Rank: 1, ID: "2", Username: "bob", Score: 7, Completed: true},
			{Rank: 2, ID: "1", Username: "alice", Score: 5, Completed: true, IsMe: true},
		},
	}
}

func TestMatchFromView(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	m := MatchFromView(finishedView(), at)

	assert.Equal(t, "4821", m.RoomCode)
	assert.Equal(t, "all_players_finished", m.Cause)
	assert.Equal(t, "MCQ", m.Mode)
	assert.Equal(t, time.UTC, m.FinishedAt.Location())
	assert.Equal(t, []Row{
		{Rank: 1, Username: "bob", Score: 7, Completed: true},
		{Rank: 2, Username: "alice", Score: 5, Completed: true, IsMe: true},
	}, m.Rows)
}

func TestMemoryPrefs(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPrefs()

	_, ok, err := p.Get(ctx, PrefUsername)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Set(ctx, PrefUsername, "alice"))
	require.NoError(t, p.Set(ctx, PrefUsername, "alice2"))
	v, ok, err := p.Get(ctx, PrefUsername)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice2", v)
}

func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("FLAGS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FLAGS_TEST_DATABASE_URL not set")
	}
	return dsn
}

func TestResults_SaveAndRecent(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	r, err := NewResults(ctx, dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Migrate(ctx))

	v := finishedView()
	v.Username = "user-" + uuid.NewString()[:8]
	id, err := r.Save(ctx, MatchFromView(v, time.Now()))
	require.NoError(t, err)

	got, err := r.Recent(ctx, v.Username, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Len(t, got[0].Rows, 2)
	assert.Equal(t, "bob", got[0].Rows[0].Username)
}

func TestGormPrefs_Upsert(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	p, err := OpenPrefs(dsn)
	require.NoError(t, err)
	defer p.Close()

	key := "test-" + uuid.NewString()
	require.NoError(t, p.Set(ctx, key, "one"))
	require.NoError(t, p.Set(ctx, key, "two"))

	v, ok, err := p.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)
}
