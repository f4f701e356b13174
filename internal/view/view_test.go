package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
)

func seeded(t *testing.T, username string, mode engine.Mode, players ...engine.Player) engine.State {
	t.Helper()
	s := engine.NewState(username)
	room := engine.Room{Code: "4821", Host: "alice", NumQuestions: 3, TimeLimit: 2, Mode: mode}
	require.NoError(t, s.SeedRoom(room, players))
	return s
}

func usernames(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Username
	}
	return out
}

func TestLeaderboard_StableByInsertionOrder(t *testing.T) {
	s := seeded(t, "A", engine.ModeMCQ)
	s.UpsertPlayer("a", "A")
	s.UpsertPlayer("b", "B")
	s.UpsertPlayer("c", "C")
	_, _ = s.ApplyScore("A", 10)
	_, _ = s.ApplyScore("B", 30)
	_, _ = s.ApplyScore("C", 30)

	rows := Leaderboard(s)
	assert.Equal(t, []string{"B", "C", "A"}, usernames(rows))
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
	assert.True(t, rows[2].IsMe)
	assert.False(t, rows[0].IsMe)
}

func TestLeaderboard_RepeatedProjectionIsDeterministic(t *testing.T) {
	s := seeded(t, "zed", engine.ModeMCQ)
	for _, name := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		s.UpsertPlayer(name, name)
	}

	want := usernames(Leaderboard(s))
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5", "p6"}, want)
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, usernames(Leaderboard(s)))
	}
}

func TestProject_DoesNotMutateState(t *testing.T) {
	s := seeded(t, "alice", engine.ModeMCQ, engine.Player{ID: "1", Username: "alice"})
	s.Start()
	_ = s.AdvanceTo(0)
	_ = s.SetQuestion(engine.Question{FlagURL: "/static/svg/fr.svg", Options: []string{"France", "Chad"}})

	before := s.Clone()
	v := Project(s)
	v.Options[0] = "tampered"
	v.Leaderboard[0].Score = 99

	assert.Equal(t, before, s)
}

func TestProject_Progress(t *testing.T) {
	s := seeded(t, "alice", engine.ModeMCQ)
	assert.Empty(t, Project(s).Progress, "no progress before the first question")

	s.Start()
	_ = s.AdvanceTo(0)
	assert.Equal(t, "Question 1 of 3", Project(s).Progress)
	_ = s.AdvanceTo(2)
	assert.Equal(t, "Question 3 of 3", Project(s).Progress)
}

func TestProject_ModeVisibility(t *testing.T) {
	cases := []struct {
		mode        engine.Mode
		wantMCQ     bool
		wantMap     bool
		wantOptions int
	}{
		{engine.ModeMCQ, true, false, 2},
		{engine.ModeMap, false, true, 0},
	}

	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			s := seeded(t, "alice", tc.mode)
			s.Start()
			_ = s.AdvanceTo(0)
			_ = s.SetQuestion(engine.Question{FlagURL: "/static/svg/fr.svg", Options: []string{"France", "Chad"}})

			v := Project(s)
			assert.Equal(t, tc.wantMCQ, v.ShowMCQ)
			assert.Equal(t, tc.wantMap, v.ShowMap)
			assert.Len(t, v.Options, tc.wantOptions)
			assert.Equal(t, "/static/svg/fr.svg", v.FlagURL)
		})
	}
}

func TestProject_HostCanStartOnlyWhileWaiting(t *testing.T) {
	host := seeded(t, "alice", engine.ModeMCQ)
	assert.True(t, Project(host).CanStart)

	guest := seeded(t, "bob", engine.ModeMCQ)
	assert.False(t, Project(guest).CanStart)

	host.Start()
	assert.False(t, Project(host).CanStart)
}

func TestProject_GameOverHidesQuestion(t *testing.T) {
	s := seeded(t, "alice", engine.ModeMCQ)
	s.Start()
	_ = s.AdvanceTo(0)
	_ = s.SetQuestion(engine.Question{FlagURL: "/static/svg/fr.svg", Options: []string{"France"}})
	s.Finish(engine.CauseTimeOver)

	v := Project(s)
	assert.True(t, v.GameOver)
	assert.Equal(t, engine.CauseTimeOver, v.Cause)
	assert.False(t, v.ShowMCQ)
	assert.Equal(t, "0:00", v.Clock)
}

func TestClock(t *testing.T) {
	assert.Equal(t, "3:00", Clock(180))
	assert.Equal(t, "2:09", Clock(129))
	assert.Equal(t, "0:05", Clock(5))
	assert.Equal(t, "0:00", Clock(-4))
}
