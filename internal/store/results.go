package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/DoyleJ11/flags-quiz-client/internal/view"
)

type Row struct {
	Rank      int
	Username  string
	Score     int
	Completed bool
	IsMe      bool
}

// Match is a finished game as the local player saw it.
type Match struct {
	ID         int64
	RoomCode   string
	Mode       string
	Cause      string
	Username   string
	FinishedAt time.Time
	Rows       []Row
}

// MatchFromView captures the final projection of a finished game.
func MatchFromView(v view.View, at time.Time) Match {
	m := Match{
		RoomCode:   v.RoomCode,
		Mode:       string(v.Mode),
		Cause:      string(v.Cause),
		Username:   v.Username,
		FinishedAt: at.UTC(),
		Rows:       make([]Row, 0, len(v.Leaderboard)),
	}
	for _, r := range v.Leaderboard {
		m.Rows = append(m.Rows, Row{Rank: r.Rank, Username: r.Username, Score: r.Score, Completed: r.Completed, IsMe: r.IsMe})
	}
	return m
}

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	id          BIGSERIAL PRIMARY KEY,
	room_code   TEXT NOT NULL,
	mode        TEXT NOT NULL,
	cause       TEXT NOT NULL,
	username    TEXT NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS match_rows (
	match_id  BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	rank      INT NOT NULL,
	username  TEXT NOT NULL,
	score     INT NOT NULL,
	completed BOOLEAN NOT NULL,
	is_me     BOOLEAN NOT NULL,
	PRIMARY KEY (match_id, rank)
);`

type Results struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewResults(ctx context.Context, dsn string, log *zap.Logger) (*Results, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Results{db: pool, log: log}, nil
}

func (s *Results) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Save writes m and its leaderboard in one transaction and returns the new id.
func (s *Results) Save(ctx context.Context, m Match) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO matches (room_code, mode, cause, username, finished_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.RoomCode, m.Mode, m.Cause, m.Username, m.FinishedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert match: %w", err)
	}

	batch := &pgx.Batch{}
	for _, r := range m.Rows {
		batch.Queue(
			`INSERT INTO match_rows (match_id, rank, username, score, completed, is_me)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, r.Rank, r.Username, r.Score, r.Completed, r.IsMe,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("insert rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	s.log.Info("match saved", zap.Int64("match_id", id), zap.String("room", m.RoomCode))
	return id, nil
}

// Recent loads the newest matches played as username, rows included.
func (s *Results) Recent(ctx context.Context, username string, limit int) ([]Match, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, room_code, mode, cause, username, finished_at
		 FROM matches WHERE username = $1
		 ORDER BY finished_at DESC LIMIT $2`,
		username, limit,
	)
	if err != nil {
		return nil, err
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Match, error) {
		var m Match
		err := row.Scan(&m.ID, &m.RoomCode, &m.Mode, &m.Cause, &m.Username, &m.FinishedAt)
		return m, err
	})
	if err != nil {
		return nil, err
	}

	for i := range matches {
		rows, err := s.db.Query(ctx,
			`SELECT rank, username, score, completed, is_me
			 FROM match_rows WHERE match_id = $1 ORDER BY rank`,
			matches[i].ID,
		)
		if err != nil {
			return nil, err
		}
		matches[i].Rows, err = pgx.CollectRows(rows, pgx.RowToStructByPos[Row])
		if err != nil {
			return nil, err
		}
	}
	return matches, nil
}

func (s *Results) Close() { s.db.Close() }
