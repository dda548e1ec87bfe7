package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/freeeve/checkmate-bot/internal/model"
)

// MatchRepo handles match history database operations.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// Record inserts a finished match. An empty ID is filled with a new UUID and a
// zero FinishedAt with the current time.
func (r *MatchRepo) Record(ctx context.Context, m *model.Match) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.FinishedAt.IsZero() {
		m.FinishedAt = time.Now().UTC()
	}
	if m.StartedAt.IsZero() {
		m.StartedAt = m.FinishedAt
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (id, room, uid, color, winner, outcome, ticks, moves, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.Room, int64(m.UID), int(m.Color), m.Winner, m.Outcome, m.Ticks, m.Moves, m.StartedAt, m.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record match: %w", err)
	}
	return nil
}

// ListByRoom returns the most recent matches played in a room, newest first.
func (r *MatchRepo) ListByRoom(ctx context.Context, room string, limit int) ([]model.Match, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, room, uid, color, winner, outcome, ticks, moves, started_at, finished_at
		 FROM matches WHERE room = $1 ORDER BY finished_at DESC LIMIT $2`, room, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var (
			m     model.Match
			uid   int64
			color int
		)
		if err := rows.Scan(&m.ID, &m.Room, &uid, &color, &m.Winner, &m.Outcome, &m.Ticks, &m.Moves, &m.StartedAt, &m.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.UID, m.Color = uint32(uid), uint8(color)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
