package repository

import (
	"context"
	"encoding/json"

	"github.com/freeeve/checkmate-bot/internal/model"
)

// StateStore keeps per-bot live session data (Redis) so a restarted bot can
// resume its pursuit and readiness.
type StateStore interface {
	SaveState(ctx context.Context, room string, uid uint32, state json.RawMessage) error
	LoadState(ctx context.Context, room string, uid uint32) (json.RawMessage, error)
	ClearState(ctx context.Context, room string, uid uint32) error
	SetReady(ctx context.Context, room string, uid uint32, ready bool) error
	IsReady(ctx context.Context, room string, uid uint32) (bool, error)
	ReadyCount(ctx context.Context, room string) (int64, error)
}

// MatchRepository defines match history operations.
type MatchRepository interface {
	Record(ctx context.Context, m *model.Match) error
	ListByRoom(ctx context.Context, room string, limit int) ([]model.Match, error)
}
