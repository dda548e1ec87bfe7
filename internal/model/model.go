package model

import "time"

// Match outcomes.
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeDraw = "draw"
)

// Match is one finished game as seen by one bot.
type Match struct {
	ID         string    `json:"id"`
	Room       string    `json:"room"`
	UID        uint32    `json:"uid"`
	Color      uint8     `json:"color"`
	Winner     string    `json:"winner"`
	Outcome    string    `json:"outcome"`
	Ticks      int       `json:"ticks"`
	Moves      int       `json:"moves"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is the wall time between the first board and the winner announcement.
func (m Match) Duration() time.Duration {
	if m.StartedAt.IsZero() || m.FinishedAt.Before(m.StartedAt) {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}
