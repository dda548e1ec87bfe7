package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/checkmate-bot/internal/config"
	"github.com/freeeve/checkmate-bot/internal/logger"
	"github.com/freeeve/checkmate-bot/internal/model"
	"github.com/freeeve/checkmate-bot/internal/repository"
	"github.com/freeeve/checkmate-bot/pkg/checkmate"
)

const storeTimeout = 3 * time.Second

// Stateful is implemented by strategies that carry a pursuit across ticks.
type Stateful interface {
	State() State
	Restore(State)
	Reset()
}

// ParamsFor maps a configured bot onto engine parameters.
func ParamsFor(b config.Bot) Params {
	p := DefaultParams()
	p.CalcCount = b.CalcCount
	p.ExpandRate = b.ExpandRate
	p.RerouteRate = b.RerouteRate
	p.RejectHops = b.RejectHops
	p.ScorePower = b.ScorePower
	return p
}

// Session plays one bot in one room: it keeps the board in sync with server
// events, asks the strategy for a move every tick and handles readiness and
// match bookkeeping. The mutex spans apply-patch, decide and emit.
type Session struct {
	data     config.BotData
	strategy Strategy
	emit     Emitter
	store    repository.StateStore
	matches  repository.MatchRepository
	ctx      context.Context
	now      func() time.Time
	baseLog  zerolog.Logger
	log      zerolog.Logger

	mu         sync.Mutex
	board      *checkmate.Board
	color      uint8
	identities map[uint8]uint32
	ready      bool
	lastSaved  State
	match      *model.Match
	sessionID  string
}

// NewSession creates a session. store and matches may be nil.
func NewSession(data config.BotData, strategy Strategy, emit Emitter, store repository.StateStore, matches repository.MatchRepository) *Session {
	l := logger.ForBot(data.Bot.Room, data.UID)
	if ls, ok := strategy.(interface{ SetLogger(zerolog.Logger) }); ok {
		ls.SetLogger(l)
	}
	return &Session{
		data:       data,
		strategy:   strategy,
		emit:       emit,
		store:      store,
		matches:    matches,
		ctx:        context.Background(),
		now:        time.Now,
		baseLog:    l,
		log:        l,
		identities: map[uint8]uint32{checkmate.Neutral: 0},
	}
}

// Bind registers the session's handlers on c.
func (s *Session) Bind(c *Client) {
	c.SetLogger(s.baseLog)
	c.OnOpen(s.HandleOpen)
	c.On(EventUpdateSettings, s.HandleSettings)
	c.On(EventUpdateGM, s.HandleBoard)
	c.On(EventUpdateColor, s.HandleColor)
	c.On(EventUpdateUser, s.HandleUsers)
	c.On(EventMapUpdate, s.HandleMapUpdate)
	c.On(EventWinAction, s.HandleWin)
	c.On(EventLoggedUserCount, s.HandleUserCount)
}

// Run connects c and keeps the session alive, reconnecting with backoff,
// until ctx is done.
func (s *Session) Run(ctx context.Context, c *Client) error {
	s.ctx = ctx
	s.Bind(c)

	backoff := time.Second
	for {
		err := c.Connect(ctx)
		if err == nil {
			backoff = time.Second
			err = c.Run(ctx)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Error().Err(err).Dur("retry", backoff).Msg("Disconnected")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

func (s *Session) team() checkmate.Team {
	return checkmate.Team{Members: s.data.Team, Rank: s.data.Rank}
}

// HandleOpen joins the configured room and votes to start.
func (s *Session) HandleOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info().Int("rank", s.data.Rank).Msg("Joining room")
	if err := s.emit.Emit(EmitJoinRoom, s.data.Bot.Room); err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	return s.voteStart()
}

// voteStart applies the configured map and votes when the bot always readies.
func (s *Session) voteStart() error {
	if r := s.data.Room; r != nil && r.Map != nil {
		if err := s.emit.Emit(EmitChangeSettings, map[string]string{"map": strconv.Itoa(*r.Map)}); err != nil {
			return fmt.Errorf("change map: %w", err)
		}
	}
	if s.data.Bot.AutoReady.Always {
		if err := s.emit.Emit(EmitVoteStart, 1); err != nil {
			return fmt.Errorf("vote start: %w", err)
		}
		s.setReady(true)
	}
	return nil
}

// HandleSettings re-asserts configured speed and privacy when they drift.
func (s *Session) HandleSettings(payload json.RawMessage) error {
	rs, err := DecodeSettings(payload)
	if err != nil {
		return err
	}
	r := s.data.Room
	if r == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Speed != nil && strconv.Itoa(*r.Speed) != rs.Speed {
		if err := s.emit.Emit(EmitChangeSettings, map[string]int{"speed": *r.Speed}); err != nil {
			return fmt.Errorf("change speed: %w", err)
		}
	}
	if r.Private != nil && *r.Private != rs.Private {
		if err := s.emit.Emit(EmitChangeSettings, map[string]bool{"private": *r.Private}); err != nil {
			return fmt.Errorf("change privacy: %w", err)
		}
	}
	return nil
}

// HandleBoard replaces the board. The first board of a match opens a new
// match record and restores any persisted pursuit.
func (s *Session) HandleBoard(payload json.RawMessage) error {
	b, err := DecodeBoard(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = b
	if s.match == nil {
		s.startMatch()
	}
	return nil
}

func (s *Session) startMatch() {
	s.sessionID = logger.NewSessionID()
	s.log = logger.WithSession(s.baseLog, s.sessionID)
	if ls, ok := s.strategy.(interface{ SetLogger(zerolog.Logger) }); ok {
		ls.SetLogger(s.log)
	}
	s.match = &model.Match{
		ID:        s.sessionID,
		Room:      s.data.Bot.Room,
		UID:       s.data.UID,
		StartedAt: s.now().UTC(),
	}
	s.log.Info().Int("size", s.board.Size).Msg("Match started")

	st, ok := s.strategy.(Stateful)
	if !ok || s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()
	raw, err := s.store.LoadState(ctx, s.data.Bot.Room, s.data.UID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Load state failed")
		return
	}
	if raw == nil {
		return
	}
	var restored State
	if err := json.Unmarshal(raw, &restored); err != nil {
		s.log.Warn().Err(err).Msg("Discarding unreadable state")
		return
	}
	st.Restore(restored)
	s.lastSaved = restored
	s.log.Debug().Stringer("target", restored.Target).Stringer("anchor", restored.Anchor).Msg("State restored")
}

// HandleColor records the bot's own color.
func (s *Session) HandleColor(payload json.RawMessage) error {
	c, err := DecodeColor(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.color = c
	s.mu.Unlock()
	return nil
}

// HandleUsers replaces the color to user id mapping.
func (s *Session) HandleUsers(payload json.RawMessage) error {
	ids, err := DecodeUsers(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.identities = ids
	s.mu.Unlock()
	return nil
}

// HandleMapUpdate applies a tick's patches and plays at most one move.
func (s *Session) HandleMapUpdate(payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil
	}
	round, _, err := ApplyMapUpdate(s.board, payload)
	if err != nil {
		return err
	}
	if s.match != nil {
		s.match.Ticks = round
		s.match.Color = s.color
	}

	// Junior teammates stop playing once the team holds every colored cell;
	// toggling spectator mode lets the server end the game.
	if !s.team().Leader() && s.teamWon() {
		if err := s.emit.Emit(EmitView, true); err != nil {
			return fmt.Errorf("view on: %w", err)
		}
		if err := s.emit.Emit(EmitView, false); err != nil {
			return fmt.Errorf("view off: %w", err)
		}
		return nil
	}

	mv, ok := s.strategy.NextMove(View{
		Board:      s.board,
		Color:      s.color,
		Identities: s.identities,
		Team:       s.team(),
	})
	if ok {
		if err := s.emit.Emit(EmitMovement, mv.Args()); err != nil {
			return fmt.Errorf("upload movement: %w", err)
		}
		if s.match != nil {
			s.match.Moves++
		}
	}
	s.saveState()
	return nil
}

// teamWon reports whether every colored cell belongs to a teammate.
func (s *Session) teamWon() bool {
	team := s.team()
	for _, p := range s.board.Positions() {
		c := s.board.At(p)
		if c.Color == checkmate.Neutral {
			continue
		}
		uid, ok := s.identities[c.Color]
		if !ok || !team.Contains(uid) {
			return false
		}
	}
	return true
}

func (s *Session) saveState() {
	st, ok := s.strategy.(Stateful)
	if !ok || s.store == nil {
		return
	}
	cur := st.State()
	if cur == s.lastSaved {
		return
	}
	data, err := json.Marshal(cur)
	if err != nil {
		s.log.Warn().Err(err).Msg("Encode state failed")
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()
	if err := s.store.SaveState(ctx, s.data.Bot.Room, s.data.UID, data); err != nil {
		s.log.Warn().Err(err).Msg("Save state failed")
		return
	}
	s.lastSaved = cur
}

// HandleWin closes the match, forgets the pursuit and votes for the next one.
func (s *Session) HandleWin(payload json.RawMessage) error {
	winner, err := DecodeWinner(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.team().Leader() && s.data.Bot.Team == 0 {
		s.log.Info().Str("winner", winner).Msgf("Room %s: %s won", s.data.Bot.Room, winner)
	}

	s.finishMatch(winner)

	if st, ok := s.strategy.(Stateful); ok {
		st.Reset()
		s.lastSaved = State{}
		if s.store != nil {
			ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
			if err := s.store.ClearState(ctx, s.data.Bot.Room, s.data.UID); err != nil {
				s.log.Warn().Err(err).Msg("Clear state failed")
			}
			cancel()
		}
	}
	s.setReady(false)
	return s.voteStart()
}

func (s *Session) finishMatch(winner string) {
	m := s.match
	s.match = nil
	s.log = s.baseLog
	if m == nil {
		return
	}
	m.Winner = winner
	m.FinishedAt = s.now().UTC()
	m.Outcome = model.OutcomeLoss
	if s.board != nil && s.teamWon() {
		m.Outcome = model.OutcomeWin
	}
	s.log.Info().
		Str("session", m.ID).
		Str("outcome", m.Outcome).
		Int("ticks", m.Ticks).
		Int("moves", m.Moves).
		Dur("duration", m.Duration()).
		Msg("Match finished")

	if s.matches == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()
	if err := s.matches.Record(ctx, m); err != nil {
		s.log.Error().Err(err).Str("session", m.ID).Msg("Record match failed")
	}
}

// HandleUserCount votes to start once enough users are logged in, and
// withdraws the vote when they leave.
func (s *Session) HandleUserCount(payload json.RawMessage) error {
	ar := s.data.Bot.AutoReady
	if !ar.Conditional {
		return nil
	}
	count, err := DecodeUserCount(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case count > ar.MoreThan && !s.ready:
		if err := s.emit.Emit(EmitVoteStart, "1"); err != nil {
			return fmt.Errorf("vote start: %w", err)
		}
		s.setReady(true)
	case count <= ar.MoreThan && s.ready:
		if err := s.emit.Emit(EmitVoteStart, "0"); err != nil {
			return fmt.Errorf("withdraw vote: %w", err)
		}
		s.setReady(false)
	}
	return nil
}

func (s *Session) setReady(ready bool) {
	s.ready = ready
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()
	if err := s.store.SetReady(ctx, s.data.Bot.Room, s.data.UID, ready); err != nil {
		s.log.Warn().Err(err).Bool("ready", ready).Msg("Store ready flag failed")
	}
}

// SessionStatus is a point-in-time summary of a session.
type SessionStatus struct {
	Room     string `json:"room"`
	UID      uint32 `json:"uid"`
	Rank     int    `json:"rank"`
	Strategy string `json:"strategy"`
	Color    uint8  `json:"color"`
	Ready    bool   `json:"ready"`
	Session  string `json:"session,omitempty"`
	Ticks    int    `json:"ticks"`
	Moves    int    `json:"moves"`
	Cells    int    `json:"cells"`
	Army     int    `json:"army"`
	State    *State `json:"state,omitempty"`
}

// Status reports what the session is doing right now.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionStatus{
		Room:     s.data.Bot.Room,
		UID:      s.data.UID,
		Rank:     s.data.Rank,
		Strategy: s.strategy.Name(),
		Color:    s.color,
		Ready:    s.ready,
	}
	if s.match != nil {
		st.Session = s.sessionID
		st.Ticks = s.match.Ticks
		st.Moves = s.match.Moves
		if s.board != nil {
			st.Cells, st.Army = s.board.CountOwned(s.color)
		}
	}
	if sf, ok := s.strategy.(Stateful); ok {
		cur := sf.State()
		st.State = &cur
	}
	return st
}
