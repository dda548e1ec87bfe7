package bot

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/checkmate-bot/pkg/checkmate"
)

// errUnresolvedOwner aborts a tick when a cell's color has no known owner yet.
var errUnresolvedOwner = errors.New("unresolved owner color")

// Params are the engine's tunable heuristics.
type Params struct {
	ExpandRate  int     // percent of ticks that try expansion first
	RerouteRate int     // percent of pursuits that ignore the persisted anchor
	CalcCount   int     // searches per anchor
	ScorePower  float64 // route length exponent
	RejectHops  int     // negative-value routes shorter than this are refused
	DepthCap    int     // search depth while nothing urgent is in sight
}

// DefaultParams returns the tuning used on the live server.
func DefaultParams() Params {
	return Params{
		ExpandRate:  70,
		RerouteRate: 30,
		CalcCount:   1,
		ScorePower:  1.0,
		RejectHops:  2,
		DepthCap:    6,
	}
}

// State is what the engine carries from one tick to the next. Zero positions
// mean "none".
type State struct {
	Target checkmate.Position `json:"target"`
	Anchor checkmate.Position `json:"anchor"`
}

// View is everything the engine reads during a tick.
type View struct {
	Board      *checkmate.Board
	Color      uint8
	Identities map[uint8]uint32 // color -> user id
	Team       checkmate.Team
}

// Engine is the per-session decision loop. It is not safe for concurrent use;
// callers serialize board updates and decisions.
type Engine struct {
	params  Params
	rng     *rng
	state   State
	scratch searchScratch
	log     zerolog.Logger
}

// NewEngine creates an engine. A zero seed picks a random one.
func NewEngine(p Params, seed uint64) *Engine {
	return &Engine{params: p, rng: newRng(seed), log: log.Logger}
}

func (e *Engine) Name() string { return "engine" }

// SetLogger replaces the logger used for per-tick decision logs.
func (e *Engine) SetLogger(l zerolog.Logger) { e.log = l }

// State returns the persisted target and anchor.
func (e *Engine) State() State { return e.state }

// Restore replaces the persisted state, e.g. after a reconnect.
func (e *Engine) Restore(s State) { e.state = s }

// Reset forgets the target and anchor.
func (e *Engine) Reset() { e.state = State{} }

// turn is the working set of a single decision. Strategies mutate its copy of
// the state; the engine commits it only when the tick was not aborted.
type turn struct {
	View
	params  *Params
	rng     *rng
	scratch  *searchScratch
	state    State
	searches int
}

func (t *turn) owner(c checkmate.Cell) (uint32, error) {
	if c.Color == checkmate.Neutral {
		return 0, nil
	}
	uid, ok := t.Identities[c.Color]
	if !ok {
		return 0, fmt.Errorf("%w %d", errUnresolvedOwner, c.Color)
	}
	return uid, nil
}

func (t *turn) mine(p checkmate.Position) bool {
	return t.Board.Owned(p, t.Color)
}

type tactic struct {
	name string
	run  func() (checkmate.Movement, bool, error)
}

// NextMove implements Strategy.
func (e *Engine) NextMove(v View) (checkmate.Movement, bool) {
	return e.Decide(v)
}

// Decide runs one tick: the primary tactic, then the other one as a single
// fallback. It returns false when neither produced a move.
func (e *Engine) Decide(v View) (checkmate.Movement, bool) {
	if v.Board == nil || v.Board.Size == 0 {
		return checkmate.Movement{}, false
	}

	t := &turn{View: v, params: &e.params, rng: e.rng, scratch: &e.scratch, state: e.state}
	tactics := []tactic{{"expand", t.expand}, {"pursue", t.pursue}}
	if !e.rng.percent(e.params.ExpandRate) {
		tactics[0], tactics[1] = tactics[1], tactics[0]
	}

	for _, tc := range tactics {
		mv, ok, err := tc.run()
		if err != nil {
			e.log.Debug().Err(err).Str("tactic", tc.name).Msg("Decision aborted")
			return checkmate.Movement{}, false
		}
		if ok {
			e.state = t.state
			e.log.Debug().
				Str("tactic", tc.name).
				Stringer("from", mv.From).
				Stringer("to", mv.To).
				Bool("half", mv.Half).
				Int("searches", t.searches).
				Msg("Move decided")
			return mv, true
		}
	}
	e.state = t.state
	return checkmate.Movement{}, false
}

// pursue advances one step along the best route toward the long-range target.
func (t *turn) pursue() (checkmate.Movement, bool, error) {
	st := &t.state
	if st.Target.IsZero() || t.mine(st.Target) {
		target, ok, err := t.selectTarget()
		if err != nil {
			return checkmate.Movement{}, false, err
		}
		st.Target, st.Anchor = target, checkmate.Position{}
		if !ok {
			return checkmate.Movement{}, false, nil
		}
	}
	if !st.Anchor.IsZero() && !t.mine(st.Anchor) {
		st.Anchor = checkmate.Position{}
	}

	sp := t.searchParams()
	reroute := !st.Anchor.IsZero() && t.rng.percent(t.params.RerouteRate)

	var (
		r     route
		found bool
	)
	if !st.Anchor.IsZero() && !reroute {
		r, found = t.routeFrom(st.Anchor, st.Target, sp, noScore)
	} else {
		r, found = t.sweep(st.Target, sp)
	}
	if !found {
		st.Target = checkmate.Position{}
		return checkmate.Movement{}, false, nil
	}

	if r.hop == st.Target {
		st.Target = checkmate.Position{}
	}
	mv := buildMove(t.Board, t.Color, r.anchor, r.hop)
	st.Anchor = r.hop
	return mv, true, nil
}
