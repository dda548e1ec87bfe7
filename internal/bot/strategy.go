package bot

import (
	"github.com/freeeve/checkmate-bot/pkg/checkmate"
)

// Strategy picks at most one move per tick.
type Strategy interface {
	Name() string
	NextMove(v View) (checkmate.Movement, bool)
}

// StrategyFor returns the named strategy. Unknown names get the engine.
func StrategyFor(name string, p Params, seed uint64) Strategy {
	switch name {
	case "random":
		return NewRandomStrategy(seed)
	case "idle":
		return IdleStrategy{}
	default:
		return NewEngine(p, seed)
	}
}

// --- IdleStrategy ---

// IdleStrategy never moves. Useful as a sparring partner in the arena.
type IdleStrategy struct{}

func (IdleStrategy) Name() string { return "idle" }

func (IdleStrategy) NextMove(View) (checkmate.Movement, bool) { return checkmate.Movement{}, false }

// --- RandomStrategy ---

// RandomStrategy moves a random owned stack into a random passable neighbour.
type RandomStrategy struct {
	rng *rng
}

// NewRandomStrategy creates a RandomStrategy. A zero seed picks a random one.
func NewRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{rng: newRng(seed)}
}

func (*RandomStrategy) Name() string { return "random" }

// NextMove picks uniformly among owned cells with more than one army, then
// among their passable neighbours.
func (s *RandomStrategy) NextMove(v View) (checkmate.Movement, bool) {
	if v.Board == nil {
		return checkmate.Movement{}, false
	}
	var mine []checkmate.Position
	for _, p := range v.Board.Positions() {
		c := v.Board.At(p)
		if c.Color == v.Color && c.Army > 1 && len(v.Board.Adjacent(p)) > 0 {
			mine = append(mine, p)
		}
	}
	if len(mine) == 0 {
		return checkmate.Movement{}, false
	}
	from := mine[s.rng.intn(len(mine))]
	adj := v.Board.Adjacent(from)
	to := adj[s.rng.intn(len(adj))]
	return checkmate.Movement{From: from, To: to, Half: s.rng.float64() < 0.3}, true
}
