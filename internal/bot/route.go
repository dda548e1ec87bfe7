package bot

import (
	"math"

	"github.com/freeeve/checkmate-bot/pkg/checkmate"
)

// route is the outcome of a search toward the target: the anchor it started
// from, the first step to take this tick and the route's score.
type route struct {
	anchor checkmate.Position
	hop    checkmate.Position
	score  float64
}

type searchNode struct {
	pos   checkmate.Position
	value int
	hops  int
	first checkmate.Position
}

// searchScratch holds the BFS frontier and visited set. It is reused across
// searches; callers reset it before every search.
type searchScratch struct {
	queue   []searchNode
	visited []bool
}

func (s *searchScratch) reset(size int) {
	s.queue = s.queue[:0]
	n := size * size
	if cap(s.visited) < n {
		s.visited = make([]bool, n)
		return
	}
	s.visited = s.visited[:n]
	clear(s.visited)
}

// searchParams are the per-search knobs of searchRoute.
type searchParams struct {
	depthLimit int // 0 = unbounded
	power      float64
	rejectHops int
}

// contribution is what passing through a cell adds to a route's value: the
// army we can pick up, or the army we must beat.
func contribution(c checkmate.Cell, color uint8) int {
	if c.Color == color {
		return c.Army - 1
	}
	return -(c.Army + 1)
}

// searchRoute runs one breadth-first search from anchor to target. Each cell is
// entered once, by the first path to arrive, and neighbours are visited in a
// random order. The scratch must be reset by the caller.
func searchRoute(b *checkmate.Board, color uint8, anchor, target checkmate.Position, sp searchParams, g *rng, s *searchScratch) (route, bool) {
	idx := func(p checkmate.Position) int { return (p.Row-1)*b.Size + (p.Col - 1) }

	s.visited[idx(anchor)] = true
	s.queue = append(s.queue, searchNode{pos: anchor, value: contribution(b.At(anchor), color)})

	for head := 0; head < len(s.queue); head++ {
		cur := s.queue[head]
		if cur.pos == target && cur.hops > 0 {
			if !(cur.value < 0 && cur.hops < sp.rejectHops) {
				score := float64(cur.value) / math.Pow(float64(cur.hops), sp.power)
				return route{anchor: anchor, hop: cur.first, score: score}, true
			}
		}
		if sp.depthLimit > 0 && cur.hops >= sp.depthLimit {
			continue
		}

		next := b.Adjacent(cur.pos)
		shuffle(g, next)
		for _, n := range next {
			i := idx(n)
			if s.visited[i] {
				continue
			}
			s.visited[i] = true
			first := cur.first
			if cur.pos == anchor {
				first = n
			}
			s.queue = append(s.queue, searchNode{
				pos:   n,
				value: cur.value + contribution(b.At(n), color),
				hops:  cur.hops + 1,
				first: first,
			})
		}
	}
	return route{}, false
}

// urgent reports whether a high-value cell we do not own is in sight, which
// lifts the search depth cap.
func (t *turn) urgent() bool {
	for _, p := range t.Board.Positions() {
		c := t.Board.At(p)
		if c.Color == t.Color {
			continue
		}
		if (c.Terrain == checkmate.Crown || c.Terrain.Stronghold()) && t.Board.Visible(p, t.Color) {
			return true
		}
	}
	return false
}

func (t *turn) searchParams() searchParams {
	sp := searchParams{power: t.params.ScorePower, rejectHops: t.params.RejectHops}
	if !t.urgent() {
		sp.depthLimit = t.params.DepthCap
	}
	return sp
}

// noScore is the running best before any route is found. It is finite, so an
// anchor with nothing after three tries counts as trailing it by half.
const noScore = -math.MaxFloat64

// routeFrom searches from a single anchor up to CalcCount times with fresh
// shuffles and keeps the best result. bestSoFar is the best score any earlier
// anchor reached; from the third attempt on the retries stop once this anchor
// trails it by more than half.
func (t *turn) routeFrom(anchor, target checkmate.Position, sp searchParams, bestSoFar float64) (route, bool) {
	best := route{score: noScore}
	found := false
	for try := 0; try < max(t.params.CalcCount, 1); try++ {
		t.scratch.reset(t.Board.Size)
		t.searches++
		r, ok := searchRoute(t.Board, t.Color, anchor, target, sp, t.rng, t.scratch)
		if ok && r.score > best.score {
			best, found = r, true
		}
		if try == 2 && best.score < bestSoFar/2 {
			break
		}
	}
	return best, found
}

// besieged reports whether an enemy Fort or Castle borders p. Such cells keep
// their army home instead of anchoring a route.
func (t *turn) besieged(p checkmate.Position) bool {
	for _, n := range t.Board.Adjacent(p) {
		c := t.Board.At(n)
		if c.Color != t.Color && c.Terrain.Stronghold() {
			return true
		}
	}
	return false
}

// sweep tries every usable owned cell as an anchor and returns the single best
// route across all of them.
func (t *turn) sweep(target checkmate.Position, sp searchParams) (route, bool) {
	best := route{score: noScore}
	found := false
	for _, p := range t.Board.Positions() {
		c := t.Board.At(p)
		if c.Color != t.Color || c.Army <= 1 || t.besieged(p) {
			continue
		}
		r, ok := t.routeFrom(p, target, sp, best.score)
		if ok && r.score > best.score {
			best, found = r, true
		}
	}
	return best, found
}
