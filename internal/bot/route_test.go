package bot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freeeve/checkmate-bot/pkg/checkmate"
)

func defaultSearch() searchParams {
	p := DefaultParams()
	return searchParams{depthLimit: p.DepthCap, power: p.ScorePower, rejectHops: p.RejectHops}
}

func runSearch(b *checkmate.Board, anchor, target checkmate.Position, sp searchParams) (route, bool) {
	var s searchScratch
	s.reset(b.Size)
	return searchRoute(b, me, anchor, target, sp, newRng(1), &s)
}

func TestSearchRoute(t *testing.T) {
	t.Run("scores value over hops", func(t *testing.T) {
		r, ok := runSearch(corridor(), pos(1, 1), pos(1, 5), defaultSearch())
		require.True(t, ok)
		require.Equal(t, pos(1, 2), r.hop)
		require.Equal(t, pos(1, 1), r.anchor)
		require.InDelta(t, 14.0/4.0, r.score, 1e-9)
	})

	t.Run("length exponent penalizes long routes", func(t *testing.T) {
		sp := defaultSearch()
		sp.power = 1.1
		r, ok := runSearch(corridor(), pos(1, 1), pos(1, 5), sp)
		require.True(t, ok)
		require.InDelta(t, 14.0/math.Pow(4, 1.1), r.score, 1e-9)
	})

	t.Run("rejects short losing strikes", func(t *testing.T) {
		b := checkmate.NewBoard(3)
		b.Set(pos(1, 1), checkmate.Cell{Color: me, Army: 2})
		b.Set(pos(1, 2), checkmate.Cell{Color: enemy, Army: 5})
		b.Set(pos(2, 1), checkmate.Cell{Terrain: checkmate.Mountain})
		b.Set(pos(2, 2), checkmate.Cell{Terrain: checkmate.Mountain})

		_, ok := runSearch(b, pos(1, 1), pos(1, 2), defaultSearch())
		require.False(t, ok)

		sp := defaultSearch()
		sp.rejectHops = 1
		r, ok := runSearch(b, pos(1, 1), pos(1, 2), sp)
		require.True(t, ok, "a lower threshold lets the strike through")
		require.Less(t, r.score, 0.0)
	})

	t.Run("depth cap hides distant targets", func(t *testing.T) {
		b := checkmate.NewBoard(9)
		for c := 1; c <= 8; c++ {
			b.Set(pos(1, c), checkmate.Cell{Color: me, Army: 3})
		}
		b.Set(pos(1, 9), checkmate.Cell{Color: enemy, Army: 1})

		_, ok := runSearch(b, pos(1, 1), pos(1, 9), defaultSearch())
		require.False(t, ok, "eight hops is beyond the cap")

		sp := defaultSearch()
		sp.depthLimit = 0
		r, ok := runSearch(b, pos(1, 1), pos(1, 9), sp)
		require.True(t, ok)
		require.Equal(t, pos(1, 2), r.hop)
	})

	t.Run("first arrival is a shortest path", func(t *testing.T) {
		b := checkmate.NewBoard(4)
		for _, p := range b.Positions() {
			b.Set(p, checkmate.Cell{Color: me, Army: 2})
		}
		b.Set(pos(4, 4), checkmate.Cell{Color: enemy, Army: 1})
		for seed := uint64(1); seed <= 30; seed++ {
			var s searchScratch
			s.reset(b.Size)
			r, ok := searchRoute(b, me, pos(1, 1), pos(4, 4), defaultSearch(), newRng(seed), &s)
			require.True(t, ok)
			// six hops: five owned cells each worth 1 plus the anchor, minus 2
			require.InDelta(t, float64(1+5-2)/6, r.score, 1e-9)
			require.Contains(t, []checkmate.Position{pos(1, 2), pos(2, 1)}, r.hop)
		}
	})
}

func TestScratchReset(t *testing.T) {
	var s searchScratch
	s.reset(3)
	s.visited[4] = true
	s.queue = append(s.queue, searchNode{})
	s.reset(3)
	require.Empty(t, s.queue)
	require.Len(t, s.visited, 9)
	require.NotContains(t, s.visited, true)

	s.reset(5)
	require.Len(t, s.visited, 25)
}

func TestUrgent(t *testing.T) {
	b := scenarioA()
	tr := newTurn(testView(b), DefaultParams(), 1)
	require.False(t, tr.urgent())
	require.Equal(t, 6, tr.searchParams().depthLimit)

	b.Set(pos(2, 2), checkmate.Cell{Terrain: checkmate.Castle, Army: 20})
	require.True(t, tr.urgent(), "a visible castle lifts the cap")
	require.Equal(t, 0, tr.searchParams().depthLimit)

	b.Set(pos(2, 2), checkmate.Cell{})
	b.Set(pos(5, 5), checkmate.Cell{Terrain: checkmate.Crown, Color: enemy, Army: 3})
	require.False(t, tr.urgent(), "hidden crowns do not count")
}

func TestSweep(t *testing.T) {
	t.Run("skips anchors next to enemy strongholds", func(t *testing.T) {
		b := corridor()
		b.Set(pos(2, 1), checkmate.Cell{Color: enemy, Terrain: checkmate.Castle, Army: 1})
		tr := newTurn(testView(b), DefaultParams(), 1)
		require.True(t, tr.besieged(pos(1, 1)))

		r, ok := tr.sweep(pos(1, 5), defaultSearch())
		require.True(t, ok)
		require.Equal(t, pos(1, 2), r.anchor, "(1,1) is pinned by the castle")
		require.Equal(t, pos(1, 3), r.hop)
	})

	t.Run("retries keep the best score", func(t *testing.T) {
		p := DefaultParams()
		p.CalcCount = 5
		tr := newTurn(testView(corridor()), p, 1)
		r, ok := tr.routeFrom(pos(1, 1), pos(1, 5), defaultSearch(), noScore)
		require.True(t, ok)
		require.InDelta(t, 3.5, r.score, 1e-9)
	})

	t.Run("weak anchor stops after three tries", func(t *testing.T) {
		p := DefaultParams()
		p.CalcCount = 10
		tr := newTurn(testView(corridor()), p, 1)
		r, ok := tr.routeFrom(pos(1, 1), pos(1, 5), defaultSearch(), 100)
		require.True(t, ok)
		require.InDelta(t, 3.5, r.score, 1e-9)
		require.Equal(t, 3, tr.searches, "3.5 trails 100 by more than half")
	})

	t.Run("competitive anchor runs every try", func(t *testing.T) {
		p := DefaultParams()
		p.CalcCount = 10
		tr := newTurn(testView(corridor()), p, 1)
		_, ok := tr.routeFrom(pos(1, 1), pos(1, 5), defaultSearch(), 5)
		require.True(t, ok)
		require.Equal(t, 10, tr.searches)

		tr.searches = 0
		_, ok = tr.routeFrom(pos(1, 1), pos(1, 5), defaultSearch(), noScore)
		require.True(t, ok)
		require.Equal(t, 10, tr.searches, "first anchor has nothing to trail")
	})

	t.Run("anchor that finds nothing gives up after three tries", func(t *testing.T) {
		p := DefaultParams()
		p.CalcCount = 10
		b := corridor()
		b.Set(pos(1, 4), checkmate.Cell{Terrain: checkmate.Mountain})
		tr := newTurn(testView(b), p, 1)
		_, ok := tr.routeFrom(pos(1, 1), pos(1, 5), defaultSearch(), noScore)
		require.False(t, ok)
		require.Equal(t, 3, tr.searches)
	})

	t.Run("no anchors with spare army", func(t *testing.T) {
		b := corridor()
		for c := 1; c <= 4; c++ {
			b.Set(pos(1, c), checkmate.Cell{Color: me, Army: 1})
		}
		_, ok := newTurn(testView(b), DefaultParams(), 1).sweep(pos(1, 5), defaultSearch())
		require.False(t, ok)
	})
}

func BenchmarkSweep(b *testing.B) {
	board := checkmate.NewBoard(20)
	for r := 1; r <= 10; r++ {
		for c := 1; c <= 10; c++ {
			board.Set(pos(r, c), checkmate.Cell{Color: me, Army: 4})
		}
	}
	board.Set(pos(11, 11), checkmate.Cell{Color: enemy, Army: 9, Terrain: checkmate.Crown})
	p := DefaultParams()
	p.CalcCount = 3
	tr := newTurn(testView(board), p, 1)
	sp := tr.searchParams()

	for b.Loop() {
		tr.sweep(pos(11, 11), sp)
	}
}
