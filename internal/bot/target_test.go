package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freeeve/checkmate-bot/pkg/checkmate"
)

func TestSelectTarget(t *testing.T) {
	t.Run("prefers crowns and forts over plains", func(t *testing.T) {
		b := checkmate.NewBoard(5)
		b.Set(pos(3, 3), checkmate.Cell{Color: me, Army: 5})
		b.Set(pos(2, 2), checkmate.Cell{Color: enemy, Army: 9, Terrain: checkmate.Crown})
		b.Set(pos(4, 4), checkmate.Cell{Color: enemy, Army: 1, Terrain: checkmate.Capital})

		for seed := uint64(1); seed <= 20; seed++ {
			got, ok, err := newTurn(testView(b), DefaultParams(), seed).selectTarget()
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, pos(2, 2), got)
		}
	})

	t.Run("ties resolve to any minimum", func(t *testing.T) {
		b := checkmate.NewBoard(3)
		b.Set(pos(2, 2), checkmate.Cell{Color: me, Army: 5})
		seen := map[checkmate.Position]bool{}
		for seed := uint64(1); seed <= 200; seed++ {
			got, ok, err := newTurn(testView(b), DefaultParams(), seed).selectTarget()
			require.NoError(t, err)
			require.True(t, ok)
			require.NotEqual(t, pos(2, 2), got)
			seen[got] = true
		}
		require.Greater(t, len(seen), 1, "equal scores should not always pick the same cell")
	})

	t.Run("never picks owned, hidden or protected land", func(t *testing.T) {
		b := checkmate.NewBoard(6)
		b.Set(pos(1, 1), checkmate.Cell{Color: me, Army: 5, Terrain: checkmate.Crown})
		b.Set(pos(1, 2), checkmate.Cell{Color: junior, Army: 1, Terrain: checkmate.Crown})
		b.Set(pos(2, 1), checkmate.Cell{Terrain: checkmate.Mountain})
		b.Set(pos(2, 2), checkmate.Cell{Color: mate, Army: 1, Terrain: checkmate.Fort})
		b.Set(pos(6, 6), checkmate.Cell{Color: enemy, Army: 1, Terrain: checkmate.Crown})

		for seed := uint64(1); seed <= 20; seed++ {
			got, ok, err := newTurn(testView(b), DefaultParams(), seed).selectTarget()
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, pos(2, 2), got, "senior teammate's fort is the only candidate")
		}
	})

	t.Run("teammates rank behind neutral plains", func(t *testing.T) {
		b := checkmate.NewBoard(3)
		b.Set(pos(1, 1), checkmate.Cell{Color: me, Army: 5})
		b.Set(pos(1, 2), checkmate.Cell{Color: mate, Army: 1, Terrain: checkmate.Crown})
		b.Set(pos(2, 1), checkmate.Cell{Terrain: checkmate.Wall})
		b.Set(pos(2, 2), checkmate.Cell{Army: 40})

		got, ok, err := newTurn(testView(b), DefaultParams(), 1).selectTarget()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, pos(2, 2), got)
	})

	t.Run("nothing in sight", func(t *testing.T) {
		_, ok, err := newTurn(testView(sealed()), DefaultParams(), 1).selectTarget()
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unknown color aborts", func(t *testing.T) {
		b := scenarioA()
		b.Set(pos(4, 4), checkmate.Cell{Color: 42, Army: 1})
		_, _, err := newTurn(testView(b), DefaultParams(), 1).selectTarget()
		require.True(t, errors.Is(err, errUnresolvedOwner))
	})
}
