package bot

import "github.com/freeeve/checkmate-bot/pkg/checkmate"

// capitalCautionArmy is the army size above which a Capital attack keeps half
// the force home.
const capitalCautionArmy = 25

// splitForce decides whether a committed move should send only half the army,
// keeping the rest home when another valuable enemy cell borders the source.
func splitForce(b *checkmate.Board, color uint8, from, to checkmate.Position) bool {
	fc, tc := b.At(from), b.At(to)

	if tc.Terrain != checkmate.Plain && tc.Terrain != checkmate.Capital &&
		tc.Color != color && (fc.Army-1)/2 > tc.Army &&
		otherEnemyNeighbour(b, color, from, to, checkmate.Terrain.Stronghold) {
		return true
	}

	if tc.Terrain == checkmate.Capital && fc.Army > capitalCautionArmy {
		return otherEnemyNeighbour(b, color, from, to, func(tr checkmate.Terrain) bool {
			return tr == checkmate.Crown || tr.Stronghold() || tr == checkmate.Capital
		})
	}
	return false
}

// otherEnemyNeighbour reports whether from borders a cell other than to that
// we do not own and whose terrain matches.
func otherEnemyNeighbour(b *checkmate.Board, color uint8, from, to checkmate.Position, match func(checkmate.Terrain) bool) bool {
	for _, n := range b.Adjacent(from) {
		c := b.At(n)
		if n != to && c.Color != color && match(c.Terrain) {
			return true
		}
	}
	return false
}

// buildMove turns a committed (from, to) pair into a Movement.
func buildMove(b *checkmate.Board, color uint8, from, to checkmate.Position) checkmate.Movement {
	return checkmate.Movement{From: from, To: to, Half: splitForce(b, color, from, to)}
}
