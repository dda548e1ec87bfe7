package bot

import "github.com/freeeve/checkmate-bot/pkg/checkmate"

// expandScore ranks immediate captures by the captured terrain; lower is better.
var expandScore = [checkmate.TerrainCount]int{
	checkmate.Plain:    5,
	checkmate.Crown:    1,
	checkmate.Fort:     3,
	checkmate.Castle:   2,
	checkmate.Mountain: 9,
	checkmate.Capital:  4,
	checkmate.Wall:     9,
}

const (
	threatPenalty         = 10
	teammateExpandPenalty = 100
	garrisonBonusCap      = 20
	garrisonSurplusCap    = 10
)

// expansion is a one-step capture from an owned cell into a neighbour.
type expansion struct {
	from, to checkmate.Position
	teammate bool
}

// expansions lists every capture our armies can afford right now.
func (t *turn) expansions() ([]expansion, error) {
	var out []expansion
	for _, from := range t.Board.Positions() {
		fc := t.Board.At(from)
		if fc.Color != t.Color {
			continue
		}
		for _, to := range t.Board.Adjacent(from) {
			tc := t.Board.At(to)
			if tc.Color == t.Color || fc.Army <= tc.Army+tc.Terrain.CaptureMargin() {
				continue
			}
			uid, err := t.owner(tc)
			if err != nil {
				return nil, err
			}
			if t.Team.Protected(uid) {
				continue
			}
			out = append(out, expansion{from: from, to: to, teammate: t.Team.Contains(uid)})
		}
	}
	return out, nil
}

// expansionScore prices a capture: terrain value, a discount for spending a
// Fort garrison on a high-value neighbour, and penalties for leaving either
// end exposed to a stronger neighbour.
func (t *turn) expansionScore(x expansion) int {
	fc, tc := t.Board.At(x.from), t.Board.At(x.to)
	score := expandScore[tc.Terrain]

	if fc.Terrain == checkmate.Fort && (tc.Terrain == checkmate.Crown || tc.Terrain == checkmate.Castle) {
		bonus := garrisonBonusCap - min(fc.Army-tc.Army, garrisonSurplusCap)
		score -= min(max(bonus, 0), garrisonBonusCap)
	}

	remain := 1
	if splitForce(t.Board, t.Color, x.from, x.to) {
		remain = fc.Army / 2
	}
	for _, n := range t.Board.Adjacent(x.from) {
		nc := t.Board.At(n)
		if n != x.to && nc.Color != t.Color && nc.Army > remain+1 {
			score += threatPenalty
			break
		}
	}

	arrived := fc.Army - remain - tc.Army
	for _, n := range t.Board.Adjacent(x.to) {
		nc := t.Board.At(n)
		if nc.Color != t.Color && nc.Army > arrived+1 {
			score += threatPenalty
			break
		}
	}

	if x.teammate {
		score += teammateExpandPenalty
	}
	return score
}

// expand commits the cheapest affordable capture.
func (t *turn) expand() (checkmate.Movement, bool, error) {
	cands, err := t.expansions()
	if err != nil {
		return checkmate.Movement{}, false, err
	}
	if len(cands) == 0 {
		return checkmate.Movement{}, false, nil
	}

	shuffle(t.rng, cands)
	best, bestScore := cands[0], t.expansionScore(cands[0])
	for _, x := range cands[1:] {
		if s := t.expansionScore(x); s < bestScore {
			best, bestScore = x, s
		}
	}

	// Spending the anchor's army elsewhere ends the current pursuit.
	if best.from == t.state.Anchor && best.to != t.state.Target {
		t.state.Target = checkmate.Position{}
	}
	return buildMove(t.Board, t.Color, best.from, best.to), true, nil
}
