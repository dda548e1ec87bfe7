package bot

import "github.com/freeeve/checkmate-bot/pkg/checkmate"

// targetScore ranks long-range objectives by terrain; lower is better.
var targetScore = [checkmate.TerrainCount]int{
	checkmate.Plain:    2,
	checkmate.Crown:    1,
	checkmate.Fort:     1,
	checkmate.Castle:   1,
	checkmate.Mountain: 9,
	checkmate.Capital:  3,
	checkmate.Wall:     9,
}

// teammateTargetPenalty pushes teammates' land behind everyone else's.
const teammateTargetPenalty = 10

type targetCandidate struct {
	pos   checkmate.Position
	score int
}

// selectTarget picks the most desirable visible cell we do not own. It
// reports false when nothing is in sight.
func (t *turn) selectTarget() (checkmate.Position, bool, error) {
	var cands []targetCandidate
	for _, p := range t.Board.Positions() {
		c := t.Board.At(p)
		if !c.Terrain.Passable() || c.Color == t.Color || !t.Board.Visible(p, t.Color) {
			continue
		}
		uid, err := t.owner(c)
		if err != nil {
			return checkmate.Position{}, false, err
		}
		if t.Team.Protected(uid) {
			continue
		}
		score := targetScore[c.Terrain]
		if t.Team.Contains(uid) {
			score += teammateTargetPenalty
		}
		cands = append(cands, targetCandidate{pos: p, score: score})
	}
	if len(cands) == 0 {
		return checkmate.Position{}, false, nil
	}

	// Shuffle first so equal scores resolve to any of the tied cells.
	shuffle(t.rng, cands)
	best := cands[0]
	for _, c := range cands[1:] {
		if c.score < best.score {
			best = c
		}
	}
	return best.pos, true, nil
}
