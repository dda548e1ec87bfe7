package checkmate

import "slices"

// Team is the ordered roster of cooperating agents in one room and team,
// together with this agent's own one-based rank in it.
type Team struct {
	Members []uint32
	Rank    int
}

// rankOf returns the one-based rank of uid, or 0 when it is not a member.
func (t Team) rankOf(uid uint32) int {
	if i := slices.Index(t.Members, uid); i >= 0 {
		return i + 1
	}
	return 0
}

// Contains reports whether uid is a teammate.
func (t Team) Contains(uid uint32) bool {
	return t.rankOf(uid) > 0
}

// Protected reports whether uid's land must be left alone by this agent:
// teammates ranked after us keep their territory.
func (t Team) Protected(uid uint32) bool {
	return t.rankOf(uid) > t.Rank
}

// Leader reports whether this agent holds the first rank.
func (t Team) Leader() bool {
	return t.Rank <= 1
}
