package checkmate

// Movement is a single proposed army transfer between adjacent cells. Half
// asks the server to send floor(army/2) instead of army-1.
type Movement struct {
	From Position `json:"from"`
	To   Position `json:"to"`
	Half bool     `json:"half"`
}

// Args returns the UploadMovement payload: [r1, c1, r2, c2, half].
func (m Movement) Args() [5]int {
	half := 0
	if m.Half {
		half = 1
	}
	return [5]int{m.From.Row, m.From.Col, m.To.Row, m.To.Col, half}
}

// Valid reports whether the move starts on a cell owned by color and targets a
// passable neighbour.
func (m Movement) Valid(b *Board, color uint8) bool {
	if !b.Owned(m.From, color) {
		return false
	}
	for _, n := range b.Adjacent(m.From) {
		if n == m.To {
			return true
		}
	}
	return false
}
