// Package checkmate models the square board of the checkmate territory game:
// cells, terrain rules, adjacency and fog-of-war visibility.
package checkmate

import "fmt"

// Neutral is the color of unowned cells.
const Neutral uint8 = 0

// Position is a 1-based (row, col) board coordinate. The zero value means
// "no position".
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// IsZero reports whether p is the "no position" value.
func (p Position) IsZero() bool {
	return p.Row == 0 && p.Col == 0
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// directions in up, right, down, left order.
var directions = [4][2]int{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}

// Cell is the state of a single board square.
type Cell struct {
	Color   uint8   `json:"color"`
	Terrain Terrain `json:"type"`
	Army    int     `json:"amount"`
}

// Board is a Size x Size grid of cells addressed by 1-based positions.
type Board struct {
	Size  int
	cells []Cell
}

// NewBoard returns an all-Plain neutral board. A non-positive size yields an
// empty board that contains no positions.
func NewBoard(size int) *Board {
	if size < 0 {
		size = 0
	}
	return &Board{Size: size, cells: make([]Cell, size*size)}
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	cp := &Board{Size: b.Size, cells: make([]Cell, len(b.cells))}
	copy(cp.cells, b.cells)
	return cp
}

// InBounds reports whether p lies on the board.
func (b *Board) InBounds(p Position) bool {
	return p.Row >= 1 && p.Row <= b.Size && p.Col >= 1 && p.Col <= b.Size
}

func (b *Board) index(p Position) int {
	return (p.Row-1)*b.Size + (p.Col - 1)
}

// At returns the cell at p. Out-of-range positions return the zero Cell.
func (b *Board) At(p Position) Cell {
	if !b.InBounds(p) {
		return Cell{}
	}
	return b.cells[b.index(p)]
}

// Set replaces the cell at p. Out-of-range positions are ignored and reported
// as false.
func (b *Board) Set(p Position, c Cell) bool {
	if !b.InBounds(p) {
		return false
	}
	b.cells[b.index(p)] = c
	return true
}

// Positions returns every board position in row-major order.
func (b *Board) Positions() []Position {
	out := make([]Position, 0, len(b.cells))
	for r := 1; r <= b.Size; r++ {
		for c := 1; c <= b.Size; c++ {
			out = append(out, Position{r, c})
		}
	}
	return out
}

// Adjacent returns the 4-directional neighbours of p that are on the board
// and passable.
func (b *Board) Adjacent(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range directions {
		n := Position{p.Row + d[0], p.Col + d[1]}
		if b.InBounds(n) && b.At(n).Terrain.Passable() {
			out = append(out, n)
		}
	}
	return out
}

// Visible reports whether p or any of its eight surrounding cells is owned by
// color.
func (b *Board) Visible(p Position, color uint8) bool {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			n := Position{p.Row + dr, p.Col + dc}
			if b.InBounds(n) && b.At(n).Color == color {
				return true
			}
		}
	}
	return false
}

// Owned reports whether the cell at p belongs to color.
func (b *Board) Owned(p Position, color uint8) bool {
	return b.InBounds(p) && b.At(p).Color == color
}

// CountOwned returns the number of cells and the total army held by color.
func (b *Board) CountOwned(color uint8) (cells, army int) {
	for _, c := range b.cells {
		if c.Color == color {
			cells++
			army += c.Army
		}
	}
	return cells, army
}
