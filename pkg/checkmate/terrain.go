package checkmate

// Terrain is the wire code of a cell type.
type Terrain uint8

const (
	Plain    Terrain = iota // Open land
	Crown                   // Highest-value objective
	Fort                    // Garrisoned strongpoint
	Castle                  // Strongpoint needing an extra unit of margin to take
	Mountain                // Impassable
	Capital                 // Home cell; capture has territory-wide consequences
	Wall                    // Impassable
)

// TerrainCount is the number of known terrain codes.
const TerrainCount = 7

// Passable reports whether armies can enter a cell of this terrain.
func (t Terrain) Passable() bool {
	return t != Mountain && t != Wall
}

// Stronghold reports whether the terrain is Fort or Castle.
func (t Terrain) Stronghold() bool {
	return t == Fort || t == Castle
}

// CaptureMargin is the army surplus, beyond the defender's count, an attacker
// must hold before a capture is attempted.
func (t Terrain) CaptureMargin() int {
	if t == Castle {
		return 2
	}
	return 1
}

func (t Terrain) String() string {
	switch t {
	case Plain:
		return "plain"
	case Crown:
		return "crown"
	case Fort:
		return "fort"
	case Castle:
		return "castle"
	case Mountain:
		return "mountain"
	case Capital:
		return "capital"
	case Wall:
		return "wall"
	}
	return "unknown"
}
