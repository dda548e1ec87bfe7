package bot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/freeeve/checkmate-bot/pkg/checkmate"
)

// Server events.
const (
	EventUpdateGM        = "UpdateGM"
	EventMapUpdate       = "Map_Update"
	EventUpdateColor     = "UpdateColor"
	EventUpdateUser      = "UpdateUser"
	EventUpdateSettings  = "UpdateSettings"
	EventLoggedUserCount = "LoggedUserCount"
	EventWinAction       = "WinAnction"
)

// Client events.
const (
	EmitJoinRoom       = "joinRoom"
	EmitVoteStart      = "VoteStart"
	EmitChangeSettings = "changeSettings"
	EmitMovement       = "UploadMovement"
	EmitView           = "view"
)

var errBadTerrain = errors.New("unknown terrain")

// land is a single cell as the server sends it.
type land struct {
	Color  uint8 `json:"color"`
	Type   uint8 `json:"type"`
	Amount int   `json:"amount"`
}

func (l land) cell() (checkmate.Cell, error) {
	if l.Type >= checkmate.TerrainCount {
		return checkmate.Cell{}, fmt.Errorf("%w %d", errBadTerrain, l.Type)
	}
	return checkmate.Cell{Color: l.Color, Terrain: checkmate.Terrain(l.Type), Army: l.Amount}, nil
}

// DecodeBoard builds a board from an UpdateGM payload. The payload is a
// (size+1)x(size+1) grid whose row and column 0 are padding, except [0][0]
// which carries the map size.
func DecodeBoard(payload json.RawMessage) (*checkmate.Board, error) {
	var grid [][]json.RawMessage
	if err := json.Unmarshal(payload, &grid); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	size := len(grid) - 1
	if len(grid) > 0 && len(grid[0]) > 0 {
		var info struct {
			Size *int `json:"size"`
		}
		if json.Unmarshal(grid[0][0], &info) == nil && info.Size != nil {
			size = *info.Size
		}
	}
	if size < 0 {
		size = 0
	}

	b := checkmate.NewBoard(size)
	for r := 1; r <= size && r < len(grid); r++ {
		for c := 1; c <= size && c < len(grid[r]); c++ {
			var l land
			if err := json.Unmarshal(grid[r][c], &l); err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", r, c, err)
			}
			cell, err := l.cell()
			if err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", r, c, err)
			}
			b.Set(checkmate.Position{Row: r, Col: c}, cell)
		}
	}
	return b, nil
}

// ApplyMapUpdate patches b in place from a Map_Update payload, which is
// [round, data] where data is either a bare number or a list of
// [row, col, landJSON] string triples. It returns the round and the number of
// cells changed.
func ApplyMapUpdate(b *checkmate.Board, payload json.RawMessage) (int, int, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(payload, &pair); err != nil || len(pair) != 2 {
		return 0, 0, fmt.Errorf("decode map update: want [round, data], got %s", truncate(payload))
	}
	var round int
	if err := json.Unmarshal(pair[0], &round); err != nil {
		return 0, 0, fmt.Errorf("decode round: %w", err)
	}

	var triples [][3]string
	if err := json.Unmarshal(pair[1], &triples); err != nil {
		var n float64
		if json.Unmarshal(pair[1], &n) == nil {
			return round, 0, nil
		}
		return round, 0, fmt.Errorf("decode patches: %w", err)
	}

	for _, t := range triples {
		r, err := strconv.Atoi(t[0])
		if err != nil {
			return round, 0, fmt.Errorf("patch row %q: %w", t[0], err)
		}
		c, err := strconv.Atoi(t[1])
		if err != nil {
			return round, 0, fmt.Errorf("patch col %q: %w", t[1], err)
		}
		var l land
		if err := json.Unmarshal([]byte(t[2]), &l); err != nil {
			return round, 0, fmt.Errorf("patch land (%d,%d): %w", r, c, err)
		}
		cell, err := l.cell()
		if err != nil {
			return round, 0, fmt.Errorf("patch land (%d,%d): %w", r, c, err)
		}
		if !b.Set(checkmate.Position{Row: r, Col: c}, cell) {
			return round, 0, fmt.Errorf("patch (%d,%d) outside %dx%d board", r, c, b.Size, b.Size)
		}
	}
	return round, len(triples), nil
}

// DecodeColor reads an UpdateColor payload, sent as a number or a numeric string.
func DecodeColor(payload json.RawMessage) (uint8, error) {
	var n uint8
	if err := json.Unmarshal(payload, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(payload, &s); err != nil {
		return 0, fmt.Errorf("decode color: %w", err)
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("decode color %q: %w", s, err)
	}
	return uint8(v), nil
}

// DecodeUsers reads an UpdateUser payload into a color -> uid map. Only players
// currently in the game are kept; color 0 always maps to uid 0.
func DecodeUsers(payload json.RawMessage) (map[uint8]uint32, error) {
	var users map[string]struct {
		Color  uint8 `json:"color"`
		Gaming bool  `json:"gaming"`
	}
	if err := json.Unmarshal(payload, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := map[uint8]uint32{checkmate.Neutral: 0}
	for id, u := range users {
		if u.Color == checkmate.Neutral || !u.Gaming {
			continue
		}
		uid, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("decode user id %q: %w", id, err)
		}
		out[u.Color] = uint32(uid)
	}
	return out, nil
}

// RoomSettings is the part of UpdateSettings the bot reconciles.
type RoomSettings struct {
	Speed   string
	Private bool
}

// DecodeSettings reads an UpdateSettings payload. Speed arrives as either a
// number or a string and is normalized to its decimal string.
func DecodeSettings(payload json.RawMessage) (RoomSettings, error) {
	var raw struct {
		Speed   json.RawMessage `json:"speed"`
		Private bool            `json:"private"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return RoomSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	rs := RoomSettings{Private: raw.Private}
	var n int
	if err := json.Unmarshal(raw.Speed, &n); err == nil {
		rs.Speed = strconv.Itoa(n)
		return rs, nil
	}
	if err := json.Unmarshal(raw.Speed, &rs.Speed); err != nil {
		return RoomSettings{}, fmt.Errorf("decode speed: %w", err)
	}
	return rs, nil
}

// DecodeUserCount reads the logged-in count from a LoggedUserCount payload.
func DecodeUserCount(payload json.RawMessage) (int, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(payload, &pair); err != nil || len(pair) == 0 {
		return 0, fmt.Errorf("decode user count: got %s", truncate(payload))
	}
	var n int
	if err := json.Unmarshal(pair[0], &n); err != nil {
		return 0, fmt.Errorf("decode user count: %w", err)
	}
	return n, nil
}

// DecodeWinner reads the winner's name from a WinAnction payload.
func DecodeWinner(payload json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", fmt.Errorf("decode winner: %w", err)
	}
	return s, nil
}

func truncate(b []byte) string {
	if len(b) > 120 {
		return string(b[:120]) + "..."
	}
	return string(b)
}
