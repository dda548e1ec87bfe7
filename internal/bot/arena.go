package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/checkmate-bot/internal/model"
	"github.com/freeeve/checkmate-bot/internal/repository"
	"github.com/freeeve/checkmate-bot/pkg/checkmate"
)

const (
	defaultArenaSize     = 15
	defaultArenaMaxTicks = 600
	growthInterval       = 25
)

// ArenaConfig configures a single offline bot-vs-bot game.
type ArenaConfig struct {
	GameName string
	Seats    []string // strategy name per seat; seat i plays color i+1
	Size     int      // board side, default 15
	MaxTicks int      // tick cap before the game is called, default 600
	Seed     uint64   // 0 = random
	Params   Params   // engine tuning for every engine seat
	FullView bool     // disable fog of war
}

// ArenaResult describes the outcome of a completed arena game.
type ArenaResult struct {
	GameName string   `json:"game_name"`
	Winner   int      `json:"winner"` // seat index, -1 for a draw
	Ticks    int      `json:"ticks"`
	Seats    []string `json:"seats"`
	Cells    []int    `json:"cells"`
	Armies   []int    `json:"armies"`
	Moves    []int    `json:"moves"`
}

// WinnerName returns the winning seat's strategy, or "" for a draw.
func (r *ArenaResult) WinnerName() string {
	if r.Winner < 0 {
		return ""
	}
	return r.Seats[r.Winner]
}

// ParseSeats reads a comma-separated seat list such as "engine,random,engine".
// An "a-vs-b" matchup gives a single a seat against b.
func ParseSeats(s string) []string {
	if a, b, ok := strings.Cut(s, "-vs-"); ok {
		return []string{a, b}
	}
	var seats []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			seats = append(seats, part)
		}
	}
	return seats
}

func seatColor(i int) uint8 { return uint8(i + 1) }

// GenerateBoard lays out a random board with one Capital per player. Capitals
// start with one army and are kept apart; their neighbours are always open.
// It returns the board and the capitals in seat order.
func GenerateBoard(size, players int, seed uint64) (*checkmate.Board, []checkmate.Position, error) {
	if players < 1 || players*4 > size*size {
		return nil, nil, fmt.Errorf("cannot seat %d players on a %dx%d board", players, size, size)
	}
	g := newRng(seed)
	b := checkmate.NewBoard(size)

	for _, p := range b.Positions() {
		switch roll := g.intn(100); {
		case roll < 14:
			b.Set(p, checkmate.Cell{Terrain: checkmate.Mountain})
		case roll < 17:
			b.Set(p, checkmate.Cell{Terrain: checkmate.Wall})
		case roll < 21:
			b.Set(p, checkmate.Cell{Terrain: checkmate.Crown, Army: 5 + g.intn(10)})
		case roll < 24:
			b.Set(p, checkmate.Cell{Terrain: checkmate.Fort, Army: 10 + g.intn(15)})
		case roll < 26:
			b.Set(p, checkmate.Cell{Terrain: checkmate.Castle, Army: 20 + g.intn(20)})
		}
	}

	minDist := max(size/2, 2)
	var homes []checkmate.Position
	cells := b.Positions()
	for len(homes) < players {
		placed := false
		for try := 0; try < 200 && !placed; try++ {
			p := cells[g.intn(len(cells))]
			if farFrom(p, homes, minDist) {
				homes, placed = append(homes, p), true
			}
		}
		if !placed {
			if minDist == 1 {
				return nil, nil, fmt.Errorf("no room for capital %d", len(homes)+1)
			}
			minDist--
		}
	}

	for i, h := range homes {
		b.Set(h, checkmate.Cell{Color: seatColor(i), Terrain: checkmate.Capital, Army: 1})
		for _, n := range neighbours4(b, h) {
			if c := b.At(n); c.Color == checkmate.Neutral && !c.Terrain.Passable() {
				b.Set(n, checkmate.Cell{})
			}
		}
	}
	return b, homes, nil
}

func farFrom(p checkmate.Position, others []checkmate.Position, d int) bool {
	for _, o := range others {
		if abs(p.Row-o.Row)+abs(p.Col-o.Col) < d {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// neighbours4 lists in-bounds orthogonal neighbours regardless of terrain.
func neighbours4(b *checkmate.Board, p checkmate.Position) []checkmate.Position {
	var out []checkmate.Position
	for _, n := range []checkmate.Position{{Row: p.Row - 1, Col: p.Col}, {Row: p.Row, Col: p.Col + 1}, {Row: p.Row + 1, Col: p.Col}, {Row: p.Row, Col: p.Col - 1}} {
		if b.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// fogView is what color can see: cells out of sight lose owner and army but
// keep their terrain.
func fogView(b *checkmate.Board, color uint8) *checkmate.Board {
	v := b.Clone()
	for _, p := range v.Positions() {
		if !b.Visible(p, color) {
			v.Set(p, checkmate.Cell{Terrain: b.At(p).Terrain})
		}
	}
	return v
}

// arenaGame is the mutable state of one simulated game.
type arenaGame struct {
	board      *checkmate.Board
	strategies []Strategy
	identities map[uint8]uint32
	alive      []bool
	moves      []int
	fog        bool
	rng        *rng
}

// applyMove executes mv for seat. Illegal moves are dropped.
func (g *arenaGame) applyMove(seat int, mv checkmate.Movement) bool {
	color := seatColor(seat)
	if !mv.Valid(g.board, color) {
		return false
	}
	from, to := g.board.At(mv.From), g.board.At(mv.To)
	if from.Army <= 1 {
		return false
	}
	sent := from.Army - 1
	if mv.Half {
		sent = from.Army / 2
	}
	from.Army -= sent
	g.board.Set(mv.From, from)

	switch {
	case to.Color == color:
		to.Army += sent
	case sent > to.Army:
		loser := to.Color
		to.Color, to.Army = color, sent-to.Army
		if to.Terrain == checkmate.Capital && loser != checkmate.Neutral {
			to.Terrain = checkmate.Fort
			g.board.Set(mv.To, to)
			g.annex(loser, color)
			return true
		}
	default:
		to.Army -= sent
	}
	g.board.Set(mv.To, to)
	return true
}

// annex hands every cell of loser to winner.
func (g *arenaGame) annex(loser, winner uint8) {
	for _, p := range g.board.Positions() {
		if c := g.board.At(p); c.Color == loser {
			c.Color = winner
			g.board.Set(p, c)
		}
	}
}

// grow adds one army to owned special cells every tick and to every owned
// cell every growthInterval ticks.
func (g *arenaGame) grow(tick int) {
	all := tick%growthInterval == 0
	for _, p := range g.board.Positions() {
		c := g.board.At(p)
		if c.Color == checkmate.Neutral {
			continue
		}
		if all || (c.Terrain != checkmate.Plain && c.Terrain.Passable()) {
			c.Army++
			g.board.Set(p, c)
		}
	}
}

func (g *arenaGame) view(seat int) View {
	color := seatColor(seat)
	b := g.board
	if g.fog {
		b = fogView(g.board, color)
	}
	return View{
		Board:      b,
		Color:      color,
		Identities: g.identities,
		Team:       checkmate.Team{Members: []uint32{uint32(color)}, Rank: 1},
	}
}

// tick plays one round: every live seat moves once in a random order, then
// armies grow and eliminated seats drop out.
func (g *arenaGame) tick(n int) {
	order := make([]int, 0, len(g.strategies))
	for i := range g.strategies {
		if g.alive[i] {
			order = append(order, i)
		}
	}
	shuffle(g.rng, order)
	for _, seat := range order {
		if !g.alive[seat] {
			continue
		}
		if mv, ok := g.strategies[seat].NextMove(g.view(seat)); ok && g.applyMove(seat, mv) {
			g.moves[seat]++
		}
	}
	g.grow(n)
	for i := range g.alive {
		if cells, _ := g.board.CountOwned(seatColor(i)); cells == 0 {
			g.alive[i] = false
		}
	}
}

func (g *arenaGame) survivors() []int {
	var out []int
	for i, a := range g.alive {
		if a {
			out = append(out, i)
		}
	}
	return out
}

// RunGame plays a full offline game. When matches is non-nil every seat's
// outcome is recorded.
func RunGame(ctx context.Context, cfg ArenaConfig, matches repository.MatchRepository) (*ArenaResult, error) {
	if len(cfg.Seats) < 2 {
		return nil, fmt.Errorf("need at least 2 seats, got %d", len(cfg.Seats))
	}
	if cfg.Size == 0 {
		cfg.Size = defaultArenaSize
	}
	if cfg.MaxTicks == 0 {
		cfg.MaxTicks = defaultArenaMaxTicks
	}
	if cfg.Params == (Params{}) {
		cfg.Params = DefaultParams()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64() | 1
	}

	board, _, err := GenerateBoard(cfg.Size, len(cfg.Seats), seed)
	if err != nil {
		return nil, fmt.Errorf("generate board: %w", err)
	}

	g := &arenaGame{
		board:      board,
		identities: map[uint8]uint32{checkmate.Neutral: 0},
		alive:      make([]bool, len(cfg.Seats)),
		moves:      make([]int, len(cfg.Seats)),
		fog:        !cfg.FullView,
		rng:        newRng(seed ^ 0x5eed),
	}
	for i, name := range cfg.Seats {
		g.strategies = append(g.strategies, StrategyFor(name, cfg.Params, seed+uint64(i)+1))
		g.identities[seatColor(i)] = uint32(seatColor(i))
		g.alive[i] = true
	}

	started := time.Now().UTC()
	result := &ArenaResult{GameName: cfg.GameName, Winner: -1, Seats: cfg.Seats}
	for result.Ticks < cfg.MaxTicks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Ticks++
		g.tick(result.Ticks)
		if s := g.survivors(); len(s) == 1 {
			result.Winner = s[0]
			break
		}
	}

	for i := range cfg.Seats {
		cells, armies := g.board.CountOwned(seatColor(i))
		result.Cells = append(result.Cells, cells)
		result.Armies = append(result.Armies, armies)
	}
	result.Moves = g.moves

	if result.Winner >= 0 {
		log.Debug().Str("game", cfg.GameName).Str("winner", result.WinnerName()).Int("ticks", result.Ticks).Msg("Arena game won")
	} else {
		log.Debug().Str("game", cfg.GameName).Int("ticks", result.Ticks).Ints("cells", result.Cells).Msg("Arena game ended as draw (tick limit)")
	}

	if matches != nil {
		if err := recordArena(ctx, matches, cfg, result, started); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func recordArena(ctx context.Context, matches repository.MatchRepository, cfg ArenaConfig, r *ArenaResult, started time.Time) error {
	room := cfg.GameName
	if room == "" {
		room = "arena"
	}
	finished := time.Now().UTC()
	for i := range cfg.Seats {
		m := &model.Match{
			Room:       room,
			UID:        uint32(seatColor(i)),
			Color:      seatColor(i),
			Winner:     r.WinnerName(),
			Outcome:    model.OutcomeDraw,
			Ticks:      r.Ticks,
			Moves:      r.Moves[i],
			StartedAt:  started,
			FinishedAt: finished,
		}
		switch {
		case r.Winner == i:
			m.Outcome = model.OutcomeWin
		case r.Winner >= 0:
			m.Outcome = model.OutcomeLoss
		}
		if err := matches.Record(ctx, m); err != nil {
			return fmt.Errorf("record seat %d: %w", i+1, err)
		}
	}
	return nil
}
