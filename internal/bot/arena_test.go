package bot

import (
	"context"
	"testing"

	"github.com/freeeve/checkmate-bot/internal/model"
	"github.com/freeeve/checkmate-bot/pkg/checkmate"
)

func TestParseSeats(t *testing.T) {
	cases := map[string][]string{
		"engine-vs-random":       {"engine", "random"},
		"engine, random ,engine": {"engine", "random", "engine"},
		"engine,,idle":           {"engine", "idle"},
	}
	for in, want := range cases {
		got := ParseSeats(in)
		if len(got) != len(want) {
			t.Fatalf("ParseSeats(%q) = %v, want %v", in, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("ParseSeats(%q)[%d] = %q, want %q", in, i, got[i], want[i])
			}
		}
	}
}

func TestGenerateBoard(t *testing.T) {
	b, homes, err := GenerateBoard(12, 3, 7)
	if err != nil {
		t.Fatalf("GenerateBoard failed: %v", err)
	}
	if b.Size != 12 || len(homes) != 3 {
		t.Fatalf("expected 12x12 with 3 homes, got size %d homes %d", b.Size, len(homes))
	}
	for i, h := range homes {
		c := b.At(h)
		if c.Terrain != checkmate.Capital || c.Color != seatColor(i) || c.Army != 1 {
			t.Errorf("home %d at %v: unexpected cell %+v", i, h, c)
		}
		if len(b.Adjacent(h)) != len(neighbours4(b, h)) {
			t.Errorf("home %d at %v has a blocked neighbour", i, h)
		}
		if cells, _ := b.CountOwned(seatColor(i)); cells != 1 {
			t.Errorf("seat %d starts with %d cells, want 1", i, cells)
		}
	}

	again, _, _ := GenerateBoard(12, 3, 7)
	for _, p := range b.Positions() {
		if b.At(p) != again.At(p) {
			t.Fatalf("same seed produced different boards at %v", p)
		}
	}

	if _, _, err := GenerateBoard(3, 4, 1); err == nil {
		t.Error("expected an error for an overcrowded board")
	}
}

// duel is a 4x4 board: seat 0 holds the top-left corner, seat 1 the top-right.
func duel() *arenaGame {
	b := checkmate.NewBoard(4)
	b.Set(pos(1, 1), checkmate.Cell{Color: 1, Terrain: checkmate.Capital, Army: 10})
	b.Set(pos(1, 2), checkmate.Cell{Color: 1, Army: 2})
	b.Set(pos(1, 4), checkmate.Cell{Color: 2, Terrain: checkmate.Capital, Army: 3})
	b.Set(pos(2, 4), checkmate.Cell{Color: 2, Army: 6})
	return &arenaGame{
		board:      b,
		strategies: []Strategy{IdleStrategy{}, IdleStrategy{}},
		identities: map[uint8]uint32{0: 0, 1: 1, 2: 2},
		alive:      []bool{true, true},
		moves:      make([]int, 2),
		rng:        newRng(1),
	}
}

func TestApplyMove(t *testing.T) {
	g := duel()

	if !g.applyMove(0, checkmate.Movement{From: pos(1, 1), To: pos(1, 2)}) {
		t.Fatal("reinforcing own cell should succeed")
	}
	if a, b := g.board.At(pos(1, 1)).Army, g.board.At(pos(1, 2)).Army; a != 1 || b != 11 {
		t.Errorf("after full move: from=%d to=%d, want 1 and 11", a, b)
	}

	if !g.applyMove(0, checkmate.Movement{From: pos(1, 2), To: pos(1, 3), Half: true}) {
		t.Fatal("half move into neutral should succeed")
	}
	if c := g.board.At(pos(1, 3)); c.Color != 1 || c.Army != 5 {
		t.Errorf("half move sends army/2: got %+v", c)
	}
	if a := g.board.At(pos(1, 2)).Army; a != 6 {
		t.Errorf("half move leaves %d behind, want 6", a)
	}

	if g.applyMove(1, checkmate.Movement{From: pos(1, 3), To: pos(1, 4)}) {
		t.Error("moving from an enemy cell must be rejected")
	}
	if g.applyMove(0, checkmate.Movement{From: pos(1, 1), To: pos(2, 1)}) {
		t.Error("a one-army cell cannot move")
	}

	if !g.applyMove(0, checkmate.Movement{From: pos(1, 3), To: pos(2, 3)}) {
		t.Fatal("move into neutral should succeed")
	}
	// 5 sends 4 against 6: repelled.
	g.board.Set(pos(2, 3), checkmate.Cell{Color: 1, Army: 5})
	g.applyMove(0, checkmate.Movement{From: pos(2, 3), To: pos(2, 4)})
	if c := g.board.At(pos(2, 4)); c.Color != 2 || c.Army != 2 {
		t.Errorf("attack of 4 against 6 should leave 2 defenders, got %+v", c)
	}
}

func TestCapitalCaptureAnnexes(t *testing.T) {
	g := duel()
	g.board.Set(pos(1, 3), checkmate.Cell{Color: 1, Army: 9})

	if !g.applyMove(0, checkmate.Movement{From: pos(1, 3), To: pos(1, 4)}) {
		t.Fatal("capital attack should be applied")
	}
	capital := g.board.At(pos(1, 4))
	if capital.Color != 1 || capital.Army != 5 || capital.Terrain != checkmate.Fort {
		t.Errorf("captured capital: got %+v", capital)
	}
	if c := g.board.At(pos(2, 4)); c.Color != 1 || c.Army != 6 {
		t.Errorf("loser's land should change hands with its army, got %+v", c)
	}

	g.tick(1)
	if g.alive[1] {
		t.Error("seat 1 should be eliminated")
	}
	if s := g.survivors(); len(s) != 1 || s[0] != 0 {
		t.Errorf("survivors = %v, want [0]", s)
	}
}

func TestGrow(t *testing.T) {
	g := duel()
	g.board.Set(pos(3, 3), checkmate.Cell{Terrain: checkmate.Fort, Army: 10})

	g.grow(1)
	if a := g.board.At(pos(1, 1)).Army; a != 11 {
		t.Errorf("capital should grow every tick: %d", a)
	}
	if a := g.board.At(pos(1, 2)).Army; a != 2 {
		t.Errorf("plain should not grow off-cycle: %d", a)
	}
	if a := g.board.At(pos(3, 3)).Army; a != 10 {
		t.Errorf("neutral fort should never grow: %d", a)
	}

	g.grow(growthInterval)
	if a := g.board.At(pos(1, 2)).Army; a != 3 {
		t.Errorf("plain should grow on the cycle: %d", a)
	}
	if a := g.board.At(pos(1, 1)).Army; a != 12 {
		t.Errorf("capital grows once per tick even on the cycle: %d", a)
	}
}

func TestFogView(t *testing.T) {
	g := duel()
	v := fogView(g.board, 1)
	if c := v.At(pos(1, 4)); c.Color != 0 || c.Army != 0 || c.Terrain != checkmate.Capital {
		t.Errorf("far enemy capital should be fogged but keep terrain, got %+v", c)
	}
	if c := v.At(pos(1, 3)); c != g.board.At(pos(1, 3)) {
		t.Errorf("cell next to own land should be visible, got %+v", c)
	}
	if g.board.At(pos(1, 4)).Color != 2 {
		t.Error("fogView must not modify the real board")
	}
}

func TestRunGame(t *testing.T) {
	ctx := context.Background()
	cfg := ArenaConfig{
		GameName: "test-arena",
		Seats:    []string{"engine", "idle"},
		Size:     8,
		MaxTicks: 400,
		Seed:     42,
	}

	result, err := RunGame(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("RunGame failed: %v", err)
	}
	if result.Ticks == 0 || result.Ticks > cfg.MaxTicks {
		t.Errorf("unexpected tick count %d", result.Ticks)
	}
	if len(result.Cells) != 2 || len(result.Moves) != 2 {
		t.Fatalf("expected per-seat stats, got %+v", result)
	}
	if result.Moves[1] != 0 {
		t.Errorf("idle seat moved %d times", result.Moves[1])
	}
	if result.Moves[0] == 0 {
		t.Error("engine seat never moved")
	}
	if result.Cells[0] <= result.Cells[1] {
		t.Errorf("engine should out-expand an idle opponent: cells %v", result.Cells)
	}
	t.Logf("Result: winner=%q ticks=%d cells=%v", result.WinnerName(), result.Ticks, result.Cells)

	again, err := RunGame(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("RunGame failed: %v", err)
	}
	if again.Ticks != result.Ticks || again.Winner != result.Winner {
		t.Errorf("same seed should replay: %d/%d vs %d/%d", result.Ticks, result.Winner, again.Ticks, again.Winner)
	}
}

func TestRunGameRecordsMatches(t *testing.T) {
	repo := &fakeMatches{}
	cfg := ArenaConfig{Seats: []string{"idle", "idle"}, Size: 6, MaxTicks: 5, Seed: 3}

	result, err := RunGame(context.Background(), cfg, repo)
	if err != nil {
		t.Fatalf("RunGame failed: %v", err)
	}
	if result.Winner != -1 || result.Ticks != 5 {
		t.Errorf("idle players should draw at the tick limit, got winner=%d ticks=%d", result.Winner, result.Ticks)
	}
	if len(repo.recorded) != 2 {
		t.Fatalf("expected 2 recorded matches, got %d", len(repo.recorded))
	}
	for i, m := range repo.recorded {
		if m.Room != "arena" || m.Outcome != model.OutcomeDraw || m.Color != seatColor(i) {
			t.Errorf("seat %d recorded %+v", i, m)
		}
	}
}

func TestRunGameValidation(t *testing.T) {
	if _, err := RunGame(context.Background(), ArenaConfig{Seats: []string{"engine"}}, nil); err == nil {
		t.Error("a single seat should be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RunGame(ctx, ArenaConfig{Seats: []string{"idle", "idle"}, Seed: 1}, nil); err == nil {
		t.Error("a cancelled context should stop the game")
	}
}
