package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/checkmate-bot/internal/bot"
	"github.com/freeeve/checkmate-bot/internal/repository"
	"github.com/freeeve/checkmate-bot/internal/repository/postgres"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		seats    string
		numGames int
		workers  int
		size     int
		maxTicks int
		dbURL    string
		seed     uint64
		fullView bool
		jsonOut  bool
	)

	flag.StringVar(&seats, "p", "engine-vs-random", "Seats (e.g. engine,random,idle or engine-vs-random)")
	flag.IntVar(&numGames, "n", 1, "Number of games to run")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel games)")
	flag.IntVar(&size, "size", 15, "Board side length")
	flag.IntVar(&maxTicks, "max-ticks", 600, "Max ticks before draw")
	flag.StringVar(&dbURL, "db", "", "Database URL to record outcomes (empty = don't record)")
	flag.Uint64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.BoolVar(&fullView, "full-view", false, "Disable fog of war")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	players := bot.ParseSeats(seats)
	if len(players) < 2 {
		log.Fatal().Str("p", seats).Msg("Need at least two seats")
	}
	workers = max(workers, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var matches repository.MatchRepository
	if dbURL != "" {
		db, err := postgres.Connect(ctx, dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		matches = postgres.NewMatchRepo(db)
	}

	results := make([]*bot.ArenaResult, numGames)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCount := 0

	for i := 0; i < numGames; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			gameSeed := seed
			if seed != 0 {
				gameSeed = seed + uint64(idx)
			}

			cfg := bot.ArenaConfig{
				GameName: fmt.Sprintf("botmatch-%d", idx+1),
				Seats:    players,
				Size:     size,
				MaxTicks: maxTicks,
				Seed:     gameSeed,
				FullView: fullView,
			}

			result, err := bot.RunGame(ctx, cfg, matches)
			if err != nil {
				log.Error().Err(err).Int("game", idx+1).Msg("Game failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().Int("game", idx+1).Str("winner", result.WinnerName()).Int("ticks", result.Ticks).Ints("cells", result.Cells).Msg("Game completed")
		}(i)
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, numGames, errCount)
	} else {
		printSummary(results, players, maxTicks, errCount)
	}
}

type seatStats struct {
	wins       int
	draws      int
	survived   int
	totalCells int
	games      int
}

func summarize(results []*bot.ArenaResult, seats int) ([]seatStats, int) {
	stats := make([]seatStats, seats)
	completed := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		completed++
		for i := range stats {
			s := &stats[i]
			s.games++
			s.totalCells += r.Cells[i]
			switch {
			case r.Winner == i:
				s.wins++
			case r.Winner < 0:
				s.draws++
				if r.Cells[i] > 0 {
					s.survived++
				}
			}
		}
	}
	return stats, completed
}

func printSummary(results []*bot.ArenaResult, seats []string, maxTicks, errCount int) {
	stats, completed := summarize(results, len(seats))

	fmt.Printf("\nResults (%d games, max ticks %d):\n", completed, maxTicks)
	if errCount > 0 {
		fmt.Printf("  (%d games failed)\n", errCount)
	}

	for i, s := range stats {
		avgCells := 0.0
		if s.games > 0 {
			avgCells = float64(s.totalCells) / float64(s.games)
		}
		fmt.Printf("  seat %d (%s):  %d wins, %d draws, %d survived  -- avg cells: %.1f\n",
			i+1, seats[i], s.wins, s.draws, s.survived, avgCells)
	}
}

func printJSON(results []*bot.ArenaResult, total, errCount int) {
	out := struct {
		Total   int                `json:"total"`
		Errors  int                `json:"errors"`
		Results []*bot.ArenaResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: slices.DeleteFunc(results, func(r *bot.ArenaResult) bool { return r == nil }),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
