package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/checkmate-bot/internal/bot"
	"github.com/freeeve/checkmate-bot/internal/config"
	"github.com/freeeve/checkmate-bot/internal/handler"
	"github.com/freeeve/checkmate-bot/internal/logger"
	"github.com/freeeve/checkmate-bot/internal/repository"
	"github.com/freeeve/checkmate-bot/internal/repository/postgres"
	"github.com/freeeve/checkmate-bot/internal/repository/redis"
)

func main() {
	configPath := flag.String("config", "config.toml", "bot fleet config (.toml or .yaml)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger.Init(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	uids, err := resolveUIDs(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve bot identities")
	}
	plan, teams, err := config.Plan(cfg, uids)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to plan teams")
	}
	for key, members := range teams {
		log.Info().Str("team", key).Interface("members", members).Msg("Team planned")
	}

	var store repository.StateStore
	if cfg.RedisURL != "" {
		rc, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer rc.Close()
		store = rc
		log.Info().Msg("Redis connected")
	}

	var matches repository.MatchRepository
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		matches = postgres.NewMatchRepo(db)
		log.Info().Msg("Database connected")
	}

	var wg sync.WaitGroup
	sessions := make([]handler.StatusSource, 0, len(plan))
	for i, data := range plan {
		strategy := bot.StrategyFor(data.Bot.Strategy, bot.ParamsFor(data.Bot), 0)
		client := bot.NewClient(fmt.Sprintf("bot%d", i+1), cfg.WSURL, data.Bot.Cookie)
		session := bot.NewSession(data, strategy, client, store, matches)
		sessions = append(sessions, session)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := session.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("room", data.Bot.Room).Uint32("uid", data.UID).Msg("Session stopped")
			}
		}()
		log.Info().Str("room", data.Bot.Room).Uint32("uid", data.UID).Int("rank", data.Rank).Str("strategy", strategy.Name()).Msg("Bot started")
	}

	if cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr:         cfg.StatusAddr,
			Handler:      handler.NewRouter(handler.NewStatusHandler(sessions, matches, store)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.StatusAddr).Msg("Status API listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Status API error")
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Status API shutdown error")
			}
		}()
	}

	wg.Wait()
	log.Info().Msg("All bots stopped")
}

// resolveUIDs looks up every bot's user id from its cookie. An expired cookie
// is fatal for the whole fleet so team ranks never shift silently.
func resolveUIDs(ctx context.Context, cfg *config.Config) ([]uint32, error) {
	uids := make([]uint32, len(cfg.Bots))
	for i, b := range cfg.Bots {
		uid, err := bot.LookupUID(ctx, cfg.HallURL, b.Cookie)
		if err != nil {
			return nil, fmt.Errorf("bot %d (room %s): %w", i+1, b.Room, err)
		}
		uids[i] = uid
	}
	return uids, nil
}
