package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultWSURL   = "https://kana.byha.top:444/ws/checkmate/"
	defaultHallURL = "https://kana.byha.top:444/checkmate/room"
)

// Config holds the bot fleet configuration loaded from a file, with server
// endpoints overridable from the environment.
type Config struct {
	WSURL       string
	HallURL     string
	RedisURL    string
	DatabaseURL string
	StatusAddr  string // listen address of the status API, empty disables it
	Bots        []Bot
	Rooms       map[string]Room
}

// Bot is one configured account.
type Bot struct {
	Cookie      string
	Room        string
	Team        uint32
	Strategy    string
	CalcCount   int
	ExpandRate  int
	RerouteRate int
	RejectHops  int
	ScorePower  float64
	AutoReady   AutoReady
}

// AutoReady controls voting to start. Conditional bots vote once more than
// MoreThan users are logged in and withdraw their vote otherwise; the others
// vote on every room entry when Always is set.
type AutoReady struct {
	Always      bool
	Conditional bool
	MoreThan    int
}

// Room holds settings the bots enforce in a room. Nil fields are left alone.
type Room struct {
	Map     *int  `toml:"map" yaml:"map"`
	Speed   *int  `toml:"speed" yaml:"speed"`
	Private *bool `toml:"private" yaml:"private"`
}

type fileBot struct {
	Cookie      string   `toml:"cookie" yaml:"cookie"`
	Room        string   `toml:"room" yaml:"room"`
	Team        uint32   `toml:"team" yaml:"team"`
	Strategy    string   `toml:"strategy" yaml:"strategy"`
	CalcCount   *int     `toml:"calc_cnt" yaml:"calc_cnt"`
	ExpandRate  *int     `toml:"expand_rate" yaml:"expand_rate"`
	RerouteRate *int     `toml:"reroute_rate" yaml:"reroute_rate"`
	RejectHops  *int     `toml:"reject_hops" yaml:"reject_hops"`
	ScorePower  *float64 `toml:"score_power" yaml:"score_power"`
	AutoReady   any      `toml:"auto_ready" yaml:"auto_ready"`
}

type fileConfig struct {
	WSURL       string          `toml:"ws_url" yaml:"ws_url"`
	HallURL     string          `toml:"hall_url" yaml:"hall_url"`
	RedisURL    string          `toml:"redis_url" yaml:"redis_url"`
	DatabaseURL string          `toml:"database_url" yaml:"database_url"`
	StatusAddr  string          `toml:"status_addr" yaml:"status_addr"`
	Bots        []fileBot       `toml:"bots" yaml:"bots"`
	Rooms       map[string]Room `toml:"rooms" yaml:"rooms"`
}

// Load reads a TOML or YAML config file, chosen by extension, then applies
// defaults and environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes config data in the format named by ext (".toml", ".yaml" or ".yml").
func Parse(data []byte, ext string) (*Config, error) {
	var fc fileConfig
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	cfg := &Config{
		WSURL:       envOrDefault("WS_URL", orDefault(fc.WSURL, defaultWSURL)),
		HallURL:     envOrDefault("HALL_URL", orDefault(fc.HallURL, defaultHallURL)),
		RedisURL:    envOrDefault("REDIS_URL", fc.RedisURL),
		DatabaseURL: envOrDefault("DATABASE_URL", fc.DatabaseURL),
		StatusAddr:  envOrDefault("STATUS_ADDR", fc.StatusAddr),
		Rooms:       fc.Rooms,
	}
	if cfg.Rooms == nil {
		cfg.Rooms = map[string]Room{}
	}

	var errs []error
	for i, fb := range fc.Bots {
		b, err := fb.resolve()
		if err != nil {
			errs = append(errs, fmt.Errorf("bot %d: %w", i+1, err))
			continue
		}
		cfg.Bots = append(cfg.Bots, b)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (fb fileBot) resolve() (Bot, error) {
	ar, err := parseAutoReady(fb.AutoReady)
	if err != nil {
		return Bot{}, err
	}
	return Bot{
		Cookie:      fb.Cookie,
		Room:        fb.Room,
		Team:        fb.Team,
		Strategy:    orDefault(fb.Strategy, "engine"),
		CalcCount:   deref(fb.CalcCount, 1),
		ExpandRate:  deref(fb.ExpandRate, 70),
		RerouteRate: deref(fb.RerouteRate, 30),
		RejectHops:  deref(fb.RejectHops, 2),
		ScorePower:  deref(fb.ScorePower, 1.0),
		AutoReady:   ar,
	}, nil
}

// parseAutoReady accepts either a bool or a {more_than = N} table.
func parseAutoReady(v any) (AutoReady, error) {
	switch x := v.(type) {
	case nil:
		return AutoReady{}, nil
	case bool:
		return AutoReady{Always: x}, nil
	case map[string]any:
		n, ok := x["more_than"]
		if !ok {
			return AutoReady{}, fmt.Errorf("auto_ready: missing more_than")
		}
		switch m := n.(type) {
		case int:
			return AutoReady{Conditional: true, MoreThan: m}, nil
		case int64:
			return AutoReady{Conditional: true, MoreThan: int(m)}, nil
		default:
			return AutoReady{}, fmt.Errorf("auto_ready.more_than: want integer, got %T", n)
		}
	default:
		return AutoReady{}, fmt.Errorf("auto_ready: want bool or {more_than}, got %T", v)
	}
}

// Validate checks required fields and parameter ranges.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Bots) == 0 {
		errs = append(errs, errors.New("no bots configured"))
	}
	for i, b := range c.Bots {
		prefix := fmt.Sprintf("bot %d", i+1)
		if b.Cookie == "" {
			errs = append(errs, fmt.Errorf("%s: cookie is required", prefix))
		}
		if b.Room == "" {
			errs = append(errs, fmt.Errorf("%s: room is required", prefix))
		}
		if b.CalcCount < 1 {
			errs = append(errs, fmt.Errorf("%s: calc_cnt must be at least 1", prefix))
		}
		if b.ExpandRate < 0 || b.ExpandRate > 100 {
			errs = append(errs, fmt.Errorf("%s: expand_rate must be within 0..100", prefix))
		}
		if b.RerouteRate < 0 || b.RerouteRate > 100 {
			errs = append(errs, fmt.Errorf("%s: reroute_rate must be within 0..100", prefix))
		}
		if b.RejectHops < 0 {
			errs = append(errs, fmt.Errorf("%s: reject_hops must not be negative", prefix))
		}
		if b.ScorePower <= 0 {
			errs = append(errs, fmt.Errorf("%s: score_power must be positive", prefix))
		}
		if b.AutoReady.Conditional && b.AutoReady.MoreThan < 0 {
			errs = append(errs, fmt.Errorf("%s: auto_ready.more_than must not be negative", prefix))
		}
	}
	return errors.Join(errs...)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func deref[T any](p *T, fallback T) T {
	if p != nil {
		return *p
	}
	return fallback
}
