package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds everything the server needs to start
type Config struct {
	Host      string
	Port      int
	Debug     bool
	LogFormat string

	WinThreshold int
	RulesFile    string

	Backend       string
	MatchesDir    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	DatabaseURL   string

	MatchTTL      time.Duration
	SweepInterval time.Duration
	PruneInterval time.Duration

	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

// Defaults returns a Config with every field at its default value
func Defaults() Config {
	return Config{
		Host:          "localhost",
		Port:          8080,
		LogFormat:     "text",
		WinThreshold:  engine.DefaultWinThreshold,
		Backend:       BackendMemory,
		MatchesDir:    "matches",
		RedisPrefix:   "rpsmatch",
		MatchTTL:      24 * time.Hour,
		SweepInterval: time.Hour,
		PruneInterval: 5 * time.Second,
	}
}

// Flags returns the command line flags, each also readable from the environment
func Flags() []cli.Flag {
	d := Defaults()
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: d.Host, Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
		&cli.IntFlag{Name: "port", Value: d.Port, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
		&cli.StringFlag{Name: "log-format", Value: d.LogFormat, Usage: "Log format: text or json", Sources: cli.EnvVars("LOG_FORMAT")},

		&cli.IntFlag{Name: "win-threshold", Value: d.WinThreshold, Usage: "Round wins needed to take a match", Sources: cli.EnvVars("WIN_THRESHOLD")},
		&cli.StringFlag{Name: "rules-file", Usage: "JSON file with match rules (overrides --win-threshold)", Sources: cli.EnvVars("RULES_FILE")},

		&cli.StringFlag{Name: "store", Value: d.Backend, Usage: "Match store backend: memory, file, redis or postgres", Sources: cli.EnvVars("STORE_BACKEND")},
		&cli.StringFlag{Name: "matches-dir", Value: d.MatchesDir, Usage: "Directory for the file backend", Sources: cli.EnvVars("MATCHES_DIR")},
		&cli.StringFlag{Name: "redis-addr", Usage: "Redis address for the redis backend", Sources: cli.EnvVars("REDIS_ADDR")},
		&cli.StringFlag{Name: "redis-password", Usage: "Redis password", Sources: cli.EnvVars("REDIS_PASSWORD")},
		&cli.IntFlag{Name: "redis-db", Usage: "Redis database number", Sources: cli.EnvVars("REDIS_DB")},
		&cli.StringFlag{Name: "redis-prefix", Value: d.RedisPrefix, Usage: "Key prefix for the redis backend", Sources: cli.EnvVars("REDIS_PREFIX")},
		&cli.StringFlag{Name: "database-url", Usage: "PostgreSQL connection string for the postgres backend", Sources: cli.EnvVars("DATABASE_URL")},

		&cli.DurationFlag{Name: "match-ttl", Value: d.MatchTTL, Usage: "Drop matches from memory after this long without updates", Sources: cli.EnvVars("MATCH_TTL")},
		&cli.DurationFlag{Name: "sweep-interval", Value: d.SweepInterval, Usage: "How often expired matches are swept", Sources: cli.EnvVars("SWEEP_INTERVAL")},
		&cli.DurationFlag{Name: "prune-interval", Value: d.PruneInterval, Usage: "How often memory is synced with the backend", Sources: cli.EnvVars("PRUNE_INTERVAL")},

		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

// FromCommand builds a Config from parsed flags
func FromCommand(cmd *cli.Command) (Config, error) {
	cfg := Config{
		Host:          cmd.String("host"),
		Port:          cmd.Int("port"),
		Debug:         cmd.Bool("debug"),
		LogFormat:     cmd.String("log-format"),
		WinThreshold:  cmd.Int("win-threshold"),
		RulesFile:     cmd.String("rules-file"),
		Backend:       strings.ToLower(cmd.String("store")),
		MatchesDir:    cmd.String("matches-dir"),
		RedisAddr:     cmd.String("redis-addr"),
		RedisPassword: cmd.String("redis-password"),
		RedisDB:       cmd.Int("redis-db"),
		RedisPrefix:   cmd.String("redis-prefix"),
		DatabaseURL:   cmd.String("database-url"),
		MatchTTL:      cmd.Duration("match-ttl"),
		SweepInterval: cmd.Duration("sweep-interval"),
		PruneInterval: cmd.Duration("prune-interval"),
		NgrokEnabled:  cmd.Bool("ngrok"),
		NgrokAuth:     cmd.String("ngrok-auth"),
		NgrokDomain:   cmd.String("ngrok-domain"),
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			return Config{}, err
		}
		cfg.WinThreshold = rules.WinThreshold
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.WinThreshold < 1 {
		return fmt.Errorf("%w: win threshold must be at least 1", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}

	switch c.Backend {
	case BackendMemory:
	case BackendFile:
		if c.MatchesDir == "" {
			return fmt.Errorf("%w: file backend needs a matches directory", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis backend needs --redis-addr", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres backend needs --database-url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Backend)
	}

	if c.MatchTTL < 0 || c.SweepInterval < 0 || c.PruneInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Addr returns host:port
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Rules returns the match rules derived from the config
func (c Config) Rules() engine.Rules {
	return engine.Rules{WinThreshold: c.WinThreshold}
}

// LogLevel returns the logger level name
func (c Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return "info"
}

// LoadRules reads match rules from a JSON file
func LoadRules(path string) (engine.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules := engine.DefaultRules()
	if err := json.Unmarshal(data, &rules); err != nil {
		return engine.Rules{}, fmt.Errorf("%w: failed to parse rules file %s: %v", ErrInvalidConfig, path, err)
	}
	if rules.WinThreshold < 1 {
		return engine.Rules{}, fmt.Errorf("%w: win_threshold must be at least 1", ErrInvalidConfig)
	}
	return rules, nil
}
