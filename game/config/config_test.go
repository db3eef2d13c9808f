package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
)

// parse runs a throwaway command with the config flags and returns the result
func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()

	var (
		cfg    Config
		cfgErr  error
	)
	cmd := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, cfgErr = FromCommand(cmd)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"test"}, args...)); err != nil {
		t.Fatalf("Failed to run command: %v", err)
	}
	return cfg, cfgErr
}

func TestFromCommand_Defaults(t *testing.T) {
	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	d := Defaults()
	if cfg.Port != d.Port || cfg.Host != d.Host {
		t.Errorf("Expected %s, got %s", d.Addr(), cfg.Addr())
	}
	if cfg.Backend != BackendMemory {
		t.Errorf("Expected memory backend, got %s", cfg.Backend)
	}
	if cfg.Rules().WinThreshold != 3 {
		t.Errorf("Expected win threshold 3, got %d", cfg.Rules().WinThreshold)
	}
	if cfg.LogLevel() != "info" {
		t.Errorf("Expected info level, got %s", cfg.LogLevel())
	}
}

func TestFromCommand_Flags(t *testing.T) {
	cfg, err := parse(t,
		"--port", "9090",
		"--debug",
		"--win-threshold", "5",
		"--store", "FILE",
		"--matches-dir", "/tmp/m",
		"--match-ttl", "30m",
	)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Addr() != "localhost:9090" {
		t.Errorf("Expected localhost:9090, got %s", cfg.Addr())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.LogLevel())
	}
	if cfg.WinThreshold != 5 {
		t.Errorf("Expected win threshold 5, got %d", cfg.WinThreshold)
	}
	if cfg.Backend != BackendFile || cfg.MatchesDir != "/tmp/m" {
		t.Errorf("Expected file backend in /tmp/m, got %s in %s", cfg.Backend, cfg.MatchesDir)
	}
	if cfg.MatchTTL != 30*time.Minute {
		t.Errorf("Expected 30m ttl, got %v", cfg.MatchTTL)
	}
}

func TestFromCommand_Environment(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("NGROK_AUTH_TOKEN", "secret")

	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Expected port 7070, got %d", cfg.Port)
	}
	if cfg.Backend != BackendRedis || cfg.RedisAddr != "localhost:6379" {
		t.Errorf("Expected redis at localhost:6379, got %s at %s", cfg.Backend, cfg.RedisAddr)
	}
	if cfg.NgrokAuth != "secret" {
		t.Errorf("Expected ngrok token from NGROK_AUTH_TOKEN, got %q", cfg.NgrokAuth)
	}

	t.Run("flag wins over environment", func(t *testing.T) {
		cfg, err := parse(t, "--port", "6060")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.Port != 6060 {
			t.Errorf("Expected port 6060, got %d", cfg.Port)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"threshold zero", func(c *Config) { c.WinThreshold = 0 }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"unknown backend", func(c *Config) { c.Backend = "mongo" }},
		{"file without dir", func(c *Config) { c.Backend = BackendFile; c.MatchesDir = "" }},
		{"redis without addr", func(c *Config) { c.Backend = BackendRedis }},
		{"postgres without url", func(c *Config) { c.Backend = BackendPostgres }},
		{"negative ttl", func(c *Config) { c.MatchTTL = -time.Second }},
	}

	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write rules file: %v", err)
		}
		return path
	}

	t.Run("valid file", func(t *testing.T) {
		rules, err := LoadRules(write("five.json", `{"win_threshold": 5}`))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if rules.WinThreshold != 5 {
			t.Errorf("Expected 5, got %d", rules.WinThreshold)
		}
	})

	t.Run("empty object keeps default", func(t *testing.T) {
		rules, err := LoadRules(write("empty.json", `{}`))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if rules.WinThreshold != 3 {
			t.Errorf("Expected default 3, got %d", rules.WinThreshold)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		if _, err := LoadRules(write("bad.json", `{`)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("zero threshold", func(t *testing.T) {
		if _, err := LoadRules(write("zero.json", `{"win_threshold": 0}`)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadRules(filepath.Join(dir, "nope.json")); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("rules file overrides flag", func(t *testing.T) {
		path := write("seven.json", `{"win_threshold": 7}`)
		cfg, err := parse(t, "--win-threshold", "2", "--rules-file", path)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.WinThreshold != 7 {
			t.Errorf("Expected 7, got %d", cfg.WinThreshold)
		}
	})
}
