package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	err := os.WriteFile(path, []byte(`
addr: ":9000"
seed: 42
generator: flat
render_distance:
  horizontal: 2
  vertical: 1
log_level: debug
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	want.Addr = ":9000"
	want.Seed = 42
	want.Generator = "flat"
	want.RenderDistance = RenderDistance{Horizontal: 2, Vertical: 1}
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("Level = %v, want debug", lvl)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("tick_rate: [1, 2]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestMergeKeepsExplicitFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.Addr = ":1"

	fromFile := DefaultConfig()
	fromFile.Seed = 99
	fromFile.Addr = ":2"
	fromFile.Workers = 16

	Merge(cfg, fromFile, map[string]bool{"seed": true})

	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, explicit flag should win", cfg.Seed)
	}
	if cfg.Addr != ":2" || cfg.Workers != 16 {
		t.Errorf("file values not applied: addr %q workers %d", cfg.Addr, cfg.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"tick_rate", func(c *Config) { c.TickRate = 0 }, "tick_rate"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"generator", func(c *Config) { c.Generator = "islands" }, "generator"},
		{"render_distance", func(c *Config) { c.RenderDistance.Horizontal = 40 }, "render_distance"},
		{"source_without_dir", func(c *Config) { c.GameDataSource = "git::example" }, "gamedata_source"},
		{"cache", func(c *Config) { c.ChunkCacheSize = 0 }, "chunk_cache_size"},
		{"send_rate", func(c *Config) { c.ChunkSendRate = 0 }, "send rate"},
		{"log_level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestTickInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickRate = 20
	if got := cfg.TickInterval(); got != 50*time.Millisecond {
		t.Errorf("TickInterval = %v, want 50ms", got)
	}
}
