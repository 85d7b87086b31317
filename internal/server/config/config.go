package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RenderDistance is the render distance given to players that never request one.
type RenderDistance struct {
	Horizontal int `yaml:"horizontal"`
	Vertical   int `yaml:"vertical"`
}

// Config holds the server configuration.
type Config struct {
	Addr              string         `yaml:"addr"`
	TickRate          int            `yaml:"tick_rate"` // ticks per second
	Workers           int            `yaml:"workers"`   // world generation goroutines
	Seed              int64          `yaml:"seed"`
	Generator         string         `yaml:"generator"` // "default" or "flat"
	RenderDistance    RenderDistance `yaml:"render_distance"`
	MaxRenderDistance int            `yaml:"max_render_distance"`
	GameDataDir       string         `yaml:"gamedata_dir"`    // empty uses the built-in blocks
	GameDataSource    string         `yaml:"gamedata_source"` // go-getter address fetched into GameDataDir
	ChunkCacheSize    int            `yaml:"chunk_cache_size"`
	ChunkSendRate     float64        `yaml:"chunk_send_rate"` // chunks per second per player
	ChunkSendBurst    int            `yaml:"chunk_send_burst"`
	CompressThreshold int            `yaml:"compress_threshold"` // bytes, negative disables
	LogLevel          string         `yaml:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":7878",
		TickRate:          20,
		Workers:           4,
		Generator:         "default",
		RenderDistance:    RenderDistance{Horizontal: 4, Vertical: 2},
		MaxRenderDistance: 12,
		ChunkCacheSize:    4096,
		ChunkSendRate:     400,
		ChunkSendBurst:    64,
		CompressThreshold: 256,
		LogLevel:          "info",
	}
}

// Load reads a YAML config file. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["addr"] {
		cfg.Addr = fromFile.Addr
	}
	if !explicitFlags["tick-rate"] {
		cfg.TickRate = fromFile.TickRate
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["generator"] {
		cfg.Generator = fromFile.Generator
	}
	if !explicitFlags["render-distance"] {
		cfg.RenderDistance.Horizontal = fromFile.RenderDistance.Horizontal
	}
	if !explicitFlags["render-distance-vertical"] {
		cfg.RenderDistance.Vertical = fromFile.RenderDistance.Vertical
	}
	if !explicitFlags["max-render-distance"] {
		cfg.MaxRenderDistance = fromFile.MaxRenderDistance
	}
	if !explicitFlags["gamedata-dir"] {
		cfg.GameDataDir = fromFile.GameDataDir
	}
	if !explicitFlags["gamedata-source"] {
		cfg.GameDataSource = fromFile.GameDataSource
	}
	if !explicitFlags["chunk-cache-size"] {
		cfg.ChunkCacheSize = fromFile.ChunkCacheSize
	}
	if !explicitFlags["chunk-send-rate"] {
		cfg.ChunkSendRate = fromFile.ChunkSendRate
	}
	if !explicitFlags["chunk-send-burst"] {
		cfg.ChunkSendBurst = fromFile.ChunkSendBurst
	}
	if !explicitFlags["compress-threshold"] {
		cfg.CompressThreshold = fromFile.CompressThreshold
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
}

// Validate reports every setting that is out of range.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.TickRate < 1 || c.TickRate > 1000 {
		errs = append(errs, fmt.Errorf("tick_rate %d out of range [1, 1000]", c.TickRate))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Generator != "default" && c.Generator != "flat" {
		errs = append(errs, fmt.Errorf("unknown generator %q", c.Generator))
	}
	if c.MaxRenderDistance < 0 || c.MaxRenderDistance > 32 {
		errs = append(errs, fmt.Errorf("max_render_distance %d out of range [0, 32]", c.MaxRenderDistance))
	}
	rd := c.RenderDistance
	if rd.Horizontal < 0 || rd.Vertical < 0 || rd.Horizontal > c.MaxRenderDistance || rd.Vertical > c.MaxRenderDistance {
		errs = append(errs, fmt.Errorf("render_distance %+v out of range [0, %d]", rd, c.MaxRenderDistance))
	}
	if c.GameDataSource != "" && c.GameDataDir == "" {
		errs = append(errs, errors.New("gamedata_source requires gamedata_dir"))
	}
	if c.ChunkCacheSize < 1 {
		errs = append(errs, fmt.Errorf("chunk_cache_size must be positive, got %d", c.ChunkCacheSize))
	}
	if c.ChunkSendRate <= 0 || c.ChunkSendBurst < 1 {
		errs = append(errs, fmt.Errorf("chunk send rate %v burst %d must be positive", c.ChunkSendRate, c.ChunkSendBurst))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TickInterval returns the duration of one tick.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
