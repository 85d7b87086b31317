package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/voxel-server/internal/server"
	"github.com/OCharnyshevich/voxel-server/internal/server/config"
	"github.com/OCharnyshevich/voxel-server/pkg/gamedata"
)

func main() {
	cfg := config.DefaultConfig()

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.IntVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "ticks per second")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "world generation workers")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "world seed")
	flag.StringVar(&cfg.Generator, "generator", cfg.Generator, "world generator (default, flat)")
	flag.IntVar(&cfg.RenderDistance.Horizontal, "render-distance", cfg.RenderDistance.Horizontal, "default horizontal render distance in chunks")
	flag.IntVar(&cfg.RenderDistance.Vertical, "render-distance-vertical", cfg.RenderDistance.Vertical, "default vertical render distance in chunks")
	flag.IntVar(&cfg.MaxRenderDistance, "max-render-distance", cfg.MaxRenderDistance, "largest render distance a player may request")
	flag.StringVar(&cfg.GameDataDir, "gamedata-dir", cfg.GameDataDir, "directory holding blocks.yaml")
	flag.StringVar(&cfg.GameDataSource, "gamedata-source", cfg.GameDataSource, "go-getter address to fetch game data from")
	flag.IntVar(&cfg.ChunkCacheSize, "chunk-cache-size", cfg.ChunkCacheSize, "encoded chunks kept in memory")
	flag.Float64Var(&cfg.ChunkSendRate, "chunk-send-rate", cfg.ChunkSendRate, "chunks per second sent to each player")
	flag.IntVar(&cfg.ChunkSendBurst, "chunk-send-burst", cfg.ChunkSendBurst, "chunks that may be sent at once")
	flag.IntVar(&cfg.CompressThreshold, "compress-threshold", cfg.CompressThreshold, "compress packets of at least this many bytes, negative disables")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Parse()

	if *configPath != "" {
		fromFile, err := config.Load(*configPath)
		if err != nil {
			slog.Error("load config", "error", err)
			os.Exit(1)
		}
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		config.Merge(cfg, fromFile, explicit)
	}

	level, err := cfg.Level()
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.GameDataSource != "" {
		log.Info("fetching game data", "source", cfg.GameDataSource, "dir", cfg.GameDataDir)
		if err := gamedata.Fetch(ctx, cfg.GameDataSource, cfg.GameDataDir); err != nil {
			log.Error("fetch game data", "error", err)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("create server", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
