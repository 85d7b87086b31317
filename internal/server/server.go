package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCharnyshevich/voxel-server/internal/server/config"
	"github.com/OCharnyshevich/voxel-server/internal/server/game"
	splayer "github.com/OCharnyshevich/voxel-server/internal/server/player"
	"github.com/OCharnyshevich/voxel-server/internal/server/transport/ws"
	"github.com/OCharnyshevich/voxel-server/internal/server/worldgen"
	"github.com/OCharnyshevich/voxel-server/pkg/gamedata"
	"github.com/OCharnyshevich/voxel-server/pkg/physics"
	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
	"github.com/OCharnyshevich/voxel-server/pkg/world/gen"
)

// seaLevel is the world y of the water surface.
const seaLevel = 0

// WSPath is the HTTP path clients connect to.
const WSPath = "/ws"

// Server is the voxel game server: a websocket listener feeding a fixed-rate tick loop.
type Server struct {
	cfg        *config.Config
	log        *slog.Logger
	compressor *protocol.Compressor
	transport  *ws.Server
	jobs       *worldgen.Worker
	game       *game.Game

	addr  net.Addr
	ready chan struct{}
}

// New creates a new Server with the given config and logger.
func New(cfg *config.Config, log *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	gd := gamedata.Default()
	if cfg.GameDataDir != "" {
		var err error
		if gd, err = gamedata.Load(cfg.GameDataDir); err != nil {
			return nil, err
		}
	}

	palette, err := gen.NewPalette(gd)
	if err != nil {
		return nil, err
	}
	generator, err := gen.New(cfg.Generator, palette)
	if err != nil {
		return nil, err
	}

	compressor, err := protocol.NewCompressor(cfg.CompressThreshold)
	if err != nil {
		return nil, err
	}
	tr := ws.NewServer(compressor, log)
	jobs := worldgen.NewWorker(generator, log)

	params := gen.Params{Seed: cfg.Seed, SeaLevel: seaLevel}
	sim := physics.NewServerSimulation()
	if hm, ok := generator.(gen.Heightmap); ok {
		sim.SetSpawn(spawnPoint(hm, params))
	}

	g, err := game.New(game.Options{
		GameData: gd,
		Params:   params,
		Players: splayer.Options{
			RenderDistance: player.RenderDistance{
				Horizontal: int64(cfg.RenderDistance.Horizontal),
				Vertical:   int64(cfg.RenderDistance.Vertical),
			},
			MaxRenderDistance: int64(cfg.MaxRenderDistance),
			ChunkSendRate:     cfg.ChunkSendRate,
			ChunkSendBurst:    cfg.ChunkSendBurst,
		},
		ChunkCacheSize: cfg.ChunkCacheSize,
	}, sim, jobs, tr, log)
	if err != nil {
		compressor.Close()
		return nil, err
	}

	return &Server{
		cfg:        cfg,
		log:        log,
		compressor: compressor,
		transport:  tr,
		jobs:       jobs,
		game:       g,
		ready:      make(chan struct{}),
	}, nil
}

// spawnPoint puts players on the surface of the world origin column.
func spawnPoint(hm gen.Heightmap, params gen.Params) mgl64.Vec3 {
	return mgl64.Vec3{0.5, float64(hm.HeightAt(0, 0, params) + 1), 0.5}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound listener address. It is valid after Ready is closed.
func (s *Server) Addr() net.Addr { return s.addr }

// Start begins listening for connections and runs the tick loop until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.addr = listener.Addr()

	mux := http.NewServeMux()
	mux.Handle(WSPath, s.transport)
	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.jobs.Start(ctx, s.cfg.Workers)
	defer s.compressor.Close()
	defer s.jobs.Close()

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	s.log.Info("server started",
		"addr", s.addr.String(),
		"generator", s.cfg.Generator,
		"seed", s.cfg.Seed,
		"tickRate", s.cfg.TickRate,
		"workers", s.cfg.Workers,
	)
	close(s.ready)

	err = s.loop(ctx, serveErr)

	s.log.Info("server shutting down")
	s.transport.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		s.log.Warn("http shutdown", "error", serr)
	}
	return err
}

func (s *Server) loop(ctx context.Context, serveErr <-chan error) error {
	interval := s.cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-serveErr:
			if ok {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		case now := <-ticker.C:
			st := s.game.Tick(now)
			if elapsed := time.Since(now); elapsed > interval {
				s.log.Warn("tick overran", "elapsed", elapsed, "interval", interval, "installed", st.Installed, "sent", st.Stream.Sent)
			}
		}
	}
}
