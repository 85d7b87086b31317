package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OCharnyshevich/voxel-server/internal/client"
	"github.com/OCharnyshevich/voxel-server/internal/server/transport/ws"
	"github.com/OCharnyshevich/voxel-server/pkg/mesh"
	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
)

func main() {
	var (
		url       = flag.String("url", "ws://localhost:7878/ws", "server websocket url")
		rdH       = flag.Int("render-distance", 4, "horizontal render distance to request")
		rdV       = flag.Int("render-distance-vertical", 2, "vertical render distance to request")
		fly       = flag.Bool("fly", false, "fly forward continuously")
		workers   = flag.Int("workers", 2, "meshing workers")
		threshold = flag.Int("compress-threshold", 256, "compress packets of at least this many bytes, negative disables")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	compressor, err := protocol.NewCompressor(*threshold)
	if err != nil {
		log.Error("create compressor", "error", err)
		os.Exit(1)
	}
	defer compressor.Close()

	conn, err := ws.Dial(ctx, *url, compressor)
	if err != nil {
		log.Error("connect", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	mesher := mesh.NewWorker(log)
	mesher.Start(ctx, *workers)
	defer mesher.Close()

	c := client.New(mesher, log)

	rd := player.RenderDistance{Horizontal: int64(*rdH), Vertical: int64(*rdV)}
	c.SetRenderDistance(rd)
	if err := conn.Send(protocol.NewSetRenderDistance(rd)); err != nil {
		log.Error("send render distance", "error", err)
		os.Exit(1)
	}
	if *fly {
		if err := conn.Send(protocol.NewUpdateInput(player.Input{Forward: 1})); err != nil {
			log.Error("send input", "error", err)
			os.Exit(1)
		}
	}

	packets := make(chan protocol.Packet, 256)
	recvErr := make(chan error, 1)
	go func() {
		defer close(packets)
		for {
			p, err := conn.Recv()
			if err != nil {
				recvErr <- err
				return
			}
			packets <- p
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-packets:
			if !ok {
				log.Error("connection closed", "error", <-recvErr)
				return
			}
			if err := c.Handle(p); err != nil {
				log.Error("handle packet", "packet", p.PacketID(), "error", err)
				return
			}
			c.Update()
		case <-ticker.C:
			c.Update()
			attrs := []any{"chunks", c.Received(), "meshes", c.Meshes(), "meshQueue", mesher.Len()}
			if ps, ok := c.Self(); ok {
				attrs = append(attrs, "position", ps.Position, "chunk", ps.ChunkPos())
			}
			log.Info("status", attrs...)
		}
	}
}
