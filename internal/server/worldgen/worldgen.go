// Package worldgen runs the chunk generator on background workers.
package worldgen

import (
	"context"
	"log/slog"

	"github.com/OCharnyshevich/voxel-server/pkg/worker"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
	"github.com/OCharnyshevich/voxel-server/pkg/world/gen"
)

// Job is the input of one generation job, captured when it is enqueued.
type Job struct {
	Pos    chunk.Pos
	Params gen.Params
}

// Worker is the generation job pool keyed by chunk position.
type Worker = worker.Pool[chunk.Pos, Job, *chunk.Chunk]

// NewWorker creates a pool that runs g. Call Start to begin generating.
func NewWorker(g gen.Generator, log *slog.Logger) *Worker {
	return worker.New[chunk.Pos, Job, *chunk.Chunk](func(ctx context.Context, job Job) (*chunk.Chunk, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return g.Generate(job.Pos, job.Params), nil
	}, log.With("component", "worldgen"))
}
