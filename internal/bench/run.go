// Package bench drives the asynchronous I/O stress test: one worker per multiplicity,
// each with its own descriptors and Manager, for a fixed duration.
package bench

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ojaai/micbench"
	"github.com/ojaai/micbench/internal/config"
)

// Run executes the benchmark described by opts, which must have been resolved.
// The first worker error cancels the others.
func Run(ctx context.Context, opts config.Options, log zerolog.Logger) (Result, error) {
	cfg := opts.Manager()
	if opts.CompletionLog != "" {
		cl, err := micbench.CreateCompletionLog(opts.CompletionLog)
		if err != nil {
			return Result{}, err
		}
		defer func() {
			if err := cl.Close(); err != nil {
				log.Error().Err(err).Str("path", opts.CompletionLog).Msg("completion log")
			}
		}()
		cfg.CompletionLog = cl
	}

	seed := uint64(time.Now().UnixNano())
	workers := make([]*worker, 0, opts.Multi)
	defer func() {
		for _, w := range workers {
			if err := w.close(); err != nil {
				log.Error().Err(err).Int("worker", w.id).Msg("close")
			}
		}
	}()
	for i := 0; i < opts.Multi; i++ {
		w, err := newWorker(i, &opts, cfg, seed, log)
		if err != nil {
			return Result{}, err
		}
		workers = append(workers, w)
	}

	log.Info().
		Int("multi", opts.Multi).
		Str("engine", opts.Engine.String()).
		Int("block_size", opts.BlockBytes).
		Dur("timeout", opts.Timeout).
		Msg("benchmark started")

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	deadline := start.Add(opts.Timeout)
	for i, w := range workers {
		var a config.Affinity
		if i < len(opts.Affinities) {
			a = opts.Affinities[i]
		}
		g.Go(func() error {
			return w.run(gctx, deadline, a)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	exec := time.Since(start)

	meters := make([]meter, len(workers))
	for i, w := range workers {
		meters[i] = w.meter()
	}
	r := summarize(exec, opts.BlockBytes, meters)
	r.Start = start
	log.Info().Int64("count", r.Count).Float64("iops", r.IOPS).Msg("benchmark finished")
	return r, nil
}
