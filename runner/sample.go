package runner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"qdeck/circuit"
)

var ErrShots = errors.New("invalid shot count")

// SampleOptions control a batch of independent shots.
type SampleOptions struct {
	Shots int
	// Seed for shot i is Seed+i, so counts do not depend on Workers.
	Seed int64
	// Workers bounds the shots in flight; <= 0 means GOMAXPROCS.
	Workers int
	// Progress is called after each finished shot from worker goroutines.
	Progress func(done, total int)
	// Logger receives the batch summary; nil discards.
	Logger *zerolog.Logger
}

// Histogram counts the measured bit strings of a batch. A shot's key is the
// concatenation of its measurement outcomes in the order they occurred.
type Histogram struct {
	RunID  string
	Counts map[string]int
	Shots  int
}

// Frequency returns the fraction of shots that produced key.
func (h *Histogram) Frequency(key string) float64 {
	if h.Shots == 0 {
		return 0
	}
	return float64(h.Counts[key]) / float64(h.Shots)
}

// Keys returns the observed keys in ascending order.
func (h *Histogram) Keys() []string {
	return slices.Sorted(maps.Keys(h.Counts))
}

// ChiSquare tests the counts against expected outcome probabilities and
// returns Pearson's statistic with its p-value. Keys missing from expected
// have probability 0; observing one is an error.
func (h *Histogram) ChiSquare(expected map[string]float64) (float64, float64, error) {
	var obs, exp []float64
	for _, k := range slices.Sorted(maps.Keys(expected)) {
		if expected[k] <= 0 {
			continue
		}
		obs = append(obs, float64(h.Counts[k]))
		exp = append(exp, expected[k]*float64(h.Shots))
	}
	for k, n := range h.Counts {
		if expected[k] <= 0 && n > 0 {
			return 0, 0, fmt.Errorf("outcome %q observed %d times but has zero expected probability", k, n)
		}
	}
	if len(obs) < 2 {
		return 0, 1, nil
	}
	x := stat.ChiSquare(obs, exp)
	dist := distuv.ChiSquared{K: float64(len(obs) - 1)}
	return x, dist.Survival(x), nil
}

// Sample runs c opts.Shots times, each shot on its own state. The first
// failing shot cancels the rest and its error is returned.
func Sample(ctx context.Context, c *circuit.Circuit, opts SampleOptions) (*Histogram, error) {
	if opts.Shots <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrShots, opts.Shots)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	runID := uuid.NewString()
	base := zerolog.Nop()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	log := base.With().Str("component", "sampler").Str("run_id", runID).Logger()
	start := time.Now()

	keys := make([]string, opts.Shots)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range opts.Shots {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := New().Run(gctx, c, Options{Seed: opts.Seed + int64(i)})
			if err != nil {
				return fmt.Errorf("shot %d: %w", i, err)
			}
			keys[i] = res.Bits()
			n := done.Add(1)
			if opts.Progress != nil {
				opts.Progress(int(n), opts.Shots)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("sampling failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := &Histogram{RunID: runID, Counts: make(map[string]int), Shots: opts.Shots}
	for _, k := range keys {
		h.Counts[k]++
	}
	log.Info().
		Int("shots", opts.Shots).
		Int("workers", workers).
		Int("outcomes", len(h.Counts)).
		Dur("elapsed", time.Since(start)).
		Msg("sampling finished")
	return h, nil
}
