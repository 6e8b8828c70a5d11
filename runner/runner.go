// Package runner executes circuits against a state vector: it initializes the
// state, walks the moments in order, hands each placement to the evolution or
// measurement engine and collects the outcomes.
package runner

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"qdeck/circuit"
	"qdeck/quantum"
)

// Options control a single run.
type Options struct {
	// Seed feeds the default random source when Random is nil.
	Seed int64
	// InitialState is cloned before the run; nil means |0...0⟩. It must be
	// normalized.
	InitialState *quantum.State
	// CollectProbabilities records the full distribution after every moment.
	CollectProbabilities bool
	Random               quantum.RandomSource
}

// Outcome is one measurement. Bits[i] is the value read from Registers[i].
type Outcome struct {
	Moment    int
	Registers []int
	Bits      string
}

// Result is what a completed run hands back.
type Result struct {
	Final         *quantum.State
	Measurements  []Outcome
	Probabilities [][]float64
	Status        Status
}

// Bits concatenates every measured bit string in the order they occurred.
func (r *Result) Bits() string {
	var n int
	for _, o := range r.Measurements {
		n += len(o.Bits)
	}
	buf := make([]byte, 0, n)
	for _, o := range r.Measurements {
		buf = append(buf, o.Bits...)
	}
	return string(buf)
}

// RunError carries the moment, gate and registers at which a run failed.
// Moment is -1 for failures before the first moment.
type RunError struct {
	Moment    int
	Gate      string
	Registers []int
	Err       error
}

func (e *RunError) Error() string {
	if e.Gate == "" {
		return fmt.Sprintf("run failed at moment %d: %v", e.Moment, e.Err)
	}
	return fmt.Sprintf("run failed at moment %d, %s on %v: %v", e.Moment, e.Gate, e.Registers, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Runner owns the state of one run at a time.
type Runner struct {
	mu     sync.Mutex
	status Status
	log    zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger attaches a logger; runs log at debug, failures at error.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = l.With().Str("component", "runner").Logger()
	}
}

// New returns an idle runner.
func New(opts ...Option) *Runner {
	r := &Runner{status: Idle, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status returns the current lifecycle state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) transition(to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !isAllowedTransition(r.status, to) {
		return &TransitionError{From: r.status, To: to}
	}
	r.status = to
	return nil
}

// Reset returns a finished runner to Idle so it can run again.
func (r *Runner) Reset() error {
	return r.transition(Idle)
}

// Run executes c from start to end. Any error fails the whole run; no partial
// result is returned. ctx is checked between moments.
func (r *Runner) Run(ctx context.Context, c *circuit.Circuit, opts Options) (*Result, error) {
	if err := r.transition(Running); err != nil {
		return nil, err
	}
	r.log.Debug().
		Int("registers", c.Registers()).
		Int("depth", c.Depth()).
		Int64("seed", opts.Seed).
		Msg("run started")

	res, err := r.execute(ctx, c, opts)
	if err != nil {
		_ = r.transition(Failed)
		r.log.Error().Err(err).Msg("run failed")
		return nil, err
	}
	if err := r.transition(Completed); err != nil {
		return nil, err
	}
	res.Status = Completed
	r.log.Debug().Int("measurements", len(res.Measurements)).Msg("run completed")
	return res, nil
}

func (r *Runner) execute(ctx context.Context, c *circuit.Circuit, opts Options) (*Result, error) {
	state, err := initialState(c, opts.InitialState)
	if err != nil {
		return nil, &RunError{Moment: -1, Err: err}
	}
	rng := opts.Random
	if rng == nil {
		rng = quantum.NewRandomSource(opts.Seed)
	}

	res := &Result{}
	for m := range c.Moments() {
		if err := ctx.Err(); err != nil {
			return nil, &RunError{Moment: m.Index, Err: err}
		}
		for _, p := range m.Placements {
			out, err := step(state, p, rng)
			if err != nil {
				return nil, &RunError{Moment: m.Index, Gate: p.Name, Registers: p.Registers(), Err: err}
			}
			if out != nil {
				res.Measurements = append(res.Measurements, *out)
			}
		}
		if opts.CollectProbabilities {
			res.Probabilities = append(res.Probabilities, state.Probabilities())
		}
	}
	res.Final = state
	return res, nil
}

func initialState(c *circuit.Circuit, init *quantum.State) (*quantum.State, error) {
	if init == nil {
		return quantum.NewState(c.Registers())
	}
	if init.Registers() != c.Registers() {
		return nil, &quantum.StateError{
			Kind: quantum.ErrDimension,
			Msg:  fmt.Sprintf("initial state has %d registers, circuit has %d", init.Registers(), c.Registers()),
		}
	}
	if !init.IsNormalized() {
		return nil, &quantum.StateError{
			Kind: quantum.ErrNorm,
			Msg:  fmt.Sprintf("initial state has squared norm %g", init.NormSquaredSum()),
		}
	}
	return init.Clone(), nil
}

// step applies one placement and returns an outcome for measurements.
func step(state *quantum.State, p circuit.Placement, rng quantum.RandomSource) (*Outcome, error) {
	regs := p.Registers()
	switch {
	case p.IsMeasurement():
		bits, err := quantum.Measure(state, regs, rng)
		if err != nil {
			return nil, err
		}
		return &Outcome{Moment: p.Moment, Registers: slices.Clone(regs), Bits: bits}, nil
	case p.IsReset():
		_, err := quantum.Reset(state, regs[0], rng)
		return nil, err
	default:
		return nil, quantum.Apply(state, p.Gate, regs...)
	}
}

// RunCircuit runs c once on a fresh runner.
func RunCircuit(ctx context.Context, c *circuit.Circuit, opts Options) (*Result, error) {
	return New().Run(ctx, c, opts)
}
