package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"qdeck/circuit"
	"qdeck/internal/config"
	"qdeck/internal/logger"
	"qdeck/qasm"
	"qdeck/runner"
	"qdeck/textgrid"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the whole CLI; results go to stdout, diagnostics to stderr. It
// returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("qdeck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		format   = fs.String("format", "", "Input format: qasm or grid (default: by extension)")
		shots    = fs.Int("shots", cfg.Shots, "Shots to sample when the circuit measures (0 disables)")
		seed     = fs.Int64("seed", cfg.Seed, "Seed for the single run; shot i uses seed+i")
		workers  = fs.Int("workers", cfg.Workers, "Shots sampled in parallel")
		probs    = fs.Bool("probs", false, "Print the distribution after every moment")
		plain    = fs.Bool("plain", false, "Plain tab-separated output without styling or progress view")
		listGate = fs.Bool("gates", false, "List the gate catalog and exit")
		emitQASM = fs.Bool("emit-qasm", false, "Print the circuit as OpenQASM 2.0 and exit")
		emitGrid = fs.Bool("emit-grid", false, "Print the circuit as a text grid and exit")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: qdeck [options] <circuit.qasm|circuit.grid|->\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	l := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: stderr})

	out := printer{w: stdout, plain: *plain}
	errOut := printer{w: stderr, plain: *plain}
	if *listGate {
		out.renderMenu()
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	c, err := loadCircuit(fs.Arg(0), *format)
	if err != nil {
		errOut.renderError(err)
		return 1
	}
	switch {
	case *emitQASM:
		fmt.Fprint(stdout, qasm.Format(c))
		return 0
	case *emitGrid:
		fmt.Fprint(stdout, textgrid.Format(c))
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := simulate(ctx, l, out, c, simulateOptions{
		Seed:    *seed,
		Shots:   *shots,
		Workers: *workers,
		Probs:   *probs,
		Plain:   *plain,
	}); err != nil {
		errOut.renderError(err)
		return 1
	}
	return 0
}

type simulateOptions struct {
	Seed    int64
	Shots   int
	Workers int
	Probs   bool
	Plain   bool
}

// simulate runs c once and prints its final state, then samples a histogram
// when the circuit measures anything.
func simulate(ctx context.Context, l zerolog.Logger, out printer, c *circuit.Circuit, opts simulateOptions) error {
	res, err := runner.New(runner.WithLogger(l)).Run(ctx, c, runner.Options{
		Seed:                 opts.Seed,
		CollectProbabilities: opts.Probs,
	})
	if err != nil {
		return err
	}

	out.renderState(res.Final)
	out.renderRegisters(res.Final)
	out.renderOutcomes(res.Measurements)
	if opts.Probs {
		out.renderMoments(res.Probabilities, c.Registers())
	}

	if opts.Shots <= 0 || len(c.MeasuredRegisters()) == 0 {
		return nil
	}
	so := runner.SampleOptions{
		Shots:   opts.Shots,
		Seed:    opts.Seed,
		Workers: opts.Workers,
		Logger:  &l,
	}
	var h *runner.Histogram
	if !opts.Plain && isTerminal(os.Stderr) {
		h, err = sampleWithProgress(ctx, c, so)
	} else {
		h, err = runner.Sample(ctx, c, so)
	}
	if err != nil {
		return err
	}
	out.renderHistogram(h)
	return nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// loadCircuit reads a circuit from path ("-" for stdin). An empty format is
// picked from the file extension, falling back to looking for a qreg
// declaration.
func loadCircuit(path, format string) (*circuit.Circuit, error) {
	var (
		src []byte
		err error
	)
	if path == "-" {
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read circuit: %w", err)
	}
	return parseCircuit(string(src), detectFormat(path, format, string(src)))
}

func detectFormat(path, format, src string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qasm":
		return "qasm"
	case ".grid", ".txt":
		return "grid"
	}
	if strings.Contains(src, "qreg") {
		return "qasm"
	}
	return "grid"
}

func parseCircuit(src, format string) (*circuit.Circuit, error) {
	switch format {
	case "qasm":
		return qasm.Parse(src)
	case "grid":
		return textgrid.Parse(src)
	default:
		return nil, fmt.Errorf("unknown format %q (want qasm or grid)", format)
	}
}
