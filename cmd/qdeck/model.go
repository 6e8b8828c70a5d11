package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"qdeck/circuit"
	"qdeck/runner"
)

// progressMsg reports finished shots from the sampler workers.
type progressMsg struct {
	done, total int
}

// sampleDoneMsg carries the outcome of the whole batch.
type sampleDoneMsg struct {
	hist *runner.Histogram
	err  error
}

// sampleModel shows a spinner and progress bar while a batch is sampled.
type sampleModel struct {
	progress progress.Model
	spinner  spinner.Model
	done     int
	total    int
	hist     *runner.Histogram
	err      error
	cancel   context.CancelFunc
	quitting bool
}

func newSampleModel(total int, cancel context.CancelFunc) sampleModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = activeGateStyle
	return sampleModel{
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(progW)),
		spinner:  sp,
		total:    total,
		cancel:   cancel,
	}
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m sampleModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m sampleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case progressMsg:
		m.done = msg.done
		m.total = msg.total

	case sampleDoneMsg:
		m.hist = msg.hist
		m.err = msg.err
		m.done = m.total
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the progress line.
func (m sampleModel) View() string {
	if m.quitting {
		return dimStyle.Render("sampling cancelled") + "\n"
	}
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	var sb strings.Builder
	sb.WriteString(m.spinner.View())
	sb.WriteString(" Sampling ")
	sb.WriteString(m.progress.ViewAs(pct))
	sb.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d shots", m.done, m.total)))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("q/esc cancel"))
	sb.WriteString("\n")
	return sb.String()
}

// sampleWithProgress runs runner.Sample behind the progress view. Progress
// updates are thrown away below a step so large batches do not flood the
// program's message queue.
func sampleWithProgress(ctx context.Context, c *circuit.Circuit, opts runner.SampleOptions) (*runner.Histogram, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSampleModel(opts.Shots, cancel), tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	step := max(opts.Shots/200, 1)
	opts.Progress = func(done, total int) {
		if done%step == 0 || done == total {
			p.Send(progressMsg{done: done, total: total})
		}
	}
	go func() {
		h, err := runner.Sample(ctx, c, opts)
		p.Send(sampleDoneMsg{hist: h, err: err})
	}()

	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	m, ok := final.(sampleModel)
	if !ok || m.quitting {
		return nil, context.Canceled
	}
	if m.hist == nil && m.err == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("sampling interrupted")
	}
	return m.hist, m.err
}
