package main

import (
	"fmt"
	"io"
	"math/cmplx"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"qdeck/gates"
	"qdeck/quantum"
	"qdeck/runner"
)

// ──────────────────────────── Rendering helpers ────────────────────────────

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// bar draws a horizontal bar of width w filled to fraction f.
func bar(f float64, w int) string {
	n := int(f*float64(w) + 0.5)
	n = min(max(n, 0), w)
	return strings.Repeat("█", n) + strings.Repeat("░", w-n)
}

// basisLabel writes basis index i as a ket with register n-1 leftmost.
func basisLabel(i, n int) string {
	return fmt.Sprintf("|%0*b⟩", n, i)
}

func formatAmp(a complex128) string {
	return fmt.Sprintf("%+.4f%+.4fi", real(a), imag(a))
}

// printer writes result tables either styled or as plain tab-separated text.
type printer struct {
	w     io.Writer
	plain bool
}

func (p printer) title(s string) {
	if p.plain {
		fmt.Fprintf(p.w, "# %s\n", s)
		return
	}
	fmt.Fprintln(p.w, titleStyle.Render(s))
}

func (p printer) table(headers []string, rows [][]string) {
	if p.plain {
		tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, r := range rows {
			fmt.Fprintln(tw, strings.Join(r, "\t"))
		}
		tw.Flush()
		fmt.Fprintln(p.w)
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(p.w, t.Render())
}

// ──────────────────────────── Result tables ────────────────────────────

// renderState lists the basis states with non-negligible probability.
func (p printer) renderState(s *quantum.State) {
	p.title("Final state")
	probs := s.Probabilities()
	var rows [][]string
	skipped := 0
	for i, a := range s.Amplitudes() {
		if probs[i] < 1e-12 {
			continue
		}
		if len(rows) == maxBasis {
			skipped++
			continue
		}
		rows = append(rows, []string{
			basisLabel(i, s.Registers()),
			formatAmp(a),
			fmt.Sprintf("%.4f", cmplx.Phase(a)),
			fmt.Sprintf("%.6f", probs[i]),
		})
	}
	p.table([]string{"Basis", "Amplitude", "Phase", "Probability"}, rows)
	if skipped > 0 {
		fmt.Fprintf(p.w, "... %d more basis states\n\n", skipped)
	}
}

// renderRegisters shows P(0) and P(1) for each register.
func (p printer) renderRegisters(s *quantum.State) {
	p.title("Registers")
	var rows [][]string
	for r, rp := range s.RegisterProbabilities() {
		label := fmt.Sprintf("q[%d]", r)
		if !p.plain {
			label = qubitLabelStyle.Render(label)
		}
		rows = append(rows, []string{
			label,
			fmt.Sprintf("%.4f", rp.Prob0),
			fmt.Sprintf("%.4f", rp.Prob1),
			bar(rp.Prob1, barW),
		})
	}
	p.table([]string{"Register", "P(0)", "P(1)", "P(1) " + padCenter("", barW-5)}, rows)
}

// renderMoments lists the distribution after every moment.
func (p printer) renderMoments(probs [][]float64, registers int) {
	p.title("Distribution per moment")
	var rows [][]string
	for m, dist := range probs {
		var parts []string
		for i, pr := range dist {
			if pr >= 1e-12 {
				parts = append(parts, fmt.Sprintf("%0*b:%.3f", registers, i, pr))
			}
		}
		rows = append(rows, []string{fmt.Sprint(m), strings.Join(parts, " ")})
	}
	p.table([]string{"Moment", "Outcomes"}, rows)
}

// renderOutcomes lists the measurements of a single run.
func (p printer) renderOutcomes(ms []runner.Outcome) {
	if len(ms) == 0 {
		return
	}
	p.title("Measurements")
	var rows [][]string
	for _, o := range ms {
		rows = append(rows, []string{fmt.Sprint(o.Moment), fmt.Sprint(o.Registers), o.Bits})
	}
	p.table([]string{"Moment", "Registers", "Bits"}, rows)
}

// renderHistogram shows counts and frequencies of a sampled batch.
func (p printer) renderHistogram(h *runner.Histogram) {
	p.title(fmt.Sprintf("Histogram (%d shots)", h.Shots))
	var rows [][]string
	for _, k := range h.Keys() {
		label := k
		if label == "" {
			label = "(none)"
		}
		rows = append(rows, []string{
			label,
			fmt.Sprint(h.Counts[k]),
			fmt.Sprintf("%.4f", h.Frequency(k)),
			bar(h.Frequency(k), barW),
		})
	}
	p.table([]string{"Outcome", "Count", "Frequency", padCenter("", barW)}, rows)
}

// renderMenu lists the gate catalog grouped by category.
func (p printer) renderMenu() {
	for _, cat := range gates.Menu() {
		var rows [][]string
		for _, item := range cat.Entries {
			name, symbol := item.Name, item.Symbol
			if !p.plain {
				symbol = gateStyle.Render(symbol)
			}
			params := ""
			if item.Params > 0 {
				params = fmt.Sprint(item.Params)
				if !p.plain {
					params = dimStyle.Render(params)
				}
			}
			rows = append(rows, []string{name, item.Title, symbol, params})
		}
		p.title(cat.Name)
		p.table([]string{"Name", "Gate", "Symbol", "Params"}, rows)
	}
}

func (p printer) renderError(err error) {
	if p.plain {
		fmt.Fprintf(p.w, "error: %v\n", err)
		return
	}
	fmt.Fprintln(p.w, panelStyle.Render(errorStyle.Render("error")+"\n"+err.Error()))
}
