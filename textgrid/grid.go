// Package textgrid reads circuits drawn as text, one row per register and one
// whitespace-separated column per moment:
//
//	H  X#0
//	I  X#1
//
// A token is a gate symbol, optionally with parameters and a component
// suffix: RX(pi/2), X#0, X.1#0. Components of one multi-register gate share
// a symbol and instance number within a column; component 0 comes first in
// role order, so for controlled gates the leading components are controls
// and the last is the target. M measures, RESET resets, "-" leaves the
// register idle and I places an identity gate.
package textgrid

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"qdeck/circuit"
	"qdeck/gates"
	"qdeck/qasm"
)

var ErrSyntax = errors.New("grid syntax error")

// GridError locates a failure at a 0-based row (register) and column
// (moment).
type GridError struct {
	Row, Col int
	Token    string
	Err      error
}

func (e *GridError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d, column %d, %q: %v", e.Row, e.Col, e.Token, e.Err)
}

func (e *GridError) Unwrap() error { return e.Err }

const idle = "-"

var tokenRegex = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*)(?:\(([^)\s]*)\))?(?:\.(\d+))?(?:#(\d+))?$`)

type token struct {
	name      string
	params    []float64
	paramText string
	instance  int
	component int
	multi     bool
}

func parseToken(s string) (token, error) {
	m := tokenRegex.FindStringSubmatch(s)
	if m == nil {
		return token{}, fmt.Errorf("%w: bad token", ErrSyntax)
	}
	t := token{name: gates.Canonical(m[1]), paramText: m[2]}
	params, err := qasm.ParseParamList(m[2])
	if err != nil {
		return token{}, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	t.params = params
	if m[3] != "" {
		t.instance, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		t.multi = true
		t.component, _ = strconv.Atoi(m[4])
	}
	return t, nil
}

type groupKey struct {
	name     string
	params   string
	instance int
}

type member struct {
	row, component int
}

// Parse builds a circuit from a text grid. Blank lines are ignored.
func Parse(src string) (*circuit.Circuit, error) {
	var rows [][]string
	for line := range strings.Lines(src) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, fields)
	}
	if len(rows) == 0 {
		return nil, &GridError{Err: fmt.Errorf("%w: empty grid", ErrSyntax)}
	}
	cols := len(rows[0])
	for r, row := range rows {
		if len(row) != cols {
			return nil, &GridError{Row: r, Err: fmt.Errorf("%w: %d columns, want %d", ErrSyntax, len(row), cols)}
		}
	}

	c, err := circuit.New(len(rows))
	if err != nil {
		return nil, &GridError{Err: err}
	}
	for col := range cols {
		if err := parseColumn(c, rows, col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseColumn(c *circuit.Circuit, rows [][]string, col int) error {
	groups := map[groupKey][]member{}
	var order []groupKey
	params := map[groupKey][]float64{}

	for r, row := range rows {
		raw := row[col]
		if raw == idle {
			continue
		}
		fail := func(err error) error {
			return &GridError{Row: r, Col: col, Token: raw, Err: err}
		}
		t, err := parseToken(raw)
		if err != nil {
			return fail(err)
		}
		if !t.multi {
			if err := c.AddGate(col, t.name, circuit.Targets(r), t.params...); err != nil {
				return fail(err)
			}
			continue
		}
		key := groupKey{t.name, t.paramText, t.instance}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
			params[key] = t.params
		}
		groups[key] = append(groups[key], member{row: r, component: t.component})
	}

	for _, key := range order {
		ms := groups[key]
		slices.SortFunc(ms, func(a, b member) int { return a.component - b.component })
		first := ms[0]
		fail := func(err error) error {
			return &GridError{Row: first.row, Col: col, Token: rows[first.row][col], Err: err}
		}
		for i, m := range ms {
			if m.component != i {
				return fail(fmt.Errorf("%w: components of %s are %v, want 0..%d", ErrSyntax, key.name, components(ms), len(ms)-1))
			}
		}
		name, roles, err := resolve(key.name, params[key], ms)
		if err != nil {
			return fail(err)
		}
		if err := c.AddGate(col, name, roles, params[key]...); err != nil {
			return fail(err)
		}
	}
	return nil
}

// resolve picks the gate for a group of components. A symbol whose arity
// matches the group is used as is; a single-register symbol with extra
// components becomes its controlled form (X with 3 components is CCX).
// Measurement components read out together in component order.
func resolve(symbol string, params []float64, ms []member) (string, []circuit.RegisterRole, error) {
	k := len(ms)
	if symbol == gates.Measure {
		regs := make([]int, k)
		for i, m := range ms {
			regs[i] = m.row
		}
		return symbol, circuit.Targets(regs...), nil
	}
	name := symbol
	if g, err := gates.Lookup(symbol, params...); err == nil && g.Arity != k {
		if g.Arity != 1 {
			return "", nil, fmt.Errorf("%w: %s takes %d components, got %d", ErrSyntax, symbol, g.Arity, k)
		}
		name = strings.Repeat("C", k-1) + symbol
	}
	g, err := gates.Lookup(name, params...)
	if err != nil {
		return "", nil, err
	}
	if g.Arity != k {
		return "", nil, fmt.Errorf("%w: %s takes %d components, got %d", ErrSyntax, name, g.Arity, k)
	}
	roles := make([]circuit.RegisterRole, k)
	for i, m := range ms {
		role := circuit.Target
		if i < g.Controls {
			role = circuit.Control
		}
		roles[i] = circuit.RegisterRole{Register: m.row, Role: role}
	}
	return g.Name, roles, nil
}

func components(ms []member) []int {
	out := make([]int, len(ms))
	for i, m := range ms {
		out[i] = m.component
	}
	return out
}

// Format draws c as a grid Parse accepts. Controlled gates are written as
// components of their base symbol, so CX becomes X#0 over X#1. A circuit
// without moments is drawn as a single idle column.
func Format(c *circuit.Circuit) string {
	cols := max(c.Depth(), 1)
	cells := make([][]string, c.Registers())
	for r := range cells {
		cells[r] = make([]string, cols)
		for m := range cells[r] {
			cells[r][m] = idle
		}
	}

	for m := range c.Moments() {
		instances := map[string]int{}
		for _, p := range m.Placements {
			sym := symbolOf(p)
			regs := p.Registers()
			if len(regs) == 1 {
				cells[regs[0]][m.Index] = sym
				continue
			}
			n := instances[sym]
			instances[sym]++
			for k, r := range regs {
				if n == 0 {
					cells[r][m.Index] = fmt.Sprintf("%s#%d", sym, k)
				} else {
					cells[r][m.Index] = fmt.Sprintf("%s.%d#%d", sym, n, k)
				}
			}
		}
	}

	widths := make([]int, cols)
	for _, row := range cells {
		for m, cell := range row {
			widths[m] = max(widths[m], len(cell))
		}
	}
	var sb strings.Builder
	for _, row := range cells {
		for m, cell := range row {
			if m > 0 {
				sb.WriteString("  ")
			}
			if m == len(row)-1 {
				sb.WriteString(cell)
			} else {
				fmt.Fprintf(&sb, "%-*s", widths[m], cell)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func symbolOf(p circuit.Placement) string {
	switch {
	case p.IsMeasurement():
		return "M"
	case p.IsReset():
		return gates.Reset
	}
	base := p.Gate.Name
	if p.Gate.Controls > 0 {
		base = base[p.Gate.Controls:]
	}
	if len(p.Gate.Params) == 0 {
		return base
	}
	parts := make([]string, len(p.Gate.Params))
	for i, v := range p.Gate.Params {
		parts[i] = qasm.FormatParam(v)
	}
	return base + "(" + strings.Join(parts, ",") + ")"
}
