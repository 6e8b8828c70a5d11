// Package qasm reads and writes the OpenQASM 2.0 subset that maps onto the
// circuit representation: qreg/creg declarations, catalog gates with pi
// expression parameters, measure, reset and barrier.
package qasm

import (
	"regexp"
	"strconv"
	"strings"

	"qdeck/circuit"
	"qdeck/gates"
)

// Pre-compiled regexps for QASM parsing.
var (
	regDeclRegex   = regexp.MustCompile(`^(qreg|creg)\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	statementRegex = regexp.MustCompile(`^(\w+)\s*(?:\(([^)]*)\))?\s*(.*)$`)
	operandRegex   = regexp.MustCompile(`^(\w+)(?:\s*\[\s*(\d+)\s*\])?$`)
	measureRegex   = regexp.MustCompile(`^measure\s+(.+?)\s*->\s*(.+)$`)
)

type qreg struct {
	offset, size int
}

// parser packs statements into moments the way the editor's DAG does: each
// statement lands on the earliest moment after the last use of every
// register it touches.
type parser struct {
	qregs    map[string]qreg
	cregs    map[string]int
	nq       int
	c        *circuit.Circuit
	frontier []int
}

// Parse builds a circuit from QASM source.
func Parse(src string) (*circuit.Circuit, error) {
	p := &parser{qregs: map[string]qreg{}, cregs: map[string]int{}}
	for i, raw := range strings.Split(src, "\n") {
		line := raw
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		for stmt := range strings.SplitSeq(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := p.statement(stmt); err != nil {
				return nil, &ParseError{Line: i + 1, Text: stmt, Err: err}
			}
		}
	}
	if err := p.ensureCircuit(); err != nil {
		return nil, &ParseError{Line: 0, Text: "", Err: err}
	}
	return p.c, nil
}

func (p *parser) statement(stmt string) error {
	switch {
	case strings.HasPrefix(stmt, "OPENQASM"), strings.HasPrefix(stmt, "include"):
		return nil
	}

	if m := regDeclRegex.FindStringSubmatch(stmt); m != nil {
		size, _ := strconv.Atoi(m[3])
		if size < 1 {
			return syntaxf("register %s has size %d", m[2], size)
		}
		if m[1] == "creg" {
			p.cregs[m[2]] = size
			return nil
		}
		if p.c != nil {
			return syntaxf("qreg %s declared after the first operation", m[2])
		}
		if _, dup := p.qregs[m[2]]; dup {
			return syntaxf("qreg %s declared twice", m[2])
		}
		p.qregs[m[2]] = qreg{offset: p.nq, size: size}
		p.nq += size
		return nil
	}

	if err := p.ensureCircuit(); err != nil {
		return err
	}

	if m := measureRegex.FindStringSubmatch(stmt); m != nil {
		regs, err := p.operand(m[1])
		if err != nil {
			return err
		}
		if err := p.classical(m[2], len(regs)); err != nil {
			return err
		}
		for _, r := range regs {
			if err := p.place(gates.Measure, circuit.Targets(r), nil); err != nil {
				return err
			}
		}
		return nil
	}

	m := statementRegex.FindStringSubmatch(stmt)
	if m == nil {
		return syntaxf("unrecognized statement")
	}
	name, paramText, operandText := strings.ToLower(m[1]), m[2], m[3]

	switch name {
	case "if", "gate", "opaque":
		return syntaxf("%s is not supported", name)
	case "barrier":
		var regs []int
		if strings.TrimSpace(operandText) == "" {
			regs = allRegisters(p.nq)
		} else {
			var err error
			if regs, err = p.operands(operandText); err != nil {
				return err
			}
		}
		p.barrier(regs)
		return nil
	case "reset":
		regs, err := p.operands(operandText)
		if err != nil {
			return err
		}
		for _, r := range regs {
			if err := p.place(gates.Reset, circuit.Targets(r), nil); err != nil {
				return err
			}
		}
		return nil
	}

	params, err := ParseParamList(paramText)
	if err != nil {
		return err
	}
	g, err := gates.Lookup(name, params...)
	if err != nil {
		return err
	}
	var groups [][]int
	for op := range strings.SplitSeq(operandText, ",") {
		regs, err := p.operand(op)
		if err != nil {
			return err
		}
		groups = append(groups, regs)
	}
	if len(groups) != g.Arity {
		return syntaxf("%s takes %d operands, got %d", name, g.Arity, len(groups))
	}
	return p.broadcast(g, groups, params)
}

// broadcast applies g once per index when operands are whole registers of
// equal size, as in "h q;" or "cx a, b;".
func (p *parser) broadcast(g gates.Gate, groups [][]int, params []float64) error {
	n := 1
	for _, grp := range groups {
		if len(grp) > 1 {
			if n > 1 && len(grp) != n {
				return syntaxf("%s operands have mismatched sizes", strings.ToLower(g.Name))
			}
			n = len(grp)
		}
	}
	for i := range n {
		roles := make([]circuit.RegisterRole, len(groups))
		for k, grp := range groups {
			r := grp[0]
			if len(grp) > 1 {
				r = grp[i]
			}
			role := circuit.Target
			if k < g.Controls {
				role = circuit.Control
			}
			roles[k] = circuit.RegisterRole{Register: r, Role: role}
		}
		if err := p.place(g.Name, roles, params); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) ensureCircuit() error {
	if p.c != nil {
		return nil
	}
	if p.nq == 0 {
		return syntaxf("no qreg declared")
	}
	c, err := circuit.New(p.nq)
	if err != nil {
		return err
	}
	p.c = c
	p.frontier = make([]int, p.nq)
	return nil
}

func (p *parser) place(name string, roles []circuit.RegisterRole, params []float64) error {
	moment := 0
	for _, r := range roles {
		if r.Register >= 0 && r.Register < len(p.frontier) {
			moment = max(moment, p.frontier[r.Register])
		}
	}
	if err := p.c.AddGate(moment, name, roles, params...); err != nil {
		return err
	}
	for _, r := range roles {
		p.frontier[r.Register] = moment + 1
	}
	return nil
}

// barrier aligns the frontier of regs so nothing after it shares a moment
// with anything before it on those registers.
func (p *parser) barrier(regs []int) {
	edge := 0
	for _, r := range regs {
		edge = max(edge, p.frontier[r])
	}
	for _, r := range regs {
		p.frontier[r] = edge
	}
}

// operand resolves "q[3]" to one register or "q" to the whole register.
func (p *parser) operand(text string) ([]int, error) {
	m := operandRegex.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil, syntaxf("bad operand %q", strings.TrimSpace(text))
	}
	reg, ok := p.qregs[m[1]]
	if !ok {
		return nil, syntaxf("unknown qreg %q", m[1])
	}
	if m[2] == "" {
		regs := make([]int, reg.size)
		for i := range regs {
			regs[i] = reg.offset + i
		}
		return regs, nil
	}
	idx, _ := strconv.Atoi(m[2])
	if idx >= reg.size {
		return nil, syntaxf("%s[%d] out of range, size %d", m[1], idx, reg.size)
	}
	return []int{reg.offset + idx}, nil
}

func (p *parser) operands(text string) ([]int, error) {
	var out []int
	for op := range strings.SplitSeq(text, ",") {
		regs, err := p.operand(op)
		if err != nil {
			return nil, err
		}
		out = append(out, regs...)
	}
	return out, nil
}

// classical checks the target of a measure against the declared cregs.
func (p *parser) classical(text string, width int) error {
	m := operandRegex.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return syntaxf("bad classical operand %q", strings.TrimSpace(text))
	}
	size, ok := p.cregs[m[1]]
	if !ok {
		return syntaxf("unknown creg %q", m[1])
	}
	if m[2] == "" {
		if size != width {
			return syntaxf("measure of %d registers into creg %s of size %d", width, m[1], size)
		}
		return nil
	}
	idx, _ := strconv.Atoi(m[2])
	if width != 1 || idx >= size {
		return syntaxf("bad classical target %s[%d]", m[1], idx)
	}
	return nil
}

func allRegisters(n int) []int {
	regs := make([]int, n)
	for i := range regs {
		regs[i] = i
	}
	return regs
}
