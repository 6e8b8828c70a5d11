// Package circuit is the intermediate representation consumed by the runner:
// an ordered grid of moments, each holding gate placements on disjoint
// registers.
//
// A Circuit only grows through AddGate. It is not safe to call AddGate while
// the circuit is being run; concurrent runs of a finished circuit are safe.
package circuit

import (
	"fmt"
	"iter"
	"slices"

	"qdeck/gates"
	"qdeck/quantum"
)

// Role is the part a register plays in a placement.
type Role int

const (
	Target Role = iota
	Control
)

func (r Role) String() string {
	if r == Control {
		return "control"
	}
	return "target"
}

// RegisterRole binds a register index to its role in a placement.
type RegisterRole struct {
	Register int
	Role     Role
}

// Targets returns target roles for each register, in order.
func Targets(registers ...int) []RegisterRole {
	roles := make([]RegisterRole, len(registers))
	for i, r := range registers {
		roles[i] = RegisterRole{Register: r, Role: Target}
	}
	return roles
}

// Controlled returns control roles for controls followed by a target role.
func Controlled(controls []int, target int) []RegisterRole {
	roles := make([]RegisterRole, 0, len(controls)+1)
	for _, c := range controls {
		roles = append(roles, RegisterRole{Register: c, Role: Control})
	}
	return append(roles, RegisterRole{Register: target, Role: Target})
}

// Placement is one gate or operation applied at a moment.
// Roles are stored controls first, then targets.
type Placement struct {
	Moment int
	Name   string
	Gate   gates.Gate
	Roles  []RegisterRole
}

// Registers returns the register indices in role order.
func (p Placement) Registers() []int {
	regs := make([]int, len(p.Roles))
	for i, r := range p.Roles {
		regs[i] = r.Register
	}
	return regs
}

// IsMeasurement reports whether the placement measures its registers.
func (p Placement) IsMeasurement() bool { return p.Name == gates.Measure }

// IsReset reports whether the placement resets its register to |0⟩.
func (p Placement) IsReset() bool { return p.Name == gates.Reset }

func (p Placement) String() string {
	label := p.Name
	if !p.IsMeasurement() && !p.IsReset() {
		label = p.Gate.String()
	}
	return fmt.Sprintf("%s%v@%d", label, p.Registers(), p.Moment)
}

func (p Placement) lowest() int {
	return slices.Min(p.Registers())
}

// Moment groups the placements of one time step, ordered by their lowest
// register index.
type Moment struct {
	Index      int
	Placements []Placement
}

// MaxMoments bounds moment indices so Depth stays representable and a run
// never walks an unbounded stretch of empty moments.
const MaxMoments = 1 << 20

// Circuit is an append-only sequence of gate placements over a fixed number
// of registers.
type Circuit struct {
	registers  int
	placements []Placement
	occupied   map[int]map[int]string
	depth      int
}

// New returns an empty circuit over the given number of registers.
func New(registers int) (*Circuit, error) {
	if registers < 1 || registers > quantum.MaxRegisters {
		return nil, rangef("register count %d not in [1, %d]", registers, quantum.MaxRegisters)
	}
	return &Circuit{
		registers: registers,
		occupied:  make(map[int]map[int]string),
	}, nil
}

// Registers returns the declared register count.
func (c *Circuit) Registers() int { return c.registers }

// Depth returns the number of moments, one past the last used moment index.
func (c *Circuit) Depth() int { return c.depth }

// Len returns the number of placements.
func (c *Circuit) Len() int { return len(c.placements) }

// Placements returns the placements in insertion order.
func (c *Circuit) Placements() []Placement {
	return slices.Clone(c.placements)
}

// AddGate places the named gate or operation at moment on the registers in
// roles. Parameterized gates take their angles in params.
func (c *Circuit) AddGate(moment int, name string, roles []RegisterRole, params ...float64) error {
	canon := gates.Canonical(name)
	if moment < 0 || moment >= MaxMoments {
		return rangef("moment %d not in [0, %d)", moment, MaxMoments)
	}
	if len(roles) == 0 {
		return rangef("%s at moment %d has no registers", canon, moment)
	}
	seen := make(map[int]bool, len(roles))
	for _, r := range roles {
		if r.Register < 0 || r.Register >= c.registers {
			return rangef("register %d not in [0, %d) for %s at moment %d", r.Register, c.registers, canon, moment)
		}
		if seen[r.Register] {
			return &ConflictError{Moment: moment, Register: r.Register, Gate: canon}
		}
		seen[r.Register] = true
		if existing, ok := c.occupied[moment][r.Register]; ok {
			return &ConflictError{Moment: moment, Register: r.Register, Gate: canon, Existing: existing}
		}
	}

	p, err := resolve(moment, canon, roles, params)
	if err != nil {
		return err
	}

	if c.occupied[moment] == nil {
		c.occupied[moment] = make(map[int]string)
	}
	for _, r := range p.Roles {
		c.occupied[moment][r.Register] = p.Name
	}
	c.placements = append(c.placements, p)
	c.depth = max(c.depth, moment+1)
	return nil
}

func resolve(moment int, name string, roles []RegisterRole, params []float64) (Placement, error) {
	p := Placement{Moment: moment, Name: name}
	switch name {
	case gates.Measure, gates.Reset:
		if len(params) > 0 {
			return p, &gates.InvalidGateError{Name: name, Msg: "takes no parameters"}
		}
		if name == gates.Reset && len(roles) != 1 {
			return p, &gates.InvalidGateError{Name: name, Msg: fmt.Sprintf("acts on 1 register, got %d", len(roles))}
		}
		for _, r := range roles {
			if r.Role != Target {
				return p, &gates.InvalidGateError{Name: name, Msg: "registers must all be targets"}
			}
		}
		p.Roles = slices.Clone(roles)
		return p, nil
	}

	g, err := gates.Lookup(name, params...)
	if err != nil {
		return p, err
	}
	if len(roles) != g.Arity {
		return p, &gates.InvalidGateError{Name: g.Name, Msg: fmt.Sprintf("acts on %d registers, got %d", g.Arity, len(roles))}
	}
	var controls, targets []RegisterRole
	for _, r := range roles {
		if r.Role == Control {
			controls = append(controls, r)
		} else {
			targets = append(targets, r)
		}
	}
	if len(controls) != g.Controls {
		return p, &gates.InvalidGateError{Name: g.Name, Msg: fmt.Sprintf("needs %d control registers, got %d", g.Controls, len(controls))}
	}
	p.Gate = g
	p.Name = g.Name
	p.Roles = append(controls, targets...)
	return p, nil
}

// At returns the placement touching register at moment, if any.
func (c *Circuit) At(moment, register int) (Placement, bool) {
	for _, p := range c.placements {
		if p.Moment != moment {
			continue
		}
		if slices.Contains(p.Registers(), register) {
			return p, true
		}
	}
	return Placement{}, false
}

// Moments yields every moment from 0 to Depth()-1 in ascending order, empty
// ones included. Each call starts a fresh pass over the current placements.
func (c *Circuit) Moments() iter.Seq[Moment] {
	return func(yield func(Moment) bool) {
		sorted := slices.Clone(c.placements)
		slices.SortStableFunc(sorted, func(a, b Placement) int {
			if a.Moment != b.Moment {
				return a.Moment - b.Moment
			}
			return a.lowest() - b.lowest()
		})
		i := 0
		for m := range c.depth {
			j := i
			for j < len(sorted) && sorted[j].Moment == m {
				j++
			}
			if !yield(Moment{Index: m, Placements: sorted[i:j:j]}) {
				return
			}
			i = j
		}
	}
}

// MeasuredRegisters returns the sorted set of registers that are measured
// anywhere in the circuit.
func (c *Circuit) MeasuredRegisters() []int {
	var out []int
	for _, p := range c.placements {
		if p.IsMeasurement() {
			out = append(out, p.Registers()...)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
