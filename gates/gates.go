// Package gates is the process-wide catalog of unitary gate matrices.
//
// The catalog is built and validated once, on first use, and is never
// mutated afterwards, so it can be shared by concurrent runs without locking.
// Parameterized gates (rotations, phase shifts) are built on demand by Lookup
// and validated the same way.
package gates

import (
	"fmt"
	"math"
	"math/cmplx"
	"slices"
	"strings"
	"sync"
)

// Operation names that are recognized by circuits but are not unitary gates.
const (
	Measure = "MEASURE"
	Reset   = "RESET"
)

// Gate is an immutable unitary operator bound to a name.
//
// For controlled gates Matrix holds the 2×2 operator applied to the target and
// Controls counts the leading control registers. For every other gate Matrix
// is the full 2^Arity operator.
type Gate struct {
	Name     string
	Title    string
	Symbol   string
	Arity    int
	Controls int
	Params   []float64
	Matrix   Matrix
}

// Controlled reports whether the gate is a controlled operation.
func (g Gate) Controlled() bool { return g.Controls > 0 }

// Unitary returns the full 2^Arity operator of the gate. Register order is
// most-significant first: for a controlled gate the controls come first and
// the target block occupies the last two rows and columns.
func (g Gate) Unitary() Matrix {
	if !g.Controlled() {
		return g.Matrix
	}
	dim := 1 << g.Arity
	full := Identity(dim)
	off := dim - 2
	for i := range 2 {
		for j := range 2 {
			full.data[(off+i)*dim+off+j] = g.Matrix.At(i, j)
		}
	}
	return full
}

func (g Gate) String() string {
	if len(g.Params) == 0 {
		return g.Name
	}
	parts := make([]string, len(g.Params))
	for i, p := range g.Params {
		parts[i] = fmt.Sprintf("%g", p)
	}
	return fmt.Sprintf("%s(%s)", g.Name, strings.Join(parts, ","))
}

// Validate checks the structural invariants of g and that its operator is
// unitary within UnitaryTolerance.
func Validate(g Gate) error {
	if g.Arity < 1 {
		return invalidf(g.Name, "arity %d", g.Arity)
	}
	want := 1 << g.Arity
	if g.Controlled() {
		if g.Controls >= g.Arity {
			return invalidf(g.Name, "%d controls for arity %d", g.Controls, g.Arity)
		}
		want = 2
	}
	if g.Matrix.Dim() != want {
		return invalidf(g.Name, "matrix is %dx%d, want %dx%d", g.Matrix.Dim(), g.Matrix.Dim(), want, want)
	}
	for _, v := range g.Matrix.data {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return invalidf(g.Name, "matrix has non-finite entries")
		}
	}
	if !g.Matrix.IsUnitary(UnitaryTolerance) {
		return invalidf(g.Name, "matrix is not unitary")
	}
	return nil
}

var (
	s2 = complex(1/math.Sqrt2, 0)

	matI   = NewMatrix(2, 1, 0, 0, 1)
	matH   = NewMatrix(2, s2, s2, s2, -s2)
	matX   = NewMatrix(2, 0, 1, 1, 0)
	matY   = NewMatrix(2, 0, -1i, 1i, 0)
	matZ   = NewMatrix(2, 1, 0, 0, -1)
	matS   = NewMatrix(2, 1, 0, 0, 1i)
	matSdg = NewMatrix(2, 1, 0, 0, -1i)
	matT   = NewMatrix(2, 1, 0, 0, cmplx.Exp(complex(0, math.Pi/4)))
	matTdg = NewMatrix(2, 1, 0, 0, cmplx.Exp(complex(0, -math.Pi/4)))
	matSX  = NewMatrix(2, (1+1i)/2, (1-1i)/2, (1-1i)/2, (1+1i)/2)
	matSXd = NewMatrix(2, (1-1i)/2, (1+1i)/2, (1+1i)/2, (1-1i)/2)
	matSW  = NewMatrix(4,
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	)
)

// Category groups catalog entries the way the CLI lists them.
type Category struct {
	Name    string
	Entries []Entry
}

// Entry describes one gate or operation name.
type Entry struct {
	Name   string
	Title  string
	Symbol string
	Params int
}

var menu = []Category{
	{
		Name: "Single Qubit",
		Entries: []Entry{
			{Name: "H", Title: "Hadamard", Symbol: "H"},
			{Name: "X", Title: "Pauli-X (NOT)", Symbol: "X"},
			{Name: "Y", Title: "Pauli-Y", Symbol: "Y"},
			{Name: "Z", Title: "Pauli-Z", Symbol: "Z"},
			{Name: "I", Title: "Identity", Symbol: "I"},
			{Name: "S", Title: "Phase (S)", Symbol: "S"},
			{Name: "SDG", Title: "Phase Dagger (S†)", Symbol: "S†"},
			{Name: "T", Title: "T Gate", Symbol: "T"},
			{Name: "TDG", Title: "T Dagger (T†)", Symbol: "T†"},
			{Name: "SX", Title: "√X (SX)", Symbol: "√X"},
			{Name: "SXDG", Title: "√X Dagger", Symbol: "√X†"},
		},
	},
	{
		Name: "Rotation",
		Entries: []Entry{
			{Name: "RX", Title: "Rotate X", Symbol: "RX", Params: 1},
			{Name: "RY", Title: "Rotate Y", Symbol: "RY", Params: 1},
			{Name: "RZ", Title: "Rotate Z", Symbol: "RZ", Params: 1},
			{Name: "P", Title: "Phase Shift", Symbol: "P", Params: 1},
			{Name: "U2", Title: "Universal U2", Symbol: "U2", Params: 2},
			{Name: "U3", Title: "Universal U3", Symbol: "U3", Params: 3},
		},
	},
	{
		Name: "Multi Qubit",
		Entries: []Entry{
			{Name: "CX", Title: "CNOT", Symbol: "●─⊕"},
			{Name: "CY", Title: "Controlled-Y", Symbol: "●─Y"},
			{Name: "CZ", Title: "Controlled-Z", Symbol: "●─●"},
			{Name: "CH", Title: "Controlled-H", Symbol: "●─H"},
			{Name: "SWAP", Title: "SWAP", Symbol: "×─×"},
			{Name: "CCX", Title: "Toffoli (CCX)", Symbol: "●─●─⊕"},
			{Name: "CRX", Title: "C-Rotate X", Symbol: "●─RX", Params: 1},
			{Name: "CRY", Title: "C-Rotate Y", Symbol: "●─RY", Params: 1},
			{Name: "CRZ", Title: "C-Rotate Z", Symbol: "●─RZ", Params: 1},
			{Name: "CP", Title: "C-Phase (CU1)", Symbol: "●─P", Params: 1},
		},
	},
	{
		Name: "Measurement",
		Entries: []Entry{
			{Name: Measure, Title: "Measure", Symbol: "M"},
		},
	},
	{
		Name: "Special",
		Entries: []Entry{
			{Name: Reset, Title: "Reset", Symbol: "|0⟩"},
		},
	},
}

// Menu returns the catalog grouped by category.
func Menu() []Category {
	out := make([]Category, len(menu))
	for i, c := range menu {
		out[i] = Category{Name: c.Name, Entries: slices.Clone(c.Entries)}
	}
	return out
}

var aliases = map[string]string{
	"ID":      "I",
	"CNOT":    "CX",
	"TOFFOLI": "CCX",
	"U1":      "P",
	"CU1":     "CP",
	"PHASE":   "P",
	"M":       Measure,
}

// Canonical returns the upper-case catalog name for name, resolving aliases.
func Canonical(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

// IsMeasurement reports whether name denotes the measurement operation.
func IsMeasurement(name string) bool { return Canonical(name) == Measure }

// IsReset reports whether name denotes the reset operation.
func IsReset(name string) bool { return Canonical(name) == Reset }

var (
	catalogOnce sync.Once
	catalog     map[string]Gate
)

func fixed(name string, arity, controls int, m Matrix) Gate {
	g := Gate{Name: name, Arity: arity, Controls: controls, Matrix: m}
	for _, c := range menu {
		for _, e := range c.Entries {
			if e.Name == name {
				g.Title, g.Symbol = e.Title, e.Symbol
			}
		}
	}
	return g
}

func buildCatalog() map[string]Gate {
	list := []Gate{
		fixed("I", 1, 0, matI),
		fixed("H", 1, 0, matH),
		fixed("X", 1, 0, matX),
		fixed("Y", 1, 0, matY),
		fixed("Z", 1, 0, matZ),
		fixed("S", 1, 0, matS),
		fixed("SDG", 1, 0, matSdg),
		fixed("T", 1, 0, matT),
		fixed("TDG", 1, 0, matTdg),
		fixed("SX", 1, 0, matSX),
		fixed("SXDG", 1, 0, matSXd),
		fixed("CX", 2, 1, matX),
		fixed("CY", 2, 1, matY),
		fixed("CZ", 2, 1, matZ),
		fixed("CH", 2, 1, matH),
		fixed("SWAP", 2, 0, matSW),
		fixed("CCX", 3, 2, matX),
	}
	out := make(map[string]Gate, len(list))
	for _, g := range list {
		if err := Validate(g); err != nil {
			panic(err)
		}
		out[g.Name] = g
	}
	return out
}

func loadCatalog() map[string]Gate {
	catalogOnce.Do(func() {
		catalog = buildCatalog()
	})
	return catalog
}

// Get returns the fixed catalog gate with the given name.
func Get(name string) (Gate, bool) {
	g, ok := loadCatalog()[Canonical(name)]
	return g, ok
}

// Lookup resolves a gate by name. Fixed gates take no parameters;
// parameterized gates require exactly the number they declare.
func Lookup(name string, params ...float64) (Gate, error) {
	n := Canonical(name)
	if n == Measure || n == Reset {
		return Gate{}, invalidf(n, "is an operation, not a gate")
	}
	if g, ok := loadCatalog()[n]; ok {
		if len(params) > 0 {
			return Gate{}, invalidf(n, "takes no parameters, got %d", len(params))
		}
		return g, nil
	}
	p, ok := parameterized[n]
	if !ok {
		return Gate{}, &InvalidGateError{Name: name, Msg: "unknown gate"}
	}
	if len(params) != p.params {
		return Gate{}, invalidf(n, "takes %d parameters, got %d", p.params, len(params))
	}
	g := fixed(n, p.controls+1, p.controls, p.build(params))
	g.Params = slices.Clone(params)
	if err := Validate(g); err != nil {
		return Gate{}, err
	}
	return g, nil
}

// Names returns every gate name Lookup accepts, sorted.
func Names() []string {
	cat := loadCatalog()
	names := make([]string, 0, len(cat)+len(parameterized))
	for n := range cat {
		names = append(names, n)
	}
	for n := range parameterized {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
