package quantum

import (
	"fmt"

	"qdeck/gates"
)

// Apply applies g to s in place on the given registers.
//
// For controlled gates the leading g.Controls registers are controls and the
// last one is the target. For an uncontrolled two-register gate the first
// register is the most significant bit of the gate's local index.
func Apply(s *State, g gates.Gate, registers ...int) error {
	if len(registers) != g.Arity {
		return &gates.InvalidGateError{
			Name: g.Name,
			Msg:  fmt.Sprintf("acts on %d registers, got %d", g.Arity, len(registers)),
		}
	}
	if err := s.checkRegisters(registers); err != nil {
		return err
	}

	switch {
	case g.Controlled():
		applyControlled(s, g.Matrix, registers[:g.Controls], registers[g.Controls])
	case g.Arity == 1:
		applySingle(s, g.Matrix, registers[0])
	case g.Arity == 2:
		applyPair(s, g.Matrix, registers[0], registers[1])
	default:
		return &gates.InvalidGateError{Name: g.Name, Msg: fmt.Sprintf("no kernel for uncontrolled arity %d", g.Arity)}
	}

	if debugChecks {
		assertNormalized(s, g.Name)
	}
	return nil
}

// applySingle applies a 2×2 matrix to every amplitude pair that differs only
// in bit q.
func applySingle(s *State, m gates.Matrix, q int) {
	m00, m01, m10, m11 := m.At(0, 0), m.At(0, 1), m.At(1, 0), m.At(1, 1)
	bit := 1 << q
	amps := s.amps
	for i := range amps {
		if i&bit == 0 {
			j := i | bit
			a, b := amps[i], amps[j]
			amps[i] = m00*a + m01*b
			amps[j] = m10*a + m11*b
		}
	}
}

// applyControlled applies the 2×2 target matrix only to pairs whose control
// bits are all set; every other amplitude is left untouched.
func applyControlled(s *State, m gates.Matrix, controls []int, target int) {
	m00, m01, m10, m11 := m.At(0, 0), m.At(0, 1), m.At(1, 0), m.At(1, 1)
	cMask := 0
	for _, c := range controls {
		cMask |= 1 << c
	}
	tBit := 1 << target
	amps := s.amps
	for i := range amps {
		if i&cMask == cMask && i&tBit == 0 {
			j := i | tBit
			a, b := amps[i], amps[j]
			amps[i] = m00*a + m01*b
			amps[j] = m10*a + m11*b
		}
	}
}

// applyPair applies a 4×4 matrix over registers (hi, lo).
func applyPair(s *State, m gates.Matrix, hi, lo int) {
	hBit, lBit := 1<<hi, 1<<lo
	amps := s.amps
	var in [4]complex128
	for i := range amps {
		if i&hBit != 0 || i&lBit != 0 {
			continue
		}
		idx := [4]int{i, i | lBit, i | hBit, i | hBit | lBit}
		for k, x := range idx {
			in[k] = amps[x]
		}
		for r, x := range idx {
			var acc complex128
			for c := range 4 {
				acc += m.At(r, c) * in[c]
			}
			amps[x] = acc
		}
	}
}

func assertNormalized(s *State, op string) {
	if !s.IsNormalized() {
		panic(fmt.Sprintf("quantum: norm drifted to %.12f after %s", s.NormSquaredSum(), op))
	}
}
