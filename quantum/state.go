// Package quantum holds the dense state-vector simulator: the amplitude
// vector, the gate application kernels and the measurement engine.
//
// Bit r of a basis-state index is register r, so |q2 q1 q0⟩ is stored at
// index q0 + 2*q1 + 4*q2.
package quantum

import (
	"math/bits"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

const (
	// NormTolerance bounds how far the squared norm may drift from 1.
	NormTolerance = 1e-9
	// MaxRegisters caps the state size at 2^24 amplitudes.
	MaxRegisters = 24
)

// State is a normalized vector of 2^n complex amplitudes.
// A State must not be mutated from more than one goroutine at a time.
type State struct {
	amps      []complex128
	registers int
}

// NewState returns |0…0⟩ over n registers.
func NewState(n int) (*State, error) {
	if n < 1 || n > MaxRegisters {
		return nil, dimensionf("register count %d out of range [1, %d]", n, MaxRegisters)
	}
	amps := make([]complex128, 1<<n)
	amps[0] = 1
	return &State{amps: amps, registers: n}, nil
}

// FromAmplitudes copies amps into a new State. The length must be a power of
// two of at least 2; the vector is not renormalized.
func FromAmplitudes(amps []complex128) (*State, error) {
	n := len(amps)
	if n < 2 || n&(n-1) != 0 {
		return nil, dimensionf("amplitude vector length %d is not a power of two", n)
	}
	if n > 1<<MaxRegisters {
		return nil, dimensionf("amplitude vector length %d exceeds 2^%d", n, MaxRegisters)
	}
	cp := make([]complex128, n)
	copy(cp, amps)
	return &State{amps: cp, registers: bits.TrailingZeros(uint(n))}, nil
}

// Registers returns the number of registers the state spans.
func (s *State) Registers() int { return s.registers }

// Len returns the number of amplitudes, 2^Registers().
func (s *State) Len() int { return len(s.amps) }

// At returns the amplitude of basis state i.
func (s *State) At(i int) (complex128, error) {
	if i < 0 || i >= len(s.amps) {
		return 0, dimensionf("index %d out of range [0, %d)", i, len(s.amps))
	}
	return s.amps[i], nil
}

// Set overwrites the amplitude of basis state i. The caller is responsible
// for restoring normalization.
func (s *State) Set(i int, v complex128) error {
	if i < 0 || i >= len(s.amps) {
		return dimensionf("index %d out of range [0, %d)", i, len(s.amps))
	}
	s.amps[i] = v
	return nil
}

// Amplitudes returns a copy of the amplitude vector.
func (s *State) Amplitudes() []complex128 {
	out := make([]complex128, len(s.amps))
	copy(out, s.amps)
	return out
}

// Clone returns an independent copy of the state.
func (s *State) Clone() *State {
	amps := make([]complex128, len(s.amps))
	copy(amps, s.amps)
	return &State{amps: amps, registers: s.registers}
}

// NormSquaredSum returns Σ|a_i|².
func (s *State) NormSquaredSum() float64 {
	return floats.Sum(s.Probabilities())
}

// IsNormalized reports whether the squared norm is 1 within NormTolerance.
func (s *State) IsNormalized() bool {
	n := s.NormSquaredSum()
	return n > 1-NormTolerance && n < 1+NormTolerance
}

// Probabilities returns |a_i|² for every basis state.
func (s *State) Probabilities() []float64 {
	probs := make([]float64, len(s.amps))
	for i, a := range s.amps {
		probs[i] = prob(a)
	}
	return probs
}

// RegisterProbability is the marginal distribution of a single register.
type RegisterProbability struct {
	Prob0 float64
	Prob1 float64
}

// RegisterProbabilities returns the per-register marginals.
func (s *State) RegisterProbabilities() []RegisterProbability {
	probs := make([]RegisterProbability, s.registers)
	for i, a := range s.amps {
		p := prob(a)
		for q := range s.registers {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += p
			} else {
				probs[q].Prob0 += p
			}
		}
	}
	return probs
}

// ApproxEqual reports whether both states span the same registers and every
// amplitude differs by at most tol.
func (s *State) ApproxEqual(other *State, tol float64) bool {
	if other == nil || len(s.amps) != len(other.amps) {
		return false
	}
	for i, a := range s.amps {
		if cmplx.Abs(a-other.amps[i]) > tol {
			return false
		}
	}
	return true
}

func prob(a complex128) float64 {
	return real(a)*real(a) + imag(a)*imag(a)
}

func (s *State) checkRegisters(regs []int) error {
	var seen uint64
	for _, r := range regs {
		if r < 0 || r >= s.registers {
			return registerf("register %d out of range [0, %d)", r, s.registers)
		}
		if seen&(1<<r) != 0 {
			return registerf("register %d listed twice", r)
		}
		seen |= 1 << r
	}
	return nil
}
