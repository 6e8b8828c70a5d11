package quantum

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"qdeck/gates"
)

// RandomSource supplies uniform samples in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a deterministic PCG source for seed.
func NewRandomSource(seed int64) RandomSource {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// outcomeOf packs the bits of basis index i on regs into an integer whose
// binary form, most significant bit first, follows the order of regs.
func outcomeOf(i int, regs []int) int {
	k := len(regs)
	out := 0
	for idx, r := range regs {
		if i&(1<<r) != 0 {
			out |= 1 << (k - 1 - idx)
		}
	}
	return out
}

// Marginal returns the probability of each of the 2^k outcomes on regs.
// Outcome o corresponds to the bit string fmt.Sprintf("%0*b", k, o).
func Marginal(s *State, regs []int) ([]float64, error) {
	if len(regs) == 0 {
		return nil, registerf("no registers to measure")
	}
	if err := s.checkRegisters(regs); err != nil {
		return nil, err
	}
	dist := make([]float64, 1<<len(regs))
	for i, a := range s.amps {
		dist[outcomeOf(i, regs)] += prob(a)
	}
	return dist, nil
}

// Measure samples an outcome on regs with the Born rule, collapses s onto it
// and renormalizes. The returned string has one '0'/'1' per register, in the
// order of regs.
func Measure(s *State, regs []int, rng RandomSource) (string, error) {
	dist, err := Marginal(s, regs)
	if err != nil {
		return "", err
	}
	total := floats.Sum(dist)
	if !(total > 0) {
		return "", emptyf("outcome distribution over registers %v sums to %g", regs, total)
	}

	r := rng.Float64() * total
	picked, acc := -1, 0.0
	for o, p := range dist {
		if p == 0 {
			continue
		}
		acc += p
		picked = o
		if r < acc {
			break
		}
	}

	scale := complex(1/math.Sqrt(dist[picked]), 0)
	for i := range s.amps {
		if outcomeOf(i, regs) == picked {
			s.amps[i] *= scale
		} else {
			s.amps[i] = 0
		}
	}
	if debugChecks {
		assertNormalized(s, gates.Measure)
	}
	return fmt.Sprintf("%0*b", len(regs), picked), nil
}

// Reset measures register q and flips it back to |0⟩ when the outcome was 1.
func Reset(s *State, q int, rng RandomSource) (string, error) {
	bit, err := Measure(s, []int{q}, rng)
	if err != nil {
		return "", err
	}
	if bit == "1" {
		x, _ := gates.Get("X")
		applySingle(s, x.Matrix, q)
	}
	return bit, nil
}
