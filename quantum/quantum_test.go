package quantum

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdeck/gates"
)

const tol = 1e-9

func mustGate(t *testing.T, name string, params ...float64) gates.Gate {
	t.Helper()
	g, err := gates.Lookup(name, params...)
	require.NoError(t, err)
	return g
}

func bell(t *testing.T) *State {
	t.Helper()
	s, err := NewState(2)
	require.NoError(t, err)
	require.NoError(t, Apply(s, mustGate(t, "H"), 0))
	require.NoError(t, Apply(s, mustGate(t, "CX"), 0, 1))
	return s
}

func TestNewState(t *testing.T) {
	s, err := NewState(3)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Len())
	assert.Equal(t, 3, s.Registers())
	a, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, complex128(1), a)
	assert.InDelta(t, 1, s.NormSquaredSum(), tol)

	_, err = NewState(0)
	assert.ErrorIs(t, err, ErrDimension)
	_, err = NewState(MaxRegisters + 1)
	assert.ErrorIs(t, err, ErrDimension)
}

func TestFromAmplitudesDimension(t *testing.T) {
	for _, n := range []int{0, 1, 3, 6} {
		_, err := FromAmplitudes(make([]complex128, n))
		assert.ErrorIs(t, err, ErrDimension, "length %d", n)
	}
	s, err := FromAmplitudes([]complex128{0, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Registers())
}

func TestAtSetRange(t *testing.T) {
	s, _ := NewState(1)
	_, err := s.At(2)
	assert.ErrorIs(t, err, ErrDimension)
	assert.ErrorIs(t, s.Set(-1, 1), ErrDimension)
	require.NoError(t, s.Set(1, 1i))
	a, _ := s.At(1)
	assert.Equal(t, 1i, a)
}

func TestHadamardTwiceIsIdentity(t *testing.T) {
	s, _ := FromAmplitudes([]complex128{complex(0.6, 0), complex(0, 0.8)})
	orig := s.Clone()
	h := mustGate(t, "H")
	require.NoError(t, Apply(s, h, 0))
	assert.False(t, s.ApproxEqual(orig, tol))
	require.NoError(t, Apply(s, h, 0))
	assert.True(t, s.ApproxEqual(orig, tol))
}

func TestIdentityLeavesStateUnchanged(t *testing.T) {
	s, _ := NewState(1)
	orig := s.Clone()
	require.NoError(t, Apply(s, mustGate(t, "I"), 0))
	assert.True(t, s.ApproxEqual(orig, 0))
}

func TestBellState(t *testing.T) {
	s := bell(t)
	want := []complex128{complex(1/math.Sqrt2, 0), 0, 0, complex(1/math.Sqrt2, 0)}
	for i, w := range want {
		a, _ := s.At(i)
		assert.InDelta(t, real(w), real(a), tol, "amp %d", i)
		assert.InDelta(t, imag(w), imag(a), tol, "amp %d", i)
	}
}

func TestNormPreservedAcrossGates(t *testing.T) {
	s, _ := NewState(4)
	seq := []struct {
		name   string
		params []float64
		regs   []int
	}{
		{"H", nil, []int{0}},
		{"RY", []float64{0.7}, []int{1}},
		{"CX", nil, []int{0, 2}},
		{"T", nil, []int{2}},
		{"SWAP", nil, []int{1, 3}},
		{"U3", []float64{1.1, 0.2, -0.9}, []int{3}},
		{"CCX", nil, []int{0, 1, 3}},
		{"CRZ", []float64{math.Pi / 3}, []int{3, 0}},
		{"SX", nil, []int{2}},
		{"CH", nil, []int{2, 1}},
	}
	for _, step := range seq {
		require.NoError(t, Apply(s, mustGate(t, step.name, step.params...), step.regs...))
		assert.InDelta(t, 1, s.NormSquaredSum(), tol, "after %s", step.name)
	}
}

func TestControlledOnlyActsWhenControlSet(t *testing.T) {
	// |00>: control 0 is clear, CX does nothing.
	s, _ := NewState(2)
	require.NoError(t, Apply(s, mustGate(t, "CX"), 0, 1))
	a, _ := s.At(0)
	assert.Equal(t, complex128(1), a)

	// |01> (register 0 set): CX flips register 1 -> |11> = index 3.
	s, _ = FromAmplitudes([]complex128{0, 1, 0, 0})
	require.NoError(t, Apply(s, mustGate(t, "CX"), 0, 1))
	a, _ = s.At(3)
	assert.Equal(t, complex128(1), a)
}

func TestToffoliTruthTable(t *testing.T) {
	ccx := mustGate(t, "CCX")
	for in := range 8 {
		amps := make([]complex128, 8)
		amps[in] = 1
		s, _ := FromAmplitudes(amps)
		require.NoError(t, Apply(s, ccx, 0, 1, 2))
		want := in
		if in&0b011 == 0b011 {
			want = in ^ 0b100
		}
		a, _ := s.At(want)
		assert.Equal(t, complex128(1), a, "input %03b", in)
	}
}

func TestSwap(t *testing.T) {
	s, _ := FromAmplitudes([]complex128{0, 1, 0, 0, 0, 0, 0, 0})
	require.NoError(t, Apply(s, mustGate(t, "SWAP"), 0, 2))
	a, _ := s.At(4)
	assert.Equal(t, complex128(1), a)
}

func TestApplyErrors(t *testing.T) {
	s, _ := NewState(2)
	err := Apply(s, mustGate(t, "H"), 2)
	assert.ErrorIs(t, err, ErrRegisterIndex)
	err = Apply(s, mustGate(t, "CX"), 1, 1)
	assert.ErrorIs(t, err, ErrRegisterIndex)
	err = Apply(s, mustGate(t, "CX"), 0)
	assert.ErrorIs(t, err, gates.ErrInvalidGate)
}

func TestMeasureBellHistogram(t *testing.T) {
	base := bell(t)
	rng := NewRandomSource(42)
	counts := map[string]int{}
	const trials = 10000
	for range trials {
		s := base.Clone()
		out, err := Measure(s, []int{0, 1}, rng)
		require.NoError(t, err)
		counts[out]++
	}
	assert.Zero(t, counts["01"])
	assert.Zero(t, counts["10"])
	assert.InDelta(t, 0.5, float64(counts["00"])/trials, 0.03)
	assert.InDelta(t, 0.5, float64(counts["11"])/trials, 0.03)
}

func TestMeasureIsDeterministicForSeed(t *testing.T) {
	run := func() []string {
		rng := NewRandomSource(7)
		var outs []string
		for range 20 {
			s := bell(t)
			o, err := Measure(s, []int{0, 1}, rng)
			require.NoError(t, err)
			outs = append(outs, o)
		}
		return outs
	}
	assert.Equal(t, run(), run())
}

func TestCollapseIsIdempotent(t *testing.T) {
	rng := NewRandomSource(3)
	for range 50 {
		s, _ := NewState(3)
		for q := range 3 {
			require.NoError(t, Apply(s, mustGate(t, "H"), q))
		}
		first, err := Measure(s, []int{2, 0}, rng)
		require.NoError(t, err)
		assert.True(t, s.IsNormalized())
		second, err := Measure(s, []int{2, 0}, rng)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestMeasureBitOrderFollowsRegisters(t *testing.T) {
	rng := NewRandomSource(1)
	// index 1: register 0 = 1, register 1 = 0
	s, _ := FromAmplitudes([]complex128{0, 1, 0, 0})
	out, err := Measure(s, []int{0, 1}, rng)
	require.NoError(t, err)
	assert.Equal(t, "10", out)
	out, err = Measure(s, []int{1, 0}, rng)
	require.NoError(t, err)
	assert.Equal(t, "01", out)
}

func TestMarginalPartialCollapse(t *testing.T) {
	s := bell(t)
	dist, err := Marginal(s, []int{1})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, dist[0], tol)
	assert.InDelta(t, 0.5, dist[1], tol)

	out, err := Measure(s, []int{1}, NewRandomSource(9))
	require.NoError(t, err)
	// register 0 is now perfectly correlated with register 1
	p := s.RegisterProbabilities()
	if out == "1" {
		assert.InDelta(t, 1, p[0].Prob1, tol)
	} else {
		assert.InDelta(t, 1, p[0].Prob0, tol)
	}
}

func TestMeasureEmptyState(t *testing.T) {
	s, _ := FromAmplitudes(make([]complex128, 4))
	_, err := Measure(s, []int{0}, NewRandomSource(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyState))

	_, err = Measure(bell(t), nil, NewRandomSource(1))
	assert.ErrorIs(t, err, ErrRegisterIndex)
}

func TestReset(t *testing.T) {
	rng := NewRandomSource(11)
	for range 20 {
		s, _ := NewState(2)
		require.NoError(t, Apply(s, mustGate(t, "H"), 1))
		_, err := Reset(s, 1, rng)
		require.NoError(t, err)
		p := s.RegisterProbabilities()
		assert.InDelta(t, 1, p[1].Prob0, tol)
		assert.True(t, s.IsNormalized())
	}
}
