package runner

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"qdeck/circuit"
	"qdeck/quantum"
)

func bellCircuit(measure bool) *circuit.Circuit {
	c, _ := circuit.New(2)
	_ = c.AddGate(0, "H", circuit.Targets(0))
	_ = c.AddGate(1, "CX", circuit.Controlled([]int{0}, 1))
	if measure {
		_ = c.AddGate(2, "MEASURE", circuit.Targets(0, 1))
	}
	return c
}

func TestRunnerBell(t *testing.T) {
	Convey("Given a runner and a Bell circuit", t, func() {
		r := New()
		c := bellCircuit(false)

		Convey("It should produce (|00⟩+|11⟩)/√2", func() {
			res, err := r.Run(context.Background(), c, Options{Seed: 1})
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, Completed)
			So(r.Status(), ShouldEqual, Completed)

			amps := res.Final.Amplitudes()
			So(real(amps[0]), ShouldAlmostEqual, 1/math.Sqrt2, 1e-9)
			So(real(amps[3]), ShouldAlmostEqual, 1/math.Sqrt2, 1e-9)
			So(amps[1], ShouldEqual, complex128(0))
			So(amps[2], ShouldEqual, complex128(0))
			So(res.Measurements, ShouldBeEmpty)
		})

		Convey("It should refuse a second run until reset", func() {
			_, err := r.Run(context.Background(), c, Options{})
			So(err, ShouldBeNil)

			_, err = r.Run(context.Background(), c, Options{})
			So(errors.Is(err, ErrTransition), ShouldBeTrue)

			So(r.Reset(), ShouldBeNil)
			So(r.Status(), ShouldEqual, Idle)
			_, err = r.Run(context.Background(), c, Options{})
			So(err, ShouldBeNil)
		})

		Convey("It should not reset while idle", func() {
			So(errors.Is(r.Reset(), ErrTransition), ShouldBeTrue)
		})
	})
}

func TestRunnerMeasurements(t *testing.T) {
	Convey("Given a measured Bell circuit", t, func() {
		c := bellCircuit(true)

		Convey("Outcomes should be correlated and ordered by register list", func() {
			for seed := range int64(50) {
				res, err := RunCircuit(context.Background(), c, Options{Seed: seed})
				So(err, ShouldBeNil)
				So(res.Measurements, ShouldHaveLength, 1)
				o := res.Measurements[0]
				So(o.Moment, ShouldEqual, 2)
				So(o.Registers, ShouldResemble, []int{0, 1})
				So(o.Bits, ShouldBeIn, []string{"00", "11"})
				So(res.Bits(), ShouldEqual, o.Bits)
			}
		})

		Convey("The same seed should give the same outcome", func() {
			a, _ := RunCircuit(context.Background(), c, Options{Seed: 99})
			b, _ := RunCircuit(context.Background(), c, Options{Seed: 99})
			So(a.Bits(), ShouldEqual, b.Bits())
		})

		Convey("Probabilities should be recorded per moment when requested", func() {
			res, err := RunCircuit(context.Background(), c, Options{Seed: 3, CollectProbabilities: true})
			So(err, ShouldBeNil)
			So(res.Probabilities, ShouldHaveLength, c.Depth())
			So(res.Probabilities[0][0], ShouldAlmostEqual, 0.5, 1e-9)
			So(res.Probabilities[0][1], ShouldAlmostEqual, 0.5, 1e-9)
			So(res.Probabilities[1][3], ShouldAlmostEqual, 0.5, 1e-9)
		})
	})
}

func TestRunnerIdentity(t *testing.T) {
	Convey("Given a single register circuit with only an identity gate", t, func() {
		c, _ := circuit.New(1)
		So(c.AddGate(0, "I", circuit.Targets(0)), ShouldBeNil)

		Convey("The final state should equal the initial state", func() {
			init, _ := quantum.FromAmplitudes([]complex128{complex(0.6, 0), complex(0, 0.8)})
			res, err := RunCircuit(context.Background(), c, Options{InitialState: init})
			So(err, ShouldBeNil)
			So(res.Final.ApproxEqual(init, 0), ShouldBeTrue)
		})
	})
}

func TestRunnerInitialState(t *testing.T) {
	Convey("Given a supplied initial state", t, func() {
		c, _ := circuit.New(1)
		So(c.AddGate(0, "X", circuit.Targets(0)), ShouldBeNil)

		Convey("It should not be mutated by the run", func() {
			init, _ := quantum.NewState(1)
			res, err := RunCircuit(context.Background(), c, Options{InitialState: init})
			So(err, ShouldBeNil)
			a, _ := init.At(0)
			So(a, ShouldEqual, complex128(1))
			b, _ := res.Final.At(1)
			So(b, ShouldEqual, complex128(1))
		})

		Convey("A dimension mismatch should fail the run before the first moment", func() {
			r := New()
			init, _ := quantum.NewState(2)
			res, err := r.Run(context.Background(), c, Options{InitialState: init})
			So(res, ShouldBeNil)
			So(errors.Is(err, quantum.ErrDimension), ShouldBeTrue)
			var re *RunError
			So(errors.As(err, &re), ShouldBeTrue)
			So(re.Moment, ShouldEqual, -1)
			So(r.Status(), ShouldEqual, Failed)
		})
	})
}

func TestRunnerFailure(t *testing.T) {
	Convey("Given an initial state that is not normalized", t, func() {
		c, _ := circuit.New(1)
		So(c.AddGate(0, "X", circuit.Targets(0)), ShouldBeNil)
		So(c.AddGate(1, "M", circuit.Targets(0)), ShouldBeNil)

		Convey("The run should fail before the first moment with no partial result", func() {
			for _, amps := range [][]complex128{{1, 1}, {0, 0}} {
				init, err := quantum.FromAmplitudes(amps)
				So(err, ShouldBeNil)

				r := New()
				res, err := r.Run(context.Background(), c, Options{InitialState: init})
				So(res, ShouldBeNil)
				So(errors.Is(err, quantum.ErrNorm), ShouldBeTrue)

				var re *RunError
				So(errors.As(err, &re), ShouldBeTrue)
				So(re.Moment, ShouldEqual, -1)
				So(re.Gate, ShouldBeEmpty)
				So(r.Status(), ShouldEqual, Failed)
			}
		})
	})
}

func TestRunnerCancellation(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("The run should stop before the first moment", func() {
			r := New()
			_, err := r.Run(ctx, bellCircuit(true), Options{})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(r.Status(), ShouldEqual, Failed)
		})
	})
}

func TestRunnerReset(t *testing.T) {
	Convey("Given a circuit that resets a register in superposition", t, func() {
		c, _ := circuit.New(2)
		So(c.AddGate(0, "H", circuit.Targets(0)), ShouldBeNil)
		So(c.AddGate(0, "X", circuit.Targets(1)), ShouldBeNil)
		So(c.AddGate(1, "RESET", circuit.Targets(0)), ShouldBeNil)
		So(c.AddGate(2, "MEASURE", circuit.Targets(0, 1)), ShouldBeNil)

		Convey("The reset register should always read 0", func() {
			for seed := range int64(20) {
				res, err := RunCircuit(context.Background(), c, Options{Seed: seed})
				So(err, ShouldBeNil)
				So(res.Bits(), ShouldEqual, "01")
			}
		})
	})
}

func TestSample(t *testing.T) {
	Convey("Given a measured Bell circuit", t, func() {
		c := bellCircuit(true)

		Convey("Counts should not depend on the worker count", func() {
			one, err := Sample(context.Background(), c, SampleOptions{Shots: 500, Seed: 5, Workers: 1})
			So(err, ShouldBeNil)
			many, err := Sample(context.Background(), c, SampleOptions{Shots: 500, Seed: 5, Workers: 8})
			So(err, ShouldBeNil)
			So(many.Counts, ShouldResemble, one.Counts)
			So(many.RunID, ShouldNotEqual, one.RunID)
		})

		Convey("The histogram should fit a fair split between 00 and 11", func() {
			h, err := Sample(context.Background(), c, SampleOptions{Shots: 4000, Seed: 42})
			So(err, ShouldBeNil)
			So(h.Keys(), ShouldResemble, []string{"00", "11"})
			So(h.Frequency("00")+h.Frequency("11"), ShouldAlmostEqual, 1.0, 1e-12)

			_, p, err := h.ChiSquare(map[string]float64{"00": 0.5, "11": 0.5})
			So(err, ShouldBeNil)
			So(p, ShouldBeGreaterThan, 0.001)
		})

		Convey("Progress should be reported once per shot", func() {
			var calls atomic.Int64
			_, err := Sample(context.Background(), c, SampleOptions{
				Shots:    64,
				Workers:  4,
				Progress: func(done, total int) { calls.Add(1) },
			})
			So(err, ShouldBeNil)
			So(calls.Load(), ShouldEqual, int64(64))
		})

		Convey("A non-positive shot count should be rejected", func() {
			_, err := Sample(context.Background(), c, SampleOptions{})
			So(errors.Is(err, ErrShots), ShouldBeTrue)
		})

		Convey("A cancelled context should abort the batch", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := Sample(ctx, c, SampleOptions{Shots: 10})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestHistogramChiSquareRejectsUnexpectedOutcome(t *testing.T) {
	Convey("Given a histogram with an outcome outside the expected support", t, func() {
		h := &Histogram{Counts: map[string]int{"00": 10, "01": 1}, Shots: 11}

		Convey("ChiSquare should return an error", func() {
			_, _, err := h.ChiSquare(map[string]float64{"00": 1})
			So(err, ShouldNotBeNil)
		})
	})
}
