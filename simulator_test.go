package qureg

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestSimulator(opts ...SimulatorOption) *Simulator {
	config := NewConfig()
	config.MaxEntries = 1 << 16
	config.Seed = 42

	return NewSimulator(config, opts...)
}

// countingRegulator records how often it is consulted and can veto gates.
type countingRegulator struct {
	observed int
	veto     bool
}

func (c *countingRegulator) Observe(store *AmplitudeStore) {
	c.observed++
}

func (c *countingRegulator) Limit() bool {
	return c.veto
}

func (c *countingRegulator) Renormalize(store *AmplitudeStore) error {
	return errors.New("vetoed")
}

func TestNewSimulator(t *testing.T) {
	Convey("Given no configuration", t, func() {
		sim := NewSimulator(nil)

		Convey("It should fall back to the defaults", func() {
			So(sim.Config().Epsilon, ShouldEqual, 1e-7)
			So(sim.Metrics(), ShouldNotBeNil)
			So(sim.governor.Capacity(), ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given the package level constructor", t, func() {
		reg, err := NewRegister(2, 0b10)

		Convey("It should allocate on the default simulator", func() {
			So(err, ShouldBeNil)

			result, err := reg.Measure()
			So(err, ShouldBeNil)
			So(result, ShouldEqual, uint64(0b10))
		})
	})

	Convey("Given an initial value wider than the register", t, func() {
		sim := newTestSimulator()
		reg, err := sim.NewRegister(2, 0b1111)

		Convey("It should truncate it to the width", func() {
			So(err, ShouldBeNil)

			result, err := reg.Measure()
			So(err, ShouldBeNil)
			So(result, ShouldEqual, uint64(0b11))
		})
	})
}

func TestSimulatorRegulators(t *testing.T) {
	Convey("Given a simulator with an extra regulator", t, func() {
		regulator := &countingRegulator{}
		sim := newTestSimulator(WithRegulator(regulator))
		reg, _ := sim.NewRegister(2, 0)

		Convey("It should consult it after every gate", func() {
			So(reg.Hadamard(0), ShouldBeNil)
			So(reg.CNOT(0, 1), ShouldBeNil)
			So(regulator.observed, ShouldEqual, 2)
		})

		Convey("When the regulator vetoes a gate", func() {
			regulator.veto = true
			err := reg.Hadamard(0)

			Convey("It should reject the gate and keep the previous state", func() {
				So(err, ShouldNotBeNil)

				amplitudes, err := reg.Amplitudes()
				So(err, ShouldBeNil)
				So(amplitudes, ShouldResemble, []Entry{{Index: 0, Amplitude: 1}})
			})
		})
	})

	Convey("Given a simulator that renormalizes every gate", t, func() {
		config := NewConfig()
		config.MaxEntries = 1 << 16
		config.RenormalizeEvery = 1
		sim := NewSimulator(config)
		reg, _ := sim.NewRegister(3, 0)

		Convey("It should record a renormalization per gate", func() {
			So(reg.Walsh(3), ShouldBeNil)
			So(reg.SigmaX(1), ShouldBeNil)
			So(sim.Metrics().Renormalizations, ShouldEqual, int64(2))
		})
	})
}

func TestSimulatorFork(t *testing.T) {
	Convey("Given a simulator and a fork with its own source", t, func() {
		sim := newTestSimulator()
		fork := sim.Fork(newSequenceSource(0.75))

		Convey("It should share metrics but draw from the new source", func() {
			So(fork.Metrics(), ShouldEqual, sim.Metrics())

			reg, _ := fork.NewRegister(1, 0)
			So(reg.Hadamard(0), ShouldBeNil)

			result, err := reg.Measure()
			So(err, ShouldBeNil)
			So(result, ShouldEqual, uint64(1))
			So(sim.Metrics().Measurements, ShouldEqual, int64(1))
		})
	})
}
