package qureg

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

// sequenceSource replays fixed draws, cycling when it runs out.
type sequenceSource struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func newSequenceSource(values ...float64) *sequenceSource {
	return &sequenceSource{values: values}
}

func (s *sequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	value := s.values[s.next%len(s.values)]
	s.next++
	return value
}

func walshStore(width int) (*AmplitudeStore, Layout) {
	layout, _ := newLayout(width)
	engine := newTestEngine(1, 4096, 1<<16)

	store, err := engine.Apply(Gate{Kind: GateWalsh, Target: width}, basis(0), layout)
	So(err, ShouldBeNil)

	return store, layout
}

func TestMeasureAll(t *testing.T) {
	Convey("Given an equal superposition of one qubit", t, func() {
		store, layout := walshStore(1)

		Convey("It should pick the entry the draw falls into", func() {
			low := NewMeasurementEngine(newSequenceSource(0.25))
			high := NewMeasurementEngine(newSequenceSource(0.75))

			result, err := low.MeasureAll(store, layout)
			So(err, ShouldBeNil)
			So(result, ShouldEqual, uint64(0))

			result, err = high.MeasureAll(store, layout)
			So(err, ShouldBeNil)
			So(result, ShouldEqual, uint64(1))
		})

		Convey("It should pick the last entry for draws just below one", func() {
			edge := NewMeasurementEngine(newSequenceSource(0.9999999999999999))

			result, err := edge.MeasureAll(store, layout)
			So(err, ShouldBeNil)
			So(result, ShouldEqual, uint64(1))
		})
	})

	Convey("Given an empty store", t, func() {
		layout, _ := newLayout(1)
		engine := NewMeasurementEngine(newSequenceSource(0.5))

		Convey("It should fail", func() {
			_, err := engine.MeasureAll(NewAmplitudeStore(0), layout)
			So(errors.Is(err, ErrZeroNorm), ShouldBeTrue)
		})
	})
}

func TestMeasureBit(t *testing.T) {
	Convey("Given an equal superposition of two qubits", t, func() {
		store, layout := walshStore(2)

		Convey("When measuring qubit 1 without discarding", func() {
			engine := NewMeasurementEngine(newSequenceSource(0.25))
			outcome, out, after, err := engine.MeasureBit(store, layout, 1, false)

			Convey("It should collapse onto the agreeing entries", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldBeTrue)
				So(out.Len(), ShouldEqual, 2)
				So(out.Get(0b10), ShouldNotEqual, complex(0, 0))
				So(out.Get(0b11), ShouldNotEqual, complex(0, 0))
				So(out.TotalProbability(), ShouldAlmostEqual, 1, 1e-12)
				So(after, ShouldResemble, layout)
				So(store.Len(), ShouldEqual, 4)
			})
		})

		Convey("When measuring qubit 1 and discarding it", func() {
			engine := NewMeasurementEngine(newSequenceSource(0.25))
			outcome, out, after, err := engine.MeasureBit(store, layout, 1, true)

			Convey("It should clear the bit and retire the position", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldBeTrue)
				So(out.Len(), ShouldEqual, 2)
				So(out.Get(0b00), ShouldNotEqual, complex(0, 0))
				So(out.Get(0b01), ShouldNotEqual, complex(0, 0))
				So(after.Width(), ShouldEqual, 1)
				So(errors.Is(after.Check(1), ErrInvalidQubit), ShouldBeTrue)
			})
		})

		Convey("When the draw lands above the marginal", func() {
			engine := NewMeasurementEngine(newSequenceSource(0.75))
			outcome, out, _, err := engine.MeasureBit(store, layout, 0, false)

			So(err, ShouldBeNil)
			So(outcome, ShouldBeFalse)
			So(out.Get(0b01), ShouldEqual, complex(0, 0))
		})

		Convey("It should reject positions outside the register", func() {
			engine := NewMeasurementEngine(newSequenceSource(0.5))
			_, _, _, err := engine.MeasureBit(store, layout, 2, false)
			So(errors.Is(err, ErrInvalidQubit), ShouldBeTrue)
		})
	})
}

func TestMeasureWidthAndPartial(t *testing.T) {
	Convey("Given a classical three qubit state 0b110", t, func() {
		layout, _ := newLayout(3)
		engine := NewMeasurementEngine(newSequenceSource(0.5))

		Convey("It should measure the two lowest qubits into the low result bits", func() {
			result, out, after, err := engine.MeasureWidth(basis(0b110), layout, 2)

			So(err, ShouldBeNil)
			So(result, ShouldEqual, uint64(0b10))
			So(after.Width(), ShouldEqual, 1)
			So(out.Get(0b100), ShouldEqual, complex(1, 0))
		})

		Convey("It should refuse to measure more qubits than remain", func() {
			_, _, _, err := engine.MeasureWidth(basis(0b110), layout, 4)
			So(errors.Is(err, ErrInvalidQubit), ShouldBeTrue)
		})

		Convey("It should refuse a negative qubit count", func() {
			So(func() {
				_, _, _, err := engine.MeasureWidth(basis(0b110), layout, -1)
				So(errors.Is(err, ErrInvalidQubit), ShouldBeTrue)
			}, ShouldNotPanic)
		})
	})

	Convey("Given an equal superposition of three qubits", t, func() {
		store, layout := walshStore(3)

		Convey("It should place each partial outcome on its own bit", func() {
			engine := NewMeasurementEngine(newSequenceSource(0.75, 0.25))
			result, out, err := engine.MeasurePartial(store, layout, []int{0, 2})

			So(err, ShouldBeNil)
			So(result, ShouldEqual, uint64(0b100))
			So(out.Len(), ShouldEqual, 2)
			So(out.Get(0b100), ShouldNotEqual, complex(0, 0))
			So(out.Get(0b110), ShouldNotEqual, complex(0, 0))
		})

		Convey("It should validate every position before measuring", func() {
			engine := NewMeasurementEngine(newSequenceSource(0.5))
			_, _, err := engine.MeasurePartial(store, layout, []int{0, 7})
			So(errors.Is(err, ErrInvalidQubit), ShouldBeTrue)
		})
	})
}
