package qureg

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vmihailenco/msgpack/v5"
)

func TestSnapshot(t *testing.T) {
	Convey("Given a register in superposition with scratch and a discarded qubit", t, func() {
		sim := newTestSimulator()
		reg, _ := sim.NewRegister(3, 0b101)

		So(reg.Hadamard(1), ShouldBeNil)
		So(reg.RotateY(2, math.Pi/5), ShouldBeNil)
		So(reg.AddScratch(1), ShouldBeNil)
		_, err := reg.MeasureBit(1, true)
		So(err, ShouldBeNil)

		Convey("When snapshotting and restoring it", func() {
			data, err := reg.Snapshot()
			So(err, ShouldBeNil)

			restored, err := sim.Restore(data)
			So(err, ShouldBeNil)

			Convey("It should reproduce the layout and amplitudes", func() {
				want, _ := reg.Layout()
				got, _ := restored.Layout()
				So(got, ShouldResemble, want)

				wantAmplitudes, _ := reg.Amplitudes()
				gotAmplitudes, _ := restored.Amplitudes()
				So(len(gotAmplitudes), ShouldEqual, len(wantAmplitudes))

				for i := range wantAmplitudes {
					So(gotAmplitudes[i].Index, ShouldEqual, wantAmplitudes[i].Index)
					So(real(gotAmplitudes[i].Amplitude), ShouldAlmostEqual, real(wantAmplitudes[i].Amplitude), 1e-12)
					So(imag(gotAmplitudes[i].Amplitude), ShouldAlmostEqual, imag(wantAmplitudes[i].Amplitude), 1e-12)
				}
			})

			Convey("It should leave the original register usable", func() {
				So(reg.Hadamard(0), ShouldBeNil)
			})
		})

		Convey("It should refuse to snapshot a consumed register", func() {
			So(reg.Destroy(), ShouldBeNil)

			_, err := reg.Snapshot()
			So(errors.Is(err, ErrConsumed), ShouldBeTrue)
		})
	})

	Convey("Given malformed snapshots", t, func() {
		sim := newTestSimulator()

		encode := func(snapshot Snapshot) []byte {
			data, err := msgpack.Marshal(&snapshot)
			So(err, ShouldBeNil)
			return data
		}

		Convey("It should reject garbage", func() {
			_, err := sim.Restore([]byte{0xc1})
			So(errors.Is(err, ErrInvalidSnapshot), ShouldBeTrue)
		})

		Convey("It should reject an invalid span and keep the cause", func() {
			_, err := sim.Restore(encode(Snapshot{Span: 0}))
			So(errors.Is(err, ErrInvalidSnapshot), ShouldBeTrue)
			So(errors.Is(err, ErrZeroWidth), ShouldBeTrue)

			_, err = sim.Restore(encode(Snapshot{Span: MaxWidth + 1}))
			So(errors.Is(err, ErrInvalidSnapshot), ShouldBeTrue)
			So(errors.Is(err, ErrWidthOverflow), ShouldBeTrue)
		})

		Convey("It should reject mismatched columns", func() {
			_, err := sim.Restore(encode(Snapshot{Span: 2, Indices: []uint64{0, 1}, Real: []float64{1}, Imag: []float64{0}}))
			So(errors.Is(err, ErrInvalidSnapshot), ShouldBeTrue)
		})

		Convey("It should reject indices on discarded positions", func() {
			_, err := sim.Restore(encode(Snapshot{Span: 2, Discarded: 0b10, Indices: []uint64{0b10}, Real: []float64{1}, Imag: []float64{0}}))
			So(errors.Is(err, ErrInvalidSnapshot), ShouldBeTrue)
		})

		Convey("It should reject duplicate indices", func() {
			_, err := sim.Restore(encode(Snapshot{Span: 2, Indices: []uint64{1, 1}, Real: []float64{1, 1}, Imag: []float64{0, 0}}))
			So(errors.Is(err, ErrInvalidSnapshot), ShouldBeTrue)
		})

		Convey("It should reject an all-zero state and keep the cause", func() {
			_, err := sim.Restore(encode(Snapshot{Span: 1, Indices: []uint64{0}, Real: []float64{0}, Imag: []float64{0}}))
			So(errors.Is(err, ErrInvalidSnapshot), ShouldBeTrue)
			So(errors.Is(err, ErrZeroNorm), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, ErrInvalidSnapshot.Error())
		})

		Convey("It should renormalize what it accepts", func() {
			reg, err := sim.Restore(encode(Snapshot{Span: 1, Indices: []uint64{0, 1}, Real: []float64{3, 0}, Imag: []float64{0, 4}}))
			So(err, ShouldBeNil)

			p, err := reg.ProbabilityOf(1)
			So(err, ShouldBeNil)
			So(p, ShouldAlmostEqual, 0.64, 1e-12)
		})
	})
}
