package qureg

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAmplitudeStore(t *testing.T) {
	Convey("Given an empty amplitude store", t, func() {
		store := NewAmplitudeStore(4)

		Convey("It should read zero for any index", func() {
			So(store.Len(), ShouldEqual, 0)
			So(store.Get(42), ShouldEqual, complex(0, 0))
		})

		Convey("When setting and adding amplitudes", func() {
			store.Set(3, 0.5)
			store.Set(1, 0.5i)
			store.Add(3, 0.25)
			store.Add(7, -0.5)

			Convey("It should accumulate per index", func() {
				So(store.Len(), ShouldEqual, 3)
				So(store.Get(3), ShouldEqual, complex(0.75, 0))
				So(store.Get(1), ShouldEqual, complex(0, 0.5))
			})

			Convey("It should iterate in insertion order", func() {
				var indices []uint64
				store.Each(func(index uint64, _ complex128) {
					indices = append(indices, index)
				})

				So(indices, ShouldResemble, []uint64{3, 1, 7})
			})

			Convey("It should hand out copies of its entries", func() {
				entries := store.Entries()
				entries[0].Amplitude = 9

				So(store.Get(3), ShouldEqual, complex(0.75, 0))
			})
		})
	})
}

func TestAmplitudeStorePrune(t *testing.T) {
	Convey("Given a store with negligible entries", t, func() {
		store := NewAmplitudeStore(4)
		store.Set(0, 1)
		store.Set(1, 1e-9)
		store.Set(2, 0.5)
		store.Set(3, complex(0, 1e-8))

		Convey("When pruning below epsilon", func() {
			removed := store.Prune(1e-7)

			Convey("It should drop them and keep lookups consistent", func() {
				So(removed, ShouldEqual, 2)
				So(store.Len(), ShouldEqual, 2)
				So(store.Get(2), ShouldEqual, complex(0.5, 0))
				So(store.Get(1), ShouldEqual, complex(0, 0))

				store.Add(2, 0.25)
				So(store.Get(2), ShouldEqual, complex(0.75, 0))
			})
		})

		Convey("When nothing falls below epsilon", func() {
			So(store.Prune(1e-12), ShouldEqual, 0)
			So(store.Len(), ShouldEqual, 4)
		})
	})
}

func TestAmplitudeStoreNormalize(t *testing.T) {
	Convey("Given an unnormalized store", t, func() {
		store := NewAmplitudeStore(2)
		store.Set(0, 3)
		store.Set(1, 4i)

		Convey("It should rescale to unit probability", func() {
			So(store.Normalize(), ShouldBeNil)
			So(store.TotalProbability(), ShouldAlmostEqual, 1, 1e-12)
			So(real(store.Get(0)), ShouldAlmostEqual, 0.6, 1e-12)
			So(imag(store.Get(1)), ShouldAlmostEqual, 0.8, 1e-12)
		})
	})

	Convey("Given an all-zero store", t, func() {
		store := NewAmplitudeStore(1)

		Convey("It should refuse to normalize", func() {
			So(errors.Is(store.Normalize(), ErrZeroNorm), ShouldBeTrue)
		})
	})
}

func TestAmplitudeStoreRemap(t *testing.T) {
	Convey("Given a store", t, func() {
		store := NewAmplitudeStore(2)
		store.Set(1, 0.6)
		store.Set(2, 0.8)

		Convey("It should move amplitudes without touching the source", func() {
			out := store.remap(func(index uint64) uint64 { return index << 2 })

			So(out.Get(4), ShouldEqual, complex(0.6, 0))
			So(out.Get(8), ShouldEqual, complex(0.8, 0))
			So(store.Get(1), ShouldEqual, complex(0.6, 0))
		})
	})
}
