package qureg

import (
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"
)

// RandomSource draws uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a PCG source; seed 0 picks a random seed.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = rand.Uint64()
	}

	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

/*
MeasurementEngine samples basis states from amplitude stores and collapses
them. Sampling walks the store in its deterministic iteration order,
accumulating probability until the running sum passes the random draw, so a
seeded RandomSource reproduces every outcome exactly.

Draws are serialised by the engine; the register lock ensures nothing touches
a store between its draw and its collapse.
*/
type MeasurementEngine struct {
	mu     sync.Mutex
	random RandomSource
}

func NewMeasurementEngine(random RandomSource) *MeasurementEngine {
	return &MeasurementEngine{random: random}
}

func (m *MeasurementEngine) draw() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.random.Float64()
}

// MeasureAll samples a basis index, truncated to the layout's span.
func (m *MeasurementEngine) MeasureAll(store *AmplitudeStore, layout Layout) (uint64, error) {
	if store.Len() == 0 {
		return 0, errors.WithStack(ErrZeroNorm)
	}

	r := m.draw() * store.TotalProbability()

	var cumulative float64
	for _, entry := range store.entries {
		cumulative += probability(entry.Amplitude)
		if cumulative > r {
			return entry.Index & layout.Mask(), nil
		}
	}

	// Rounding can leave the last entry's upper edge just below r.
	return store.entries[store.Len()-1].Index & layout.Mask(), nil
}

/*
MeasureBit samples qubit pos with the marginal probability of it being one,
keeps only the basis states that agree with the outcome and renormalizes.
With discard set the qubit leaves the layout: its bit is cleared in every
kept index while all other positions keep their numbering.
*/
func (m *MeasurementEngine) MeasureBit(
	store *AmplitudeStore, layout Layout, pos int, discard bool,
) (bool, *AmplitudeStore, Layout, error) {
	if err := layout.Check(pos); err != nil {
		return false, nil, layout, err
	}

	bit := uint64(1) << pos

	var total, one float64
	for _, entry := range store.entries {
		p := probability(entry.Amplitude)
		total += p
		if entry.Index&bit != 0 {
			one += p
		}
	}

	outcome := m.draw()*total < one

	out := NewAmplitudeStore(store.Len())
	for _, entry := range store.entries {
		if (entry.Index&bit != 0) != outcome {
			continue
		}

		index := entry.Index
		if discard {
			index &^= bit
		}

		out.Set(index, entry.Amplitude)
	}

	if err := out.Normalize(); err != nil {
		return false, nil, layout, errors.Wrapf(err, "collapse qubit %d", pos)
	}

	if discard {
		layout = layout.discard(pos)
	}

	return outcome, out, layout, nil
}

/*
MeasureWidth destructively measures the k lowest live qubits in ascending
position order. The n-th outcome becomes bit n of the result.
*/
func (m *MeasurementEngine) MeasureWidth(
	store *AmplitudeStore, layout Layout, k int,
) (uint64, *AmplitudeStore, Layout, error) {
	positions, err := layout.lowest(k)
	if err != nil {
		return 0, nil, layout, err
	}

	var result uint64
	for n, pos := range positions {
		var outcome bool
		if outcome, store, layout, err = m.MeasureBit(store, layout, pos, true); err != nil {
			return 0, nil, layout, err
		}

		if outcome {
			result |= uint64(1) << n
		}
	}

	return result, store, layout, nil
}

/*
MeasurePartial measures each position without discarding it. The outcome for
position p becomes bit p of the result.
*/
func (m *MeasurementEngine) MeasurePartial(
	store *AmplitudeStore, layout Layout, positions []int,
) (uint64, *AmplitudeStore, error) {
	for _, pos := range positions {
		if err := layout.Check(pos); err != nil {
			return 0, nil, err
		}
	}

	var (
		result  uint64
		outcome bool
		err     error
	)

	for _, pos := range positions {
		if outcome, store, _, err = m.MeasureBit(store, layout, pos, false); err != nil {
			return 0, nil, err
		}

		if outcome {
			result |= uint64(1) << pos
		}
	}

	return result, store, nil
}
