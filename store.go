package qureg

import (
	"math"

	"github.com/pkg/errors"
)

// Entry is a single basis state and its amplitude.
type Entry struct {
	Index     uint64
	Amplitude complex128
}

/*
AmplitudeStore is the sparse representation of a register's state vector.

Only basis states with a non-negligible amplitude are kept. Entries live in an
ordered slice, with a hash index from basis state to slice position, so that
lookups are constant time while iteration order stays stable and deterministic
for a given sequence of operations. Removing entries rebuilds both structures;
there are no tombstones.
*/
type AmplitudeStore struct {
	entries []Entry
	index   map[uint64]int
}

// NewAmplitudeStore returns an empty store sized for capacity entries.
func NewAmplitudeStore(capacity int) *AmplitudeStore {
	if capacity < 0 {
		capacity = 0
	}

	return &AmplitudeStore{
		entries: make([]Entry, 0, capacity),
		index:   make(map[uint64]int, capacity),
	}
}

// Len returns the number of stored basis states.
func (s *AmplitudeStore) Len() int {
	return len(s.entries)
}

// Get returns the amplitude of a basis state, zero when it is not stored.
func (s *AmplitudeStore) Get(index uint64) complex128 {
	if i, ok := s.index[index]; ok {
		return s.entries[i].Amplitude
	}

	return 0
}

// Set stores the amplitude of a basis state, replacing any previous value.
func (s *AmplitudeStore) Set(index uint64, amplitude complex128) {
	if i, ok := s.index[index]; ok {
		s.entries[i].Amplitude = amplitude
		return
	}

	s.index[index] = len(s.entries)
	s.entries = append(s.entries, Entry{Index: index, Amplitude: amplitude})
}

// Add accumulates a contribution into a basis state.
func (s *AmplitudeStore) Add(index uint64, amplitude complex128) {
	if i, ok := s.index[index]; ok {
		s.entries[i].Amplitude += amplitude
		return
	}

	s.index[index] = len(s.entries)
	s.entries = append(s.entries, Entry{Index: index, Amplitude: amplitude})
}

/*
Each calls fn for every stored basis state in insertion order. The callback
must not mutate the store it is iterating.
*/
func (s *AmplitudeStore) Each(fn func(index uint64, amplitude complex128)) {
	for _, entry := range s.entries {
		fn(entry.Index, entry.Amplitude)
	}
}

// Entries returns a copy of the stored entries in iteration order.
func (s *AmplitudeStore) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Prune drops every entry whose magnitude is below epsilon and returns how many went.
func (s *AmplitudeStore) Prune(epsilon float64) int {
	limit := epsilon * epsilon
	kept := s.entries[:0]

	for _, entry := range s.entries {
		if probability(entry.Amplitude) >= limit {
			kept = append(kept, entry)
		}
	}

	removed := len(s.entries) - len(kept)
	if removed == 0 {
		return 0
	}

	s.entries = kept
	s.reindex()

	return removed
}

// TotalProbability sums the squared magnitudes of all amplitudes.
func (s *AmplitudeStore) TotalProbability() float64 {
	var total float64
	for _, entry := range s.entries {
		total += probability(entry.Amplitude)
	}

	return total
}

// Normalize rescales the amplitudes so the total probability is one.
func (s *AmplitudeStore) Normalize() error {
	total := s.TotalProbability()
	if total == 0 {
		return errors.WithStack(ErrZeroNorm)
	}

	s.Scale(complex(1/math.Sqrt(total), 0))
	return nil
}

// Scale multiplies every amplitude by factor.
func (s *AmplitudeStore) Scale(factor complex128) {
	for i := range s.entries {
		s.entries[i].Amplitude *= factor
	}
}

func (s *AmplitudeStore) clone() *AmplitudeStore {
	out := &AmplitudeStore{
		entries: make([]Entry, len(s.entries)),
		index:   make(map[uint64]int, len(s.entries)),
	}

	copy(out.entries, s.entries)
	for i, entry := range out.entries {
		out.index[entry.Index] = i
	}

	return out
}

/*
remap builds a new store with every index passed through fn. fn must be a
bijection on the stored indices; colliding images overwrite each other.
*/
func (s *AmplitudeStore) remap(fn func(index uint64) uint64) *AmplitudeStore {
	out := NewAmplitudeStore(len(s.entries))
	for _, entry := range s.entries {
		out.Set(fn(entry.Index), entry.Amplitude)
	}

	return out
}

func (s *AmplitudeStore) reindex() {
	clear(s.index)
	for i, entry := range s.entries {
		s.index[entry.Index] = i
	}
}

func probability(amplitude complex128) float64 {
	re, im := real(amplitude), imag(amplitude)
	return re*re + im*im
}
