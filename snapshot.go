package qureg

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the serialised form of a live register.
type Snapshot struct {
	Span      int       `msgpack:"span"`
	Discarded uint64    `msgpack:"discarded"`
	Scratch   uint64    `msgpack:"scratch"`
	Indices   []uint64  `msgpack:"indices"`
	Real      []float64 `msgpack:"real"`
	Imag      []float64 `msgpack:"imag"`
}

// snapshotError keeps both ErrInvalidSnapshot and the underlying cause in the chain.
type snapshotError struct {
	cause error
}

func (e *snapshotError) Error() string {
	return ErrInvalidSnapshot.Error() + ": " + e.cause.Error()
}

func (e *snapshotError) Unwrap() []error {
	return []error{ErrInvalidSnapshot, e.cause}
}

func invalidSnapshot(cause error) error {
	return errors.WithStack(&snapshotError{cause: cause})
}

// Snapshot encodes the register's layout and amplitudes with msgpack.
func (r *Register) Snapshot() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return nil, err
	}

	snapshot := Snapshot{
		Span:      r.layout.Span,
		Discarded: r.layout.Discarded,
		Scratch:   r.layout.Scratch,
		Indices:   make([]uint64, 0, r.store.Len()),
		Real:      make([]float64, 0, r.store.Len()),
		Imag:      make([]float64, 0, r.store.Len()),
	}

	r.store.Each(func(index uint64, amplitude complex128) {
		snapshot.Indices = append(snapshot.Indices, index)
		snapshot.Real = append(snapshot.Real, real(amplitude))
		snapshot.Imag = append(snapshot.Imag, imag(amplitude))
	})

	data, err := msgpack.Marshal(&snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "encode snapshot")
	}

	return data, nil
}

/*
Restore decodes a snapshot into a new register owned by s. The snapshot is
checked for a valid span, indices inside the live positions, no duplicates,
and a non-zero norm; it is renormalized on the way in.
*/
func (s *Simulator) Restore(data []byte) (*Register, error) {
	var snapshot Snapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return nil, invalidSnapshot(err)
	}

	layout, err := newLayout(snapshot.Span)
	if err != nil {
		return nil, invalidSnapshot(err)
	}

	layout.Discarded = snapshot.Discarded & layout.Mask()
	layout.Scratch = snapshot.Scratch & layout.Mask()

	count := len(snapshot.Indices)
	if len(snapshot.Real) != count || len(snapshot.Imag) != count {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "%d indices, %d real, %d imaginary parts",
			count, len(snapshot.Real), len(snapshot.Imag))
	}

	store := NewAmplitudeStore(count)
	for i, index := range snapshot.Indices {
		if index&^layout.Live() != 0 {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "index %#x outside live positions", index)
		}

		if _, dup := store.index[index]; dup {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "duplicate index %#x", index)
		}

		store.Set(index, complex(snapshot.Real[i], snapshot.Imag[i]))
	}

	if err := store.Normalize(); err != nil {
		return nil, invalidSnapshot(err)
	}

	return s.adopt(store, layout), nil
}
