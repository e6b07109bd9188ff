package qureg

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

/*
GateEngine applies unitary gates to amplitude stores.

Every elementary gate builds a fresh destination store, so a gate that fails
part way (most likely by exhausting capacity) leaves the caller's store as it
was. Gates fall into three shapes:

  - diagonal gates multiply amplitudes in place on a copy (Z, phases, RZ)
  - permutation gates move amplitudes between indices (X, CNOT, Toffoli, swap)
  - mixing gates fan every entry out to both values of the target bit and sum
    the contributions per destination index (Hadamard, RX, RY, Y, custom)

Mixing gates over large stores are partitioned across workers. Each worker fans
its slice of entries into a private store and the partial stores are then
reduced in partition order, so two goroutines never write the same index and
the resulting iteration order matches the sequential path.
*/
type GateEngine struct {
	epsilon   float64
	threshold int
	workers   int
	governor  *CapacityGovernor
	metrics   *Metrics
}

// NewGateEngine wires an engine to the simulator's capacity governor and metrics.
func NewGateEngine(config *Config, governor *CapacityGovernor, metrics *Metrics) *GateEngine {
	return &GateEngine{
		epsilon:   config.Epsilon,
		threshold: config.ParallelThreshold,
		workers:   config.Workers,
		governor:  governor,
		metrics:   metrics,
	}
}

/*
Apply validates gate against the register layout and returns the transformed
store. The input store is never modified.
*/
func (e *GateEngine) Apply(gate Gate, store *AmplitudeStore, layout Layout) (*AmplitudeStore, error) {
	if err := gate.validate(layout); err != nil {
		return nil, err
	}

	switch gate.Kind {
	case GateWalsh:
		return e.walsh(store, gate.Target)
	case GateQFT:
		return e.qft(store, gate.Target)
	case GateQFTInverse:
		return e.qftInverse(store, gate.Target)
	}

	return e.elementary(gate, store)
}

func (e *GateEngine) elementary(gate Gate, store *AmplitudeStore) (*AmplitudeStore, error) {
	target := uint64(1) << gate.Target

	switch gate.Kind {
	case GateSigmaX:
		return e.settle(store.remap(func(index uint64) uint64 {
			return index ^ target
		})), nil
	case GateSigmaY:
		return e.mix(store, gate.Target, sigmaY)
	case GateSigmaZ:
		return e.diagonal(store, target, -1), nil
	case GateRotateX:
		return e.mix(store, gate.Target, rotateX(gate.Angle))
	case GateRotateY:
		return e.mix(store, gate.Target, rotateY(gate.Angle))
	case GateRotateZ:
		return e.rotateZ(store, target, gate.Angle), nil
	case GatePhase:
		out := store.clone()
		out.Scale(cmplx.Exp(complex(0, gate.Angle)))
		return e.settle(out), nil
	case GatePhaseKick:
		return e.diagonal(store, target, cmplx.Exp(complex(0, gate.Angle))), nil
	case GateHadamard:
		return e.mix(store, gate.Target, hadamard)
	case GateSwap:
		return e.settle(store.remap(swapper(gate.Target, gate.Partner))), nil
	case GateCNOT, GateToffoli:
		controls := maskOf(gate.Controls)
		return e.settle(store.remap(func(index uint64) uint64 {
			if index&controls == controls {
				return index ^ target
			}
			return index
		})), nil
	case GateCondPhase:
		distance := gate.Target - gate.Controls[0]
		if distance < 0 {
			distance = -distance
		}
		return e.diagonal(store, target|maskOf(gate.Controls), condPhase(distance, false)), nil
	case GateCondPhaseKick:
		return e.diagonal(store, target|maskOf(gate.Controls), cmplx.Exp(complex(0, gate.Angle))), nil
	case GateUnitary:
		m, err := unitaryMatrix(gate.Matrix)
		if err != nil {
			return nil, err
		}
		return e.mix(store, gate.Target, m)
	}

	return nil, errors.Wrapf(ErrUnknownGate, "kind %d", int(gate.Kind))
}

func (e *GateEngine) walsh(store *AmplitudeStore, width int) (*AmplitudeStore, error) {
	var err error
	for q := 0; q < width; q++ {
		if store, err = e.mix(store, q, hadamard); err != nil {
			return nil, err
		}
	}

	return store, nil
}

/*
qft applies the quantum Fourier transform to the low width qubits. Working
down from the most significant transformed qubit, each qubit first picks up
the conditional phases π/2^(j-i) it shares with the already transformed qubits
above it, then a Hadamard. A bit-order reversal finishes the transform, giving
|x⟩ → 2^(-w/2) Σ_y exp(2πi·xy/2^w) |y⟩.
*/
func (e *GateEngine) qft(store *AmplitudeStore, width int) (*AmplitudeStore, error) {
	var err error
	for i := width - 1; i >= 0; i-- {
		for j := width - 1; j > i; j-- {
			store = e.diagonal(store, uint64(1)<<i|uint64(1)<<j, condPhase(j-i, false))
		}

		if store, err = e.mix(store, i, hadamard); err != nil {
			return nil, err
		}
	}

	return e.settle(store.remap(reverser(width))), nil
}

// qftInverse undoes qft: reversal first, then the mirrored gate sequence with negated phases.
func (e *GateEngine) qftInverse(store *AmplitudeStore, width int) (*AmplitudeStore, error) {
	store = e.settle(store.remap(reverser(width)))

	var err error
	for i := 0; i < width; i++ {
		if store, err = e.mix(store, i, hadamard); err != nil {
			return nil, err
		}

		for j := i + 1; j < width; j++ {
			store = e.diagonal(store, uint64(1)<<i|uint64(1)<<j, condPhase(j-i, true))
		}
	}

	return store, nil
}

// diagonal multiplies every amplitude whose index has all bits of mask set.
func (e *GateEngine) diagonal(store *AmplitudeStore, mask uint64, factor complex128) *AmplitudeStore {
	out := store.clone()
	for i := range out.entries {
		if out.entries[i].Index&mask == mask {
			out.entries[i].Amplitude *= factor
		}
	}

	return e.settle(out)
}

func (e *GateEngine) rotateZ(store *AmplitudeStore, target uint64, gamma float64) *AmplitudeStore {
	z := cmplx.Exp(complex(0, gamma/2))
	out := store.clone()

	for i := range out.entries {
		if out.entries[i].Index&target != 0 {
			out.entries[i].Amplitude *= z
		} else {
			out.entries[i].Amplitude /= z
		}
	}

	return e.settle(out)
}

func (e *GateEngine) mix(store *AmplitudeStore, qubit int, m matrix) (*AmplitudeStore, error) {
	bit := uint64(1) << qubit
	capacity := e.governor.Capacity()

	fan := func(entries []Entry, out *AmplitudeStore) error {
		for _, entry := range entries {
			col := 0
			if entry.Index&bit != 0 {
				col = 1
			}

			if m[0][col] != 0 {
				out.Add(entry.Index&^bit, m[0][col]*entry.Amplitude)
			}

			if m[1][col] != 0 {
				out.Add(entry.Index|bit, m[1][col]*entry.Amplitude)
			}

			if capacity > 0 && out.Len() > capacity {
				return errors.Wrapf(ErrResourceExhausted, "%d entries, capacity %d", out.Len(), capacity)
			}
		}

		return nil
	}

	entries := store.entries
	if e.workers < 2 || len(entries) < e.threshold {
		out := NewAmplitudeStore(2 * len(entries))
		if err := fan(entries, out); err != nil {
			return nil, err
		}

		return e.settle(out), nil
	}

	chunk := (len(entries) + e.workers - 1) / e.workers
	partials := make([]*AmplitudeStore, 0, e.workers)

	var group errgroup.Group
	group.SetLimit(e.workers)

	for start := 0; start < len(entries); start += chunk {
		end := min(start+chunk, len(entries))
		partial := NewAmplitudeStore(2 * (end - start))
		partials = append(partials, partial)

		group.Go(func() error {
			return fan(entries[start:end], partial)
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := NewAmplitudeStore(2 * len(entries))
	for _, partial := range partials {
		partial.Each(out.Add)

		if capacity > 0 && out.Len() > capacity {
			return nil, errors.Wrapf(ErrResourceExhausted, "%d entries, capacity %d", out.Len(), capacity)
		}
	}

	return e.settle(out), nil
}

// settle prunes negligible entries and records the store size.
func (e *GateEngine) settle(store *AmplitudeStore) *AmplitudeStore {
	pruned := store.Prune(e.epsilon)
	e.metrics.recordStore(store.Len(), pruned)
	return store
}

func condPhase(distance int, inverse bool) complex128 {
	angle := math.Pi / float64(uint64(1)<<distance)
	if inverse {
		angle = -angle
	}

	return cmplx.Exp(complex(0, angle))
}

func maskOf(qubits []int) uint64 {
	var mask uint64
	for _, q := range qubits {
		mask |= uint64(1) << q
	}

	return mask
}

func swapper(a, b int) func(uint64) uint64 {
	return func(index uint64) uint64 {
		x := (index>>a ^ index>>b) & 1
		return index ^ (x<<a | x<<b)
	}
}

// reverser mirrors the low width bits of an index.
func reverser(width int) func(uint64) uint64 {
	swaps := make([]func(uint64) uint64, 0, width/2)
	for i := 0; i < width/2; i++ {
		swaps = append(swaps, swapper(i, width-1-i))
	}

	return func(index uint64) uint64 {
		for _, swap := range swaps {
			index = swap(index)
		}

		return index
	}
}
