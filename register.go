package qureg

import (
	"fmt"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
	"gonum.org/v1/gonum/mat"
)

/*
Register is a quantum register: a sparse amplitude store plus the layout of
its qubits.

A register is owned by one caller at a time. Measure, Tensor and Destroy
consume it; any call on a consumed register fails with ErrConsumed. Every
method holds the register lock for its whole duration, so a measurement's
random draw and the collapse it causes are a single step.
*/
type Register struct {
	mu       sync.Mutex
	id       uint64
	sim      *Simulator
	store    *AmplitudeStore
	layout   Layout
	consumed bool
}

func (r *Register) live() error {
	if r.consumed {
		return errors.WithStack(ErrConsumed)
	}

	return nil
}

func (r *Register) consume() {
	r.consumed = true
	r.store = nil
	r.sim.metrics.recordRelease()
}

// Apply runs a gate descriptor against the register.
func (r *Register) Apply(gate Gate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return err
	}

	out, err := r.sim.engine.Apply(gate, r.store, r.layout)
	if err != nil {
		return err
	}

	if err := r.sim.regulate(out); err != nil {
		return err
	}

	r.store = out
	r.sim.metrics.recordGate(gate.Kind)

	return nil
}

// CNOT flips target when control is set.
func (r *Register) CNOT(control, target int) error {
	return r.Apply(Gate{Kind: GateCNOT, Target: target, Controls: []int{control}})
}

// Toffoli flips target when both controls are set.
func (r *Register) Toffoli(control1, control2, target int) error {
	return r.Apply(Gate{Kind: GateToffoli, Target: target, Controls: []int{control1, control2}})
}

func (r *Register) SigmaX(target int) error {
	return r.Apply(Gate{Kind: GateSigmaX, Target: target})
}

func (r *Register) SigmaY(target int) error {
	return r.Apply(Gate{Kind: GateSigmaY, Target: target})
}

func (r *Register) SigmaZ(target int) error {
	return r.Apply(Gate{Kind: GateSigmaZ, Target: target})
}

// RotateX rotates target by gamma around the x-axis of the Bloch sphere.
func (r *Register) RotateX(target int, gamma float64) error {
	return r.Apply(Gate{Kind: GateRotateX, Target: target, Angle: gamma})
}

func (r *Register) RotateY(target int, gamma float64) error {
	return r.Apply(Gate{Kind: GateRotateY, Target: target, Angle: gamma})
}

func (r *Register) RotateZ(target int, gamma float64) error {
	return r.Apply(Gate{Kind: GateRotateZ, Target: target, Angle: gamma})
}

// Phase multiplies the whole state by exp(i·gamma). target is validated but the phase is global.
func (r *Register) Phase(target int, gamma float64) error {
	return r.Apply(Gate{Kind: GatePhase, Target: target, Angle: gamma})
}

// PhaseBy shifts the phase of the |1⟩ component of target by gamma.
func (r *Register) PhaseBy(target int, gamma float64) error {
	return r.Apply(Gate{Kind: GatePhaseKick, Target: target, Angle: gamma})
}

func (r *Register) Hadamard(target int) error {
	return r.Apply(Gate{Kind: GateHadamard, Target: target})
}

// Walsh applies a Hadamard gate to each of the first width qubits.
func (r *Register) Walsh(width int) error {
	return r.Apply(Gate{Kind: GateWalsh, Target: width})
}

// CondPhase shifts the phase by π/2^|control-target| when both qubits are set.
func (r *Register) CondPhase(control, target int) error {
	return r.Apply(Gate{Kind: GateCondPhase, Target: target, Controls: []int{control}})
}

// CondPhaseBy shifts the phase by gamma when both qubits are set.
func (r *Register) CondPhaseBy(control, target int, gamma float64) error {
	return r.Apply(Gate{Kind: GateCondPhaseKick, Target: target, Controls: []int{control}, Angle: gamma})
}

// QFT applies the quantum Fourier transform to the first width qubits.
func (r *Register) QFT(width int) error {
	return r.Apply(Gate{Kind: GateQFT, Target: width})
}

func (r *Register) QFTInverse(width int) error {
	return r.Apply(Gate{Kind: GateQFTInverse, Target: width})
}

func (r *Register) Swap(a, b int) error {
	return r.Apply(Gate{Kind: GateSwap, Target: a, Partner: b})
}

// Unitary applies an arbitrary 2x2 unitary matrix to target.
func (r *Register) Unitary(target int, m *mat.CDense) error {
	return r.Apply(Gate{Kind: GateUnitary, Target: target, Matrix: m})
}

// Measure samples the whole register and consumes it.
func (r *Register) Measure() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return 0, err
	}

	result, err := r.sim.measurer.MeasureAll(r.store, r.layout)
	if err != nil {
		return 0, err
	}

	r.sim.metrics.recordMeasurement("all")
	r.consume()

	return result, nil
}

/*
MeasureBit measures the qubit at pos. With discard the qubit is removed from
the register afterwards; the remaining qubits keep their positions.
*/
func (r *Register) MeasureBit(pos int, discard bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return false, err
	}

	outcome, store, layout, err := r.sim.measurer.MeasureBit(r.store, r.layout, pos, discard)
	if err != nil {
		return false, err
	}

	r.store, r.layout = store, layout
	r.sim.metrics.recordMeasurement(measureMode(discard))

	return outcome, nil
}

// MeasureWidth measures and discards the k lowest qubits, packing outcomes from bit 0 up.
func (r *Register) MeasureWidth(k int) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return 0, err
	}

	result, store, layout, err := r.sim.measurer.MeasureWidth(r.store, r.layout, k)
	if err != nil {
		return 0, err
	}

	r.store, r.layout = store, layout
	for range k {
		r.sim.metrics.recordMeasurement(measureMode(true))
	}

	return result, nil
}

// MeasurePartial measures positions without discarding them; each outcome lands on its own bit.
func (r *Register) MeasurePartial(positions ...int) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return 0, err
	}

	result, store, err := r.sim.measurer.MeasurePartial(r.store, r.layout, positions)
	if err != nil {
		return 0, err
	}

	r.store = store
	for range positions {
		r.sim.metrics.recordMeasurement(measureMode(false))
	}

	return result, nil
}

func measureMode(discard bool) string {
	if discard {
		return "bit"
	}

	return "bit_preserve"
}

/*
AddScratch appends bits scratch qubits in |0⟩ at the least significant end.
Every existing qubit moves up by bits positions.
*/
func (r *Register) AddScratch(bits int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return err
	}

	if bits < 0 {
		return errors.Wrapf(ErrInvalidQubit, "scratch of %d qubits", bits)
	}

	if r.layout.Span+bits > MaxWidth {
		return errors.Wrapf(ErrWidthOverflow, "span %d plus %d scratch", r.layout.Span, bits)
	}

	if bits == 0 {
		return nil
	}

	r.store = r.store.remap(func(index uint64) uint64 {
		return index << bits
	})
	r.layout = r.layout.extend(bits)

	return nil
}

/*
Tensor returns the Kronecker product of r and other, consuming both. r takes
the high positions: a basis state (a, b) maps to index a<<span(other) | b.
Both locks are taken in allocation order, so a.Tensor(b) racing b.Tensor(a)
cannot deadlock; one of the calls fails with ErrConsumed.
*/
func (r *Register) Tensor(other *Register) (*Register, error) {
	if r == other {
		return nil, errors.Wrap(ErrConsumed, "register cannot be tensored with itself")
	}

	first, second := r, other
	if second.id < first.id {
		first, second = second, first
	}

	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if err := r.live(); err != nil {
		return nil, err
	}

	if err := other.live(); err != nil {
		return nil, err
	}

	shift := other.layout.Span
	if r.layout.Span+shift > MaxWidth {
		return nil, errors.Wrapf(ErrWidthOverflow, "span %d plus %d", r.layout.Span, shift)
	}

	size := r.store.Len() * other.store.Len()
	if capacity := r.sim.governor.Capacity(); capacity > 0 && size > capacity {
		return nil, errors.Wrapf(ErrResourceExhausted, "tensor of %d entries, capacity %d", size, capacity)
	}

	store := NewAmplitudeStore(size)
	for _, a := range r.store.entries {
		for _, b := range other.store.entries {
			store.Set(a.Index<<shift|b.Index, a.Amplitude*b.Amplitude)
		}
	}

	layout := r.layout.join(other.layout)

	r.consume()
	other.consume()

	errnie.Debug("tensor - span %d, %d entries", layout.Span, store.Len())

	return r.sim.adopt(store, layout), nil
}

// Destroy releases the register. Destroying twice fails with ErrConsumed.
func (r *Register) Destroy() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return err
	}

	r.consume()
	return nil
}

// Width returns the number of qubits, excluding scratch qubits.
func (r *Register) Width() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return 0, err
	}

	return r.layout.Width(), nil
}

// PhysicalWidth returns the number of addressable qubits, scratch included.
func (r *Register) PhysicalWidth() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return 0, err
	}

	return r.layout.PhysicalWidth(), nil
}

func (r *Register) ScratchCount() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return 0, err
	}

	return r.layout.ScratchCount(), nil
}

// Layout returns a copy of the register's qubit layout.
func (r *Register) Layout() (Layout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return Layout{}, err
	}

	return r.layout, nil
}

// Amplitudes returns a copy of the stored basis states in iteration order.
func (r *Register) Amplitudes() ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return nil, err
	}

	return r.store.Entries(), nil
}

// ProbabilityOf returns the probability of observing index.
func (r *Register) ProbabilityOf(index uint64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.live(); err != nil {
		return 0, err
	}

	return probability(r.store.Get(index)), nil
}

func (r *Register) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.consumed {
		return "QuReg { consumed }"
	}

	return fmt.Sprintf("QuReg { width: %d, scratch: %d }", r.layout.Width(), r.layout.ScratchCount())
}

// Dump renders the layout and every stored amplitude for debugging.
func (r *Register) Dump() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.consumed {
		return "QuReg { consumed }\n"
	}

	return spew.Sdump(struct {
		Layout  Layout
		Entries []Entry
	}{r.layout, r.store.Entries()})
}
