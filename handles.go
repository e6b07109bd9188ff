package qureg

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Handle is an opaque reference to a register held in a Handles table.
type Handle uuid.UUID

func (h Handle) String() string {
	return uuid.UUID(h).String()
}

/*
Handles is the procedural face of the simulator: registers are addressed by
opaque handles instead of pointers, the shape a foreign-function binding needs.
Operations that consume a register also retire its handle, so a stale handle
fails with ErrUnknownHandle rather than reaching a dead register.
*/
type Handles struct {
	mu        sync.RWMutex
	sim       *Simulator
	registers map[Handle]*Register
}

func NewHandles(sim *Simulator) *Handles {
	return &Handles{
		sim:       sim,
		registers: make(map[Handle]*Register),
	}
}

func (h *Handles) Allocate(width int, init uint64) (Handle, error) {
	reg, err := h.sim.NewRegister(width, init)
	if err != nil {
		return Handle{}, err
	}

	return h.insert(reg), nil
}

func (h *Handles) insert(reg *Register) Handle {
	handle := Handle(uuid.New())

	h.mu.Lock()
	h.registers[handle] = reg
	h.mu.Unlock()

	return handle
}

func (h *Handles) lookup(handle Handle) (*Register, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	reg, ok := h.registers[handle]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHandle, "handle %s", handle)
	}

	return reg, nil
}

func (h *Handles) take(handle Handle) (*Register, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	reg, ok := h.registers[handle]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHandle, "handle %s", handle)
	}

	delete(h.registers, handle)
	return reg, nil
}

func (h *Handles) Apply(handle Handle, gate Gate) error {
	reg, err := h.lookup(handle)
	if err != nil {
		return err
	}

	return reg.Apply(gate)
}

func (h *Handles) AddScratch(handle Handle, bits int) error {
	reg, err := h.lookup(handle)
	if err != nil {
		return err
	}

	return reg.AddScratch(bits)
}

// MeasureAll measures the register and retires its handle.
func (h *Handles) MeasureAll(handle Handle) (uint64, error) {
	reg, err := h.take(handle)
	if err != nil {
		return 0, err
	}

	return reg.Measure()
}

func (h *Handles) MeasureBit(handle Handle, pos int, discard bool) (bool, error) {
	reg, err := h.lookup(handle)
	if err != nil {
		return false, err
	}

	return reg.MeasureBit(pos, discard)
}

func (h *Handles) MeasureWidth(handle Handle, k int) (uint64, error) {
	reg, err := h.lookup(handle)
	if err != nil {
		return 0, err
	}

	return reg.MeasureWidth(k)
}

func (h *Handles) MeasurePartial(handle Handle, positions ...int) (uint64, error) {
	reg, err := h.lookup(handle)
	if err != nil {
		return 0, err
	}

	return reg.MeasurePartial(positions...)
}

/*
Tensor combines two registers and retires both handles. If the product fails
the inputs stay registered under their handles.
*/
func (h *Handles) Tensor(a, b Handle) (Handle, error) {
	if a == b {
		return Handle{}, errors.Wrap(ErrConsumed, "register cannot be tensored with itself")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	high, ok := h.registers[a]
	if !ok {
		return Handle{}, errors.Wrapf(ErrUnknownHandle, "handle %s", a)
	}

	low, ok := h.registers[b]
	if !ok {
		return Handle{}, errors.Wrapf(ErrUnknownHandle, "handle %s", b)
	}

	reg, err := high.Tensor(low)
	if err != nil {
		return Handle{}, err
	}

	delete(h.registers, a)
	delete(h.registers, b)

	handle := Handle(uuid.New())
	h.registers[handle] = reg

	return handle, nil
}

func (h *Handles) Width(handle Handle) (int, error) {
	reg, err := h.lookup(handle)
	if err != nil {
		return 0, err
	}

	return reg.Width()
}

func (h *Handles) ScratchCount(handle Handle) (int, error) {
	reg, err := h.lookup(handle)
	if err != nil {
		return 0, err
	}

	return reg.ScratchCount()
}

// Describe returns the register's debug representation.
func (h *Handles) Describe(handle Handle) (string, error) {
	reg, err := h.lookup(handle)
	if err != nil {
		return "", err
	}

	return reg.String(), nil
}

func (h *Handles) Destroy(handle Handle) error {
	reg, err := h.take(handle)
	if err != nil {
		return err
	}

	return reg.Destroy()
}

// Len returns the number of live handles.
func (h *Handles) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.registers)
}
