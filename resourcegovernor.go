package qureg

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/theapemachine/errnie"
)

// entryFootprint approximates the bytes one basis state costs: slice entry plus hash index slot.
const entryFootprint = 64

// fallbackCapacity applies when available memory cannot be read.
const fallbackCapacity = 1 << 24

/*
CapacityGovernor implements the Regulator interface to bound the size of an
amplitude store. A sparse store can grow exponentially in the number of mixed
qubits; rather than let it swallow the machine, the governor caps it either at
a configured entry count or at a fraction of the memory available when the
governor was created. Exceeding the cap is reported as ErrResourceExhausted,
never silently truncated.

The GateEngine consults Capacity while building a store, so oversized
intermediate results are abandoned early; the Regulator methods repeat the
check on the finished store.
*/
type CapacityGovernor struct {
	mu sync.RWMutex

	capacity int
	current  int
}

/*
NewCapacityGovernor creates a governor.

Parameters:
  - maxEntries: explicit entry cap, 0 to derive one from available memory
  - memoryFraction: share of available memory the store may occupy (0.0-1.0)

Example:

	governor := NewCapacityGovernor(0, 0.25)
*/
func NewCapacityGovernor(maxEntries int, memoryFraction float64) *CapacityGovernor {
	capacity := maxEntries
	if capacity <= 0 {
		capacity = memoryCapacity(memoryFraction)
	}

	return &CapacityGovernor{capacity: capacity}
}

func memoryCapacity(fraction float64) int {
	stat, err := mem.VirtualMemory()
	if err != nil {
		errnie.Warn("cannot read available memory, capping stores at %d entries: %v", fallbackCapacity, err)
		return fallbackCapacity
	}

	entries := float64(stat.Available) * fraction / entryFootprint
	if entries >= math.MaxInt {
		return math.MaxInt
	}

	return max(int(entries), 1)
}

// Capacity returns the entry cap, 0 meaning unbounded.
func (cg *CapacityGovernor) Capacity() int {
	if cg == nil {
		return 0
	}

	cg.mu.RLock()
	defer cg.mu.RUnlock()

	return cg.capacity
}

func (cg *CapacityGovernor) Observe(store *AmplitudeStore) {
	cg.mu.Lock()
	defer cg.mu.Unlock()

	cg.current = store.Len()
}

func (cg *CapacityGovernor) Limit() bool {
	cg.mu.RLock()
	defer cg.mu.RUnlock()

	return cg.capacity > 0 && cg.current > cg.capacity
}

func (cg *CapacityGovernor) Renormalize(store *AmplitudeStore) error {
	cg.mu.RLock()
	defer cg.mu.RUnlock()

	errnie.Warn("store of %d entries exceeds capacity %d", store.Len(), cg.capacity)
	return errors.Wrapf(ErrResourceExhausted, "%d entries, capacity %d", store.Len(), cg.capacity)
}

// GetUsage returns the last observed store size and the cap.
func (cg *CapacityGovernor) GetUsage() (current, capacity int) {
	cg.mu.RLock()
	defer cg.mu.RUnlock()

	return cg.current, cg.capacity
}
