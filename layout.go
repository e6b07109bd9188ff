package qureg

import (
	"math/bits"

	"github.com/pkg/errors"
)

// MaxWidth is the widest register a 64 bit basis index can address.
const MaxWidth = 64

/*
Layout describes which physical bit positions of a register's basis indices
are in use.

Span is the number of physical positions. Discarded marks positions whose
qubit was measured out of the register; those bits read zero in every stored
index and cannot be addressed again. Scratch marks ancilla positions, which
stay addressable but are hidden from the logical width. Scratch membership is
tracked per position, so measuring qubits out of LIFO order never miscounts.
*/
type Layout struct {
	Span      int
	Discarded uint64
	Scratch   uint64
}

func newLayout(width int) (Layout, error) {
	if width <= 0 {
		return Layout{}, errors.WithStack(ErrZeroWidth)
	}

	if width > MaxWidth {
		return Layout{}, errors.Wrapf(ErrWidthOverflow, "width %d", width)
	}

	return Layout{Span: width}, nil
}

// Mask covers every physical position of the span.
func (l Layout) Mask() uint64 {
	return spanMask(l.Span)
}

// Live is the mask of addressable positions.
func (l Layout) Live() uint64 {
	return l.Mask() &^ l.Discarded
}

// Width is the logical width: live positions that are not scratch.
func (l Layout) Width() int {
	return bits.OnesCount64(l.Live() &^ l.Scratch)
}

// PhysicalWidth counts every live position, scratch included.
func (l Layout) PhysicalWidth() int {
	return bits.OnesCount64(l.Live())
}

// ScratchCount counts live scratch positions.
func (l Layout) ScratchCount() int {
	return bits.OnesCount64(l.Live() & l.Scratch)
}

// Check fails unless qubit names a live position.
func (l Layout) Check(qubit int) error {
	if qubit < 0 || qubit >= l.Span {
		return errors.Wrapf(ErrInvalidQubit, "qubit %d, span %d", qubit, l.Span)
	}

	if l.Discarded&(uint64(1)<<qubit) != 0 {
		return errors.Wrapf(ErrInvalidQubit, "qubit %d was discarded by measurement", qubit)
	}

	return nil
}

// lowest returns the n lowest live positions in ascending order.
func (l Layout) lowest(n int) ([]int, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidQubit, "measure %d qubits", n)
	}

	positions := make([]int, 0, n)

	for live := l.Live(); live != 0 && len(positions) < n; live &= live - 1 {
		positions = append(positions, bits.TrailingZeros64(live))
	}

	if len(positions) < n {
		return nil, errors.Wrapf(ErrInvalidQubit, "need %d qubits, have %d", n, len(positions))
	}

	return positions, nil
}

func (l Layout) discard(qubit int) Layout {
	bit := uint64(1) << qubit
	l.Discarded |= bit
	l.Scratch &^= bit
	return l
}

func (l Layout) extend(scratch int) Layout {
	return Layout{
		Span:      l.Span + scratch,
		Discarded: l.Discarded << scratch,
		Scratch:   l.Scratch<<scratch | spanMask(scratch),
	}
}

func (l Layout) join(low Layout) Layout {
	return Layout{
		Span:      l.Span + low.Span,
		Discarded: l.Discarded<<low.Span | low.Discarded,
		Scratch:   l.Scratch<<low.Span | low.Scratch,
	}
}

func spanMask(span int) uint64 {
	if span >= MaxWidth {
		return ^uint64(0)
	}

	return uint64(1)<<span - 1
}
