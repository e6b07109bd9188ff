package qureg

import "github.com/pkg/errors"

/*
Precondition violations are returned as wrapped sentinel errors so callers can
test for them with errors.Is. None of them are ever clamped or recovered from
inside the simulator, since a silently adjusted qubit index would produce a
physically wrong state.
*/
var (
	ErrZeroWidth         = errors.New("register width must be greater than zero")
	ErrWidthOverflow     = errors.New("register width exceeds 64 qubits")
	ErrInvalidQubit      = errors.New("qubit index out of range")
	ErrControlIsTarget   = errors.New("control qubit equals target qubit")
	ErrNonFiniteAngle    = errors.New("gate angle is not finite")
	ErrNotUnitary        = errors.New("gate matrix is not a 2x2 unitary")
	ErrUnknownGate       = errors.New("unknown gate kind")
	ErrConsumed          = errors.New("register has already been consumed")
	ErrZeroNorm          = errors.New("cannot normalize an all-zero amplitude store")
	ErrResourceExhausted = errors.New("amplitude store capacity exhausted")
	ErrUnknownHandle     = errors.New("unknown register handle")
	ErrInvalidSnapshot   = errors.New("invalid register snapshot")
)
