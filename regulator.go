package qureg

/*
Regulator defines an interface for types that keep an amplitude store within
its operating envelope after every gate.

The simulator runs each regulator in turn: Observe inspects the freshly built
store, Limit reports whether the store left the envelope, and Renormalize
brings it back or reports that it cannot. A regulator that cannot recover
returns an error, and the gate that produced the store is rejected.

Regulators shipped with the package:
  - DriftRegulator: rescales the store when floating-point drift pushes the
    total probability away from one
  - CapacityGovernor: rejects stores that outgrow the configured or
    memory-derived entry cap
*/
type Regulator interface {
	// Observe records whatever the regulator needs to know about store.
	Observe(store *AmplitudeStore)

	// Limit reports whether the last observed store needs intervention.
	Limit() bool

	// Renormalize restores the store, or returns an error when it cannot.
	Renormalize(store *AmplitudeStore) error
}
