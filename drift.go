package qureg

import (
	"math"
	"sync"

	"github.com/theapemachine/errnie"
	"gonum.org/v1/gonum/floats/scalar"
)

/*
DriftRegulator implements the Regulator interface to keep the total probability
of a store at one. Unitary gates preserve the norm exactly in theory, but
rounding and pruning of negligible entries let it creep away over long gate
sequences. The regulator rescales the store once the drift exceeds the
tolerance, or unconditionally every n gates when a period is configured.
*/
type DriftRegulator struct {
	mu sync.Mutex

	tolerance float64
	every     int
	gates     int
	drift     float64
	metrics   *Metrics
}

/*
NewDriftRegulator creates a drift regulator.

Parameters:
  - tolerance: absolute deviation of the total probability from one that is tolerated
  - every: force a renormalization every n observed gates, 0 to only act on drift
  - metrics: counters to record renormalizations in

Example:

	regulator := NewDriftRegulator(1e-9, 0, metrics)
*/
func NewDriftRegulator(tolerance float64, every int, metrics *Metrics) *DriftRegulator {
	return &DriftRegulator{
		tolerance: tolerance,
		every:     every,
		metrics:   metrics,
	}
}

func (dr *DriftRegulator) Observe(store *AmplitudeStore) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	dr.gates++
	dr.drift = math.Abs(store.TotalProbability() - 1)
}

func (dr *DriftRegulator) Limit() bool {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if dr.every > 0 && dr.gates%dr.every == 0 {
		return true
	}

	return !scalar.EqualWithinAbs(dr.drift, 0, dr.tolerance)
}

func (dr *DriftRegulator) Renormalize(store *AmplitudeStore) error {
	dr.mu.Lock()
	drift := dr.drift
	dr.mu.Unlock()

	if err := store.Normalize(); err != nil {
		return err
	}

	if drift > dr.tolerance {
		errnie.Debug("renormalized store of %d entries, drift %g", store.Len(), drift)
	}

	dr.metrics.recordRenormalization()
	return nil
}

// Drift returns the deviation seen by the last observation.
func (dr *DriftRegulator) Drift() float64 {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	return dr.drift
}
