package qureg

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Histogram counts measured outcomes over a number of shots.
type Histogram struct {
	Shots  int
	Counts map[uint64]int
}

func NewHistogram() *Histogram {
	return &Histogram{Counts: make(map[uint64]int)}
}

func (h *Histogram) Add(outcome uint64) {
	h.Shots++
	h.Counts[outcome]++
}

// Outcomes returns the observed outcomes in ascending order.
func (h *Histogram) Outcomes() []uint64 {
	outcomes := make([]uint64, 0, len(h.Counts))
	for outcome := range h.Counts {
		outcomes = append(outcomes, outcome)
	}

	slices.Sort(outcomes)
	return outcomes
}

// Dense returns the observed frequencies of outcomes 0..n-1.
func (h *Histogram) Dense(n int) []float64 {
	frequencies := make([]float64, n)
	for outcome, count := range h.Counts {
		if outcome < uint64(n) {
			frequencies[outcome] = float64(count)
		}
	}

	if h.Shots > 0 {
		floats.Scale(1/float64(h.Shots), frequencies)
	}

	return frequencies
}

func (h *Histogram) String() string {
	var b strings.Builder

	for _, outcome := range h.Outcomes() {
		count := h.Counts[outcome]
		fmt.Fprintf(&b, "%d\t%d\t%.4f\n", outcome, count, float64(count)/float64(h.Shots))
	}

	return b.String()
}
