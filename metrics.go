package qureg

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "qureg"

/*
Metrics tracks simulator activity. The plain counters back ExportMetrics and
the tests; the prometheus collectors live on a registry owned by the Metrics
value, so several simulators in one process never collide on registration.
*/
type Metrics struct {
	mu                 sync.RWMutex
	GatesApplied       int64
	Measurements       int64
	Renormalizations   int64
	PrunedEntries      int64
	PeakEntries        int
	RegistersAllocated int64
	RegistersReleased  int64
	Shots              int64

	registry         *prometheus.Registry
	gates            *prometheus.CounterVec
	measurements     *prometheus.CounterVec
	renormalizations prometheus.Counter
	pruned           prometheus.Counter
	entries          prometheus.Histogram
	registers        prometheus.Gauge
	shots            prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		gates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "gates_applied_total",
				Help:      "Total number of gates applied, by kind",
			},
			[]string{"kind"},
		),
		measurements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "measurements_total",
				Help:      "Total number of measurements, by mode",
			},
			[]string{"mode"}, // mode: "all", "bit", "bit_preserve"
		),
		renormalizations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "renormalizations_total",
				Help:      "Total number of drift renormalizations",
			},
		),
		pruned: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "pruned_entries_total",
				Help:      "Total number of negligible amplitudes pruned",
			},
		),
		entries: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "store_entries",
				Help:      "Number of basis states held after each gate",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
			},
		),
		registers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "registers_live",
				Help:      "Registers allocated and not yet consumed",
			},
		),
		shots: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "shots_total",
				Help:      "Total number of shots completed by shot pools",
			},
		),
	}
}

// Registry exposes the collectors for scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) recordGate(kind GateKind) {
	m.mu.Lock()
	m.GatesApplied++
	m.mu.Unlock()

	m.gates.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) recordStore(entries, pruned int) {
	m.mu.Lock()
	m.PrunedEntries += int64(pruned)
	m.PeakEntries = max(m.PeakEntries, entries)
	m.mu.Unlock()

	m.entries.Observe(float64(entries))
	if pruned > 0 {
		m.pruned.Add(float64(pruned))
	}
}

func (m *Metrics) recordMeasurement(mode string) {
	m.mu.Lock()
	m.Measurements++
	m.mu.Unlock()

	m.measurements.WithLabelValues(mode).Inc()
}

func (m *Metrics) recordRenormalization() {
	m.mu.Lock()
	m.Renormalizations++
	m.mu.Unlock()

	m.renormalizations.Inc()
}

func (m *Metrics) recordAllocation() {
	m.mu.Lock()
	m.RegistersAllocated++
	m.mu.Unlock()

	m.registers.Inc()
}

func (m *Metrics) recordRelease() {
	m.mu.Lock()
	m.RegistersReleased++
	m.mu.Unlock()

	m.registers.Dec()
}

func (m *Metrics) recordShot() {
	m.mu.Lock()
	m.Shots++
	m.mu.Unlock()

	m.shots.Inc()
}

func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"gates_applied":       m.GatesApplied,
		"measurements":        m.Measurements,
		"renormalizations":    m.Renormalizations,
		"pruned_entries":      m.PrunedEntries,
		"peak_entries":        m.PeakEntries,
		"registers_allocated": m.RegistersAllocated,
		"registers_released":  m.RegistersReleased,
		"shots":               m.Shots,
	}
}
