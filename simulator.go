package qureg

import (
	"sync"
	"sync/atomic"

	"github.com/theapemachine/errnie"
)

/*
Simulator holds everything registers share: configuration, the gate and
measurement engines, the regulators that run after every gate, and metrics.
Registers created by one simulator may be used from different goroutines,
each register by one goroutine at a time.
*/
type Simulator struct {
	config     *Config
	engine     *GateEngine
	measurer   *MeasurementEngine
	metrics    *Metrics
	governor   *CapacityGovernor
	regulators []Regulator
	regulateMu *sync.Mutex
	random     RandomSource
	extra      []Regulator
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithRandomSource replaces the seeded PCG source used for measurements.
func WithRandomSource(random RandomSource) SimulatorOption {
	return func(s *Simulator) {
		s.random = random
	}
}

// WithMetrics shares a metrics value between simulators.
func WithMetrics(metrics *Metrics) SimulatorOption {
	return func(s *Simulator) {
		s.metrics = metrics
	}
}

// WithRegulator runs an additional regulator after the built-in ones.
func WithRegulator(regulator Regulator) SimulatorOption {
	return func(s *Simulator) {
		s.extra = append(s.extra, regulator)
	}
}

// NewSimulator builds a simulator; a nil config uses NewConfig.
func NewSimulator(config *Config, opts ...SimulatorOption) *Simulator {
	if config == nil {
		config = NewConfig()
	}

	s := &Simulator{
		config:     config,
		regulateMu: &sync.Mutex{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = NewMetrics()
	}

	if s.random == nil {
		s.random = NewRandomSource(config.Seed)
	}

	s.governor = NewCapacityGovernor(config.MaxEntries, config.MemoryFraction)
	s.engine = NewGateEngine(config, s.governor, s.metrics)
	s.measurer = NewMeasurementEngine(s.random)
	s.regulators = append([]Regulator{
		NewDriftRegulator(config.Tolerance, config.RenormalizeEvery, s.metrics),
		s.governor,
	}, s.extra...)

	errnie.Info(
		"NewSimulator - epsilon %g, capacity %d, workers %d",
		config.Epsilon,
		s.governor.Capacity(),
		config.Workers,
	)

	return s
}

/*
Fork returns a simulator sharing this one's engine, regulators and metrics but
drawing measurements from random. The shot pool uses it to give every shot its
own reproducible source.
*/
func (s *Simulator) Fork(random RandomSource) *Simulator {
	fork := *s
	fork.random = random
	fork.measurer = NewMeasurementEngine(random)
	return &fork
}

func (s *Simulator) Config() *Config {
	return s.config
}

func (s *Simulator) Metrics() *Metrics {
	return s.metrics
}

// NewRegister allocates a register of width qubits in the basis state init.
func (s *Simulator) NewRegister(width int, init uint64) (*Register, error) {
	layout, err := newLayout(width)
	if err != nil {
		return nil, err
	}

	store := NewAmplitudeStore(1)
	store.Set(init&layout.Mask(), 1)

	return s.adopt(store, layout), nil
}

// registerSeq numbers registers so paired operations lock them in a fixed order.
var registerSeq atomic.Uint64

func (s *Simulator) adopt(store *AmplitudeStore, layout Layout) *Register {
	s.metrics.recordAllocation()

	return &Register{
		id:     registerSeq.Add(1),
		sim:    s,
		store:  store,
		layout: layout,
	}
}

func (s *Simulator) regulate(store *AmplitudeStore) error {
	s.regulateMu.Lock()
	defer s.regulateMu.Unlock()

	for _, regulator := range s.regulators {
		regulator.Observe(store)

		if !regulator.Limit() {
			continue
		}

		if err := regulator.Renormalize(store); err != nil {
			return err
		}
	}

	return nil
}

var defaultSimulator = sync.OnceValue(func() *Simulator {
	return NewSimulator(NewConfig())
})

// NewRegister allocates a register on the package's default simulator.
func NewRegister(width int, init uint64) (*Register, error) {
	return defaultSimulator().NewRegister(width, init)
}
