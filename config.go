package qureg

import (
	"os"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Epsilon is the amplitude magnitude below which a basis state is pruned.
	Epsilon float64 `yaml:"epsilon"`
	// Tolerance is the allowed drift of the total probability from one.
	Tolerance float64 `yaml:"tolerance"`
	// RenormalizeEvery forces a renormalization every n gates, 0 disables it.
	RenormalizeEvery int `yaml:"renormalize_every"`
	// MaxEntries caps the store size, 0 derives the cap from available memory.
	MaxEntries     int     `yaml:"max_entries"`
	MemoryFraction float64 `yaml:"memory_fraction"`
	// ParallelThreshold is the store size from which mixing gates fan out to workers.
	ParallelThreshold int `yaml:"parallel_threshold"`
	Workers           int `yaml:"workers"`
	// Seed feeds the measurement random source, 0 picks a random seed.
	Seed uint64 `yaml:"seed"`
}

func NewConfig() *Config {
	return &Config{
		Epsilon:           1e-7,
		Tolerance:         1e-9,
		RenormalizeEvery:  0,
		MaxEntries:        0,
		MemoryFraction:    0.25,
		ParallelThreshold: 4096,
		Workers:           runtime.GOMAXPROCS(0),
		Seed:              0,
	}
}

/*
LoadConfig reads a YAML file over the defaults. Keys missing from the file keep
their NewConfig value.
*/
func LoadConfig(path string) (*Config, error) {
	config := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	return config, config.Validate()
}

// FromEnv overrides fields from QUREG_* environment variables when they are set.
func (c *Config) FromEnv() error {
	if v, ok := os.LookupEnv("QUREG_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "QUREG_SEED")
		}
		c.Seed = seed
	}

	if v, ok := os.LookupEnv("QUREG_WORKERS"); ok {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "QUREG_WORKERS")
		}
		c.Workers = workers
	}

	if v, ok := os.LookupEnv("QUREG_EPSILON"); ok {
		epsilon, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "QUREG_EPSILON")
		}
		c.Epsilon = epsilon
	}

	if v, ok := os.LookupEnv("QUREG_MAX_ENTRIES"); ok {
		entries, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "QUREG_MAX_ENTRIES")
		}
		c.MaxEntries = entries
	}

	return c.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.Epsilon < 0 || c.Epsilon >= 1:
		return errors.Errorf("epsilon %v outside [0, 1)", c.Epsilon)
	case c.Tolerance <= 0:
		return errors.Errorf("tolerance %v must be positive", c.Tolerance)
	case c.RenormalizeEvery < 0:
		return errors.Errorf("renormalize_every %d is negative", c.RenormalizeEvery)
	case c.MaxEntries < 0:
		return errors.Errorf("max_entries %d is negative", c.MaxEntries)
	case c.MemoryFraction <= 0 || c.MemoryFraction > 1:
		return errors.Errorf("memory_fraction %v outside (0, 1]", c.MemoryFraction)
	case c.ParallelThreshold < 0:
		return errors.Errorf("parallel_threshold %d is negative", c.ParallelThreshold)
	case c.Workers < 1:
		return errors.Errorf("workers %d must be at least 1", c.Workers)
	}

	return nil
}
