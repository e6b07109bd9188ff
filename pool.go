package qureg

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
)

// Preparation builds the register a single shot measures.
type Preparation func(sim *Simulator) (*Register, error)

type shotJob struct {
	shot    int
	seed    uint64
	prepare Preparation
	results chan<- shotResult
}

type shotResult struct {
	shot    int
	outcome uint64
	err     error
}

/*
ShotPool runs many independent preparations of the same circuit on a fixed
set of workers and collects the measured outcomes into a Histogram.

Every shot draws from its own random source, seeded from the pool's base seed
and the shot number, so a seeded pool produces the same histogram regardless
of how shots are spread over the workers.
*/
type ShotPool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	jobs    chan shotJob
	sim     *Simulator
	seed    uint64
	workers []*Worker
}

// NewShotPool starts Config.Workers workers on sim. Close stops them.
func NewShotPool(ctx context.Context, sim *Simulator) *ShotPool {
	ctx, cancel := context.WithCancel(ctx)

	seed := sim.config.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	p := &ShotPool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan shotJob, sim.config.Workers*10),
		sim:    sim,
		seed:   seed,
	}

	for id := range sim.config.Workers {
		p.startWorker(id)
	}

	return p
}

func (p *ShotPool) startWorker(id int) {
	worker := &Worker{id: id, pool: p}
	p.workers = append(p.workers, worker)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		worker.run()
	}()
}

/*
Run executes prepare shots times, measures each resulting register and returns
the histogram of outcomes. The first failing shot aborts the run.
*/
func (p *ShotPool) Run(prepare Preparation, shots int) (*Histogram, error) {
	if shots < 1 {
		return nil, errors.Errorf("shots %d must be at least 1", shots)
	}

	ctx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	results := make(chan shotResult, shots)

	go func() {
		for shot := range shots {
			job := shotJob{
				shot:    shot,
				seed:    shotSeed(p.seed, shot),
				prepare: prepare,
				results: results,
			}

			select {
			case p.jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	histogram := NewHistogram()

	for received := 0; received < shots; received++ {
		select {
		case result := <-results:
			if result.err != nil {
				return nil, errors.Wrapf(result.err, "shot %d", result.shot)
			}

			histogram.Add(result.outcome)
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "shot pool closed")
		}
	}

	errnie.Debug("ShotPool.Run - %d shots, %d distinct outcomes", shots, len(histogram.Counts))

	return histogram, nil
}

func (p *ShotPool) Close() {
	if p == nil {
		return
	}

	p.cancel()
	p.wg.Wait()

	errnie.Debug("ShotPool.Close - %d workers stopped", len(p.workers))
}

// shotSeed derives a non-zero per-shot seed with a splitmix64 step.
func shotSeed(base uint64, shot int) uint64 {
	z := base + uint64(shot+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31

	if z == 0 {
		return 0x9e3779b97f4a7c15
	}

	return z
}
