package qureg

import (
	"github.com/pkg/errors"
)

// Worker processes shots
type Worker struct {
	id   int
	pool *ShotPool
}

func (w *Worker) run() {
	for {
		select {
		case <-w.pool.ctx.Done():
			return
		case job := <-w.pool.jobs:
			result := w.process(job)

			select {
			case job.results <- result:
			case <-w.pool.ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) process(job shotJob) shotResult {
	sim := w.pool.sim.Fork(NewRandomSource(job.seed))

	reg, err := job.prepare(sim)
	if err != nil {
		if reg != nil {
			_ = reg.Destroy()
		}

		return shotResult{shot: job.shot, err: errors.Wrap(err, "prepare")}
	}

	outcome, err := reg.Measure()
	if err != nil {
		return shotResult{shot: job.shot, err: errors.Wrap(err, "measure")}
	}

	sim.metrics.recordShot()

	return shotResult{shot: job.shot, outcome: outcome}
}
