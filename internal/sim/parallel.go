package sim

import (
	"context"
	"sync"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
)

// Ensemble runs the same scenario under independent seeds, one goroutine
// per run. Each run gets its own Simulator from the factory so noise
// streams and integrator state are never shared.
type Ensemble struct {
	build     func(seed int64) (*Simulator, error)
	numRuns   int
	seedStart int64
}

func NewEnsemble(build func(seed int64) (*Simulator, error), numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, x0 dynamo.State, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			seed := e.seedStart + int64(idx)
			sim, err := e.build(seed)
			if err != nil {
				errs[idx] = err
				return
			}

			cfgCopy := cfg
			cfgCopy.Seed = seed
			results[idx], errs[idx] = sim.Run(ctx, x0, cfgCopy)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
