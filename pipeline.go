package feather2d

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

// task calls fn on every element of data, split in contiguous chunks over workersCount goroutines.
// fn must only touch its own element.
func task[T any](workersCount int, data []T, fn func(data T)) {
	dataSize := len(data)
	if workersCount <= 1 || dataSize < 2*workersCount {
		for _, d := range data {
			fn(d)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		start, end := workerID*chunkSize, min((workerID+1)*chunkSize, dataSize)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(data[i])
			}
		}(start, end)
	}
	wg.Wait()
}

// StepParallel advances independent spaces by steps steps of dt each, at most workers spaces at a
// time. Every space is stepped by a single goroutine, so a space must appear only once.
//
// The context is checked between steps: on cancellation the remaining steps are skipped and the
// context error is returned. Spaces already past their last step are left as they are.
func StepParallel(ctx context.Context, spaces []*Space, dt float64, steps, workers int) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeStep, dt)
	}
	if steps < 0 {
		return fmt.Errorf("%w: steps %d", ErrInvalidParameter, steps)
	}

	seen := make(map[*Space]struct{}, len(spaces))
	for _, space := range spaces {
		if space == nil {
			return fmt.Errorf("%w: nil space", ErrInvalidParameter)
		}
		if _, ok := seen[space]; ok {
			return fmt.Errorf("%w: space %s listed twice", ErrInvalidParameter, space.ID())
		}
		seen[space] = struct{}{}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))

	for _, space := range spaces {
		g.Go(func() error {
			for range steps {
				if err := ctx.Err(); err != nil {
					return err
				}
				space.Step(dt)
			}
			return nil
		})
	}

	return g.Wait()
}
