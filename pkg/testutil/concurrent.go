package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

type outcome int

const (
	succeeded outcome = iota
	quotaDenied
	conflicted
	notFound
	failed
	numOutcomes
)

func classify(err error) outcome {
	switch {
	case err == nil:
		return succeeded
	case dErrors.HasCode(err, dErrors.CodeQuotaExceeded), errors.Is(err, sentinel.ErrLimitReached):
		return quotaDenied
	case dErrors.HasCode(err, dErrors.CodeConflict), errors.Is(err, sentinel.ErrConflict):
		return conflicted
	case dErrors.HasCode(err, dErrors.CodeNotFound), errors.Is(err, sentinel.ErrNotFound):
		return notFound
	default:
		return failed
	}
}

// Tally counts how each raced call ended.
type Tally struct {
	Successes   int32
	QuotaDenied int32
	Conflicts   int32
	NotFounds   int32
	Errors      int32
}

// Total is the number of calls made.
func (t Tally) Total() int32 {
	return t.Successes + t.QuotaDenied + t.Conflicts + t.NotFounds + t.Errors
}

// Race starts n goroutines, releases them together and tallies their errors.
func Race(n int, fn func(idx int) error) Tally {
	var counts [numOutcomes]atomic.Int32
	var wg sync.WaitGroup
	gate := make(chan struct{})
	for i := range n {
		wg.Go(func() {
			<-gate
			counts[classify(fn(i))].Add(1)
		})
	}
	close(gate)
	wg.Wait()

	return Tally{
		Successes:   counts[succeeded].Load(),
		QuotaDenied: counts[quotaDenied].Load(),
		Conflicts:   counts[conflicted].Load(),
		NotFounds:   counts[notFound].Load(),
		Errors:      counts[failed].Load(),
	}
}

// RaceCtx is Race with a shared context.
func RaceCtx(ctx context.Context, n int, fn func(ctx context.Context, idx int) error) Tally {
	return Race(n, func(idx int) error { return fn(ctx, idx) })
}
