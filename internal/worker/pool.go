// Package worker fans a list of image paths out to a fixed set of
// goroutines, one image per worker at a time. Per-file failures are
// reported and counted, never fatal; the run only stops early when the
// context is cancelled (the CLI cancels it on the first interrupt).
package worker

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/deepteams/flaca/internal/progress"
)

// Func compresses one file and reports its before/after sizes in
// bytes. A (0, 0, nil) return means the file was deliberately skipped.
type Func func(ctx context.Context, path string) (before, after uint64, err error)

// Totals is the byte accounting for a whole run.
type Totals struct {
	Before  uint64
	After   uint64
	Skipped uint64
}

// Saved returns the total bytes shaved off, zero if nothing improved.
func (t Totals) Saved() uint64 {
	if t.After >= t.Before {
		return 0
	}
	return t.Before - t.After
}

// Pool runs Fn over paths with at most Workers goroutines.
type Pool struct {
	Workers  int
	Fn       Func
	Reporter *progress.Reporter
}

// Run processes every path, or stops pulling new ones once ctx is
// cancelled. In-flight files always run to completion; the returned
// Totals covers whatever finished. The error is non-nil only when the
// run was cut short by cancellation.
func (p *Pool) Run(ctx context.Context, paths []string) (Totals, error) {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	if p.Reporter != nil {
		p.Reporter.SetTotal(len(paths))
		p.Reporter.SetRunning(true)
		defer p.Reporter.SetRunning(false)
	}

	var before, after, skipped atomic.Uint64

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan string)

	g.Go(func() error {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for path := range jobs {
				b, a, err := p.Fn(gctx, path)
				if err != nil {
					skipped.Add(1)
					// Files abandoned because the run was interrupted
					// are not worth a warning each.
					if p.Reporter != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
						p.Reporter.Log(progress.KindWarning, path, err.Error())
					}
				} else {
					before.Add(b)
					after.Add(a)
				}
				if p.Reporter != nil {
					p.Reporter.IncDone()
				}
			}
			return nil
		})
	}

	err := g.Wait()
	totals := Totals{
		Before:  before.Load(),
		After:   after.Load(),
		Skipped: skipped.Load(),
	}
	return totals, err
}
