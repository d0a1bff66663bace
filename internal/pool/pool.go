// Package pool implements the per-building worker pool: parallelism exists
// only at the building granularity, since core/reconstruct.Reconstruct
// itself is a pure, single-threaded function. Built on
// golang.org/x/sync/errgroup's bounded fan-out (errgroup.Group.SetLimit).
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool runs a bounded number of building jobs concurrently.
type Pool struct {
	limit int
}

// New builds a Pool that runs at most limit jobs concurrently; limit <= 0
// means unbounded (errgroup's default).
func New(limit int) *Pool {
	return &Pool{limit: limit}
}

// Job is one unit of work: reconstructing and writing a single building.
// id identifies the building for error reporting.
type Job struct {
	ID string
	Run func(ctx context.Context) error
}

// Result pairs a Job's ID with the error it returned, if any.
type Result struct {
	ID  string
	Err error
}

// RunAll runs every job, bounded by the pool's concurrency limit, and
// returns one Result per job in submission order. A job's error never
// aborts the others: the driver continues to the next building even when
// one fails, so each job reports its error through results rather than
// through the errgroup itself, which would otherwise cancel every sibling
// job's context on the first failure.
func (p *Pool) RunAll(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = Result{ID: job.ID, Err: job.Run(gctx)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
