package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllReturnsOneResultPerJobInOrder(t *testing.T) {
	jobs := []Job{
		{ID: "a", Run: func(context.Context) error { return nil }},
		{ID: "b", Run: func(context.Context) error { return errors.New("boom") }},
		{ID: "c", Run: func(context.Context) error { return nil }},
	}
	results := New(2).RunAll(context.Background(), jobs)

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].ID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "b", results[1].ID)
	assert.EqualError(t, results[1].Err, "boom")
	assert.Equal(t, "c", results[2].ID)
	assert.NoError(t, results[2].Err)
}

func TestRunAllContinuesAfterOneJobFails(t *testing.T) {
	var ran int32
	jobs := make([]Job, 5)
	for i := range jobs {
		jobs[i] = Job{ID: "job", Run: func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return errors.New("fails")
		}}
	}
	New(3).RunAll(context.Background(), jobs)
	assert.Equal(t, int32(5), atomic.LoadInt32(&ran), "a failing job must not cancel its siblings")
}

func TestRunAllRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, maxInFlight int32
	jobs := make([]Job, 8)
	for i := range jobs {
		jobs[i] = Job{ID: "job", Run: func(context.Context) error {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				cur := atomic.LoadInt32(&maxInFlight)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		}}
	}
	New(2).RunAll(context.Background(), jobs)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}

func TestRunAllZeroLimitIsUnbounded(t *testing.T) {
	jobs := []Job{
		{ID: "a", Run: func(context.Context) error { return nil }},
	}
	results := New(0).RunAll(context.Background(), jobs)
	assert.Len(t, results, 1)
}
