package storage

import (
	"github.com/benchtrend/runner/types"
)

// RetentionLimit is the maximum number of runs kept in a history
const RetentionLimit = 100

// RunRing is a bounded FIFO of history runs. Pushing onto a full ring
// evicts the oldest run.
type RunRing struct {
	runs  []types.HistoryRun
	limit int
}

// NewRunRing creates a ring seeded with runs, oldest first. Seed runs beyond
// the limit are evicted from the front. The seed slice is not retained.
func NewRunRing(limit int, runs []types.HistoryRun) *RunRing {
	if limit < 1 {
		limit = 1
	}
	r := &RunRing{
		runs:  make([]types.HistoryRun, 0, limit+1),
		limit: limit,
	}
	for _, run := range runs {
		r.Push(run)
	}
	return r
}

// Push appends run and returns how many old runs were evicted
func (r *RunRing) Push(run types.HistoryRun) int {
	r.runs = append(r.runs, run)

	evicted := 0
	if over := len(r.runs) - r.limit; over > 0 {
		// shift in place so the backing array does not grow without bound
		n := copy(r.runs, r.runs[over:])
		clear(r.runs[n:])
		r.runs = r.runs[:n]
		evicted = over
	}
	return evicted
}

// Len returns the number of runs held
func (r *RunRing) Len() int {
	return len(r.runs)
}

// Limit returns the capacity of the ring
func (r *RunRing) Limit() int {
	return r.limit
}

// Runs returns a copy of the held runs, oldest first
func (r *RunRing) Runs() []types.HistoryRun {
	out := make([]types.HistoryRun, len(r.runs))
	copy(out, r.runs)
	return out
}
