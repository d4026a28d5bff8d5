package logging

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// TaskTracker tracks completion of a fixed set of partition tasks and logs
// progress periodically. Safe for concurrent use by pool workers.
type TaskTracker struct {
	total     int64
	succeeded atomic.Int64
	failed    atomic.Int64
	startTime time.Time
	log       zerolog.Logger

	logEvery int64
}

// NewTaskTracker creates a tracker for total tasks. Progress is logged
// every logEvery completions (minimum 1).
func NewTaskTracker(phase string, total int64, logEvery int64) *TaskTracker {
	if logEvery < 1 {
		logEvery = 1
	}
	return &TaskTracker{
		total:     total,
		startTime: time.Now(),
		log:       WithPhase(phase),
		logEvery:  logEvery,
	}
}

// Done records a terminal task state and emits a progress line on the
// configured interval and on the final task.
func (t *TaskTracker) Done(ok bool) {
	if ok {
		t.succeeded.Add(1)
	} else {
		t.failed.Add(1)
	}

	done := t.succeeded.Load() + t.failed.Load()
	if done%t.logEvery != 0 && done != t.total {
		return
	}

	elapsed := time.Since(t.startTime)
	ev := t.log.Info().
		Int64("done", done).
		Int64("total", t.total).
		Int64("failed", t.failed.Load()).
		Dur("elapsed", elapsed)
	if done > 0 && done < t.total {
		remaining := time.Duration(float64(elapsed) / float64(done) * float64(t.total-done))
		ev = ev.Dur("eta", remaining)
	}
	ev.Msg("partition tasks progress")
}

// Counts returns the terminal task counts so far.
func (t *TaskTracker) Counts() (succeeded, failed int64) {
	return t.succeeded.Load(), t.failed.Load()
}
