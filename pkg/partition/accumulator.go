package partition

import (
	"errors"

	"github.com/eunmann/zip2parquet/pkg/ais"
	"github.com/eunmann/zip2parquet/pkg/logging"
	"github.com/eunmann/zip2parquet/pkg/membudget"
)

// ErrFinalized is returned when Consume is called after Finalize.
var ErrFinalized = errors.New("accumulator already finalized")

// Accumulator groups record batches by partition key and merges them into
// per-key buffers across all batches of a run. It is single-threaded by
// construction: it is the only component that mutates the buffers, and
// Finalize transfers buffer ownership to the caller, after which the
// accumulator refuses further input.
type Accumulator struct {
	buffers   map[Key][]ais.Record
	rows      int64
	batches   int
	finalized bool

	budget       *membudget.Budget
	reserved     uint64
	budgetWarned bool
}

// NewAccumulator creates an empty accumulator. budget may be nil to
// disable memory tracking.
func NewAccumulator(budget *membudget.Budget) *Accumulator {
	return &Accumulator{
		buffers: make(map[Key][]ais.Record),
		budget:  budget,
	}
}

// Consume groups one batch by partition key and appends each group to its
// buffer, preserving arrival order within every key. Buffers are created on
// first sight of a key.
func (a *Accumulator) Consume(batch []ais.Record) error {
	if a.finalized {
		return ErrFinalized
	}

	var batchBytes uint64
	for i := range batch {
		key := KeyFromTime(batch[i].BaseDateTime)
		a.buffers[key] = append(a.buffers[key], batch[i])
		batchBytes += batch[i].ApproxSize()
	}
	a.rows += int64(len(batch))
	a.batches++

	if a.budget != nil {
		a.reserved += batchBytes
		if !a.budget.Reserve(batchBytes) && !a.budgetWarned {
			a.budgetWarned = true
			logging.L().Warn().
				Uint64("buffered_bytes", a.budget.InUse()).
				Uint64("budget_bytes", a.budget.Total()).
				Msg("partition buffers exceed memory budget")
		}
	}
	return nil
}

// Finalize hands off the complete key-to-buffer mapping. Ownership of the
// buffers transfers to the caller; the accumulator must not be used for
// further accumulation. The memory reservation is released since the
// buffers now belong to the scheduler stage.
func (a *Accumulator) Finalize() map[Key][]ais.Record {
	a.finalized = true
	if a.budget != nil && a.reserved > 0 {
		a.budget.Release(a.reserved)
		a.reserved = 0
	}
	out := a.buffers
	a.buffers = nil
	return out
}

// Rows returns the total records consumed so far.
func (a *Accumulator) Rows() int64 { return a.rows }

// Batches returns the number of batches consumed so far.
func (a *Accumulator) Batches() int { return a.batches }

// Partitions returns the number of distinct keys seen so far.
func (a *Accumulator) Partitions() int { return len(a.buffers) }
