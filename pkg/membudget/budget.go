// Package membudget provides a soft memory budget for the ingestion
// pipeline. Partition buffers grow for the whole duration of a run, so the
// accumulator reserves an estimate of each batch's footprint and the
// pipeline can surface a warning before the process is at risk of
// exhausting memory. Enforcement is advisory: reservations never block.
package membudget

import (
	"sync/atomic"

	"github.com/eunmann/zip2parquet/pkg/sysmem"
)

// DefaultFraction is the share of detected system RAM used when a budget
// is derived from the machine.
const DefaultFraction = 0.5

// Budget tracks reserved bytes against a fixed total. Safe for concurrent use.
type Budget struct {
	total uint64
	inUse atomic.Uint64
}

// New creates a budget with an explicit byte limit.
func New(total uint64) *Budget {
	return &Budget{total: total}
}

// FromSystem creates a budget sized to a fraction of detected system RAM.
// Falls back to the sysmem default when detection is unreliable.
func FromSystem(fraction float64) *Budget {
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultFraction
	}
	mem := sysmem.Total()
	return &Budget{total: uint64(float64(mem.TotalBytes) * fraction)}
}

// Reserve records n bytes as in use. Returns false when the reservation
// pushes usage past the budget; the caller decides how to react (the
// accumulator logs a warning and continues).
func (b *Budget) Reserve(n uint64) bool {
	return b.inUse.Add(n) <= b.total
}

// Release returns n bytes to the budget.
func (b *Budget) Release(n uint64) {
	b.inUse.Add(^(n - 1))
}

// InUse returns the currently reserved bytes.
func (b *Budget) InUse() uint64 { return b.inUse.Load() }

// Total returns the budget limit in bytes.
func (b *Budget) Total() uint64 { return b.total }
