// Package pipeline wires the ingestion stages together: a single-threaded
// producer (chunked row source feeding the partition accumulator) followed
// by a bounded worker pool that merge-writes and optionally uploads one
// partition per task.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/ais"
	"github.com/eunmann/zip2parquet/pkg/membudget"
	"github.com/eunmann/zip2parquet/pkg/partition"
	"github.com/eunmann/zip2parquet/pkg/s3store"
)

// DefaultWorkers is the pool size used when Config.Workers is zero.
const DefaultWorkers = 4

// Source is the chunked row source consumed by the producer stage.
// *ais.Reader satisfies it.
type Source interface {
	// Next returns the next bounded batch, io.EOF at end of input.
	Next() ([]ais.Record, error)
	// MalformedSkipped reports rows dropped for unparseable timestamps.
	MalformedSkipped() int64
}

// Config holds the pipeline settings, passed explicitly at construction
// instead of through globals.
type Config struct {
	// OutputRoot is the root of the partitioned output tree.
	OutputRoot string

	// FilePrefix names artifact files, e.g. "AIS".
	FilePrefix string

	// Workers is the merge/upload pool size.
	Workers int

	// Store enables verified uploads when non-nil; artifacts stay local
	// otherwise.
	Store *s3store.Client

	// Budget, when non-nil, tracks accumulated buffer memory.
	Budget *membudget.Budget
}

// Summary is the end-of-run report. The run always terminates with a
// summary, including the partitions that failed to write or upload, so a
// re-run can be scoped to just the affected keys.
type Summary struct {
	Batches          int
	RowsRead         int64
	MalformedSkipped int64
	Partitions       int
	RowsWritten      int64 // rows appended across successfully written partitions
	Succeeded        int
	Failed           int
	FailedKeys       []partition.Key
}

// Run consumes src to exhaustion, accumulates rows by partition key, then
// dispatches one merge+upload task per key onto the worker pool. Producer
// stage errors are fatal and abort the run; consumer stage errors are
// isolated per partition and reported in the summary.
func Run(ctx context.Context, src Source, cfg Config) (*Summary, error) {
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = "AIS"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	log := logctx.FromContext(ctx)
	summary := &Summary{}

	acc := partition.NewAccumulator(cfg.Budget)
	for {
		batch, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return summary, fmt.Errorf("source read failed: %w", err)
		}
		if err := acc.Consume(batch); err != nil {
			return summary, err
		}
		log.Debug().
			Int("batch", acc.Batches()).
			Int("batch_rows", len(batch)).
			Int64("rows_total", acc.Rows()).
			Int("partitions", acc.Partitions()).
			Msg("batch accumulated")
	}

	summary.Batches = acc.Batches()
	summary.RowsRead = acc.Rows()
	summary.MalformedSkipped = src.MalformedSkipped()

	buffers := acc.Finalize()
	summary.Partitions = len(buffers)

	log.Info().
		Int("batches", summary.Batches).
		Int64("rows_read", summary.RowsRead).
		Int64("malformed_skipped", summary.MalformedSkipped).
		Int("partitions", summary.Partitions).
		Msg("input exhausted, dispatching partition tasks")

	results := runTasks(ctx, buffers, cfg)
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			summary.FailedKeys = append(summary.FailedKeys, r.Key)
			continue
		}
		summary.Succeeded++
		summary.RowsWritten += r.Appended
	}
	partition.SortKeys(summary.FailedKeys)

	ev := log.Info()
	if summary.Failed > 0 {
		ev = log.Warn()
	}
	ev.Int64("rows_read", summary.RowsRead).
		Int64("rows_written", summary.RowsWritten).
		Int("partitions_succeeded", summary.Succeeded).
		Int("partitions_failed", summary.Failed).
		Msg("run complete")

	if summary.RowsWritten != summary.RowsRead {
		log.Warn().
			Int64("rows_read", summary.RowsRead).
			Int64("rows_written", summary.RowsWritten).
			Msg("row count mismatch between input and written partitions")
	}

	return summary, nil
}
