// Package artifact reads and writes the per-partition Parquet files
// produced by the pipeline. The merge-writer reconciles newly buffered
// rows with whatever already exists at a partition's deterministic path:
// the final artifact always contains the pre-existing rows followed by
// this run's rows in arrival order.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/ais"
	"github.com/eunmann/zip2parquet/pkg/fileutil"
	"github.com/eunmann/zip2parquet/pkg/partition"
)

// writerOptions configures the Parquet encoding: Snappy block compression,
// ~1 MiB data pages, and column/page statistics for predicate pushdown.
// Dictionary encoding for the low-cardinality text columns is driven by
// the struct tags on ais.Record.
func writerOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&parquet.Snappy),
		parquet.PageBufferSize(1 << 20),
		parquet.DataPageStatistics(true),
	}
}

// MergeResult reports the outcome of one merge-write.
type MergeResult struct {
	Path     string
	Existing int64 // rows read from a pre-existing artifact
	Appended int64 // rows from this run's buffer
	Total    int64 // rows in the final artifact
}

// Writer merges partition buffers into artifacts under a fixed output root.
type Writer struct {
	root   string
	prefix string
}

// NewWriter creates a merge-writer rooted at root. prefix names the
// artifact files, e.g. "AIS".
func NewWriter(root, prefix string) *Writer {
	return &Writer{root: root, prefix: prefix}
}

// Path returns the artifact path for a key.
func (w *Writer) Path(key partition.Key) string {
	return key.Path(w.root, w.prefix)
}

// Merge writes existing++rows to the key's artifact path. An unreadable or
// corrupt existing file is logged as a warning and treated as zero
// pre-existing rows rather than failing the partition. The combined rows
// are written to a temp file in the destination directory, synced, and
// renamed over the final path so a crash mid-write never corrupts an
// existing artifact.
func (w *Writer) Merge(ctx context.Context, key partition.Key, rows []ais.Record) (MergeResult, error) {
	log := logctx.FromContext(ctx)
	path := w.Path(key)
	res := MergeResult{Path: path, Appended: int64(len(rows))}

	existing, err := ReadRows(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).
			Msg("existing artifact unreadable, treating partition as empty")
		existing = nil
	}
	res.Existing = int64(len(existing))

	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return res, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return res, fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeRows(tmp, existing, rows); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return res, fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return res, fmt.Errorf("sync artifact %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return res, fmt.Errorf("close artifact %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return res, fmt.Errorf("rename artifact %s: %w", path, err)
	}

	res.Total = res.Existing + res.Appended
	log.Info().
		Str("path", path).
		Int64("existing_rows", res.Existing).
		Int64("appended_rows", res.Appended).
		Int64("total_rows", res.Total).
		Msg("artifact written")
	return res, nil
}

func writeRows(f *os.File, existing, rows []ais.Record) error {
	pw := parquet.NewGenericWriter[ais.Record](f, writerOptions()...)
	if len(existing) > 0 {
		if _, err := pw.Write(existing); err != nil {
			return fmt.Errorf("write existing rows: %w", err)
		}
	}
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("write buffered rows: %w", err)
		}
	}
	return pw.Close()
}

// ReadRows reads all records from an artifact. Returns (nil, nil) when the
// file does not exist.
func ReadRows(path string) ([]ais.Record, error) {
	if !fileutil.Exists(path) {
		return nil, nil
	}
	rows, err := parquet.ReadFile[ais.Record](path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return rows, nil
}

// RowCount returns the artifact's row count from the Parquet footer
// without decoding any pages.
func RowCount(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat artifact %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("open parquet footer %s: %w", path, err)
	}

	var n int64
	for _, rg := range pf.RowGroups() {
		n += rg.NumRows()
	}
	return n, nil
}
