// Package compare aligns two partitioned output trees by partition key and
// reports per-partition row-count differences. It reads counts from Parquet
// footers only, so comparing large trees stays cheap.
package compare

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/sync/errgroup"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/artifact"
	"github.com/eunmann/zip2parquet/pkg/partition"
)

// FileCount is one artifact's row count keyed by its partition.
type FileCount struct {
	Key  partition.Key
	Path string
	Rows int64
}

// Row is one aligned comparison entry. HasLeft/HasRight distinguish a
// zero-row artifact from a missing one.
type Row struct {
	Key      partition.Key
	Left     int64
	Right    int64
	HasLeft  bool
	HasRight bool
}

// Report is the aligned comparison of two trees.
type Report struct {
	LeftRoot  string
	RightRoot string
	Rows      []Row
}

// ScanTree walks a partitioned tree and collects row counts for every
// artifact inside the year=/month=/day=/hour= layout. Files outside the
// layout are ignored.
func ScanTree(ctx context.Context, root string) ([]FileCount, error) {
	log := logctx.FromContext(ctx)

	var counts []FileCount
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".parquet") {
			return nil
		}
		key, ok := partition.KeyFromPath(path)
		if !ok {
			return nil
		}
		rows, err := artifact.RowCount(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable artifact")
			return nil
		}
		counts = append(counts, FileCount{Key: key, Path: path, Rows: rows})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan tree %s: %w", root, err)
	}

	log.Info().Str("root", root).Int("artifacts", len(counts)).Msg("tree scanned")
	return counts, nil
}

// Compare scans both trees concurrently and aligns their artifacts by
// partition key in calendar order.
func Compare(ctx context.Context, leftRoot, rightRoot string) (*Report, error) {
	var left, right []FileCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		left, err = ScanTree(gctx, leftRoot)
		return err
	})
	g.Go(func() error {
		var err error
		right, err = ScanTree(gctx, rightRoot)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byKey := make(map[partition.Key]*Row)
	for _, fc := range left {
		byKey[fc.Key] = &Row{Key: fc.Key, Left: fc.Rows, HasLeft: true}
	}
	for _, fc := range right {
		r, ok := byKey[fc.Key]
		if !ok {
			r = &Row{Key: fc.Key}
			byKey[fc.Key] = r
		}
		r.Right = fc.Rows
		r.HasRight = true
	}

	report := &Report{LeftRoot: leftRoot, RightRoot: rightRoot}
	for _, r := range byKey {
		report.Rows = append(report.Rows, *r)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].Key.Less(report.Rows[j].Key)
	})
	return report, nil
}

// Matched returns the number of partitions present in both trees with
// equal row counts.
func (r *Report) Matched() int {
	n := 0
	for _, row := range r.Rows {
		if row.HasLeft && row.HasRight && row.Left == row.Right {
			n++
		}
	}
	return n
}

// Render writes the comparison as a table followed by a summary line.
func (r *Report) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Partition", r.LeftRoot, r.RightRoot, "Diff", "Match"})

	for _, row := range r.Rows {
		left, right := "-", "-"
		if row.HasLeft {
			left = fmt.Sprintf("%d", row.Left)
		}
		if row.HasRight {
			right = fmt.Sprintf("%d", row.Right)
		}

		match := "NO"
		if row.HasLeft && row.HasRight && row.Left == row.Right {
			match = "yes"
		}
		t.AppendRow(table.Row{row.Key.String(), left, right, row.Right - row.Left, match})
	}

	t.Render()
	fmt.Fprintf(w, "%d/%d partitions match\n", r.Matched(), len(r.Rows))
}
