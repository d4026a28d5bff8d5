// Package vessels aggregates distinct vessel names across a partitioned
// output tree. Only the VesselName column is decoded from each artifact.
package vessels

import (
	"context"
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/partition"
)

// vesselNameRow projects just the VesselName column out of an artifact.
type vesselNameRow struct {
	VesselName string `parquet:"VesselName,dict"`
}

// Count is one vessel name with its total row count.
type Count struct {
	Name string
	Rows int64
}

// Aggregate walks the tree and counts rows per distinct vessel name.
// Unreadable artifacts are logged and skipped.
func Aggregate(ctx context.Context, root string) ([]Count, error) {
	log := logctx.FromContext(ctx)
	counts := make(map[string]int64)
	files := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".parquet") {
			return nil
		}
		if _, ok := partition.KeyFromPath(path); !ok {
			return nil
		}

		rows, err := parquet.ReadFile[vesselNameRow](path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable artifact")
			return nil
		}
		for _, r := range rows {
			counts[r.VesselName]++
		}
		files++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan tree %s: %w", root, err)
	}

	out := make([]Count, 0, len(counts))
	for name, rows := range counts {
		out = append(out, Count{Name: name, Rows: rows})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rows != out[j].Rows {
			return out[i].Rows > out[j].Rows
		}
		return out[i].Name < out[j].Name
	})

	log.Info().
		Int("artifacts", files).
		Int("vessel_names", len(out)).
		Msg("vessel name aggregation complete")
	return out, nil
}

// WriteCSV writes the counts to path as "VesselName,Count" sorted by count
// descending.
func WriteCSV(counts []Count, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"VesselName", "Count"}); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range counts {
		if err := w.Write([]string{c.Name, strconv.FormatInt(c.Rows, 10)}); err != nil {
			f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
