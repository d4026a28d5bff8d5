package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eunmann/zip2parquet/pkg/ais"
	"github.com/eunmann/zip2parquet/pkg/fileutil"
	"github.com/eunmann/zip2parquet/pkg/partition"
)

var testKey = partition.Key{Year: 2024, Month: 1, Day: 1, Hour: 0}

func rec(mmsi string) ais.Record {
	return ais.Record{
		MMSI:         mmsi,
		BaseDateTime: time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC),
		VesselName:   "TEST VESSEL",
	}
}

func TestMerge(t *testing.T) {
	t.Run("fresh partition", func(t *testing.T) {
		root := t.TempDir()
		w := NewWriter(root, "AIS")

		res, err := w.Merge(context.Background(), testKey, []ais.Record{rec("1"), rec("2"), rec("3")})
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if res.Existing != 0 || res.Appended != 3 || res.Total != 3 {
			t.Errorf("result = %+v", res)
		}
		if !fileutil.Exists(res.Path) {
			t.Fatalf("artifact missing at %s", res.Path)
		}

		n, err := RowCount(res.Path)
		if err != nil {
			t.Fatalf("RowCount: %v", err)
		}
		if n != 3 {
			t.Errorf("RowCount = %d, want 3", n)
		}
	})

	t.Run("merge appends to existing artifact", func(t *testing.T) {
		root := t.TempDir()
		w := NewWriter(root, "AIS")
		ctx := context.Background()

		if _, err := w.Merge(ctx, testKey, []ais.Record{rec("1"), rec("2")}); err != nil {
			t.Fatalf("first Merge: %v", err)
		}
		res, err := w.Merge(ctx, testKey, []ais.Record{rec("3")})
		if err != nil {
			t.Fatalf("second Merge: %v", err)
		}
		if res.Existing != 2 || res.Appended != 1 || res.Total != 3 {
			t.Errorf("result = %+v", res)
		}

		rows, err := ReadRows(res.Path)
		if err != nil {
			t.Fatalf("ReadRows: %v", err)
		}
		want := []string{"1", "2", "3"}
		if len(rows) != len(want) {
			t.Fatalf("got %d rows, want %d", len(rows), len(want))
		}
		for i, m := range want {
			if rows[i].MMSI != m {
				t.Errorf("row %d MMSI = %q, want %q (existing rows must precede new rows)", i, rows[i].MMSI, m)
			}
		}
	})

	t.Run("corrupt existing artifact is overwritten", func(t *testing.T) {
		root := t.TempDir()
		w := NewWriter(root, "AIS")
		path := w.Path(testKey)

		if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("not a parquet file"), 0o644); err != nil {
			t.Fatal(err)
		}

		res, err := w.Merge(context.Background(), testKey, []ais.Record{rec("1")})
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if res.Existing != 0 || res.Total != 1 {
			t.Errorf("result = %+v", res)
		}

		n, err := RowCount(path)
		if err != nil {
			t.Fatalf("RowCount after overwrite: %v", err)
		}
		if n != 1 {
			t.Errorf("RowCount = %d, want 1", n)
		}
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		root := t.TempDir()
		w := NewWriter(root, "AIS")

		res, err := w.Merge(context.Background(), testKey, []ais.Record{rec("1")})
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}

		entries, err := os.ReadDir(filepath.Dir(res.Path))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("expected only the artifact in the partition dir, found %d entries", len(entries))
		}
	})
}

func TestReadRows_MissingFile(t *testing.T) {
	rows, err := ReadRows(filepath.Join(t.TempDir(), "absent.parquet"))
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if rows != nil {
		t.Errorf("got %d rows, want nil", len(rows))
	}
}
