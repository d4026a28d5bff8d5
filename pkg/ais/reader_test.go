package ais

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"
)

const testHeader = "MMSI,BaseDateTime,LAT,LON,SOG,COG,Heading,VesselName,IMO,CallSign,VesselType,Status,Length,Width,Draft,Cargo,TransceiverClass"

func testCSV(rows ...string) string {
	return testHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestParseTimestamp(t *testing.T) {
	t.Run("well-formed", func(t *testing.T) {
		ts, err := ParseTimestamp("2024-01-15T03:22:10")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2024, 1, 15, 3, 22, 10, 0, time.UTC)
		if !ts.Equal(want) {
			t.Errorf("got %v, want %v", ts, want)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseTimestamp("01/15/2024 03:22")
		if !errors.Is(err, ErrMalformedTimestamp) {
			t.Errorf("got %v, want ErrMalformedTimestamp", err)
		}
	})
}

func TestReader(t *testing.T) {
	t.Run("parses full row", func(t *testing.T) {
		input := testCSV(
			"367123456,2024-01-15T03:22:10,37.5,-122.3,12.5,180.0,175.0,EVER GIVEN,IMO1234567,WX1234,70,0,400.0,59.0,14.5,71,A",
		)
		r, err := NewReader(strings.NewReader(input), ReaderConfig{ChunkRows: 10})
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}

		batch, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if len(batch) != 1 {
			t.Fatalf("expected 1 record, got %d", len(batch))
		}

		rec := batch[0]
		if rec.MMSI != "367123456" {
			t.Errorf("MMSI = %q", rec.MMSI)
		}
		if rec.VesselName != "EVER GIVEN" {
			t.Errorf("VesselName = %q", rec.VesselName)
		}
		if rec.LAT != 37.5 || rec.LON != -122.3 {
			t.Errorf("position = (%v, %v)", rec.LAT, rec.LON)
		}
		if rec.VesselType == nil || *rec.VesselType != 70 {
			t.Errorf("VesselType = %v", rec.VesselType)
		}
		if rec.BaseDateTime.Hour() != 3 {
			t.Errorf("hour = %d", rec.BaseDateTime.Hour())
		}
	})

	t.Run("missing fields become NaN and null", func(t *testing.T) {
		input := testCSV("367123456,2024-01-15T03:22:10,,,,,,,,,,,,,,,")
		r, err := NewReader(strings.NewReader(input), ReaderConfig{ChunkRows: 10})
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}

		batch, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rec := batch[0]
		if !math.IsNaN(rec.LAT) {
			t.Errorf("LAT = %v, want NaN", rec.LAT)
		}
		if !math.IsNaN(float64(rec.SOG)) {
			t.Errorf("SOG = %v, want NaN", rec.SOG)
		}
		if rec.VesselType != nil {
			t.Errorf("VesselType = %v, want nil", *rec.VesselType)
		}
		if rec.VesselName != "" {
			t.Errorf("VesselName = %q, want empty", rec.VesselName)
		}
	})

	t.Run("chunking bounds batch size", func(t *testing.T) {
		rows := make([]string, 5)
		for i := range rows {
			rows[i] = "1,2024-01-15T03:00:00,1,1,1,1,1,A,B,C,1,1,1,1,1,D,E"
		}
		r, err := NewReader(strings.NewReader(testCSV(rows...)), ReaderConfig{ChunkRows: 2})
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}

		var sizes []int
		for {
			batch, err := r.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			sizes = append(sizes, len(batch))
		}

		want := []int{2, 2, 1}
		if len(sizes) != len(want) {
			t.Fatalf("got %d batches %v, want %v", len(sizes), sizes, want)
		}
		for i := range want {
			if sizes[i] != want[i] {
				t.Errorf("batch %d size = %d, want %d", i, sizes[i], want[i])
			}
		}
		if r.RowsRead() != 5 {
			t.Errorf("RowsRead = %d, want 5", r.RowsRead())
		}
	})

	t.Run("malformed timestamp aborts by default", func(t *testing.T) {
		input := testCSV(
			"1,2024-01-15T03:00:00,1,1,1,1,1,A,B,C,1,1,1,1,1,D,E",
			"2,not-a-timestamp,1,1,1,1,1,A,B,C,1,1,1,1,1,D,E",
		)
		r, err := NewReader(strings.NewReader(input), ReaderConfig{ChunkRows: 10})
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}

		_, err = r.Next()
		if !errors.Is(err, ErrMalformedTimestamp) {
			t.Errorf("got %v, want ErrMalformedTimestamp", err)
		}
	})

	t.Run("skip-malformed drops and counts", func(t *testing.T) {
		input := testCSV(
			"1,2024-01-15T03:00:00,1,1,1,1,1,A,B,C,1,1,1,1,1,D,E",
			"2,not-a-timestamp,1,1,1,1,1,A,B,C,1,1,1,1,1,D,E",
			"3,2024-01-15T04:00:00,1,1,1,1,1,A,B,C,1,1,1,1,1,D,E",
		)
		r, err := NewReader(strings.NewReader(input), ReaderConfig{ChunkRows: 10, SkipMalformed: true})
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}

		batch, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if len(batch) != 2 {
			t.Errorf("got %d records, want 2", len(batch))
		}
		if r.MalformedSkipped() != 1 {
			t.Errorf("MalformedSkipped = %d, want 1", r.MalformedSkipped())
		}
	})

	t.Run("reordered header columns", func(t *testing.T) {
		input := "BaseDateTime,MMSI,VesselName\n2024-01-15T03:00:00,999,SANTA MARIA\n"
		r, err := NewReader(strings.NewReader(input), ReaderConfig{ChunkRows: 10})
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}

		batch, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if batch[0].MMSI != "999" || batch[0].VesselName != "SANTA MARIA" {
			t.Errorf("record = %+v", batch[0])
		}
	})

	t.Run("missing BaseDateTime column", func(t *testing.T) {
		_, err := NewReader(strings.NewReader("MMSI,LAT\n1,2\n"), ReaderConfig{})
		if err == nil {
			t.Error("expected error for missing BaseDateTime column")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(""), ReaderConfig{})
		if err == nil {
			t.Error("expected error for empty input")
		}
	})
}
