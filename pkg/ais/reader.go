package ais

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultChunkRows is the batch size used when ReaderConfig.ChunkRows is zero.
const DefaultChunkRows = 500_000

// ReaderConfig configures the chunked CSV reader.
type ReaderConfig struct {
	// ChunkRows is the maximum number of records per batch.
	ChunkRows int

	// SkipMalformed controls handling of rows whose BaseDateTime cannot be
	// parsed. When false (the default), the first malformed row aborts the
	// read. When true, malformed rows are dropped and counted.
	SkipMalformed bool
}

// Reader streams an AIS CSV as a sequence of bounded record batches.
// It never materializes the whole input; each call to Next reads at most
// ChunkRows rows from the underlying stream. The sequence is finite and
// non-restartable.
type Reader struct {
	csv  *csv.Reader
	cols columnIndex
	cfg  ReaderConfig

	rowsRead  int64
	malformed int64
	done      bool
}

// columnIndex maps schema fields to CSV column positions. A value of -1
// means the column is absent from this file.
type columnIndex struct {
	mmsi, baseDateTime, lat, lon, sog, cog, heading          int
	vesselName, imo, callSign, vesselType, status            int
	length, width, draft, cargo, transceiverClass            int
}

// NewReader creates a chunked reader over r. The header row is consumed
// immediately to resolve column positions; BaseDateTime is required.
func NewReader(r io.Reader, cfg ReaderConfig) (*Reader, error) {
	if cfg.ChunkRows <= 0 {
		cfg.ChunkRows = DefaultChunkRows
	}

	csvr := csv.NewReader(r)
	csvr.ReuseRecord = true
	csvr.FieldsPerRecord = -1
	csvr.LazyQuotes = true

	header, err := csvr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty CSV input: missing header row")
		}
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	return &Reader{csv: csvr, cols: cols, cfg: cfg}, nil
}

func resolveColumns(header []string) (columnIndex, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(name)] = i
	}

	lookup := func(name string) int {
		if i, ok := byName[name]; ok {
			return i
		}
		return -1
	}

	cols := columnIndex{
		mmsi:             lookup("MMSI"),
		baseDateTime:     lookup("BaseDateTime"),
		lat:              lookup("LAT"),
		lon:              lookup("LON"),
		sog:              lookup("SOG"),
		cog:              lookup("COG"),
		heading:          lookup("Heading"),
		vesselName:       lookup("VesselName"),
		imo:              lookup("IMO"),
		callSign:         lookup("CallSign"),
		vesselType:       lookup("VesselType"),
		status:           lookup("Status"),
		length:           lookup("Length"),
		width:            lookup("Width"),
		draft:            lookup("Draft"),
		cargo:            lookup("Cargo"),
		transceiverClass: lookup("TransceiverClass"),
	}

	if cols.baseDateTime < 0 {
		return columnIndex{}, errors.New("CSV header missing BaseDateTime column")
	}
	return cols, nil
}

// Next returns the next batch of at most ChunkRows records. It returns
// io.EOF once the input is exhausted. A non-EOF error from the underlying
// stream aborts the read with no partial-batch recovery.
func (r *Reader) Next() ([]Record, error) {
	if r.done {
		return nil, io.EOF
	}

	batch := make([]Record, 0, r.cfg.ChunkRows)
	for len(batch) < r.cfg.ChunkRows {
		fields, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.done = true
				if len(batch) == 0 {
					return nil, io.EOF
				}
				return batch, nil
			}
			return nil, fmt.Errorf("read CSV row: %w", err)
		}

		rec, err := r.parseRecord(fields)
		if err != nil {
			if errors.Is(err, ErrMalformedTimestamp) && r.cfg.SkipMalformed {
				r.malformed++
				continue
			}
			return nil, fmt.Errorf("row %d: %w", r.rowsRead+r.malformed+1, err)
		}

		batch = append(batch, rec)
		r.rowsRead++
	}
	return batch, nil
}

// RowsRead returns the number of well-formed records returned so far.
func (r *Reader) RowsRead() int64 { return r.rowsRead }

// MalformedSkipped returns the number of rows dropped for unparseable
// timestamps. Always zero unless SkipMalformed is enabled.
func (r *Reader) MalformedSkipped() int64 { return r.malformed }

func (r *Reader) parseRecord(fields []string) (Record, error) {
	ts, err := ParseTimestamp(field(fields, r.cols.baseDateTime))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, field(fields, r.cols.baseDateTime))
	}

	return Record{
		MMSI:             field(fields, r.cols.mmsi),
		BaseDateTime:     ts,
		LAT:              parseFloat64(field(fields, r.cols.lat)),
		LON:              parseFloat64(field(fields, r.cols.lon)),
		SOG:              parseFloat32(field(fields, r.cols.sog)),
		COG:              parseFloat32(field(fields, r.cols.cog)),
		Heading:          parseFloat32(field(fields, r.cols.heading)),
		VesselName:       field(fields, r.cols.vesselName),
		IMO:              field(fields, r.cols.imo),
		CallSign:         field(fields, r.cols.callSign),
		VesselType:       parseInt32(field(fields, r.cols.vesselType)),
		Status:           parseInt32(field(fields, r.cols.status)),
		Length:           parseFloat32(field(fields, r.cols.length)),
		Width:            parseFloat32(field(fields, r.cols.width)),
		Draft:            parseFloat32(field(fields, r.cols.draft)),
		Cargo:            field(fields, r.cols.cargo),
		TransceiverClass: field(fields, r.cols.transceiverClass),
	}, nil
}

// field returns the column value or "" when the column is absent from the
// file or the row is short. CSV strings must be copied out because the
// reader reuses its record slice across rows.
func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.Clone(fields[idx])
}

// parseFloat64 returns NaN for empty or unparseable values, mirroring how
// the source data represents missing numeric fields.
func parseFloat64(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseFloat32(s string) float32 {
	return float32(parseFloat64(s))
}

// parseInt32 returns nil for empty or unparseable values; the field is
// written as null in the Parquet output.
func parseInt32(s string) *int32 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil
	}
	i := int32(v)
	return &i
}
