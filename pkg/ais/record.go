// Package ais provides the AIS vessel-position record model and a chunked
// CSV reader for NOAA AIS data handler archives.
package ais

import (
	"errors"
	"time"
)

// TimestampLayout is the BaseDateTime format used by NOAA AIS CSV files.
const TimestampLayout = "2006-01-02T15:04:05"

// ErrMalformedTimestamp is returned when a row's BaseDateTime field cannot
// be parsed with TimestampLayout.
var ErrMalformedTimestamp = errors.New("malformed BaseDateTime")

// Record is a single AIS vessel position report. Field types follow the
// NOAA data dictionary: text fields use dictionary encoding in Parquet
// output since cardinality is low relative to row count, float fields are
// NaN when absent from the source row, and the short integer fields are
// null when absent.
type Record struct {
	MMSI             string    `parquet:"MMSI,dict"`
	BaseDateTime     time.Time `parquet:"BaseDateTime,timestamp"`
	LAT              float64   `parquet:"LAT"`
	LON              float64   `parquet:"LON"`
	SOG              float32   `parquet:"SOG"`
	COG              float32   `parquet:"COG"`
	Heading          float32   `parquet:"Heading"`
	VesselName       string    `parquet:"VesselName,dict"`
	IMO              string    `parquet:"IMO,dict"`
	CallSign         string    `parquet:"CallSign,dict"`
	VesselType       *int32    `parquet:"VesselType,optional"`
	Status           *int32    `parquet:"Status,optional"`
	Length           float32   `parquet:"Length"`
	Width            float32   `parquet:"Width"`
	Draft            float32   `parquet:"Draft"`
	Cargo            string    `parquet:"Cargo,dict"`
	TransceiverClass string    `parquet:"TransceiverClass,dict"`
}

// ApproxSize estimates the in-memory footprint of the record in bytes.
// Used for soft memory budgeting while partitions accumulate.
func (r *Record) ApproxSize() uint64 {
	const fixed = 160 // struct header, floats, time.Time, pointers
	n := uint64(fixed)
	n += uint64(len(r.MMSI) + len(r.VesselName) + len(r.IMO) + len(r.CallSign))
	n += uint64(len(r.Cargo) + len(r.TransceiverClass))
	return n
}

// ParseTimestamp parses a BaseDateTime field value.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, ErrMalformedTimestamp
	}
	return t, nil
}
