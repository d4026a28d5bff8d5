// Package partition derives calendar-hour partition keys from AIS records
// and accumulates records into per-key buffers for the merge-writer stage.
package partition

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Key identifies one calendar-hour bucket and exactly one output artifact.
type Key struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// KeyFromTime derives the partition key for a timestamp. The mapping is
// total: every valid time belongs to exactly one key.
func KeyFromTime(t time.Time) Key {
	return Key{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Hour: t.Hour()}
}

// Less orders keys by calendar time.
func (k Key) Less(o Key) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Month != o.Month {
		return k.Month < o.Month
	}
	if k.Day != o.Day {
		return k.Day < o.Day
	}
	return k.Hour < o.Hour
}

// String formats the key for logs: "2024-01-15 hour 03".
func (k Key) String() string {
	return fmt.Sprintf("%04d-%02d-%02d hour %02d", k.Year, k.Month, k.Day, k.Hour)
}

// Dir returns the Hive-style partition directory relative to the output root.
func (k Key) Dir() string {
	return filepath.Join(
		fmt.Sprintf("year=%04d", k.Year),
		fmt.Sprintf("month=%02d", k.Month),
		fmt.Sprintf("day=%02d", k.Day),
		fmt.Sprintf("hour=%02d", k.Hour),
	)
}

// FileName returns the artifact file name for the given prefix, e.g.
// "AIS_2024_01_15_processed_hour03.parquet".
func (k Key) FileName(prefix string) string {
	return fmt.Sprintf("%s_%04d_%02d_%02d_processed_hour%02d.parquet",
		prefix, k.Year, k.Month, k.Day, k.Hour)
}

// Path returns the deterministic artifact path under root.
func (k Key) Path(root, prefix string) string {
	return filepath.Join(root, k.Dir(), k.FileName(prefix))
}

var partitionDirPattern = regexp.MustCompile(
	`year=(\d{4})[/\\]month=(\d{2})[/\\]day=(\d{2})[/\\]hour=(\d{2})`)

// KeyFromPath recovers the partition key from an artifact path. Returns
// false when the path does not contain the partition directory layout.
func KeyFromPath(path string) (Key, bool) {
	m := partitionDirPattern.FindStringSubmatch(path)
	if m == nil {
		return Key{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	return Key{Year: year, Month: month, Day: day, Hour: hour}, true
}

// SortKeys sorts keys in calendar order in place.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
