// Command zip2parquet converts NOAA AIS archive ZIPs into hour-partitioned
// Parquet files, merging into existing partitions and optionally uploading
// the artifacts to S3-compatible storage with verified local deletion.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/zip2parquet/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
