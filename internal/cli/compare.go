package cli

import (
	"errors"
	"flag"
	"os"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/compare"
	"github.com/eunmann/zip2parquet/pkg/logging"
	"github.com/eunmann/zip2parquet/pkg/vessels"
)

// runCompare aligns two partitioned trees and prints a per-partition
// row-count comparison table.
func runCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", true, "human-friendly console log output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: zip2parquet compare [options] <dir1> <dir2>")
	}
	logging.Init(*debug, *human)

	report, err := compare.Compare(baseContext(), fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	report.Render(os.Stdout)
	return nil
}

// runVessels aggregates distinct vessel names across one partitioned tree
// and writes them to a CSV sorted by row count.
func runVessels(args []string) error {
	fs := flag.NewFlagSet("vessels", flag.ContinueOnError)
	outFile := fs.String("out", "vessel_names.csv", "output CSV path")
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", true, "human-friendly console log output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: zip2parquet vessels [options] <dir>")
	}
	logging.Init(*debug, *human)

	ctx := baseContext()
	counts, err := vessels.Aggregate(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := vessels.WriteCSV(counts, *outFile); err != nil {
		return err
	}
	log := logctx.FromContext(ctx)
	log.Info().
		Str("out", *outFile).
		Int("vessel_names", len(counts)).
		Msg("vessel names written")
	return nil
}
