package cli

import (
	"errors"
	"flag"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/ais"
	"github.com/eunmann/zip2parquet/pkg/pipeline"
)

// runProcess converts one or more local AIS CSV files into the partitioned
// output tree.
func runProcess(args []string) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	pf := addPipelineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	csvPaths := fs.Args()
	if len(csvPaths) == 0 {
		return errors.New("usage: zip2parquet process [options] <csv-file>...")
	}

	ctx := baseContext()
	cfg, err := pf.buildConfig(ctx)
	if err != nil {
		return err
	}
	chunkRows := pf.chunkRows(cfg.Budget)

	for _, path := range csvPaths {
		fctx := logctx.WithStr(ctx, "csv", path)

		f, err := openInput(path)
		if err != nil {
			return err
		}

		src, err := ais.NewReader(f, ais.ReaderConfig{
			ChunkRows:     chunkRows,
			SkipMalformed: *pf.skipMalformed,
		})
		if err != nil {
			f.Close()
			return err
		}

		summary, err := pipeline.Run(fctx, src, cfg)
		f.Close()
		if err != nil {
			return err
		}
		if err := exitSummary(summary); err != nil {
			return err
		}
	}
	return nil
}
