package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/ais"
	"github.com/eunmann/zip2parquet/pkg/fetch"
	"github.com/eunmann/zip2parquet/pkg/fileutil"
	"github.com/eunmann/zip2parquet/pkg/pipeline"
)

// runFetch discovers archive ZIPs on the index page and processes each one
// end to end: download, extract, ingest, clean up staging files. A failure
// in one archive is logged and does not stop the remaining archives.
func runFetch(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	baseURL := fs.String("base-url", "", "HTTP index page listing the archive ZIPs")
	staging := fs.String("staging", "tmp", "staging directory for downloads and extracted CSVs")
	pf := addPipelineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *baseURL == "" {
		return errors.New("--base-url is required")
	}

	ctx := baseContext()
	cfg, err := pf.buildConfig(ctx)
	if err != nil {
		return err
	}
	if err := fileutil.EnsureDir(*staging); err != nil {
		return err
	}

	client := fetch.NewClient(*staging)
	urls, err := client.ListArchiveURLs(ctx, *baseURL)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no ZIP archives found at %s", *baseURL)
	}

	log := logctx.FromContext(ctx)
	chunkRows := pf.chunkRows(cfg.Budget)
	failed := 0

	for i, url := range urls {
		actx := logctx.WithStr(ctx, "archive", url)
		alog := logctx.FromContext(actx)
		alog.Info().
			Int("index", i+1).
			Int("total", len(urls)).
			Msg("processing archive")

		if err := processArchive(actx, client, url, chunkRows, *pf.skipMalformed, cfg); err != nil {
			alog.Error().Err(err).Msg("archive processing failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d archives failed", failed, len(urls))
	}
	log.Info().Int("archives", len(urls)).Msg("all archives processed")
	return nil
}

func processArchive(ctx context.Context, client *fetch.Client, url string, chunkRows int, skipMalformed bool, cfg pipeline.Config) error {
	zipPath, err := client.Download(ctx, url)
	if err != nil {
		return err
	}
	defer fileutil.RemoveQuiet(zipPath)

	csvPath, err := client.ExtractCSV(ctx, zipPath)
	if err != nil {
		return err
	}
	defer fileutil.RemoveQuiet(csvPath)

	f, err := openInput(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	src, err := ais.NewReader(f, ais.ReaderConfig{
		ChunkRows:     chunkRows,
		SkipMalformed: skipMalformed,
	})
	if err != nil {
		return err
	}

	summary, err := pipeline.Run(ctx, src, cfg)
	if err != nil {
		return err
	}
	return exitSummary(summary)
}
