// Package cli implements the command-line interface for zip2parquet.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/logging"
	"github.com/eunmann/zip2parquet/pkg/membudget"
	"github.com/eunmann/zip2parquet/pkg/pipeline"
	"github.com/eunmann/zip2parquet/pkg/s3store"
)

const usage = "usage: zip2parquet <command> [options]\n" +
	"commands: run, process, compare, vessels"

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "run":
		return runFetch(args[1:])
	case "process":
		return runProcess(args[1:])
	case "compare":
		return runCompare(args[1:])
	case "vessels":
		return runVessels(args[1:])
	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
}

// pipelineFlags holds the flags shared by the run and process commands.
type pipelineFlags struct {
	outDir        *string
	prefix        *string
	chunkSize     *int
	workers       *int
	skipMalformed *bool
	upload        *bool
	debug         *bool
	human         *bool
}

func addPipelineFlags(fs *flag.FlagSet) *pipelineFlags {
	return &pipelineFlags{
		outDir:        fs.String("out", ".", "output root for the partitioned tree"),
		prefix:        fs.String("prefix", "AIS", "artifact file name prefix"),
		chunkSize:     fs.Int("chunk-size", 0, "max rows per input batch (0 = derive from system RAM)"),
		workers:       fs.Int("workers", pipeline.DefaultWorkers, "partition task pool size"),
		skipMalformed: fs.Bool("skip-malformed", false, "skip rows with unparseable timestamps instead of aborting"),
		upload:        fs.Bool("upload", false, "upload artifacts to S3 and delete local copies after verification"),
		debug:         fs.Bool("debug", false, "enable debug logging"),
		human:         fs.Bool("human", false, "human-friendly console log output"),
	}
}

// buildConfig turns the shared flags into a pipeline config, creating the
// upload client from the environment when --upload is set.
func (pf *pipelineFlags) buildConfig(ctx context.Context) (pipeline.Config, error) {
	logging.Init(*pf.debug, *pf.human)

	budget := membudget.FromSystem(membudget.DefaultFraction)
	cfg := pipeline.Config{
		OutputRoot: *pf.outDir,
		FilePrefix: *pf.prefix,
		Workers:    *pf.workers,
		Budget:     budget,
	}

	if *pf.upload {
		storeCfg := s3store.FromEnv()
		if !storeCfg.Configured() {
			return cfg, errors.New("--upload requires S3_BUCKET_NAME, S3_ACCESS_KEY and S3_SECRET_KEY in the environment")
		}
		store, err := s3store.NewClient(ctx, storeCfg)
		if err != nil {
			return cfg, err
		}
		cfg.Store = store
		logging.L().Info().Str("bucket", store.Bucket()).Msg("verified upload enabled")
	}

	return cfg, nil
}

// chunkRows resolves the batch size, deriving one from the memory budget
// when the flag was left at zero.
func (pf *pipelineFlags) chunkRows(budget *membudget.Budget) int {
	if *pf.chunkSize > 0 {
		return *pf.chunkSize
	}
	return deriveChunkRows(budget)
}

// deriveChunkRows sizes batches so one batch consumes roughly a tenth of
// the memory budget at ~250 bytes per buffered record, clamped to a sane
// range.
func deriveChunkRows(budget *membudget.Budget) int {
	const (
		bytesPerRow = 250
		minRows     = 100_000
		maxRows     = 2_000_000
	)
	rows := int(budget.Total() / 10 / bytesPerRow)
	if rows < minRows {
		return minRows
	}
	if rows > maxRows {
		return maxRows
	}
	return rows
}

// baseContext returns a root context carrying the configured logger.
func baseContext() context.Context {
	return logctx.WithLogger(context.Background(), *logging.L())
}

func exitSummary(s *pipeline.Summary) error {
	if s != nil && s.Failed > 0 {
		return fmt.Errorf("%d partitions failed; rerun to retry them", s.Failed)
	}
	return nil
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	return f, nil
}
