package pipeline

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/eunmann/zip2parquet/internal/logctx"
	"github.com/eunmann/zip2parquet/pkg/ais"
	"github.com/eunmann/zip2parquet/pkg/artifact"
	"github.com/eunmann/zip2parquet/pkg/logging"
	"github.com/eunmann/zip2parquet/pkg/partition"
)

// TaskResult is the terminal state of one partition task.
type TaskResult struct {
	Key      partition.Key
	Existing int64
	Appended int64
	Uploaded bool
	Err      error
}

// runTasks dispatches one task per accumulated key onto a fixed-size
// worker pool. Tasks touch distinct artifact paths, so they run fully in
// parallel with no cross-task locking; a failure in one task is recorded
// and never cancels siblings.
func runTasks(ctx context.Context, buffers map[partition.Key][]ais.Record, cfg Config) []TaskResult {
	keys := make([]partition.Key, 0, len(buffers))
	for key := range buffers {
		keys = append(keys, key)
	}
	partition.SortKeys(keys)

	writer := artifact.NewWriter(cfg.OutputRoot, cfg.FilePrefix)
	tracker := logging.NewTaskTracker("partition_tasks", int64(len(keys)), 10)

	tasks := make(chan partition.Key)
	results := make(chan TaskResult, len(keys))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			wctx := logctx.WithInt(ctx, "worker", worker)
			for key := range tasks {
				res := runTask(wctx, writer, buffers[key], key, cfg)
				tracker.Done(res.Err == nil)
				results <- res
			}
		}(i)
	}

	for _, key := range keys {
		tasks <- key
	}
	close(tasks)
	wg.Wait()
	close(results)

	out := make([]TaskResult, 0, len(keys))
	for res := range results {
		out = append(out, res)
	}
	return out
}

// runTask merge-writes one partition and, when uploads are enabled, pushes
// the artifact to remote storage with verified local deletion.
func runTask(ctx context.Context, writer *artifact.Writer, rows []ais.Record, key partition.Key, cfg Config) TaskResult {
	ctx = logctx.WithStr(ctx, "partition", key.String())
	log := logctx.FromContext(ctx)

	res, err := writer.Merge(ctx, key, rows)
	if err != nil {
		log.Error().Err(err).Msg("merge-write failed")
		return TaskResult{Key: key, Err: err}
	}

	out := TaskResult{Key: key, Existing: res.Existing, Appended: res.Appended}
	if cfg.Store == nil {
		return out
	}

	// Remote key is the artifact path relative to the output root.
	remoteKey := filepath.ToSlash(filepath.Join(key.Dir(), key.FileName(cfg.FilePrefix)))
	if err := cfg.Store.StoreVerified(ctx, res.Path, remoteKey); err != nil {
		log.Error().Err(err).Str("key", remoteKey).Msg("upload failed, local artifact retained")
		out.Err = err
		return out
	}
	out.Uploaded = true
	return out
}
