package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_DoesNotPanic(t *testing.T) {
	Init(false, false)
	L().Info().Msg("json info")

	Init(true, false)
	L().Debug().Msg("json debug")

	Init(false, true)
	L().Info().Msg("console info")
}

func TestWithPhase(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	log := WithPhase("merge_write")
	log.Info().Msg("artifact written")

	if !strings.Contains(buf.String(), `"phase":"merge_write"`) {
		t.Errorf("phase field missing: %q", buf.String())
	}
}

func TestTaskTracker(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	tr := NewTaskTracker("partition_tasks", 3, 1)
	tr.Done(true)
	tr.Done(false)
	tr.Done(true)

	succeeded, failed := tr.Counts()
	if succeeded != 2 || failed != 1 {
		t.Errorf("counts = %d/%d, want 2/1", succeeded, failed)
	}
	if !strings.Contains(buf.String(), "partition tasks progress") {
		t.Errorf("progress line missing: %q", buf.String())
	}
}
