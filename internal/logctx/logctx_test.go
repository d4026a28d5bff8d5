package logctx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFromContext_Fallbacks(t *testing.T) {
	// nil and empty contexts both yield a usable logger.
	log := FromContext(nil)
	log.Info().Msg("no panic on nil context")

	log = FromContext(context.Background())
	log.Info().Msg("no panic on empty context")
}

func TestWithLogger_Roundtrip(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), logger)
	log := FromContext(ctx)
	log.Info().Msg("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("log output missing message: %q", buf.String())
	}
}

func TestWithStr(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = WithStr(ctx, "partition", "2024-01-01 hour 00")

	log := FromContext(ctx)
	log.Info().Msg("merge started")

	out := buf.String()
	if !strings.Contains(out, `"partition":"2024-01-01 hour 00"`) {
		t.Errorf("field not propagated: %q", out)
	}
}

func TestWithInt(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = WithInt(ctx, "worker", 3)

	log := FromContext(ctx)
	log.Info().Msg("task picked up")

	if !strings.Contains(buf.String(), `"worker":3`) {
		t.Errorf("field not propagated: %q", buf.String())
	}
}
