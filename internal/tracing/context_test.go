package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetMode(ctx))

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithMode(ctx, "architect")

	assert.Equal(t, "trace-1", GetTraceID(ctx))
	assert.Equal(t, "architect", GetMode(ctx))
}

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background())
	assert.NotEmpty(t, GetTraceID(ctx))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithMode(WithTraceID(context.Background(), "trace-xyz"), "code")
	l := LoggerFromContext(ctx, base)
	l.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"trace-xyz"`)
	assert.Contains(t, out, `"mode":"code"`)
}
