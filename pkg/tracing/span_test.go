package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansShareTraceID(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "")
	require.NotEmpty(t, root.TraceID)

	_, child := StartChildSpan(ctx, "facets")
	child.SetAttr("fields", 2)
	child.End()
	root.End()

	assert.Equal(t, root.TraceID, child.TraceID)
	require.Len(t, root.Children, 1)
	assert.Equal(t, 2, root.Children[0].Attrs["fields"])
	assert.Same(t, root, SpanFromContext(ctx))
}

func TestOrphanChildGetsOwnTrace(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "snapshot")
	assert.NotEmpty(t, span.TraceID)
}

func TestLogWritesTreeAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "search", "trace-1")
	_, child := StartChildSpan(ctx, "spelling")
	child.End()
	root.End()
	root.Log(logger)

	out := buf.String()
	assert.Contains(t, out, "span=search")
	assert.Contains(t, out, "span=spelling")
	assert.Contains(t, out, "trace_id=trace-1")

	buf.Reset()
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)))
	assert.Empty(t, buf.String())
}
