package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	Install(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec
}

func TestStartSpan_ParentChild(t *testing.T) {
	rec := installRecorder(t)

	ctx, root := StartSpan(context.Background(), "test", "reservation.Reserve")
	_, child := StartSpan(ctx, "test", "book.LockByID")
	child.End()
	root.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "book.LockByID", spans[0].Name())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestExtractIDs(t *testing.T) {
	installRecorder(t)

	assert.Empty(t, ExtractTraceID(context.Background()))
	assert.Empty(t, ExtractSpanID(context.Background()))

	ctx, span := StartSpan(context.Background(), "test", "op")
	defer span.End()
	assert.Len(t, ExtractTraceID(ctx), 32)
	assert.Len(t, ExtractSpanID(ctx), 16)
}

func TestRecordError(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartSpan(context.Background(), "test", "op")
	RecordError(span, nil)
	RecordError(span, errors.New("disk full"))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "disk full", spans[0].Status().Description)
	assert.Len(t, spans[0].Events(), 1)
}
