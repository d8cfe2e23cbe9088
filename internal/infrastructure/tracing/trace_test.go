package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSpanPropagation(t *testing.T) {
	tracer := New("bridge", zap.NewNop())
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "flush")
	child, _ := tracer.StartSpan(ctx, "deliver")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
}

func TestWithTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "req_remote")
	span, _ := (*Tracer)(nil).StartSpan(ctx, "call")

	assert.Equal(t, TraceID("req_remote"), span.TraceID)
	assert.Equal(t, context.Background(), WithTraceID(context.Background(), ""))
}

func TestInjectExtract(t *testing.T) {
	_, ctx := (*Tracer)(nil).StartSpan(context.Background(), "op")

	headers := map[string]string{}
	InjectTraceContext(ctx, headers)
	traceID, spanID := ExtractTraceContext(headers)

	assert.Equal(t, GetTraceID(ctx), traceID)
	assert.Equal(t, GetSpanID(ctx), spanID)
}

func TestEndLogsErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := New("bridge", zap.New(core))

	span, _ := tracer.StartSpan(context.Background(), "flush")
	tracer.End(span, errors.New("host unreachable"))
	tracer.Close()

	entries := logs.FilterMessage("span completed with error").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "flush", entries[0].ContextMap()["operation"])
	}
	assert.Equal(t, 500, span.StatusCode)
}

func TestSubmitAfterClose(t *testing.T) {
	tracer := New("bridge", zap.NewNop())
	tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "late")
	assert.NotPanics(t, func() { tracer.End(span, nil) })
}
