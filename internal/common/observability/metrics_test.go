package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs := New("aivy-test", WithSpanProcessor(recorder), WithoutPrometheus())
	defer obs.Shutdown()

	ctx, span := obs.StartSpan(context.Background(), "chat.classify", attribute.String("intent", "decision_support"))
	_, child := obs.StartSpan(ctx, "chat.prioritize")
	child.End()
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "chat.prioritize", ended[0].Name())
	assert.Equal(t, "chat.classify", ended[1].Name())
	assert.Equal(t, ended[1].SpanContext().TraceID(), ended[0].SpanContext().TraceID())
	assert.Contains(t, ended[1].Attributes(), attribute.String("intent", "decision_support"))
}

func TestNilObservability_IsSafe(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		_, span := obs.StartSpan(context.Background(), "noop")
		span.End()
		obs.RecordJob(context.Background(), "aivy-parse-user-intent", time.Second)
		obs.RecordTurn(context.Background(), "problem_solving")
		obs.Shutdown()
	})
}
