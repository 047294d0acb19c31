package otel

import (
	"context"
	"testing"

	"github.com/KamdynS/go-swarm/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tr, tp := install(sdktrace.WithSpanProcessor(rec), Config{ServiceName: "test", ProjectName: "swarm"})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tr, rec
}

func TestTracerMapsStatusAndAttributes(t *testing.T) {
	tr, rec := newRecordingTracer(t)

	span, _ := tr.StartSpan(context.Background(), "code_based_agent")
	span.SetAttribute(observability.AttrInputValue, "hi")
	span.SetAttribute("agent.turn", 3)
	span.SetStatus(observability.StatusCodeError, "failed")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "code_based_agent", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)

	attrs := map[string]string{}
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "hi", attrs[observability.AttrInputValue])
	assert.Equal(t, "3", attrs["agent.turn"])
}

func TestCarrierPropagationAcrossBoundary(t *testing.T) {
	tr, rec := newRecordingTracer(t)

	outer, ctx := tr.StartSpan(context.Background(), "openai_swarms_agent")
	carrier := observability.Carrier{}
	tr.Inject(ctx, carrier)
	require.NotEmpty(t, carrier.Get("traceparent"))

	inner, _ := tr.StartSpan(tr.Extract(context.Background(), carrier), "swarm_router_call")
	inner.End()
	outer.End()

	ended := rec.Ended()
	require.Len(t, ended, 2)
	in, out := ended[0], ended[1]
	assert.Equal(t, out.SpanContext().TraceID(), in.SpanContext().TraceID())
	assert.Equal(t, out.SpanContext().SpanID(), in.Parent().SpanID())
}
