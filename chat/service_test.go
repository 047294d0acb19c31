package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/KamdynS/go-swarm/memory/inmemory"
	obs "github.com/KamdynS/go-swarm/observability"
	"github.com/KamdynS/go-swarm/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRouter struct {
	reqs  []router.Request
	reply string
	err   error
}

func (r *recordingRouter) Route(ctx context.Context, req router.Request) (string, error) {
	r.reqs = append(r.reqs, req)
	return r.reply, r.err
}

func TestRespondStoresHistory(t *testing.T) {
	rt := &recordingRouter{reply: "42"}
	svc := NewService(rt, inmemory.NewConversationStore(0), SpanCodeBased)
	ctx := context.Background()
	id := NewSessionID()

	out, err := svc.Respond(ctx, id, "first")
	require.NoError(t, err)
	assert.Equal(t, "42", out)
	_, err = svc.Respond(ctx, id, "second")
	require.NoError(t, err)

	require.Len(t, rt.reqs, 2)
	assert.Empty(t, rt.reqs[0].History)
	require.Len(t, rt.reqs[1].History, 2)
	assert.Equal(t, "first", rt.reqs[1].History[0].Content)
	assert.Equal(t, "assistant", rt.reqs[1].History[1].Role)

	hist, err := svc.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, hist, 4)

	require.NoError(t, svc.Reset(ctx, id))
	hist, err = svc.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestRespondHistoryLimit(t *testing.T) {
	rt := &recordingRouter{reply: "ok"}
	svc := NewService(rt, inmemory.NewConversationStore(0), SpanSwarm, WithHistoryLimit(2))
	ctx := context.Background()
	for _, m := range []string{"a", "b", "c"} {
		_, err := svc.Respond(ctx, "s", m)
		require.NoError(t, err)
	}
	require.Len(t, rt.reqs[2].History, 2)
	assert.Equal(t, "b", rt.reqs[2].History[0].Content)
}

func TestRespondTracesAgentSpan(t *testing.T) {
	tracer := obs.NewDefaultTracer()
	prev := obs.TracerImpl
	obs.SetTracer(tracer)
	t.Cleanup(func() { obs.SetTracer(prev) })

	rt := &recordingRouter{reply: "Total sales were 1,234 units."}
	svc := NewService(rt, inmemory.NewConversationStore(0), SpanSwarm)
	_, err := svc.Respond(context.Background(), "s1", "How many units did we sell?")
	require.NoError(t, err)

	span, ok := tracer.Find(SpanSwarm)
	require.True(t, ok)
	assert.Equal(t, "AGENT", span.Attributes[obs.AttrSpanKind])
	assert.Equal(t, "How many units did we sell?", span.Attributes[obs.AttrInputValue])
	assert.Equal(t, "Total sales were 1,234 units.", span.Attributes[obs.AttrOutputValue])
	assert.Equal(t, "s1", span.Attributes[AttrSessionID])
	assert.Equal(t, obs.StatusCodeOk, span.Status)

	require.Len(t, rt.reqs, 1)
	assert.Contains(t, rt.reqs[0].Carrier.Get("traceparent"), span.SpanID)
}

func TestRespondErrors(t *testing.T) {
	store := inmemory.NewConversationStore(0)
	svc := NewService(&recordingRouter{err: errors.New("down")}, store, SpanCodeBased)

	_, err := svc.Respond(context.Background(), "s", "  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.Respond(context.Background(), "s", "hello")
	assert.EqualError(t, err, "down")
	msgs, _ := store.GetMessages(context.Background(), "s")
	assert.Empty(t, msgs, "failed exchanges are not stored")
}
