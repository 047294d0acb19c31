package llm

import (
	"context"
	"time"

	"github.com/KamdynS/go-swarm/observability"
)

// InstrumentedClient wraps a Client with an LLM span and token metrics per call.
type InstrumentedClient struct {
	inner Client
}

// NewInstrumentedClient wraps inner.
func NewInstrumentedClient(inner Client) *InstrumentedClient {
	return &InstrumentedClient{inner: inner}
}

func (c *InstrumentedClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	span, ctx := observability.TracerImpl.StartSpan(ctx, "llm.chat")
	defer span.End()
	span.SetAttribute(observability.AttrSpanKind, string(observability.SpanKindLLM))
	span.SetAttribute(observability.AttrProvider, string(c.inner.Provider()))
	if req.Model != "" {
		span.SetAttribute(observability.AttrModel, req.Model)
	}

	labels := map[string]string{observability.LabelComponent: "llm", observability.LabelName: string(c.inner.Provider())}
	observability.MetricsImpl.IncrementRequests(labels)
	start := time.Now()

	resp, err := c.inner.Chat(ctx, req)
	observability.MetricsImpl.RecordLatency(time.Since(start), labels)
	if err != nil {
		errType := string(ErrorTypeUnknown)
		if llmErr, ok := AsLLMError(err); ok {
			errType = string(llmErr.Type)
		}
		observability.MetricsImpl.RecordError(errType, labels)
		span.SetStatus(observability.StatusCodeError, err.Error())
		return nil, err
	}
	if resp == nil {
		span.SetStatus(observability.StatusCodeError, "no response")
		return nil, nil
	}

	span.SetAttribute(observability.AttrModel, resp.Model)
	span.SetAttribute(observability.AttrFinishReason, resp.FinishReason)
	if resp.Usage != nil {
		span.SetAttribute(observability.AttrTokensInput, resp.Usage.InputTokens)
		span.SetAttribute(observability.AttrTokensOutput, resp.Usage.OutputTokens)
		observability.MetricsImpl.IncrementTokensUsed(resp.Usage.InputTokens, map[string]string{
			observability.LabelModel: resp.Model, observability.LabelDirection: "input",
		})
		observability.MetricsImpl.IncrementTokensUsed(resp.Usage.OutputTokens, map[string]string{
			observability.LabelModel: resp.Model, observability.LabelDirection: "output",
		})
	}
	span.SetStatus(observability.StatusCodeOk, "")
	return resp, nil
}

func (c *InstrumentedClient) Model() string      { return c.inner.Model() }
func (c *InstrumentedClient) Provider() Provider { return c.inner.Provider() }
func (c *InstrumentedClient) Validate() error    { return c.inner.Validate() }
