package observability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// OpenInference semantic attribute keys.
const (
	AttrInputValue            = "input.value"
	AttrOutputValue           = "output.value"
	AttrSpanKind              = "openinference.span.kind"
	AttrPromptTemplate        = "llm.prompt_template.template"
	AttrPromptTemplateVersion = "llm.prompt_template.version"
)

// SpanKind is the OpenInference kind recorded on a span.
type SpanKind string

const (
	SpanKindAgent SpanKind = "AGENT"
	SpanKindChain SpanKind = "CHAIN"
	SpanKindTool  SpanKind = "TOOL"
	SpanKindLLM   SpanKind = "LLM"
)

// TraceOption customises a Trace call.
type TraceOption func(*traceOptions)

type traceOptions struct {
	carrier    Carrier
	attributes map[string]interface{}
}

// WithParent resumes the trace held in c before the span is started.
func WithParent(c Carrier) TraceOption {
	return func(o *traceOptions) { o.carrier = c }
}

// WithAttribute records an extra attribute when the span starts.
func WithAttribute(key string, value interface{}) TraceOption {
	return func(o *traceOptions) {
		if o.attributes == nil {
			o.attributes = map[string]interface{}{}
		}
		o.attributes[key] = value
	}
}

// WithPromptTemplate records the prompt template and its version.
func WithPromptTemplate(template, version string) TraceOption {
	return func(o *traceOptions) {
		WithAttribute(AttrPromptTemplate, template)(o)
		WithAttribute(AttrPromptTemplateVersion, version)(o)
	}
}

// Trace runs fn inside a span named name. The span records input, the
// returned output and kind, and ends with status OK, or Error when fn fails.
// Faults raised by the tracer itself are logged and never reach the caller.
func Trace(ctx context.Context, name string, kind SpanKind, input string, fn func(ctx context.Context) (string, error), opts ...TraceOption) (string, error) {
	var o traceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.carrier != nil {
		ctx = ExtractCarrier(ctx, o.carrier)
	}

	var span Span = &NoOpSpan{}
	spanCtx := ctx
	safely("start "+name, func() {
		s, c := TracerImpl.StartSpan(ctx, name)
		if s != nil && c != nil {
			span, spanCtx = s, c
		}
	})
	safely("annotate "+name, func() {
		span.SetAttribute(AttrSpanKind, string(kind))
		span.SetAttribute(AttrInputValue, input)
		for k, v := range o.attributes {
			span.SetAttribute(k, v)
		}
	})

	out, err := fn(spanCtx)

	safely("finish "+name, func() {
		span.SetAttribute(AttrOutputValue, out)
		if err != nil {
			span.SetStatus(StatusCodeError, err.Error())
		} else {
			span.SetStatus(StatusCodeOk, "")
		}
		span.End()
	})
	return out, err
}

func safely(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("op", op).Str("panic", fmt.Sprint(r)).Msg("tracing failure ignored")
		}
	}()
	fn()
}
