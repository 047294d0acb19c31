package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Tracer defines the interface for distributed tracing
type Tracer interface {
	// StartSpan creates a new span with the given name. The span is a child
	// of the span in ctx, or of a remote parent restored by Extract.
	StartSpan(ctx context.Context, name string) (Span, context.Context)

	// SpanFromContext extracts the span from context
	SpanFromContext(ctx context.Context) Span

	// Inject writes the trace context of ctx into carrier.
	Inject(ctx context.Context, carrier Carrier)

	// Extract restores a trace context previously written by Inject.
	Extract(ctx context.Context, carrier Carrier) context.Context
}

// Span represents a tracing span
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(code StatusCode, message string)
	AddEvent(name string, attributes map[string]interface{})
	End()
	Context() context.Context
}

// Carrier is a plain key/value map that carries trace context across a call
// boundary (W3C traceparent/tracestate keys).
type Carrier map[string]string

// Get, Set and Keys let a Carrier serve as an OpenTelemetry TextMapCarrier.
func (c Carrier) Get(key string) string { return c[strings.ToLower(key)] }
func (c Carrier) Set(key, value string) { c[strings.ToLower(key)] = value }
func (c Carrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// StatusCode represents span status codes
type StatusCode int

const (
	StatusCodeUnset StatusCode = iota
	StatusCodeOk
	StatusCodeError
)

// Common attribute keys
const (
	AttrProvider     = "genai.provider"
	AttrModel        = "genai.model"
	AttrFinishReason = "genai.finish_reason"
	AttrToolName     = "genai.tool.name"
	AttrTokensInput  = "genai.tokens.input"
	AttrTokensOutput = "genai.tokens.output"
	AttrAgentName    = "agent.name"
	AttrTurn         = "agent.turn"
	AttrRunID        = "agent.run_id"
)

// Global, swappable implementations (no-ops by default)
var (
	TracerImpl  Tracer  = &NoOpTracer{}
	MetricsImpl Metrics = &NoOpMetrics{}
)

// SetTracer swaps the global tracer implementation
func SetTracer(t Tracer) { TracerImpl = t }

// SetMetrics swaps the global metrics implementation
func SetMetrics(m Metrics) { MetricsImpl = m }

// InjectCarrier serialises the trace context of ctx with the global tracer.
func InjectCarrier(ctx context.Context) Carrier {
	c := Carrier{}
	safely("inject", func() { TracerImpl.Inject(ctx, c) })
	return c
}

// ExtractCarrier resumes the trace context held in c with the global tracer.
// A nil or malformed carrier leaves ctx untouched.
func ExtractCarrier(ctx context.Context, c Carrier) context.Context {
	if len(c) == 0 {
		return ctx
	}
	out := ctx
	safely("extract", func() { out = TracerImpl.Extract(ctx, c) })
	return out
}

// NoOpTracer is a no-operation implementation of Tracer
type NoOpTracer struct{}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	return &NoOpSpan{}, ctx
}
func (t *NoOpTracer) SpanFromContext(ctx context.Context) Span               { return &NoOpSpan{} }
func (t *NoOpTracer) Inject(ctx context.Context, carrier Carrier)            {}
func (t *NoOpTracer) Extract(ctx context.Context, _ Carrier) context.Context { return ctx }

// NoOpSpan is a no-operation implementation of Span
type NoOpSpan struct{}

func (s *NoOpSpan) SetAttribute(key string, value interface{})              {}
func (s *NoOpSpan) SetStatus(code StatusCode, message string)               {}
func (s *NoOpSpan) AddEvent(name string, attributes map[string]interface{}) {}
func (s *NoOpSpan) End()                                                    {}
func (s *NoOpSpan) Context() context.Context                                { return context.Background() }

// DefaultTracer records finished spans in memory. It is used in development
// and by tests that assert on span names, attributes and parentage.
type DefaultTracer struct {
	mu    sync.Mutex
	spans []SpanData
}

// SpanData holds information about a completed span
type SpanData struct {
	Name       string                 `json:"name"`
	TraceID    string                 `json:"trace_id"`
	SpanID     string                 `json:"span_id"`
	ParentID   string                 `json:"parent_id,omitempty"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    time.Time              `json:"end_time"`
	Duration   time.Duration          `json:"duration"`
	Status     StatusCode             `json:"status"`
	Message    string                 `json:"message"`
	Attributes map[string]interface{} `json:"attributes"`
	Events     []Event                `json:"events"`
}

// Event represents a span event
type Event struct {
	Name       string                 `json:"name"`
	Time       time.Time              `json:"time"`
	Attributes map[string]interface{} `json:"attributes"`
}

type spanKey struct{}
type remoteKey struct{}

type spanContext struct {
	traceID string
	spanID  string
}

// NewDefaultTracer creates a new DefaultTracer instance
func NewDefaultTracer() *DefaultTracer { return &DefaultTracer{} }

func (t *DefaultTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	span := &DefaultSpan{
		tracer:     t,
		name:       name,
		spanID:     randomHex(8),
		startTime:  time.Now(),
		attributes: make(map[string]interface{}),
	}
	switch {
	case spanFrom(ctx) != nil:
		parent := spanFrom(ctx)
		span.traceID, span.parentID = parent.traceID, parent.spanID
	case ctx.Value(remoteKey{}) != nil:
		remote := ctx.Value(remoteKey{}).(spanContext)
		span.traceID, span.parentID = remote.traceID, remote.spanID
	default:
		span.traceID = randomHex(16)
	}
	return span, context.WithValue(ctx, spanKey{}, span)
}

func (t *DefaultTracer) SpanFromContext(ctx context.Context) Span {
	if s := spanFrom(ctx); s != nil {
		return s
	}
	return &NoOpSpan{}
}

// Inject writes a W3C traceparent for the span in ctx.
func (t *DefaultTracer) Inject(ctx context.Context, carrier Carrier) {
	if s := spanFrom(ctx); s != nil {
		carrier.Set("traceparent", fmt.Sprintf("00-%s-%s-01", s.traceID, s.spanID))
	}
}

// Extract parses a W3C traceparent into a remote parent for the next span.
func (t *DefaultTracer) Extract(ctx context.Context, carrier Carrier) context.Context {
	parts := strings.Split(carrier.Get("traceparent"), "-")
	if len(parts) != 4 || len(parts[1]) != 32 || len(parts[2]) != 16 {
		return ctx
	}
	// The extracted parent replaces any local span as the parent of the next span.
	ctx = context.WithValue(ctx, spanKey{}, (*DefaultSpan)(nil))
	return context.WithValue(ctx, remoteKey{}, spanContext{traceID: parts[1], spanID: parts[2]})
}

// Spans returns a copy of all recorded spans in completion order.
func (t *DefaultTracer) Spans() []SpanData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanData(nil), t.spans...)
}

// Find returns the first recorded span with the given name.
func (t *DefaultTracer) Find(name string) (SpanData, bool) {
	for _, s := range t.Spans() {
		if s.Name == name {
			return s, true
		}
	}
	return SpanData{}, false
}

// Reset drops all recorded spans.
func (t *DefaultTracer) Reset() {
	t.mu.Lock()
	t.spans = nil
	t.mu.Unlock()
}

func (t *DefaultTracer) record(d SpanData) {
	t.mu.Lock()
	t.spans = append(t.spans, d)
	t.mu.Unlock()
}

func spanFrom(ctx context.Context) *DefaultSpan {
	s, _ := ctx.Value(spanKey{}).(*DefaultSpan)
	return s
}

// DefaultSpan is a simple in-memory span implementation
type DefaultSpan struct {
	tracer   *DefaultTracer
	name     string
	traceID  string
	spanID   string
	parentID string

	mu         sync.Mutex
	startTime  time.Time
	status     StatusCode
	message    string
	attributes map[string]interface{}
	events     []Event
	ended      bool
}

func (s *DefaultSpan) SetAttribute(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.attributes[key] = value
	}
}

func (s *DefaultSpan) SetStatus(code StatusCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.status, s.message = code, message
	}
}

func (s *DefaultSpan) AddEvent(name string, attributes map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.events = append(s.events, Event{Name: name, Time: time.Now(), Attributes: attributes})
	}
}

func (s *DefaultSpan) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	end := time.Now()
	data := SpanData{
		Name:       s.name,
		TraceID:    s.traceID,
		SpanID:     s.spanID,
		ParentID:   s.parentID,
		StartTime:  s.startTime,
		EndTime:    end,
		Duration:   end.Sub(s.startTime),
		Status:     s.status,
		Message:    s.message,
		Attributes: s.attributes,
		Events:     s.events,
	}
	s.mu.Unlock()
	s.tracer.record(data)
}

func (s *DefaultSpan) Context() context.Context {
	return context.WithValue(context.Background(), spanKey{}, s)
}

var (
	_ Tracer = (*NoOpTracer)(nil)
	_ Tracer = (*DefaultTracer)(nil)
	_ Span   = (*NoOpSpan)(nil)
	_ Span   = (*DefaultSpan)(nil)
)

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
