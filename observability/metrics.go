package observability

import (
	"sync"
	"time"
)

// Label keys understood by the metrics implementations.
const (
	LabelComponent = "component" // tool, agent, router, http
	LabelName      = "name"
	LabelModel     = "model"
	LabelDirection = "direction" // input, output
)

// Metrics defines the interface for collecting agent metrics
type Metrics interface {
	IncrementRequests(labels map[string]string)
	RecordLatency(duration time.Duration, labels map[string]string)
	IncrementTokensUsed(tokens int, labels map[string]string)
	RecordError(errorType string, labels map[string]string)
	// IncrementHandoffs counts control transfers between agents.
	IncrementHandoffs(from, to string)
	// AddActiveRuns moves the in-flight orchestrator run gauge by delta.
	AddActiveRuns(delta int)
}

// NoOpMetrics is a no-operation implementation of Metrics
type NoOpMetrics struct{}

func (n *NoOpMetrics) IncrementRequests(labels map[string]string)                     {}
func (n *NoOpMetrics) RecordLatency(duration time.Duration, labels map[string]string) {}
func (n *NoOpMetrics) IncrementTokensUsed(tokens int, labels map[string]string)       {}
func (n *NoOpMetrics) RecordError(errorType string, labels map[string]string)         {}
func (n *NoOpMetrics) IncrementHandoffs(from, to string)                              {}
func (n *NoOpMetrics) AddActiveRuns(delta int)                                        {}

// DefaultMetrics is a simple in-memory metrics collector
type DefaultMetrics struct {
	mu           sync.Mutex
	requests     map[string]int64
	totalLatency time.Duration
	tokensUsed   int64
	errors       map[string]int64
	handoffs     map[string]int64
	activeRuns   int
}

// NewDefaultMetrics creates a new DefaultMetrics instance
func NewDefaultMetrics() *DefaultMetrics {
	return &DefaultMetrics{
		requests: make(map[string]int64),
		errors:   make(map[string]int64),
		handoffs: make(map[string]int64),
	}
}

func (m *DefaultMetrics) IncrementRequests(labels map[string]string) {
	m.mu.Lock()
	m.requests[labels[LabelComponent]+"/"+labels[LabelName]]++
	m.mu.Unlock()
}

func (m *DefaultMetrics) RecordLatency(duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	m.totalLatency += duration
	m.mu.Unlock()
}

func (m *DefaultMetrics) IncrementTokensUsed(tokens int, labels map[string]string) {
	m.mu.Lock()
	m.tokensUsed += int64(tokens)
	m.mu.Unlock()
}

func (m *DefaultMetrics) RecordError(errorType string, labels map[string]string) {
	m.mu.Lock()
	m.errors[errorType]++
	m.mu.Unlock()
}

func (m *DefaultMetrics) IncrementHandoffs(from, to string) {
	m.mu.Lock()
	m.handoffs[from+"->"+to]++
	m.mu.Unlock()
}

func (m *DefaultMetrics) AddActiveRuns(delta int) {
	m.mu.Lock()
	m.activeRuns += delta
	m.mu.Unlock()
}

// Stats is a point-in-time copy of the collected values.
type Stats struct {
	Requests     map[string]int64
	TotalLatency time.Duration
	TokensUsed   int64
	Errors       map[string]int64
	Handoffs     map[string]int64
	ActiveRuns   int
}

// GetStats returns current statistics
func (m *DefaultMetrics) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Requests:     copyCounts(m.requests),
		TotalLatency: m.totalLatency,
		TokensUsed:   m.tokensUsed,
		Errors:       copyCounts(m.errors),
		Handoffs:     copyCounts(m.handoffs),
		ActiveRuns:   m.activeRuns,
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var (
	_ Metrics = (*NoOpMetrics)(nil)
	_ Metrics = (*DefaultMetrics)(nil)
)
