package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpMetrics(t *testing.T) {
	var m Metrics = &NoOpMetrics{}
	m.IncrementRequests(nil)
	m.RecordLatency(time.Millisecond, nil)
	m.IncrementTokensUsed(10, nil)
	m.RecordError("x", nil)
	m.IncrementHandoffs("a", "b")
	m.AddActiveRuns(1)
}

func TestDefaultMetrics(t *testing.T) {
	m := NewDefaultMetrics()
	m.IncrementRequests(map[string]string{LabelComponent: "tool", LabelName: "calculator"})
	m.RecordLatency(2*time.Millisecond, nil)
	m.IncrementTokensUsed(5, nil)
	m.RecordError("boom", nil)
	m.IncrementHandoffs("Router", "Data Analyzer")
	m.AddActiveRuns(3)
	m.AddActiveRuns(-1)

	s := m.GetStats()
	assert.Equal(t, int64(1), s.Requests["tool/calculator"])
	assert.Equal(t, 2*time.Millisecond, s.TotalLatency)
	assert.Equal(t, int64(5), s.TokensUsed)
	assert.Equal(t, int64(1), s.Errors["boom"])
	assert.Equal(t, int64(1), s.Handoffs["Router->Data Analyzer"])
	assert.Equal(t, 2, s.ActiveRuns)
}
