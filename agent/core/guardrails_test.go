package core

import (
	"context"
	"testing"

	"github.com/KamdynS/go-swarm/llm"
	"github.com/KamdynS/go-swarm/llm/llmtest"
	"github.com/KamdynS/go-swarm/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleGuardrails(t *testing.T) {
	ctx := context.Background()
	g := &SimpleGuardrails{MaxInputChars: 5, DenySubstrings: []string{"bad"}}

	req := &llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "hello"}}}
	assert.NoError(t, g.BeforeLLMCall(ctx, "A", req))

	req = &llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "toolong"}}}
	require.NoError(t, g.BeforeLLMCall(ctx, "A", req))
	assert.Equal(t, "toolo", req.Messages[0].Content)

	g.AllowSubstrings = []string{"ok"}
	req = &llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "fine"}}}
	assert.ErrorIs(t, g.BeforeLLMCall(ctx, "A", req), ErrNotPermitted)

	req = &llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "ok content"}}}
	assert.NoError(t, g.BeforeLLMCall(ctx, "A", req))

	g.MaxInputChars = 0
	req = &llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "ok but BAD thing"}}}
	assert.ErrorIs(t, g.BeforeLLMCall(ctx, "A", req), ErrBlocked)

	// only the latest user message is inspected, even behind tool results
	req = &llm.ChatRequest{Messages: []llm.Message{{Role: "tool", Content: "bad"}}}
	assert.NoError(t, g.BeforeLLMCall(ctx, "A", req))
	req = &llm.ChatRequest{Messages: []llm.Message{
		{Role: "user", Content: "bad idea"},
		{Role: "user", Content: "ok"},
		{Role: "assistant", Content: ""},
		{Role: "tool", Content: "fine"},
	}}
	assert.NoError(t, g.BeforeLLMCall(ctx, "A", req))
	req.Messages[1].Content = "a bad one"
	assert.ErrorIs(t, g.BeforeLLMCall(ctx, "A", req), ErrBlocked)
}

func TestTruncateCountsCharacters(t *testing.T) {
	assert.Equal(t, "h", truncate("héllo", 1))
	assert.Equal(t, "hé", truncate("héllo", 2))
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "ééé", truncate("éééé", 3))
}

func TestGuardrailsTruncateEveryTurn(t *testing.T) {
	model := llmtest.NewMockClient().
		AddToolCall("transfer_to_b", nil).
		AddResponse("done")
	r, err := NewRunner(RunnerConfig{
		Model: model,
		Agents: []*Agent{
			MustAgent("A", "", tools.NewHandoff("transfer_to_b", "B", "")),
			MustAgent("B", ""),
		},
		Middleware: []Middleware{&SimpleGuardrails{MaxInputChars: 4}},
	})
	require.NoError(t, err)

	resp, err := r.Run(context.Background(), RunRequest{Messages: user("héllo world")})
	require.NoError(t, err)
	assert.Equal(t, "B", resp.Agent)

	calls := model.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "héll", calls[0].Messages[0].Content)
	// the receiving agent sees the limited input too
	assert.Equal(t, "héll", calls[1].Messages[0].Content)
	assert.Equal(t, llm.RoleTool, calls[1].Messages[len(calls[1].Messages)-1].Role)
}

func TestGuardrailsInRunner(t *testing.T) {
	model := llmtest.NewMockClient()
	r, err := NewRunner(RunnerConfig{
		Model:      model,
		Agents:     []*Agent{MustAgent("A", "")},
		Middleware: []Middleware{&SimpleGuardrails{DenySubstrings: []string{"drop table"}}},
	})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), RunRequest{Messages: user("please DROP TABLE sales")})
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Empty(t, model.Calls())
}

func TestGuardrailsToolAllowList(t *testing.T) {
	model := llmtest.NewMockClient().AddToolCall("lookup", map[string]string{"key": "a"}).AddResponse("ok")
	r, err := NewRunner(RunnerConfig{
		Model:      model,
		Agents:     []*Agent{MustAgent("A", "", lookupTool(), tools.NewCalculator())},
		Middleware: []Middleware{&SimpleGuardrails{AllowedTools: []string{"calculator"}}},
	})
	require.NoError(t, err)

	resp, err := r.Run(context.Background(), RunRequest{Messages: user("x")})
	require.NoError(t, err)
	assert.Equal(t, "Error: tool lookup is not allowed", resp.Messages[1].Content)
}
