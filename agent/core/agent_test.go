package core

import (
	"context"
	"errors"
	"testing"

	"github.com/KamdynS/go-swarm/llm"
	"github.com/KamdynS/go-swarm/llm/llmtest"
	obs "github.com/KamdynS/go-swarm/observability"
	"github.com/KamdynS/go-swarm/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupArgs struct {
	Key string `json:"key" validate:"required"`
}

func lookupTool() tools.Tool {
	return tools.NewFunc("lookup", "Look up a key", func(ctx context.Context, a lookupArgs) (tools.Result, error) {
		if a.Key == "broken" {
			return tools.Result{}, errors.New("store offline")
		}
		return tools.Text("value-of-" + a.Key), nil
	})
}

func user(s string) []llm.Message { return []llm.Message{{Role: llm.RoleUser, Content: s}} }

func TestNewAgentRejectsDuplicateTools(t *testing.T) {
	_, err := NewAgent("A", "", lookupTool(), lookupTool())
	assert.ErrorContains(t, err, "duplicate tool lookup")

	_, err = NewAgent("", "")
	assert.Error(t, err)

	a, err := NewAgent("A", "be helpful", lookupTool())
	require.NoError(t, err)
	assert.Equal(t, "A", a.Name())
	_, ok := a.Tool("lookup")
	assert.True(t, ok)
	assert.Equal(t, "gpt-4o", a.WithModel("gpt-4o").Model())
	assert.Equal(t, "", a.Model())
}

func TestNewRunnerValidatesGraph(t *testing.T) {
	model := llmtest.NewMockClient()
	a := MustAgent("A", "", tools.NewHandoff("transfer_to_b", "B", ""))

	_, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{a}})
	assert.ErrorIs(t, err, ErrUnknownAgent)

	_, err = NewRunner(RunnerConfig{Model: model, Agents: []*Agent{MustAgent("B", ""), MustAgent("B", "")}})
	assert.ErrorContains(t, err, "duplicate agent B")

	_, err = NewRunner(RunnerConfig{Agents: []*Agent{a}})
	assert.Error(t, err)

	r, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{a, MustAgent("B", "")}})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTurns, r.MaxTurns())
}

func TestRunPlainAnswer(t *testing.T) {
	model := llmtest.NewMockClient().AddResponse("hello there")
	r, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{MustAgent("A", "be brief")}})
	require.NoError(t, err)

	resp, err := r.Run(context.Background(), RunRequest{Messages: user("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, "A", resp.Agent)
	assert.Equal(t, 1, resp.Turns)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, llm.RoleAssistant, resp.Messages[0].Role)
	assert.Equal(t, "A", resp.Messages[0].Sender)

	calls := model.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "be brief", calls[0].SystemPrompt)
	assert.Empty(t, calls[0].Tools)
}

func TestRunToolRoundTrip(t *testing.T) {
	model := llmtest.NewMockClient().
		AddToolCall("lookup", map[string]string{"key": "x"}).
		AddResponse("x is value-of-x")
	r, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{MustAgent("A", "", lookupTool())}})
	require.NoError(t, err)

	resp, err := r.Run(context.Background(), RunRequest{Messages: user("what is x?")})
	require.NoError(t, err)
	assert.Equal(t, "x is value-of-x", resp.Content)
	assert.Equal(t, 2, resp.Turns)

	// assistant(tool call), tool, assistant
	require.Len(t, resp.Messages, 3)
	assert.Len(t, resp.Messages[0].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, resp.Messages[1].Role)
	assert.Equal(t, "value-of-x", resp.Messages[1].Content)
	assert.Equal(t, resp.Messages[0].ToolCalls[0].ID, resp.Messages[1].ToolCallID)

	second := model.Calls()[1]
	require.Len(t, second.Messages, 3)
	assert.Equal(t, "lookup", second.Tools[0].Function.Name)
}

func TestRunToolFaultsBecomeText(t *testing.T) {
	model := llmtest.NewMockClient().
		AddToolCalls(
			llmtest.Call("missing_tool", nil),
			llmtest.Call("lookup", map[string]string{}),
			llmtest.Call("lookup", map[string]string{"key": "broken"}),
		).
		AddResponse("sorry")
	r, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{MustAgent("A", "", lookupTool())}})
	require.NoError(t, err)

	resp, err := r.Run(context.Background(), RunRequest{Messages: user("go")})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 5)
	assert.Equal(t, "Error: Tool missing_tool not found", resp.Messages[1].Content)
	assert.Contains(t, resp.Messages[2].Content, "Error: invalid arguments for lookup")
	assert.Equal(t, "Error: store offline", resp.Messages[3].Content)
	assert.Equal(t, "sorry", resp.Content)
}

func TestRunHandoffKeepsHistory(t *testing.T) {
	tracer := obs.NewDefaultTracer()
	metrics := obs.NewDefaultMetrics()
	prevT, prevM := obs.TracerImpl, obs.MetricsImpl
	obs.SetTracer(tracer)
	obs.SetMetrics(metrics)
	t.Cleanup(func() { obs.SetTracer(prevT); obs.SetMetrics(prevM) })

	router := MustAgent("Router", "route", tools.NewHandoff("transfer_to_sql", "SQL Expert", ""))
	sql := MustAgent("SQL Expert", "write sql", lookupTool())
	model := llmtest.NewMockClient().
		AddToolCall("transfer_to_sql", nil).
		AddToolCall("lookup", map[string]string{"key": "sales"}).
		AddResponse("sales are up")
	r, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{router, sql}})
	require.NoError(t, err)

	resp, err := r.Run(context.Background(), RunRequest{Messages: user("how are sales?")})
	require.NoError(t, err)
	assert.Equal(t, "SQL Expert", resp.Agent)
	assert.Equal(t, "sales are up", resp.Content)
	assert.Equal(t, []Transfer{{From: "Router", To: "SQL Expert"}}, resp.Handoffs)
	assert.Equal(t, `{"assistant":"SQL Expert"}`, resp.Messages[1].Content)

	calls := model.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "route", calls[0].SystemPrompt)
	assert.Equal(t, "write sql", calls[1].SystemPrompt)
	assert.Equal(t, "write sql", calls[2].SystemPrompt)
	// the original user message survives the handoff
	assert.Equal(t, "how are sales?", calls[1].Messages[0].Content)
	assert.Len(t, calls[1].Messages, 3)
	assert.Len(t, calls[2].Messages, 5)

	run, ok := tracer.Find("agent.run")
	require.True(t, ok)
	require.Len(t, run.Events, 1)
	assert.Equal(t, "handoff", run.Events[0].Name)
	assert.Equal(t, int64(1), metrics.GetStats().Handoffs["Router->SQL Expert"])
	assert.Equal(t, 0, metrics.GetStats().ActiveRuns)
}

func TestRunUnknownHandoffAtRuntime(t *testing.T) {
	rogue := tools.NewFunc("escape", "", func(ctx context.Context, _ struct{}) (tools.Result, error) {
		return tools.Handoff("Nobody"), nil
	})
	model := llmtest.NewMockClient().AddToolCall("escape", nil).AddResponse("stayed")
	r, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{MustAgent("A", "", rogue)}})
	require.NoError(t, err)

	resp, err := r.Run(context.Background(), RunRequest{Messages: user("x")})
	require.NoError(t, err)
	assert.Equal(t, "A", resp.Agent)
	assert.Equal(t, "Error: unknown agent: Nobody", resp.Messages[1].Content)
}

func TestRunMaxTurns(t *testing.T) {
	model := llmtest.NewMockClient()
	for i := 0; i < 5; i++ {
		model.AddToolCall("lookup", map[string]string{"key": "loop"})
	}
	r, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{MustAgent("A", "", lookupTool())}, MaxTurns: 3})
	require.NoError(t, err)

	resp, err := r.Run(context.Background(), RunRequest{Messages: user("spin")})
	assert.ErrorIs(t, err, ErrMaxTurnsExceeded)
	require.NotNil(t, resp)
	assert.Equal(t, 3, resp.Turns)
	assert.Len(t, resp.Messages, 6)
	assert.Len(t, model.Calls(), 3)
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("provider down")
	model := llmtest.NewMockClient().AddError(boom)
	r, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{MustAgent("A", "")}})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), RunRequest{Agent: "Z"})
	assert.ErrorIs(t, err, ErrUnknownAgent)

	resp, err := r.Run(context.Background(), RunRequest{Messages: user("x")})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, resp.Messages)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx, RunRequest{Messages: user("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

type stateArgs struct{}

func TestRunPassesState(t *testing.T) {
	type tally struct{ hits int }
	hit := tools.NewStateFunc("hit", "", func(ctx context.Context, s *tally, _ stateArgs) (tools.Result, error) {
		s.hits++
		return tools.Textf("hits=%d", s.hits), nil
	})
	model := llmtest.NewMockClient().AddToolCalls(llmtest.Call("hit", nil), llmtest.Call("hit", nil)).AddResponse("done")
	r, err := NewRunner(RunnerConfig{Model: model, Agents: []*Agent{MustAgent("A", "", hit)}})
	require.NoError(t, err)

	state := &tally{}
	resp, err := r.Run(context.Background(), RunRequest{Messages: user("x"), State: state})
	require.NoError(t, err)
	assert.Equal(t, 2, state.hits)
	assert.Equal(t, "hits=2", resp.Messages[2].Content)
}
