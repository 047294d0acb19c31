package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KamdynS/go-swarm/llm"
	obs "github.com/KamdynS/go-swarm/observability"
	"github.com/KamdynS/go-swarm/tools"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMaxTurns bounds a run when RunnerConfig.MaxTurns is zero.
const DefaultMaxTurns = 10

// RunnerConfig holds configuration for NewRunner
type RunnerConfig struct {
	Model  llm.Client
	Agents []*Agent
	// MaxTurns is the number of model calls a run may make.
	MaxTurns   int
	Middleware []Middleware
}

// Runner drives a conversation across a set of agents. Exactly one agent is
// active at a time; a tool returning a handoff makes another agent active
// for the rest of the run over the same history.
type Runner struct {
	model    llm.Client
	agents   map[string]*Agent
	first    *Agent
	maxTurns int
	mw       []Middleware
}

// RunRequest starts a run.
type RunRequest struct {
	// Agent is the starting agent; empty means the first registered one.
	Agent    string
	Messages []llm.Message
	// State is handed to every tool call of the run.
	State any
}

// Transfer records one handoff.
type Transfer struct {
	From string
	To   string
}

// Response is the outcome of a run.
type Response struct {
	// Messages holds only the messages produced by the run.
	Messages []llm.Message
	// Agent is the agent active when the run ended.
	Agent    string
	Content  string
	Turns    int
	Handoffs []Transfer
}

// NewRunner validates the agent graph: names must be unique and every
// handoff tool must target a registered agent.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Model == nil {
		return nil, errors.New("runner: model is required")
	}
	if len(cfg.Agents) == 0 {
		return nil, errors.New("runner: at least one agent is required")
	}
	r := &Runner{
		model:    cfg.Model,
		agents:   make(map[string]*Agent, len(cfg.Agents)),
		first:    cfg.Agents[0],
		maxTurns: cfg.MaxTurns,
		mw:       cfg.Middleware,
	}
	if r.maxTurns <= 0 {
		r.maxTurns = DefaultMaxTurns
	}
	for _, a := range cfg.Agents {
		if a == nil {
			return nil, errors.New("runner: nil agent")
		}
		if _, dup := r.agents[a.Name()]; dup {
			return nil, fmt.Errorf("runner: duplicate agent %s", a.Name())
		}
		r.agents[a.Name()] = a
	}
	for _, a := range cfg.Agents {
		for _, target := range a.handoffTargets() {
			if _, ok := r.agents[target]; !ok {
				return nil, fmt.Errorf("runner: agent %s hands off to %w %s", a.Name(), ErrUnknownAgent, target)
			}
		}
	}
	return r, nil
}

// MaxTurns reports the turn bound in effect.
func (r *Runner) MaxTurns() int { return r.maxTurns }

type phase int

const (
	phaseActive phase = iota
	phaseDone
)

// runState is the orchestrator state: Active(agent) or Done(agent, output).
type runState struct {
	phase  phase
	agent  *Agent
	output string
}

func active(a *Agent) runState           { return runState{phase: phaseActive, agent: a} }
func done(a *Agent, out string) runState { return runState{phase: phaseDone, agent: a, output: out} }

// Run executes the loop until an agent answers without tool calls, the turn
// bound is hit or ctx is done. On error the response still carries the
// messages produced so far.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*Response, error) {
	start := r.first
	if req.Agent != "" {
		a, ok := r.agents[req.Agent]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, req.Agent)
		}
		start = a
	}

	runID := xid.New().String()
	logger := log.With().Str("run_id", runID).Logger()
	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.run")
	defer span.End()
	span.SetAttribute(obs.AttrRunID, runID)
	span.SetAttribute(obs.AttrAgentName, start.Name())
	obs.MetricsImpl.AddActiveRuns(1)
	defer obs.MetricsImpl.AddActiveRuns(-1)

	history := append([]llm.Message(nil), req.Messages...)
	initial := len(history)
	resp := &Response{}
	finish := func(st runState, err error) (*Response, error) {
		resp.Messages = history[initial:]
		resp.Agent = st.agent.Name()
		resp.Content = st.output
		if err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			logger.Warn().Err(err).Str("agent", resp.Agent).Int("turns", resp.Turns).Msg("run failed")
			return resp, err
		}
		for _, m := range r.mw {
			if err := m.AfterRun(ctx, resp); err != nil {
				span.SetStatus(obs.StatusCodeError, err.Error())
				return resp, err
			}
		}
		span.SetAttribute(obs.AttrAgentName, resp.Agent)
		span.SetStatus(obs.StatusCodeOk, "")
		logger.Debug().Str("agent", resp.Agent).Int("turns", resp.Turns).Int("handoffs", len(resp.Handoffs)).Msg("run finished")
		return resp, nil
	}

	st := active(start)
	for st.phase == phaseActive {
		if resp.Turns >= r.maxTurns {
			return finish(st, fmt.Errorf("%w (%d)", ErrMaxTurnsExceeded, r.maxTurns))
		}
		if err := ctx.Err(); err != nil {
			return finish(st, err)
		}
		resp.Turns++
		next, produced, err := r.turn(ctx, logger, st.agent, history, req.State, resp.Turns)
		history = append(history, produced...)
		if err != nil {
			return finish(st, err)
		}
		if next.agent != st.agent {
			from, to := st.agent.Name(), next.agent.Name()
			resp.Handoffs = append(resp.Handoffs, Transfer{From: from, To: to})
			span.AddEvent("handoff", map[string]interface{}{"from": from, "to": to})
			obs.MetricsImpl.IncrementHandoffs(from, to)
			logger.Info().Str("from", from).Str("to", to).Msg("handoff")
		}
		st = next
	}
	return finish(st, nil)
}

// turn makes one model call for agent and executes the requested tools. It
// returns the next state and the messages to append.
func (r *Runner) turn(ctx context.Context, logger zerolog.Logger, agent *Agent, history []llm.Message, state any, n int) (runState, []llm.Message, error) {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.turn")
	defer span.End()
	span.SetAttribute(obs.AttrAgentName, agent.Name())
	span.SetAttribute(obs.AttrTurn, n)
	labels := map[string]string{obs.LabelComponent: "agent", obs.LabelName: agent.Name()}
	obs.MetricsImpl.IncrementRequests(labels)
	startTime := time.Now()
	defer func() { obs.MetricsImpl.RecordLatency(time.Since(startTime), labels) }()

	req := &llm.ChatRequest{
		Messages:     append([]llm.Message(nil), history...),
		Model:        agent.Model(),
		SystemPrompt: agent.Instructions(),
		Tools:        agent.definitions(),
	}
	for _, m := range r.mw {
		if err := m.BeforeLLMCall(ctx, agent.Name(), req); err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return active(agent), nil, err
		}
	}
	reply, err := r.model.Chat(ctx, req)
	if err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		obs.MetricsImpl.RecordError("llm_error", labels)
		return active(agent), nil, fmt.Errorf("agent %s: %w", agent.Name(), err)
	}
	if reply == nil {
		span.SetStatus(obs.StatusCodeError, ErrNoResponse.Error())
		return active(agent), nil, fmt.Errorf("agent %s: %w", agent.Name(), ErrNoResponse)
	}
	for _, m := range r.mw {
		if err := m.AfterLLMResponse(ctx, agent.Name(), reply); err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return active(agent), nil, err
		}
	}

	msg := reply.Message()
	msg.Sender = agent.Name()
	produced := []llm.Message{msg}
	if len(reply.ToolCalls) == 0 {
		span.SetStatus(obs.StatusCodeOk, "")
		return done(agent, reply.Content), produced, nil
	}

	next := active(agent)
	for _, tc := range reply.ToolCalls {
		res := r.execute(ctx, logger, agent, tc, state)
		if res.IsHandoff() {
			if target, ok := r.agents[res.Agent]; ok {
				next = active(target)
			} else {
				res = tools.Textf("Error: %v: %s", ErrUnknownAgent, res.Agent)
			}
		}
		produced = append(produced, llm.Message{
			Role:       llm.RoleTool,
			Content:    res.String(),
			Name:       tc.Function.Name,
			ToolCallID: tc.ID,
			Sender:     agent.Name(),
		})
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return next, produced, nil
}

// execute runs one tool call. Every fault is folded into a text result.
func (r *Runner) execute(ctx context.Context, logger zerolog.Logger, agent *Agent, tc llm.ToolCall, state any) tools.Result {
	call := tools.Call{
		ID:        tc.ID,
		Name:      tc.Function.Name,
		Arguments: tc.Function.Arguments,
		Agent:     agent.Name(),
		State:     state,
	}
	tool, ok := agent.Tool(call.Name)
	if !ok {
		logger.Warn().Str("agent", agent.Name()).Str("tool", call.Name).Msg("unknown tool requested")
		return tools.Textf("Error: Tool %s not found", call.Name)
	}
	for _, m := range r.mw {
		if err := m.BeforeToolExecute(ctx, &call); err != nil {
			return tools.Textf("Error: %v", err)
		}
	}
	res, execErr := tools.Invoke(ctx, tool, call)
	for _, m := range r.mw {
		if err := m.AfterToolExecute(ctx, call, res, execErr); err != nil {
			return tools.Textf("Error: %v", err)
		}
	}
	return res
}
