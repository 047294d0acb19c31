package core

import (
	"errors"
	"fmt"

	"github.com/KamdynS/go-swarm/llm"
	"github.com/KamdynS/go-swarm/tools"
)

// Message represents a conversation message with role and content
type Message struct {
	Role    string            `json:"role"`
	Content string            `json:"content"`
	Meta    map[string]string `json:"meta,omitempty"`
}

var (
	// ErrMaxTurnsExceeded is returned when a run makes MaxTurns model calls
	// without producing a final answer.
	ErrMaxTurnsExceeded = errors.New("max turns exceeded")
	// ErrUnknownAgent is returned for a starting agent that is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrNoResponse is returned when the model returns nothing at all.
	ErrNoResponse = errors.New("no response from model")
)

// Agent is a named bundle of instructions and tools. It is immutable once
// built; tools are resolved by name at construction.
type Agent struct {
	name         string
	instructions string
	model        string
	tools        []tools.Tool
	byName       map[string]tools.Tool
}

// NewAgent builds an agent. Tool names must be unique.
func NewAgent(name, instructions string, ts ...tools.Tool) (*Agent, error) {
	if name == "" {
		return nil, errors.New("agent name is required")
	}
	a := &Agent{
		name:         name,
		instructions: instructions,
		byName:       make(map[string]tools.Tool, len(ts)),
	}
	for _, t := range ts {
		if t == nil {
			return nil, fmt.Errorf("agent %s: nil tool", name)
		}
		if _, dup := a.byName[t.Name()]; dup {
			return nil, fmt.Errorf("agent %s: duplicate tool %s", name, t.Name())
		}
		a.byName[t.Name()] = t
		a.tools = append(a.tools, t)
	}
	return a, nil
}

// MustAgent is NewAgent for static agent tables; it panics on error.
func MustAgent(name, instructions string, ts ...tools.Tool) *Agent {
	a, err := NewAgent(name, instructions, ts...)
	if err != nil {
		panic(err)
	}
	return a
}

// WithModel returns a copy of the agent that asks for model instead of the
// client default.
func (a *Agent) WithModel(model string) *Agent {
	cp := *a
	cp.model = model
	return &cp
}

func (a *Agent) Name() string         { return a.name }
func (a *Agent) Instructions() string { return a.instructions }
func (a *Agent) Model() string        { return a.model }

// Tools returns the agent's tools in declaration order.
func (a *Agent) Tools() []tools.Tool { return append([]tools.Tool(nil), a.tools...) }

// Tool looks up one of the agent's tools.
func (a *Agent) Tool(name string) (tools.Tool, bool) {
	t, ok := a.byName[name]
	return t, ok
}

func (a *Agent) definitions() []llm.Tool {
	if len(a.tools) == 0 {
		return nil
	}
	defs := make([]llm.Tool, 0, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, tools.Definition(t))
	}
	return defs
}

// handoffTargets lists the agents this agent can transfer to.
func (a *Agent) handoffTargets() []string {
	var out []string
	for _, t := range a.tools {
		if h, ok := t.(interface{ Target() string }); ok {
			out = append(out, h.Target())
		}
	}
	return out
}
