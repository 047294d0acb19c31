package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is a function an agent can call.
type Tool interface {
	// Name is the identifier the model uses to call the tool.
	Name() string
	Description() string
	// Schema is the JSON schema of the tool arguments.
	Schema() map[string]interface{}
	// Execute runs the tool. Faults that the model should see and recover
	// from are returned as a Text result; a non-nil error is also reported
	// back to the model as text by the caller.
	Execute(ctx context.Context, call Call) (Result, error)
}

// Call is one tool invocation requested by the model.
type Call struct {
	ID        string
	Name      string
	Arguments string // raw JSON object
	// Agent is the name of the agent that issued the call.
	Agent string
	// State is the run-scoped resource owned by the orchestrator, such as a
	// chess board. Tools that need it declare its type via NewStateFunc.
	State any
}

// ResultKind tags a Result.
type ResultKind int

const (
	KindText ResultKind = iota
	KindHandoff
)

// Result is what a tool returns: either text for the model, or a handoff
// transferring control to another agent.
type Result struct {
	Kind  ResultKind
	Value string
	Agent string
}

// Text returns a text result.
func Text(s string) Result { return Result{Kind: KindText, Value: s} }

// Textf returns a formatted text result.
func Textf(format string, args ...any) Result { return Text(fmt.Sprintf(format, args...)) }

// Handoff returns a result that transfers control to agent.
func Handoff(agent string) Result { return Result{Kind: KindHandoff, Agent: agent} }

// IsHandoff reports whether r transfers control.
func (r Result) IsHandoff() bool { return r.Kind == KindHandoff }

// String is the text appended to the conversation as the tool message.
func (r Result) String() string {
	if r.Kind == KindHandoff {
		b, _ := json.Marshal(map[string]string{"assistant": r.Agent})
		return string(b)
	}
	return r.Value
}
