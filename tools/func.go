package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/KamdynS/go-swarm/llm"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Func is a Tool backed by a typed Go function. Arguments are decoded into A
// and checked against its `validate` tags before fn runs; the JSON schema
// shown to the model is reflected from A.
type Func[A any] struct {
	name        string
	description string
	schema      map[string]interface{}
	fn          func(ctx context.Context, call Call, args A) (Result, error)
}

// NewFunc builds a tool from a function of its decoded arguments.
func NewFunc[A any](name, description string, fn func(ctx context.Context, args A) (Result, error)) *Func[A] {
	return newFunc(name, description, func(ctx context.Context, _ Call, args A) (Result, error) {
		return fn(ctx, args)
	})
}

// NewStateFunc builds a tool that operates on the orchestrator-owned state of
// type S passed in Call.State.
func NewStateFunc[S, A any](name, description string, fn func(ctx context.Context, state S, args A) (Result, error)) *Func[A] {
	return newFunc(name, description, func(ctx context.Context, call Call, args A) (Result, error) {
		state, ok := call.State.(S)
		if !ok {
			var want S
			return Text(""), fmt.Errorf("tool %s needs run state of type %T, got %T", name, want, call.State)
		}
		return fn(ctx, state, args)
	})
}

func newFunc[A any](name, description string, fn func(ctx context.Context, call Call, args A) (Result, error)) *Func[A] {
	var zero A
	return &Func[A]{name: name, description: description, schema: llm.Schema(zero), fn: fn}
}

func (f *Func[A]) Name() string                   { return f.name }
func (f *Func[A]) Description() string            { return f.description }
func (f *Func[A]) Schema() map[string]interface{} { return f.schema }

// Execute decodes and validates the arguments. Malformed arguments are
// reported to the model as text so it can correct the call.
func (f *Func[A]) Execute(ctx context.Context, call Call) (Result, error) {
	var args A
	raw := strings.TrimSpace(call.Arguments)
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return Textf("Error: invalid arguments for %s: %v", f.name, err), nil
	}
	if reflect.TypeOf(args) != nil && reflect.TypeOf(args).Kind() == reflect.Struct {
		if err := validate.Struct(args); err != nil {
			return Textf("Error: invalid arguments for %s: %s", f.name, describe(err)), nil
		}
	}
	return f.fn(ctx, call, args)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// HandoffTool transfers control to a named agent.
type HandoffTool struct {
	name        string
	target      string
	description string
}

// NewHandoff builds an argument-less transfer tool, conventionally named
// transfer_to_<agent>.
func NewHandoff(name, target, description string) *HandoffTool {
	if description == "" {
		description = "Transfer the conversation to " + target + "."
	}
	return &HandoffTool{name: name, target: target, description: description}
}

// Target is the agent that receives control.
func (h *HandoffTool) Target() string      { return h.target }
func (h *HandoffTool) Name() string        { return h.name }
func (h *HandoffTool) Description() string { return h.description }

func (h *HandoffTool) Schema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (h *HandoffTool) Execute(ctx context.Context, call Call) (Result, error) {
	return Handoff(h.target), nil
}

// Definition renders t in the provider-neutral tool format.
func Definition(t Tool) llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		},
	}
}
