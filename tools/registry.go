package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KamdynS/go-swarm/llm"
	obs "github.com/KamdynS/go-swarm/observability"
	"github.com/rs/zerolog/log"
)

// Registry manages a collection of tools available to agents
type Registry interface {
	// Register adds a tool to the registry
	Register(tool Tool) error

	// Get retrieves a tool by name
	Get(name string) (Tool, bool)

	// List returns tool names in registration order
	List() []string

	// Definitions renders every tool for a chat request
	Definitions() []llm.Tool

	// Execute runs the named tool through Invoke
	Execute(ctx context.Context, call Call) (Result, error)
}

// DefaultRegistry is a simple in-memory tool registry
type DefaultRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding ts. It fails on duplicate names.
func NewRegistry(ts ...Tool) (*DefaultRegistry, error) {
	r := &DefaultRegistry{tools: make(map[string]Tool)}
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *DefaultRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

func (r *DefaultRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// Lookup resolves names in order, failing on the first missing tool.
func (r *DefaultRegistry) Lookup(names ...string) ([]Tool, error) {
	out := make([]Tool, 0, len(names))
	for _, n := range names {
		t, ok := r.Get(n)
		if !ok {
			return nil, fmt.Errorf("tool %s not registered", n)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *DefaultRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *DefaultRegistry) Definitions() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.Tool, 0, len(r.order))
	for _, n := range r.order {
		defs = append(defs, Definition(r.tools[n]))
	}
	return defs
}

// Execute looks up call.Name. An unknown name yields an error result rather
// than a failure so the model can recover.
func (r *DefaultRegistry) Execute(ctx context.Context, call Call) (Result, error) {
	tool, exists := r.Get(call.Name)
	if !exists {
		err := fmt.Errorf("tool %s not found", call.Name)
		return Textf("Error: %v", err), err
	}
	return Invoke(ctx, tool, call)
}

// Invoke runs tool inside a "tool.execute" span, recording latency and
// errors. The returned Result is always usable: errors and panics are
// folded into an "Error: ..." text result and the error is returned
// alongside for logging.
func Invoke(ctx context.Context, tool Tool, call Call) (res Result, err error) {
	name := tool.Name()
	start := time.Now()
	span, ctx := obs.TracerImpl.StartSpan(ctx, "tool.execute")
	span.SetAttribute(obs.AttrToolName, name)
	span.SetAttribute(obs.AttrSpanKind, string(obs.SpanKindTool))
	span.SetAttribute(obs.AttrInputValue, call.Arguments)
	labels := map[string]string{obs.LabelComponent: "tool", obs.LabelName: name}
	obs.MetricsImpl.IncrementRequests(labels)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", name, r)
			res = Textf("Error: %v", err)
		}
		obs.MetricsImpl.RecordLatency(time.Since(start), labels)
		if err != nil {
			obs.MetricsImpl.RecordError("tool_error", labels)
			span.SetStatus(obs.StatusCodeError, err.Error())
			log.Warn().Err(err).Str("tool", name).Str("agent", call.Agent).Msg("tool failed")
		} else {
			span.SetStatus(obs.StatusCodeOk, "")
		}
		span.SetAttribute(obs.AttrOutputValue, res.String())
		span.End()
	}()

	res, err = tool.Execute(ctx, call)
	if err != nil {
		res = Textf("Error: %v", err)
	}
	return res, err
}
