// Package router answers data-analysis questions, either with a
// hand-written tool loop (CodeBased) or with handoffs between agents (Swarm).
package router

import (
	"context"

	"github.com/KamdynS/go-swarm/agent/core"
	"github.com/KamdynS/go-swarm/llm"
	obs "github.com/KamdynS/go-swarm/observability"
)

// PromptVersion is recorded on router spans with the prompt template.
const PromptVersion = "v0.1"

// SystemPrompt is the router prompt template.
const SystemPrompt = `You are a helpful assistant that answers questions about a company's sales data.
You can:
- generate and run SQL queries against the sales database when the user asks for numbers, lists or trends
- analyze data the user provides or that a query returned, and explain the insights
- evaluate arithmetic with the calculator when a derived figure is needed

Pick the right capability for the request. If a question needs data, fetch it before analyzing it.
When the request is unrelated to data analysis, answer briefly and say what you can help with.`

// Request is one user turn.
type Request struct {
	Query   string
	History []core.Message
	// Carrier holds the caller's trace context.
	Carrier obs.Carrier
}

// Router answers a user turn.
type Router interface {
	Route(ctx context.Context, req Request) (string, error)
}

func conversation(req Request) []llm.Message {
	msgs := make([]llm.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Query})
}

func traceOptions(req Request) []obs.TraceOption {
	return []obs.TraceOption{
		obs.WithParent(req.Carrier),
		obs.WithPromptTemplate(SystemPrompt, PromptVersion),
	}
}
