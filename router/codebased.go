package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KamdynS/go-swarm/llm"
	obs "github.com/KamdynS/go-swarm/observability"
	"github.com/KamdynS/go-swarm/tools"
	"github.com/rs/zerolog/log"
)

// DefaultMaxIterations bounds the code-based loop.
const DefaultMaxIterations = 10

// CodeBased is a plain tool-calling loop: the model is offered every skill
// and each requested call is run until the model answers in text.
type CodeBased struct {
	model         llm.Client
	skills        tools.Registry
	maxIterations int
}

// NewCodeBased creates the router. maxIterations <= 0 uses the default.
func NewCodeBased(model llm.Client, skills tools.Registry, maxIterations int) (*CodeBased, error) {
	if model == nil || skills == nil {
		return nil, errors.New("router: model and skills are required")
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &CodeBased{model: model, skills: skills, maxIterations: maxIterations}, nil
}

// Route implements Router.
func (r *CodeBased) Route(ctx context.Context, req Request) (string, error) {
	return obs.Trace(ctx, "code_based_router_call", obs.SpanKindChain, req.Query, func(ctx context.Context) (string, error) {
		messages := conversation(req)
		defs := r.skills.Definitions()

		for iter := 0; iter < r.maxIterations; iter++ {
			resp, err := r.model.Chat(ctx, &llm.ChatRequest{
				SystemPrompt: SystemPrompt,
				Messages:     messages,
				Tools:        defs,
			})
			if err != nil {
				return "", fmt.Errorf("LLM call failed: %w", err)
			}
			if resp == nil {
				return "Error: No response from router", nil
			}
			if len(resp.ToolCalls) == 0 {
				if strings.TrimSpace(resp.Content) == "" {
					return "Error: No response from router", nil
				}
				return resp.Content, nil
			}

			messages = append(messages, resp.Message())
			for _, tc := range resp.ToolCalls {
				log.Debug().Str("tool", tc.Function.Name).Int("iteration", iter).Msg("router tool call")
				res, _ := r.skills.Execute(ctx, tools.Call{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
					Agent:     "router",
				})
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					Content:    res.String(),
					Name:       tc.Function.Name,
					ToolCallID: tc.ID,
				})
			}
		}
		return "", fmt.Errorf("router: no answer after %d iterations", r.maxIterations)
	}, traceOptions(req)...)
}

var _ Router = (*CodeBased)(nil)
