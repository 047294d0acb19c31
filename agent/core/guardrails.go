package core

import (
	"context"
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/KamdynS/go-swarm/llm"
	"github.com/KamdynS/go-swarm/tools"
)

var (
	ErrBlocked      = errors.New("request blocked by guardrails")
	ErrNotPermitted = errors.New("request not permitted by guardrails")
)

// SimpleGuardrails provides minimal input filtering and tool allow-listing.
type SimpleGuardrails struct {
	NopMiddleware

	// Deny if any of these substrings appear in the user input
	DenySubstrings []string
	// Allow only if at least one of these substrings appears; if empty, allow all
	AllowSubstrings []string
	// Max input length in characters; longer user input is truncated
	MaxInputChars int
	// If set, only these tools may run
	AllowedTools []string
}

// BeforeLLMCall inspects the latest user message of every turn, so the limit
// still holds after tool calls and handoffs.
func (g *SimpleGuardrails) BeforeLLMCall(ctx context.Context, agent string, req *llm.ChatRequest) error {
	if req == nil {
		return nil
	}
	var last *llm.Message
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			last = &req.Messages[i]
			break
		}
	}
	if last == nil {
		return nil
	}
	if g.MaxInputChars > 0 {
		last.Content = truncate(last.Content, g.MaxInputChars)
	}
	lower := strings.ToLower(last.Content)
	for _, s := range g.DenySubstrings {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return ErrBlocked
		}
	}
	if len(g.AllowSubstrings) == 0 {
		return nil
	}
	for _, s := range g.AllowSubstrings {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return nil
		}
	}
	return ErrNotPermitted
}

func (g *SimpleGuardrails) BeforeToolExecute(ctx context.Context, call *tools.Call) error {
	if len(g.AllowedTools) > 0 && !slices.Contains(g.AllowedTools, call.Name) {
		return errors.New("tool " + call.Name + " is not allowed")
	}
	return nil
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

var _ Middleware = (*SimpleGuardrails)(nil)
