// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/KamdynS/go-swarm/llm"
)

// MockClient replays scripted responses in order and records every request.
// Once the script is exhausted it answers with Fallback.
type MockClient struct {
	mu        sync.Mutex
	responses []scripted
	calls     []llm.ChatRequest
	next      int

	// Fallback is returned when the script is exhausted.
	Fallback string
}

type scripted struct {
	resp *llm.Response
	err  error
}

// NewMockClient creates an empty mock.
func NewMockClient() *MockClient {
	return &MockClient{Fallback: "Default mock response"}
}

// AddResponse scripts a plain text reply.
func (m *MockClient) AddResponse(content string) *MockClient {
	return m.add(&llm.Response{Content: content}, nil)
}

// AddToolCall scripts a reply that calls a single tool with args marshalled to JSON.
func (m *MockClient) AddToolCall(name string, args any) *MockClient {
	return m.AddToolCalls(Call(name, args))
}

// AddToolCalls scripts a reply carrying several tool calls.
func (m *MockClient) AddToolCalls(calls ...llm.ToolCall) *MockClient {
	return m.add(&llm.Response{ToolCalls: calls, FinishReason: "tool_calls"}, nil)
}

// AddError scripts a failed call.
func (m *MockClient) AddError(err error) *MockClient {
	return m.add(nil, err)
}

// AddNoResponse scripts a call that returns neither a response nor an error.
func (m *MockClient) AddNoResponse() *MockClient {
	return m.add(nil, nil)
}

func (m *MockClient) add(resp *llm.Response, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, scripted{resp: resp, err: err})
	return m
}

var callSeq struct {
	sync.Mutex
	n int
}

// Call builds a tool call with a unique id.
func Call(name string, args any) llm.ToolCall {
	raw := "{}"
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			panic(err)
		}
		raw = string(b)
	}
	callSeq.Lock()
	callSeq.n++
	id := fmt.Sprintf("call_%d", callSeq.n)
	callSeq.Unlock()
	return llm.ToolCall{ID: id, Type: "function", Function: llm.Function{Name: name, Arguments: raw}}
}

// Chat implements llm.Client.
func (m *MockClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	m.calls = append(m.calls, cp)

	if m.next >= len(m.responses) {
		return &llm.Response{Content: m.Fallback, Role: llm.RoleAssistant, Model: "mock-model", Provider: llm.ProviderOpenAI}, nil
	}
	s := m.responses[m.next]
	m.next++
	if s.err != nil || s.resp == nil {
		return nil, s.err
	}
	out := *s.resp
	out.Role = llm.RoleAssistant
	out.Model = "mock-model"
	out.Provider = llm.ProviderOpenAI
	return &out, nil
}

// Calls returns a copy of the recorded requests.
func (m *MockClient) Calls() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.ChatRequest(nil), m.calls...)
}

// Remaining reports how many scripted responses have not been consumed.
func (m *MockClient) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses) - m.next
}

func (m *MockClient) Model() string          { return "mock-model" }
func (m *MockClient) Provider() llm.Provider { return llm.ProviderOpenAI }
func (m *MockClient) Validate() error        { return nil }
