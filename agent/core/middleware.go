package core

import (
	"context"

	"github.com/KamdynS/go-swarm/llm"
	"github.com/KamdynS/go-swarm/tools"
)

// Middleware observes and may veto steps of a run.
//
// An error from BeforeLLMCall or AfterLLMResponse aborts the run. An error
// from BeforeToolExecute or AfterToolExecute is reported to the model as the
// tool result and the run continues.
type Middleware interface {
	BeforeLLMCall(ctx context.Context, agent string, req *llm.ChatRequest) error
	AfterLLMResponse(ctx context.Context, agent string, resp *llm.Response) error
	BeforeToolExecute(ctx context.Context, call *tools.Call) error
	AfterToolExecute(ctx context.Context, call tools.Call, result tools.Result, execErr error) error
	AfterRun(ctx context.Context, resp *Response) error
}

// NopMiddleware implements every hook as a no-op; embed it to override a few.
type NopMiddleware struct{}

func (NopMiddleware) BeforeLLMCall(context.Context, string, *llm.ChatRequest) error { return nil }
func (NopMiddleware) AfterLLMResponse(context.Context, string, *llm.Response) error { return nil }
func (NopMiddleware) BeforeToolExecute(context.Context, *tools.Call) error          { return nil }
func (NopMiddleware) AfterToolExecute(context.Context, tools.Call, tools.Result, error) error {
	return nil
}
func (NopMiddleware) AfterRun(context.Context, *Response) error { return nil }
