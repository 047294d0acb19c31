package llm

import (
	"context"
	"errors"
)

// RoutePolicy decides which client/model to use for a given request
type RoutePolicy interface {
	// Select returns the target client to use and (optionally) model override
	Select(req *ChatRequest) (Client, string, error)
}

// StaticPolicy routes by req.Model if present, otherwise uses default
type StaticPolicy struct {
	Default Client
	ByModel map[string]Client
}

func (p StaticPolicy) Select(req *ChatRequest) (Client, string, error) {
	if req != nil && req.Model != "" {
		if c, ok := p.ByModel[req.Model]; ok && c != nil {
			return c, req.Model, nil
		}
	}
	if p.Default == nil {
		return nil, "", errors.New("no default client configured")
	}
	if req != nil && req.Model != "" && p.Default.Provider() == providerOf(req.Model) {
		return p.Default, req.Model, nil
	}
	// A model the default provider cannot serve falls back to its own model.
	return p.Default, "", nil
}

func providerOf(model string) Provider {
	if m, err := GetModel(model); err == nil {
		return m.Provider
	}
	return ""
}

// RouterClient implements Client and delegates to inner clients via RoutePolicy.
// Agents that pin a Model are routed to the provider that serves it.
type RouterClient struct {
	policy RoutePolicy
}

func NewRouterClient(policy RoutePolicy) *RouterClient { return &RouterClient{policy: policy} }

func (r *RouterClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	c, modelOverride, err := r.policy.Select(req)
	if err != nil {
		return nil, err
	}
	cp := *req
	cp.Model = modelOverride
	return c.Chat(ctx, &cp)
}

func (r *RouterClient) Model() string      { return "router" }
func (r *RouterClient) Provider() Provider { return Provider("router") }
func (r *RouterClient) Validate() error {
	if r.policy == nil {
		return errors.New("nil route policy")
	}
	return nil
}
