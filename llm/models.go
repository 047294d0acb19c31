package llm

import (
	"fmt"
	"sort"
)

// Provider represents LLM providers
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Model describes a tool-capable chat model.
type Model struct {
	Provider    Provider `json:"provider"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	ContextSize int      `json:"context_size"`
	InputCost   float64  `json:"input_cost"`  // USD per 1M input tokens
	OutputCost  float64  `json:"output_cost"` // USD per 1M output tokens
}

// Usage contains token usage information
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Cost         float64 `json:"cost,omitempty"`
}

const (
	ModelGPT4o      = "gpt-4o"
	ModelGPT4oMini  = "gpt-4o-mini"
	ModelGPT41      = "gpt-4.1"
	ModelGPT41Mini  = "gpt-4.1-mini"
	ModelGPT4Turbo  = "gpt-4-turbo"
	ModelGPT35Turbo = "gpt-3.5-turbo"

	ModelClaude35Sonnet = "claude-3-5-sonnet-20241022"
	ModelClaude35Haiku  = "claude-3-5-haiku-20241022"
	ModelClaude37Sonnet = "claude-3-7-sonnet-20250219"
	ModelClaudeSonnet4  = "claude-sonnet-4-20250514"
)

// AvailableModels is the catalog of models the routers can be pointed at.
var AvailableModels = map[string]Model{
	ModelGPT4o:          {ProviderOpenAI, ModelGPT4o, "GPT-4o", 128000, 2.5, 10},
	ModelGPT4oMini:      {ProviderOpenAI, ModelGPT4oMini, "GPT-4o Mini", 128000, 0.15, 0.6},
	ModelGPT41:          {ProviderOpenAI, ModelGPT41, "GPT-4.1", 1047576, 2, 8},
	ModelGPT41Mini:      {ProviderOpenAI, ModelGPT41Mini, "GPT-4.1 Mini", 1047576, 0.4, 1.6},
	ModelGPT4Turbo:      {ProviderOpenAI, ModelGPT4Turbo, "GPT-4 Turbo", 128000, 10, 30},
	ModelGPT35Turbo:     {ProviderOpenAI, ModelGPT35Turbo, "GPT-3.5 Turbo", 16385, 0.5, 1.5},
	ModelClaude35Sonnet: {ProviderAnthropic, ModelClaude35Sonnet, "Claude 3.5 Sonnet", 200000, 3, 15},
	ModelClaude35Haiku:  {ProviderAnthropic, ModelClaude35Haiku, "Claude 3.5 Haiku", 200000, 0.8, 4},
	ModelClaude37Sonnet: {ProviderAnthropic, ModelClaude37Sonnet, "Claude 3.7 Sonnet", 200000, 3, 15},
	ModelClaudeSonnet4:  {ProviderAnthropic, ModelClaudeSonnet4, "Claude Sonnet 4", 200000, 3, 15},
}

// GetModel looks a model up in the catalog.
func GetModel(name string) (Model, error) {
	m, ok := AvailableModels[name]
	if !ok {
		return Model{}, fmt.Errorf("unknown model: %s", name)
	}
	return m, nil
}

// ValidateModel checks if a model name is valid
func ValidateModel(name string) error {
	_, err := GetModel(name)
	return err
}

// ModelsByProvider returns the catalog entries of one provider sorted by name.
func ModelsByProvider(provider Provider) []Model {
	var out []Model
	for _, m := range AvailableModels {
		if m.Provider == provider {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m Model) String() string {
	return fmt.Sprintf("%s (%s) - %s", m.DisplayName, m.Name, m.Provider)
}

// EstimateCost estimates the cost for given token counts
func (m Model) EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*m.InputCost + float64(outputTokens)/1e6*m.OutputCost
}

// PriceUsage fills u.Cost from the catalog; unknown models are left unpriced.
func PriceUsage(model string, u *Usage) {
	if u == nil {
		return
	}
	if m, err := GetModel(model); err == nil {
		u.Cost = m.EstimateCost(u.InputTokens, u.OutputTokens)
	}
}
