package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KamdynS/go-swarm/llm"
	"github.com/liushuangls/go-anthropic/v2"
)

// Client implements the llm.Client interface for Anthropic Claude
type Client struct {
	client  *anthropic.Client
	config  Config
	retrier *llm.Retrier
}

// Config holds Anthropic-specific configuration
type Config struct {
	APIKey      string          `json:"api_key"`
	Model       string          `json:"model"`
	BaseURL     string          `json:"base_url,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
	RetryConfig llm.RetryConfig `json:"retry_config,omitempty"`
}

// NewClient creates a new Anthropic client
func NewClient(config Config) (*Client, error) {
	if config.Model == "" {
		config.Model = llm.ModelClaude35Haiku
	}
	// The messages API requires max_tokens on every request.
	if config.MaxTokens == 0 {
		config.MaxTokens = 2048
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RetryConfig.MaxRetries == 0 {
		config.RetryConfig = llm.DefaultRetryConfig()
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(config.BaseURL))
	}

	return &Client{
		client:  anthropic.NewClient(config.APIKey, opts...),
		config:  config,
		retrier: llm.NewRetrier(config.RetryConfig),
	}, nil
}

func validateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if m, err := llm.GetModel(config.Model); err == nil && m.Provider != llm.ProviderAnthropic {
		return fmt.Errorf("model %s is not an Anthropic model", config.Model)
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	return nil
}

// Chat implements llm.Client interface
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	start := time.Now()
	result, err := llm.Execute(ctx, c.retrier, func(ctx context.Context, _ int) (*llm.Response, error) {
		return c.chat(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	result.Latency = time.Since(start)
	result.Timestamp = start
	return result, nil
}

func (c *Client) chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}

	system, messages := convertMessages(req)
	anthReq := anthropic.MessagesRequest{
		Model:         anthropic.Model(model),
		System:        system,
		Messages:      messages,
		MaxTokens:     c.config.MaxTokens,
		StopSequences: req.Stop,
	}
	temp := float32(c.config.Temperature)
	if req.Temperature != nil {
		temp = float32(*req.Temperature)
	}
	anthReq.Temperature = &temp
	if req.MaxTokens != nil {
		anthReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		anthReq.TopP = &p
	}
	for _, t := range req.Tools {
		anthReq.Tools = append(anthReq.Tools, anthropic.ToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	resp, err := c.client.CreateMessages(ctx, anthReq)
	if err != nil {
		return nil, convertError(model, err)
	}

	var content strings.Builder
	var toolCalls []llm.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				content.WriteString(*block.Text)
			}
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil {
				continue
			}
			args := string(block.MessageContentToolUse.Input)
			if args == "" {
				args = "{}"
			}
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:       block.MessageContentToolUse.ID,
				Type:     "function",
				Function: llm.Function{Name: block.MessageContentToolUse.Name, Arguments: args},
			})
		}
	}

	usage := &llm.Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
	llm.PriceUsage(model, usage)

	return &llm.Response{
		Content:      content.String(),
		Role:         llm.RoleAssistant,
		Model:        model,
		Provider:     llm.ProviderAnthropic,
		Usage:        usage,
		FinishReason: string(resp.StopReason),
		ToolCalls:    toolCalls,
		Meta:         map[string]string{"id": resp.ID},
	}, nil
}

// convertMessages folds system messages into the system prompt, turns
// assistant tool calls into tool_use blocks and groups consecutive tool
// results into a single user turn as the messages API requires.
func convertMessages(req *llm.ChatRequest) (string, []anthropic.Message) {
	system := req.SystemPrompt
	var out []anthropic.Message

	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case llm.RoleAssistant:
			msg := anthropic.Message{Role: anthropic.RoleAssistant}
			if m.Content != "" {
				msg.Content = append(msg.Content, anthropic.NewTextMessageContent(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := tc.Function.Arguments
				if strings.TrimSpace(args) == "" {
					args = "{}"
				}
				msg.Content = append(msg.Content, anthropic.NewToolUseMessageContent(tc.ID, tc.Function.Name, json.RawMessage(args)))
			}
			if len(msg.Content) == 0 {
				continue
			}
			out = append(out, msg)
		case llm.RoleTool:
			block := anthropic.NewToolResultMessageContent(m.ToolCallID, m.Content, strings.HasPrefix(m.Content, "Error"))
			if n := len(out); n > 0 && out[n-1].Role == anthropic.RoleUser && isToolResultTurn(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{block}})
		default:
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		}
	}
	return system, out
}

func isToolResultTurn(m anthropic.Message) bool {
	for _, c := range m.Content {
		if c.Type != anthropic.MessagesContentTypeToolResult {
			return false
		}
	}
	return len(m.Content) > 0
}

func convertError(model string, err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		e := llm.WrapError(llm.ProviderAnthropic, model, 0, err)
		e.Message = apiErr.Message
		switch string(apiErr.Type) {
		case "rate_limit_error":
			e.Type = llm.ErrorTypeRateLimit
		case "overloaded_error", "api_error":
			e.Type = llm.ErrorTypeServerError
		case "authentication_error":
			e.Type = llm.ErrorTypeAuthentication
		case "permission_error":
			e.Type = llm.ErrorTypePermission
		case "not_found_error":
			e.Type = llm.ErrorTypeNotFound
		case "invalid_request_error":
			e.Type = llm.ErrorTypeInvalidRequest
		}
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e := llm.WrapError(llm.ProviderAnthropic, model, 0, err)
		e.Type = llm.ErrorTypeTimeout
		return e
	}
	return llm.WrapError(llm.ProviderAnthropic, model, 0, err)
}

// Model implements llm.Client interface
func (c *Client) Model() string { return c.config.Model }

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider { return llm.ProviderAnthropic }

// Validate implements llm.Client interface
func (c *Client) Validate() error { return validateConfig(c.config) }
