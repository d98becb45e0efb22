package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-haiku-20241022"
)

// AnthropicProvider talks to the Anthropic Messages API
type AnthropicProvider struct {
	api    *jsonAPI
	config Config
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider creates an Anthropic provider. An API key is required.
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	return &AnthropicProvider{
		api: &jsonAPI{
			provider: "anthropic",
			baseURL:  strings.TrimSuffix(baseURL, "/"),
			headers: map[string]string{
				"x-api-key":         config.APIKey,
				"anthropic-version": anthropicVersion,
			},
			client: newHTTPClient(config, 30*time.Second),
			errMessage: func(body []byte) string {
				var e struct {
					Error struct {
						Type    string `json:"type"`
						Message string `json:"message"`
					} `json:"error"`
				}
				if json.Unmarshal(body, &e) != nil || e.Error.Message == "" {
					return ""
				}
				return e.Error.Type + ": " + e.Error.Message
			},
		},
		config: config,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// IsAvailable lists models, which checks the key without spending tokens
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	return p.api.do(ctx, http.MethodGet, "/v1/models", nil, nil) == nil
}

// Complete sends one user message and joins the text blocks of the reply
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model, maxTokens := resolve(req, p.config, anthropicDefaultModel)

	var resp anthropicResponse
	err := p.api.do(ctx, http.MethodPost, "/v1/messages", anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: 0.2,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("anthropic complete: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic complete: no text in response")
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(text.String()),
		Model:      resp.Model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
