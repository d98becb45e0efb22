package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider talks to a local Ollama server's generate endpoint
type OllamaProvider struct {
	api    *jsonAPI
	config Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// NewOllamaProvider creates an Ollama provider. Local models are slow to load,
// so the default timeout is a minute.
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		api: &jsonAPI{
			provider: "ollama",
			baseURL:  strings.TrimSuffix(baseURL, "/"),
			client:   newHTTPClient(config, 60*time.Second),
			errMessage: func(body []byte) string {
				var e struct {
					Error string `json:"error"`
				}
				if json.Unmarshal(body, &e) != nil {
					return ""
				}
				return e.Error
			},
		},
		config: config,
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

// IsAvailable reports whether the server answers the model listing
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	return p.api.do(ctx, http.MethodGet, "/api/tags", nil, nil) == nil
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model, maxTokens := resolve(req, p.config, "")
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	var resp ollamaResponse
	err := p.api.do(ctx, http.MethodPost, "/api/generate", ollamaRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.System,
		Options: ollamaOptions{Temperature: 0.2, NumPredict: maxTokens},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ollama complete: %w", err)
	}

	text := strings.TrimSpace(resp.Response)

	// Some models report no counts; estimate at four bytes per token
	used := resp.PromptEvalCount + resp.EvalCount
	if used == 0 {
		used = (len(req.Prompt) + len(text)) / 4
	}

	return &CompletionResponse{Text: text, Model: resp.Model, TokensUsed: used}, nil
}
