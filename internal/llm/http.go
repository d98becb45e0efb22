package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/precedent/internal/util"
)

// maxErrorBody bounds how much of a failed response ends up in an error message
const maxErrorBody = 512

// APIError is a non-200 reply from a provider's HTTP API
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Message)
}

// newHTTPClient builds a client honoring the configured timeout and proxies
func newHTTPClient(config Config, fallback time.Duration) *http.Client {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = fallback
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
}

// jsonAPI is a small JSON-over-HTTP client for providers without an SDK
type jsonAPI struct {
	provider string
	baseURL  string
	headers  map[string]string
	client   *http.Client

	// errMessage pulls the human-readable message out of an error body
	errMessage func(body []byte) string
}

func (a *jsonAPI) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if a.errMessage != nil {
			msg = a.errMessage(data)
		}
		if msg == "" {
			msg = truncateRunes(strings.TrimSpace(string(data)), maxErrorBody)
		}
		return &APIError{Provider: a.provider, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// resolve fills the model and token budget from the request, then the
// provider config, then the fallback.
func resolve(req CompletionRequest, config Config, fallbackModel string) (string, int) {
	model := req.Model
	if model == "" {
		model = config.Model
	}
	if model == "" {
		model = fallbackModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return model, maxTokens
}
