package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newAnthropicStub(t *testing.T, h http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	return p
}

func TestAnthropicProvider_Complete(t *testing.T) {
	p := newAnthropicStub(t, func(w http.ResponseWriter, r *http.Request) {
		for header, want := range map[string]string{"x-api-key": "test-key", "anthropic-version": anthropicVersion} {
			if got := r.Header.Get(header); got != want {
				t.Errorf("%s = %q, want %q", header, got, want)
			}
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if r.URL.Path != "/v1/messages" || req.Model != anthropicDefaultModel || req.System != "find claims" {
			t.Errorf("unexpected request %s %+v", r.URL.Path, req)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "speech" {
			t.Errorf("messages = %+v", req.Messages)
		}

		// Non-text blocks are skipped and text blocks are concatenated
		_, _ = w.Write([]byte(`{
			"model": "claude-3-5-haiku-20241022",
			"content": [
				{"type": "text", "text": "CLAIMS:\n- Taxes doubled\n"},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "SEARCH_TERMS:\n- taxes\n"}
			],
			"usage": {"input_tokens": 70, "output_tokens": 30}
		}`))
	})

	resp, err := p.Complete(context.Background(), CompletionRequest{System: "find claims", Prompt: "speech"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	want := CompletionResponse{
		Text:       "CLAIMS:\n- Taxes doubled\nSEARCH_TERMS:\n- taxes",
		Model:      "claude-3-5-haiku-20241022",
		TokensUsed: 100,
	}
	if *resp != want {
		t.Errorf("response = %+v, want %+v", *resp, want)
	}
}

func TestAnthropicProvider_CompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"overloaded", 529, `{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`, "overloaded_error: Overloaded"},
		{"plain text error", http.StatusBadGateway, "bad gateway\n", "bad gateway"},
		{"truncated body", http.StatusOK, `{"content": [`, ""},
		{"no text blocks", http.StatusOK, `{"content": []}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newAnthropicStub(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Complete(context.Background(), CompletionRequest{Prompt: "x"})
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantMsg == "" {
				return
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("error = %v, want API error %d %q", err, tt.status, tt.wantMsg)
			}
		})
	}
}

func TestAnthropicProvider_RequiresKey(t *testing.T) {
	_, err := NewAnthropicProvider(Config{})
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("error = %v, want missing key", err)
	}
}

func TestAnthropicProvider_IsAvailable(t *testing.T) {
	var down atomic.Bool
	p := newAnthropicStub(t, func(w http.ResponseWriter, r *http.Request) {
		if down.Load() || r.URL.Path != "/v1/models" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	if !p.IsAvailable(context.Background()) {
		t.Error("IsAvailable = false with a healthy server")
	}
	down.Store(true)
	if p.IsAvailable(context.Background()) {
		t.Error("IsAvailable = true after a 401")
	}
}
