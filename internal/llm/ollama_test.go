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

func newOllamaStub(t *testing.T, h http.HandlerFunc) *OllamaProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p, err := NewOllamaProvider(Config{BaseURL: srv.URL + "/", Model: "llama3.1", Timeout: 5})
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}
	return p
}

func TestOllamaProvider_Complete(t *testing.T) {
	tests := []struct {
		name       string
		reply      ollamaResponse
		wantText   string
		wantTokens int
	}{
		{
			name:       "reported counts",
			reply:      ollamaResponse{Model: "llama3.1", Response: " CLAIM: Crime fell. ", PromptEvalCount: 10, EvalCount: 20},
			wantText:   "CLAIM: Crime fell.",
			wantTokens: 30,
		},
		{
			name:       "estimated counts",
			reply:      ollamaResponse{Model: "llama3.1", Response: "NONE"},
			wantText:   "NONE",
			wantTokens: (len("list the claims") + len("NONE")) / 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newOllamaStub(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/generate" {
					t.Errorf("path = %s, want /api/generate", r.URL.Path)
				}
				var req ollamaRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
					return
				}
				if req.Stream || req.Options.NumPredict != defaultMaxTokens || req.Model != "llama3.1" {
					t.Errorf("unexpected request %+v", req)
				}
				_ = json.NewEncoder(w).Encode(tt.reply)
			})

			resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "list the claims"})
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if resp.Text != tt.wantText || resp.TokensUsed != tt.wantTokens {
				t.Errorf("got (%q, %d), want (%q, %d)", resp.Text, resp.TokensUsed, tt.wantText, tt.wantTokens)
			}
		})
	}
}

func TestOllamaProvider_CompleteErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		p := newOllamaStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": "model 'llama3.1' not found"}`))
		})
		_, err := p.Complete(context.Background(), CompletionRequest{Prompt: "x"})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *APIError", err)
		}
		if apiErr.Status != http.StatusNotFound || !strings.Contains(apiErr.Message, "not found") {
			t.Errorf("unexpected API error %+v", apiErr)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		p := newOllamaStub(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response": `))
		})
		if _, err := p.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
			t.Fatal("expected an unmarshal error")
		}
	})

	t.Run("no model", func(t *testing.T) {
		p, _ := NewOllamaProvider(Config{})
		_, err := p.Complete(context.Background(), CompletionRequest{Prompt: "x"})
		if err == nil || !strings.Contains(err.Error(), "must be specified") {
			t.Fatalf("error = %v, want missing model", err)
		}
	})
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	p := newOllamaStub(t, func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() || r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"models": []}`))
	})

	if !p.IsAvailable(context.Background()) {
		t.Error("IsAvailable = false with a healthy server")
	}
	healthy.Store(false)
	if p.IsAvailable(context.Background()) {
		t.Error("IsAvailable = true with a failing server")
	}
}
