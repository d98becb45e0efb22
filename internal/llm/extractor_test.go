package llm

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/precedent/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name     string
	response string
	err      error
	prompts  []string
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.prompts = append(m.prompts, req.Prompt)
	if m.err != nil {
		return nil, m.err
	}
	return &CompletionResponse{Text: m.response, Model: "mock"}, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.err == nil
}

func TestNewExtractor_DisabledProvider(t *testing.T) {
	extractor, err := NewExtractor(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if extractor.IsEnabled() {
		t.Error("Expected extractor to be disabled")
	}

	if _, err := extractor.ExtractTermsAndClaims(context.Background(), "text"); err == nil {
		t.Error("Expected error from disabled extractor")
	}
}

func TestNewProvider_Names(t *testing.T) {
	tests := []struct {
		name    string
		unknown bool
	}{
		{"bard", true},
		{"gemini", true},
		{" OpenAI ", false},
		{"Claude", false},
	}
	for _, tt := range tests {
		_, err := NewProvider(Config{Provider: tt.name})
		if got := errors.Is(err, ErrUnknownProvider); got != tt.unknown {
			t.Errorf("NewProvider(%q) err = %v, unknown = %v, want %v", tt.name, err, got, tt.unknown)
		}
	}

	if _, err := NewExtractor(Config{Provider: "bard"}); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("NewExtractor err = %v, want ErrUnknownProvider", err)
	}
}

func TestNewExtractor_MissingKey(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic"} {
		if _, err := NewExtractor(Config{Provider: provider}); err == nil {
			t.Errorf("%s: expected error without API key", provider)
		}
	}
}

func TestExtractor_ExtractClaims(t *testing.T) {
	mock := &MockProvider{
		name:     "mock",
		response: "Here are the claims:\nCLAIM: Taxes doubled in 2020.\nclaim:  Crime fell by half.\nCLAIM:\nnoise line",
	}
	extractor := NewExtractorWithProvider(mock, 0)

	claims, err := extractor.ExtractClaims(context.Background(), "transcript text")
	if err != nil {
		t.Fatalf("ExtractClaims() error = %v", err)
	}

	want := []string{"Taxes doubled in 2020.", "Crime fell by half."}
	if !reflect.DeepEqual(claims, want) {
		t.Errorf("ExtractClaims() = %v, want %v", claims, want)
	}
	if !strings.Contains(mock.prompts[0], "Transcript:\ntranscript text") {
		t.Errorf("prompt missing transcript: %q", mock.prompts[0])
	}
}

func TestExtractor_ExtractTermsAndClaims(t *testing.T) {
	mock := &MockProvider{
		name:     "mock",
		response: "CLAIMS:\n- Taxes doubled\n- Crime fell\nSEARCH_TERMS:\n- tax policy\n- crime rate",
	}
	extractor := NewExtractorWithProvider(mock, 100)

	got, err := extractor.ExtractTermsAndClaims(context.Background(), strings.Repeat("é", 3000))
	if err != nil {
		t.Fatalf("ExtractTermsAndClaims() error = %v", err)
	}
	if !reflect.DeepEqual(got.Claims, []string{"Taxes doubled", "Crime fell"}) {
		t.Errorf("Claims = %v", got.Claims)
	}
	if !reflect.DeepEqual(got.Terms, []string{"tax policy", "crime rate"}) {
		t.Errorf("Terms = %v", got.Terms)
	}

	// input is cut to 2000 characters
	if n := strings.Count(mock.prompts[0], "é"); n != maxExtractionInput {
		t.Errorf("prompt carries %d input characters, want %d", n, maxExtractionInput)
	}
}

func TestExtractor_ProviderError(t *testing.T) {
	mock := &MockProvider{name: "mock", err: errors.New("boom")}
	extractor := NewExtractorWithProvider(mock, 0)

	_, err := extractor.ExtractTermsAndClaims(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "mock extraction: boom") {
		t.Errorf("error = %v", err)
	}
}

func TestParseTermsAndClaims_Tolerant(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantClaims []string
		wantTerms  []string
	}{
		{
			name:       "missing terms section",
			content:    "CLAIMS:\n- only claims",
			wantClaims: []string{"only claims"},
		},
		{
			name:      "missing claims section",
			content:   "SEARCH_TERMS:\n  - indented term  ",
			wantTerms: []string{"indented term"},
		},
		{
			name:       "stray lines and early bullets",
			content:    "- before any header\nSure! Here you go.\nCLAIMS:\nnot a bullet\n- real claim\n-\nSEARCH_TERMS:\n* star bullet\n- real term",
			wantClaims: []string{"real claim"},
			wantTerms:  []string{"real term"},
		},
		{
			name:    "empty",
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, terms := ParseTermsAndClaims(tt.content)
			if !reflect.DeepEqual(claims, tt.wantClaims) {
				t.Errorf("claims = %v, want %v", claims, tt.wantClaims)
			}
			if !reflect.DeepEqual(terms, tt.wantTerms) {
				t.Errorf("terms = %v, want %v", terms, tt.wantTerms)
			}
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	mc := model.DefaultConfig().LLM
	mc.Provider = "anthropic"
	mc.HTTPSProxy = "http://proxy:8080"

	cfg := ConfigFromModel(mc)
	if cfg.Provider != "anthropic" || cfg.HTTPSProxy != "http://proxy:8080" || cfg.MaxTokens != 600 {
		t.Errorf("ConfigFromModel() = %+v", cfg)
	}
}
