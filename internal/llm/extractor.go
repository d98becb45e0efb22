package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/precedent/internal/extract"
)

// Extractor turns free text into claims and search terms using an LLM.
// A nil provider disables it.
type Extractor struct {
	provider  Provider
	maxTokens int
}

// NewExtractor creates an extractor from configuration. It returns a disabled
// extractor when no provider is configured.
func NewExtractor(config Config) (*Extractor, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return NewExtractorWithProvider(provider, config.MaxTokens), nil
}

// NewExtractorWithProvider wraps an existing provider
func NewExtractorWithProvider(provider Provider, maxTokens int) *Extractor {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Extractor{provider: provider, maxTokens: maxTokens}
}

// IsEnabled reports whether a provider is configured
func (e *Extractor) IsEnabled() bool {
	return e != nil && e.provider != nil
}

// Provider returns the underlying provider, or nil when disabled
func (e *Extractor) Provider() Provider {
	if e == nil {
		return nil
	}
	return e.provider
}

// ExtractClaims lists the checkable claims in a transcript
func (e *Extractor) ExtractClaims(ctx context.Context, transcript string) ([]string, error) {
	text, err := e.complete(ctx, ClaimPrompt(transcript))
	if err != nil {
		return nil, err
	}
	return ParseClaims(text), nil
}

// ExtractTermsAndClaims condenses text into claims and search terms
func (e *Extractor) ExtractTermsAndClaims(ctx context.Context, text string) (extract.Extraction, error) {
	reply, err := e.complete(ctx, TermsPrompt(text))
	if err != nil {
		return extract.Extraction{}, err
	}
	claims, terms := ParseTermsAndClaims(reply)
	return extract.Extraction{Claims: claims, Terms: terms}, nil
}

func (e *Extractor) complete(ctx context.Context, prompt string) (string, error) {
	if !e.IsEnabled() {
		return "", fmt.Errorf("LLM extraction is disabled")
	}
	resp, err := e.provider.Complete(ctx, CompletionRequest{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s extraction: %w", e.provider.Name(), err)
	}
	return strings.TrimSpace(resp.Text), nil
}
