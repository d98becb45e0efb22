package llm

import (
	"context"
	"fmt"
)

const (
	// maxExtractionInput bounds the text sent for term extraction
	maxExtractionInput = 2000

	defaultMaxTokens = 600
	systemPrompt     = "You extract checkable factual claims and search terms from text. Follow the requested output format exactly."
)

// Provider is a text completion backend used for claim and term extraction
type Provider interface {
	Name() string

	// Complete returns the model's reply to a single prompt
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable makes a cheap authenticated call to check the configuration
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is a single-turn prompt
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string // Provider default when empty
	MaxTokens int
}

// CompletionResponse contains the model output
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config configures one provider. Timeout is in seconds; the proxy fields
// override the environment's proxy settings.
type Config struct {
	Provider   string // openai, anthropic (or claude), ollama; empty disables extraction
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int
	MaxTokens  int
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ClaimPrompt asks for one "CLAIM: " line per checkable claim in a transcript
func ClaimPrompt(transcript string) string {
	return "Please extract specific factual claims from this transcript that could be fact-checked.\n" +
		"Focus on verifiable assertions (facts, statistics, events, policies).\n" +
		"Ignore opinions, predictions or subjective statements.\n\n" +
		"Return each claim on its own line prefixed by 'CLAIM: '.\n\nTranscript:\n" + transcript
}

// TermsPrompt asks for CLAIMS and SEARCH_TERMS sections of "- " bullets
func TermsPrompt(text string) string {
	return fmt.Sprintf("Analyze this text and extract:\n"+
		"1) Key factual claims (specific, verifiable)\n"+
		"2) Important search terms (people, orgs, stats, policies, events)\n\n"+
		"Format:\nCLAIMS:\n- ...\nSEARCH_TERMS:\n- ...\n\nText:\n%s", truncateRunes(text, maxExtractionInput))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
