package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/precedent/internal/model"
)

// ErrUnknownProvider is returned for a provider name with no constructor
var ErrUnknownProvider = errors.New("unknown LLM provider")

var constructors = map[string]func(Config) (Provider, error){
	"openai":    constructor(NewOpenAIProvider),
	"anthropic": constructor(NewAnthropicProvider),
	"claude":    constructor(NewAnthropicProvider),
	"ollama":    constructor(NewOllamaProvider),
}

// constructor adapts a concrete constructor, keeping a failed build a nil Provider
func constructor[P Provider](fn func(Config) (P, error)) func(Config) (Provider, error) {
	return func(c Config) (Provider, error) {
		p, err := fn(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// NewProvider builds the configured provider. An empty name disables
// extraction and returns a nil provider.
func NewProvider(config Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(config.Provider))
	if name == "" {
		return nil, nil
	}
	build, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (want openai, anthropic or ollama)", ErrUnknownProvider, config.Provider)
	}
	return build(config)
}

// ConfigFromModel copies the llm section of the application config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:   mc.Provider,
		Model:      mc.Model,
		APIKey:     mc.APIKey,
		BaseURL:    mc.BaseURL,
		Timeout:    mc.Timeout,
		MaxTokens:  mc.MaxTokens,
		HTTPProxy:  mc.HTTPProxy,
		HTTPSProxy: mc.HTTPSProxy,
		NoProxy:    mc.NoProxy,
	}
}
