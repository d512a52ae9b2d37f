package llm

import (
	"fmt"
	"strings"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// NewProvider creates a new provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - advisor disabled
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown advisor provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the service configuration to llm.Config
func ConfigFromModel(advisor model.AdvisorConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:         advisor.Provider,
		Model:            advisor.Model,
		APIKey:           advisor.APIKey,
		BaseURL:          advisor.BaseURL,
		Timeout:          advisor.Timeout,
		MaxTokens:        advisor.MaxTokens,
		MaxDeduction:     advisor.MaxDeduction,
		DefaultDeduction: advisor.DefaultDeduction,
		HTTPProxy:        httpCfg.HTTPProxy,
		HTTPSProxy:       httpCfg.HTTPSProxy,
		NoProxy:          httpCfg.NoProxy,
	}
}
