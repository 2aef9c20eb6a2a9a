package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/config"
)

// Provider names accepted in AIConfig.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1"

// NewClientFromConfig builds the configured provider client.
// It returns nil and no error when no provider is configured.
func NewClientFromConfig(cfg *config.AIConfig, logger *zap.Logger) (LLMClient, error) {
	if cfg == nil || !cfg.Enabled() {
		return nil, nil
	}

	clientCfg := &Config{
		Endpoint:  cfg.BaseURL,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		if clientCfg.Endpoint == "" {
			clientCfg.Endpoint = defaultOpenAIEndpoint
		}
		client, err := NewClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil
	case ProviderAnthropic:
		client, err := NewAnthropicClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}
