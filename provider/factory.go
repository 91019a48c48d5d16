package provider

import (
	"context"
	"fmt"

	"seqassist/model"
)

// New creates a provider from configuration. This is the single
// dispatch point for provider-specific construction; nothing outside
// this package branches on the provider id for chat behavior.
func New(cfg Config) (model.Provider, error) {
	switch cfg.ID {
	case IDOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, ScaleTemperature(IDOpenAI, cfg.Temperature))
	case IDAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, ScaleTemperature(IDAnthropic, cfg.Temperature))
	case IDOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, ScaleTemperature(IDOllama, cfg.Temperature))
	case IDOpenRouter:
		return NewOpenRouterProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, ScaleTemperature(IDOpenRouter, cfg.Temperature))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.ID)
	}
}

// Setup resolves the provider credential lazily and constructs the
// provider. Resolution may suspend on an interactive unlock prompt;
// its errors (missing credential, wrong password, cancelled prompt)
// pass through unwrapped so callers can distinguish them.
func Setup(ctx context.Context, cfg Config, resolve CredentialResolver) (model.Provider, error) {
	if !Known(cfg.ID) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.ID)
	}
	if RequiresCredential(cfg.ID) && cfg.APIKey == "" && resolve != nil {
		key, err := resolve(ctx, cfg.ID)
		if err != nil {
			return nil, err
		}
		cfg.APIKey = key
	}
	return New(cfg)
}
