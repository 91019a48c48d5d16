// Package provider implements the model.Provider contract for each
// supported LLM back-end and the factory that selects between them.
//
// Four provider kinds are supported, distinguished only by identifier,
// base URL, model id and credential: OpenAI, Anthropic, Ollama and
// OpenRouter (OpenAI-compatible). Each exposes the same two
// capabilities: invoke with message history streaming token deltas,
// and list available models.
package provider

import (
	"context"
	"errors"
)

// ID identifies a provider implementation.
type ID string

const (
	IDOpenAI     ID = "openai"
	IDAnthropic  ID = "anthropic"
	IDOllama     ID = "ollama"
	IDOpenRouter ID = "openrouter"
)

// IDs is the fixed enumerated set of supported providers.
var IDs = []ID{IDOpenAI, IDAnthropic, IDOllama, IDOpenRouter}

// ErrUnsupportedProvider is returned when a config names a provider
// outside the enumerated set. Fatal to that call only.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Config holds per-invocation provider configuration. It is supplied
// fresh by the caller on every call and never persisted here.
type Config struct {
	ID          ID
	Model       string
	BaseURL     string
	APIKey      string
	Temperature int // 0..100 user scale, rescaled per provider
}

// CredentialResolver resolves the credential for a provider lazily.
// Resolution may suspend on an interactive vault unlock, which is why
// credentials are injected as a resolver rather than a plain field.
type CredentialResolver func(ctx context.Context, id ID) (string, error)

// Known reports whether id is in the enumerated provider set.
func Known(id ID) bool {
	switch id {
	case IDOpenAI, IDAnthropic, IDOllama, IDOpenRouter:
		return true
	}
	return false
}

// RequiresCredential reports whether the provider needs an API key.
// Ollama talks to a local server and does not.
func RequiresCredential(id ID) bool {
	return id != IDOllama
}

// InlineReasoning reports whether the provider emits reasoning inline
// in the text stream between literal markers rather than as a separate
// structured field. For these the agent enables marker parsing
// unconditionally.
func InlineReasoning(id ID) bool {
	return id == IDOllama
}
