// Package config persists per-provider chat settings. The core never
// reads these implicitly: hosts load them here and pass the values in
// per call.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// ProviderSettings holds the persisted preferences for one provider.
type ProviderSettings struct {
	Model        string `toml:"model,omitempty"`
	BaseURL      string `toml:"base_url,omitempty"`
	Temperature  int    `toml:"temperature"` // 0..100 user scale
	SystemPrompt string `toml:"system_prompt,omitempty"`
}

// Settings is the JSON/TOML-serializable settings object keyed by
// provider.
type Settings struct {
	DefaultProvider string                      `toml:"default_provider,omitempty"`
	Providers       map[string]ProviderSettings `toml:"providers"`
}

// Default returns empty settings with the map initialized.
func Default() *Settings {
	return &Settings{Providers: make(map[string]ProviderSettings)}
}

// Provider returns the settings for one provider id, zero-valued when
// none are stored.
func (s *Settings) Provider(id string) ProviderSettings {
	return s.Providers[id]
}

// SetProvider stores the settings for one provider id.
func (s *Settings) SetProvider(id string, ps ProviderSettings) {
	if s.Providers == nil {
		s.Providers = make(map[string]ProviderSettings)
	}
	s.Providers[id] = ps
}

// Load reads settings from path. A missing file yields defaults, not
// an error. Environment variables override the file: SEQASSIST_PROVIDER
// picks the default provider and SEQASSIST_TEMPERATURE its
// temperature.
func Load(path string) (*Settings, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]ProviderSettings)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (s *Settings) applyEnvOverrides() {
	if p := os.Getenv("SEQASSIST_PROVIDER"); p != "" {
		s.DefaultProvider = p
	}
	// the temperature override needs a provider to attach to
	if t := os.Getenv("SEQASSIST_TEMPERATURE"); t != "" && s.DefaultProvider != "" {
		if v, err := strconv.Atoi(t); err == nil {
			ps := s.Providers[s.DefaultProvider]
			ps.Temperature = v
			s.SetProvider(s.DefaultProvider, ps)
		}
	}
}

// Save writes settings to path with user-only permissions, creating
// parent directories as needed.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	// 0600: settings name models and endpoints, keep them private
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}
