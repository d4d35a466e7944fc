package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured for the provider.
var ErrNoAPIKey = errors.New("no API key configured")

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceAWS    KeySource = "aws_credentials"
	KeySourceNone   KeySource = "none"
)

// keyEnvVar returns the environment variable holding the provider's key.
func keyEnvVar(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}

// configuredKey returns the provider's key from the config file, ignoring
// unexpanded ${VAR} references.
func configuredKey(cfg *Config) string {
	if cfg == nil {
		return ""
	}
	raw := cfg.Anthropic.APIKey
	if cfg.Provider == ProviderOpenAI {
		raw = cfg.OpenAI.APIKey
	}
	key := os.ExpandEnv(raw)
	if strings.HasPrefix(key, "${") {
		return ""
	}
	return key
}

// GetAPIKey returns the API key for the configured provider.
// It checks in order: environment variable, config file.
// Bedrock authenticates through the AWS credential chain and has no key.
func GetAPIKey(cfg *Config) (string, error) {
	provider := ProviderAnthropic
	if cfg != nil && cfg.Provider != "" {
		provider = cfg.Provider
	}
	if provider == ProviderBedrock {
		return "", nil
	}

	envVar := keyEnvVar(provider)
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	if key := configuredKey(cfg); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: set %s or %s.api_key", ErrNoAPIKey, envVar, provider)
}

// ValidateAPIKey performs basic validation on an API key.
// It checks format but does not verify the key with the provider.
func ValidateAPIKey(provider, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	switch provider {
	case ProviderAnthropic, "":
		if !strings.HasPrefix(key, "sk-ant-") {
			return errors.New("invalid API key format: expected 'sk-ant-' prefix")
		}
	case ProviderOpenAI:
		if !strings.HasPrefix(key, "sk-") {
			return errors.New("invalid API key format: expected 'sk-' prefix")
		}
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	provider := ProviderAnthropic
	if cfg != nil && cfg.Provider != "" {
		provider = cfg.Provider
	}
	if provider == ProviderBedrock {
		return KeySourceAWS
	}
	if os.Getenv(keyEnvVar(provider)) != "" {
		return KeySourceEnv
	}
	if configuredKey(cfg) != "" {
		return KeySourceConfig
	}
	return KeySourceNone
}
