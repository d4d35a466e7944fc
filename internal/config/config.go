// Package config handles configuration loading and management for c4pm.
// It supports XDG config paths, project-level overrides, .env files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Providers of the reasoning capability.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderBedrock   = "bedrock"
)

// Config holds all configuration for c4pm.
type Config struct {
	Provider    string          `mapstructure:"provider"`
	Anthropic   AnthropicConfig `mapstructure:"anthropic"`
	OpenAI      OpenAIConfig    `mapstructure:"openai"`
	Bedrock     BedrockConfig   `mapstructure:"bedrock"`
	Retry       RetryConfig     `mapstructure:"retry"`
	Rate        RateConfig      `mapstructure:"rate"`
	Run         RunConfig       `mapstructure:"run"`
	Stages      StagesConfig    `mapstructure:"stages"`
	Scoring     ScoringConfig   `mapstructure:"scoring"`
	PromptsFile string          `mapstructure:"prompts_file"`
	Log         LogConfig       `mapstructure:"log"`
	History     HistoryConfig   `mapstructure:"history"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// OpenAIConfig holds settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// BedrockConfig holds AWS Bedrock settings.
type BedrockConfig struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// RetryConfig bounds retries of rate-limited capability calls.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffUnit    time.Duration `mapstructure:"backoff_unit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RateConfig holds the client-side request rate limit.
type RateConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
}

// RunConfig holds whole-run settings.
type RunConfig struct {
	// Timeout bounds a whole command. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
}

// StageConfig holds one stage's request budget. Fields a stage does not use
// are ignored.
type StageConfig struct {
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxChars       int     `mapstructure:"max_chars"`
	ExcerptChars   int     `mapstructure:"excerpt_chars"`
	MaxTranscripts int     `mapstructure:"max_transcripts"`
}

// StagesConfig holds the per-stage budgets.
type StagesConfig struct {
	Extract StageConfig `mapstructure:"extract"`
	Rank    StageConfig `mapstructure:"rank"`
	Spec    StageConfig `mapstructure:"spec"`
}

// ScoringConfig selects the ranking rubric.
type ScoringConfig struct {
	// Scheme is "strict" (16 points) or "legacy" (10 points).
	Scheme string `mapstructure:"scheme"`
	// StrictValidation checks the ranking constraints locally.
	StrictValidation bool `mapstructure:"strict_validation"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path of the SQLite database. Empty means the XDG data directory.
	Path string `mapstructure:"path"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile is written in Prometheus text format after each run.
	Textfile string `mapstructure:"textfile"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, C4PM_*)
// 2. Project config (.c4pm.yaml in current directory or parent)
// 3. User config (~/.config/c4pm/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config: %w", err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	return cfg, nil
}

// bindEnv maps environment variables onto keys. Every key can be set as
// C4PM_<KEY> with dots replaced by underscores.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("C4PM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("anthropic.api_key", "C4PM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("openai.api_key", "C4PM_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "C4PM_OPENAI_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("bedrock.region", "C4PM_BEDROCK_REGION", "AWS_REGION")
	_ = v.BindEnv("bedrock.profile", "C4PM_BEDROCK_PROFILE", "AWS_PROFILE")
}

// LoadDotEnv loads .env from the current directory into the process
// environment. Variables that are already set win. A missing file is not
// an error.
func LoadDotEnv() error {
	return loadDotEnvFile(".env")
}

func loadDotEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	for _, key := range Keys() {
		value, _ := fields[key].get(cfg)
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.Set(key, value)
	}

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultHistoryPath returns the history database path under the XDG data
// directory.
func DefaultHistoryPath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "c4pm", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".c4pm", "history.db")
	}
	return filepath.Join(home, ".local", "share", "c4pm", "history.db")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderAnthropic)

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("bedrock.region", "")
	v.SetDefault("bedrock.profile", "")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_unit", "10s")
	v.SetDefault("retry.request_timeout", "5m")
	v.SetDefault("rate.requests_per_minute", 50)
	v.SetDefault("rate.burst", 1)
	v.SetDefault("run.timeout", "0s")

	v.SetDefault("stages.extract.max_tokens", 4096)
	v.SetDefault("stages.extract.temperature", 0.3)
	v.SetDefault("stages.extract.max_chars", 120000)
	v.SetDefault("stages.rank.max_tokens", 4096)
	v.SetDefault("stages.rank.temperature", 0.2)
	v.SetDefault("stages.rank.excerpt_chars", 1500)
	v.SetDefault("stages.rank.max_transcripts", 10)
	v.SetDefault("stages.spec.max_tokens", 4096)
	v.SetDefault("stages.spec.temperature", 0.3)
	v.SetDefault("stages.spec.excerpt_chars", 2000)
	v.SetDefault("stages.spec.max_transcripts", 3)

	v.SetDefault("scoring.scheme", "strict")
	v.SetDefault("scoring.strict_validation", false)
	v.SetDefault("prompts_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("metrics.textfile", "")
}

// getUserConfigDir returns the XDG config directory for c4pm.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "c4pm")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "c4pm")
	}
	return filepath.Join(home, ".config", "c4pm")
}

// findProjectConfig searches for .c4pm.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".c4pm.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	stage := func(maxTokens int, temp float64) StageConfig {
		return StageConfig{MaxTokens: maxTokens, Temperature: temp}
	}
	cfg := &Config{
		Provider: ProviderAnthropic,
		OpenAI:   OpenAIConfig{Model: "gpt-4o"},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BackoffUnit:    10 * time.Second,
			RequestTimeout: 5 * time.Minute,
		},
		Rate: RateConfig{RequestsPerMinute: 50, Burst: 1},
		Stages: StagesConfig{
			Extract: stage(4096, 0.3),
			Rank:    stage(4096, 0.2),
			Spec:    stage(4096, 0.3),
		},
		Scoring: ScoringConfig{Scheme: "strict"},
		Log:     LogConfig{Level: "info", Format: "text"},
		History: HistoryConfig{Enabled: true},
	}
	cfg.Stages.Extract.MaxChars = 120000
	cfg.Stages.Rank.ExcerptChars = 1500
	cfg.Stages.Rank.MaxTranscripts = 10
	cfg.Stages.Spec.ExcerptChars = 2000
	cfg.Stages.Spec.MaxTranscripts = 3
	return cfg
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderBedrock:
	default:
		return fmt.Errorf("unknown provider %q (want anthropic, openai or bedrock)", c.Provider)
	}
	switch c.Scoring.Scheme {
	case "", "strict", "legacy":
	default:
		return fmt.Errorf("unknown scoring scheme %q (want strict or legacy)", c.Scoring.Scheme)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BackoffUnit < 0 {
		return fmt.Errorf("retry.backoff_unit must not be negative")
	}
	return nil
}
