package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// field reads and writes one dotted configuration key.
type field struct {
	get    func(*Config) (any, error)
	set    func(*Config, string) error
	secret bool
}

func stringField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) (any, error) { return *p(c), nil },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func secretField(p func(*Config) *string) field {
	f := stringField(p)
	f.secret = true
	return f
}

func intField(p func(*Config) *int) field {
	return field{
		get: func(c *Config) (any, error) { return *p(c), nil },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			*p(c) = n
			return nil
		},
	}
}

func floatField(p func(*Config) *float64) field {
	return field{
		get: func(c *Config) (any, error) { return *p(c), nil },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid number: %w", err)
			}
			*p(c) = f
			return nil
		},
	}
}

func boolField(p func(*Config) *bool) field {
	return field{
		get: func(c *Config) (any, error) { return *p(c), nil },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean: %w", err)
			}
			*p(c) = b
			return nil
		},
	}
}

func durationField(p func(*Config) *time.Duration) field {
	return field{
		get: func(c *Config) (any, error) { return *p(c), nil },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			*p(c) = d
			return nil
		},
	}
}

func stageFields(prefix string, s func(*Config) *StageConfig) map[string]field {
	return map[string]field{
		prefix + ".max_tokens":      intField(func(c *Config) *int { return &s(c).MaxTokens }),
		prefix + ".temperature":     floatField(func(c *Config) *float64 { return &s(c).Temperature }),
		prefix + ".max_chars":       intField(func(c *Config) *int { return &s(c).MaxChars }),
		prefix + ".excerpt_chars":   intField(func(c *Config) *int { return &s(c).ExcerptChars }),
		prefix + ".max_transcripts": intField(func(c *Config) *int { return &s(c).MaxTranscripts }),
	}
}

var fields = func() map[string]field {
	m := map[string]field{
		"provider":          stringField(func(c *Config) *string { return &c.Provider }),
		"anthropic.api_key": secretField(func(c *Config) *string { return &c.Anthropic.APIKey }),
		"anthropic.model":   stringField(func(c *Config) *string { return &c.Anthropic.Model }),
		"anthropic.base_url": stringField(func(c *Config) *string {
			return &c.Anthropic.BaseURL
		}),
		"openai.api_key":  secretField(func(c *Config) *string { return &c.OpenAI.APIKey }),
		"openai.model":    stringField(func(c *Config) *string { return &c.OpenAI.Model }),
		"openai.base_url": stringField(func(c *Config) *string { return &c.OpenAI.BaseURL }),
		"bedrock.region":  stringField(func(c *Config) *string { return &c.Bedrock.Region }),
		"bedrock.profile": stringField(func(c *Config) *string { return &c.Bedrock.Profile }),

		"retry.max_attempts": intField(func(c *Config) *int { return &c.Retry.MaxAttempts }),
		"retry.backoff_unit": durationField(func(c *Config) *time.Duration { return &c.Retry.BackoffUnit }),
		"retry.request_timeout": durationField(func(c *Config) *time.Duration {
			return &c.Retry.RequestTimeout
		}),
		"rate.requests_per_minute": floatField(func(c *Config) *float64 { return &c.Rate.RequestsPerMinute }),
		"rate.burst":               intField(func(c *Config) *int { return &c.Rate.Burst }),
		"run.timeout":              durationField(func(c *Config) *time.Duration { return &c.Run.Timeout }),

		"scoring.scheme":            stringField(func(c *Config) *string { return &c.Scoring.Scheme }),
		"scoring.strict_validation": boolField(func(c *Config) *bool { return &c.Scoring.StrictValidation }),
		"prompts_file":              stringField(func(c *Config) *string { return &c.PromptsFile }),

		"log.level":        stringField(func(c *Config) *string { return &c.Log.Level }),
		"log.format":       stringField(func(c *Config) *string { return &c.Log.Format }),
		"history.enabled":  boolField(func(c *Config) *bool { return &c.History.Enabled }),
		"history.path":     stringField(func(c *Config) *string { return &c.History.Path }),
		"metrics.textfile": stringField(func(c *Config) *string { return &c.Metrics.Textfile }),
	}
	for _, stage := range []struct {
		name string
		get  func(*Config) *StageConfig
	}{
		{"stages.extract", func(c *Config) *StageConfig { return &c.Stages.Extract }},
		{"stages.rank", func(c *Config) *StageConfig { return &c.Stages.Rank }},
		{"stages.spec", func(c *Config) *StageConfig { return &c.Stages.Spec }},
	} {
		for k, f := range stageFields(stage.name, stage.get) {
			m[k] = f
		}
	}
	return m
}()

// Keys returns every settable configuration key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the display value of a dotted key. Secrets are masked.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	value, err := f.get(c)
	if err != nil {
		return "", err
	}
	if f.secret {
		return MaskAPIKey(fmt.Sprint(value)), nil
	}
	return fmt.Sprint(value), nil
}

// Set parses value into the dotted key.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}
