package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected provider 'anthropic', got %q", cfg.Provider)
	}

	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Retry.MaxAttempts)
	}

	if cfg.Retry.BackoffUnit != 10*time.Second {
		t.Errorf("expected backoff unit 10s, got %v", cfg.Retry.BackoffUnit)
	}

	if cfg.Stages.Extract.MaxChars != 120000 {
		t.Errorf("expected extract max_chars 120000, got %d", cfg.Stages.Extract.MaxChars)
	}

	if cfg.Stages.Rank.ExcerptChars != 1500 || cfg.Stages.Rank.MaxTranscripts != 10 {
		t.Errorf("unexpected rank budget %+v", cfg.Stages.Rank)
	}

	if cfg.Stages.Spec.ExcerptChars != 2000 || cfg.Stages.Spec.MaxTranscripts != 3 {
		t.Errorf("unexpected spec budget %+v", cfg.Stages.Spec)
	}

	if cfg.Stages.Rank.Temperature != 0.2 {
		t.Errorf("expected rank temperature 0.2, got %v", cfg.Stages.Rank.Temperature)
	}

	if cfg.Scoring.Scheme != "strict" {
		t.Errorf("expected scheme 'strict', got %q", cfg.Scoring.Scheme)
	}

	if !cfg.History.Enabled {
		t.Error("expected history to be enabled")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
provider: OpenAI
openai:
  api_key: test-key
  model: gpt-4o-mini
retry:
  max_attempts: 5
  backoff_unit: 2s
stages:
  rank:
    temperature: 0.1
    max_transcripts: 4
scoring:
  scheme: legacy
  strict_validation: true
history:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected provider to be lowercased, got %q", cfg.Provider)
	}

	if cfg.OpenAI.APIKey != "test-key" || cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("unexpected openai config %+v", cfg.OpenAI)
	}

	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BackoffUnit != 2*time.Second {
		t.Errorf("unexpected retry config %+v", cfg.Retry)
	}

	if cfg.Retry.RequestTimeout != 5*time.Minute {
		t.Errorf("expected default request timeout 5m, got %v", cfg.Retry.RequestTimeout)
	}

	if cfg.Stages.Rank.Temperature != 0.1 || cfg.Stages.Rank.MaxTranscripts != 4 {
		t.Errorf("unexpected rank stage %+v", cfg.Stages.Rank)
	}

	if cfg.Stages.Rank.ExcerptChars != 1500 {
		t.Errorf("unset keys should keep defaults, got excerpt_chars %d", cfg.Stages.Rank.ExcerptChars)
	}

	if cfg.Scoring.Scheme != "legacy" || !cfg.Scoring.StrictValidation {
		t.Errorf("unexpected scoring %+v", cfg.Scoring)
	}

	if cfg.History.Enabled {
		t.Error("expected history.enabled to be false")
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_ProjectOverridesAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	if err := os.MkdirAll(filepath.Join(home, "c4pm"), 0755); err != nil {
		t.Fatal(err)
	}
	user := "provider: openai\nlog:\n  level: warn\n"
	if err := os.WriteFile(filepath.Join(home, "c4pm", "config.yaml"), []byte(user), 0644); err != nil {
		t.Fatal(err)
	}

	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, ".c4pm.yaml"), []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(project)

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("C4PM_STAGES_SPEC_MAX_TRANSCRIPTS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Provider != ProviderOpenAI {
		t.Errorf("user config should set provider, got %q", cfg.Provider)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("project config should override user config, got level %q", cfg.Log.Level)
	}
	if cfg.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("expected key from OPENAI_API_KEY, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Stages.Spec.MaxTranscripts != 7 {
		t.Errorf("expected C4PM_ env override, got %d", cfg.Stages.Spec.MaxTranscripts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bedrock", func(c *Config) { c.Provider = ProviderBedrock }, ""},
		{"unknown provider", func(c *Config) { c.Provider = "palm" }, "unknown provider"},
		{"unknown scheme", func(c *Config) { c.Scoring.Scheme = "fancy" }, "unknown scoring scheme"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"negative backoff", func(c *Config) { c.Retry.BackoffUnit = -time.Second }, "backoff_unit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	tests := []struct {
		key   string
		value string
	}{
		{"provider", "bedrock"},
		{"retry.max_attempts", "4"},
		{"retry.backoff_unit", "1m0s"},
		{"rate.requests_per_minute", "12.5"},
		{"stages.extract.max_chars", "5000"},
		{"scoring.strict_validation", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%s) failed: %v", tt.key, err)
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%s) failed: %v", tt.key, err)
			}
			if got != tt.value {
				t.Errorf("Get(%s) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}

	if cfg.Stages.Extract.MaxChars != 5000 {
		t.Errorf("Set should write through, got %d", cfg.Stages.Extract.MaxChars)
	}
}

func TestGetSet_Errors(t *testing.T) {
	cfg := Default()

	if _, err := cfg.Get("nope"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := cfg.Set("retry.max_attempts", "three"); err == nil {
		t.Error("expected error for non-integer")
	}
	if err := cfg.Set("run.timeout", "soon"); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestGet_MasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-REDACTED"

	got, err := cfg.Get("anthropic.api_key")
	if err != nil {
		t.Fatal(err)
	}
	if got != "sk-ant-...wxyz" {
		t.Errorf("expected masked key, got %q", got)
	}
}

func TestKeysSorted(t *testing.T) {
	keys := Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys not sorted at %d: %q >= %q", i, keys[i-1], keys[i])
		}
	}
	for _, k := range []string{"stages.rank.excerpt_chars", "history.path", "metrics.textfile"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("missing key %s", k)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Provider = ProviderOpenAI
	cfg.Retry.BackoffUnit = 3 * time.Second
	cfg.Stages.Spec.MaxTranscripts = 5

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Provider != ProviderOpenAI || loaded.Retry.BackoffUnit != 3*time.Second || loaded.Stages.Spec.MaxTranscripts != 5 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "expanded-value")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	dir := getUserConfigDir()
	expected := "/custom/config/c4pm"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestDefaultHistoryPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	if got := DefaultHistoryPath(); got != "/custom/data/c4pm/history.db" {
		t.Errorf("DefaultHistoryPath() = %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("C4PM_DOTENV_PROBE=from-file\nC4PM_DOTENV_SET=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("C4PM_DOTENV_SET", "from-env")
	t.Setenv("C4PM_DOTENV_PROBE", "")
	os.Unsetenv("C4PM_DOTENV_PROBE")

	if err := loadDotEnvFile(path); err != nil {
		t.Fatalf("loadDotEnvFile failed: %v", err)
	}
	if got := os.Getenv("C4PM_DOTENV_PROBE"); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}
	if got := os.Getenv("C4PM_DOTENV_SET"); got != "from-env" {
		t.Errorf("existing variables should win, got %q", got)
	}

	if err := loadDotEnvFile(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("missing .env should not be an error: %v", err)
	}
}

func TestLoadPrompts(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path", func(t *testing.T) {
		p, err := LoadPrompts("")
		if err != nil || p.Rank.System != "" {
			t.Errorf("LoadPrompts(\"\") = %+v, %v", p, err)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		path := filepath.Join(dir, "prompts.yaml")
		content := "rank:\n  system: You are a skeptical PM.\nspec:\n  system: Be terse.\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		p, err := LoadPrompts(path)
		if err != nil {
			t.Fatalf("LoadPrompts failed: %v", err)
		}
		if p.Rank.System != "You are a skeptical PM." || p.Spec.System != "Be terse." || p.Extract.System != "" {
			t.Errorf("unexpected prompts %+v", p)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPrompts(path); err != nil {
			t.Errorf("empty prompts file should load: %v", err)
		}
	})

	t.Run("unknown stage", func(t *testing.T) {
		path := filepath.Join(dir, "typo.yaml")
		if err := os.WriteFile(path, []byte("ranking:\n  system: x\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPrompts(path); err == nil {
			t.Error("expected error for unknown stage key")
		}
	})
}
