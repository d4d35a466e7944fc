package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"
)

// PromptOverride replaces a stage's system instruction.
type PromptOverride struct {
	System string `yaml:"system"`
}

// Prompts holds per-stage prompt overrides loaded from prompts_file.
type Prompts struct {
	Extract PromptOverride `yaml:"extract"`
	Rank    PromptOverride `yaml:"rank"`
	Spec    PromptOverride `yaml:"spec"`
}

// LoadPrompts reads a prompts file. An empty path returns empty overrides.
// Unknown keys are rejected so that a misspelt stage is not silently ignored.
func LoadPrompts(path string) (*Prompts, error) {
	p := &Prompts{}
	if path == "" {
		return p, nil
	}

	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("opening prompts file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}
	return p, nil
}
