package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ShayCichocki/c4pm/internal/config"
	"github.com/ShayCichocki/c4pm/internal/metrics"
	"github.com/ShayCichocki/c4pm/internal/reasoning"
)

// capability is the configured reasoning client together with what is
// needed to report on it.
type capability struct {
	invoker  reasoning.Invoker
	provider string
	model    string
	// tracker is nil when the invoker does not count tokens.
	tracker *reasoning.TokenTracker
}

// usage returns the call and token counters.
func (c *capability) usage() (calls int, input, output int64) {
	if c.tracker == nil {
		return 0, 0, 0
	}
	input, output = c.tracker.Total()
	return c.tracker.Calls(), input, output
}

// newCapability builds the reasoning client for the configured provider.
// Tests replace it with a scripted invoker.
var newCapability = func(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, m *metrics.Recorder) (*capability, error) {
	backend, model, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := reasoning.NewClient(backend,
		reasoning.WithRetryPolicy(reasoning.RetryPolicy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			BackoffUnit:    cfg.Retry.BackoffUnit,
			RequestTimeout: cfg.Retry.RequestTimeout,
		}),
		reasoning.WithRateLimit(cfg.Rate.RequestsPerMinute, cfg.Rate.Burst),
		reasoning.WithLogger(log),
		reasoning.WithMetrics(m),
	)

	log.WithFields(logrus.Fields{"backend": backend.Name(), "model": model}).Debug("reasoning client ready")

	return &capability{
		invoker:  client,
		provider: cfg.Provider,
		model:    model,
		tracker:  client.Tracker(),
	}, nil
}

// newBackend creates the provider backend and reports the resolved model.
func newBackend(ctx context.Context, cfg *config.Config) (reasoning.Backend, string, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, "", err
		}
		b, err := reasoning.NewOpenAIBackend(reasoning.OpenAIConfig{
			Model:   cfg.OpenAI.Model,
			APIKey:  key,
			BaseURL: cfg.OpenAI.BaseURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("create openai backend: %w", err)
		}
		return b, b.Model(), nil

	case config.ProviderBedrock:
		b, err := reasoning.NewAnthropicBackend(ctx, reasoning.AnthropicConfig{
			Model:         cfg.Anthropic.Model,
			UseAWSBedrock: true,
			AWSRegion:     cfg.Bedrock.Region,
			AWSProfile:    cfg.Bedrock.Profile,
		})
		if err != nil {
			return nil, "", fmt.Errorf("create bedrock backend: %w", err)
		}
		return b, b.Model(), nil

	default:
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, "", err
		}
		b, err := reasoning.NewAnthropicBackend(ctx, reasoning.AnthropicConfig{
			Model:   cfg.Anthropic.Model,
			APIKey:  key,
			BaseURL: cfg.Anthropic.BaseURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("create anthropic backend: %w", err)
		}
		return b, b.Model(), nil
	}
}
