package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ShayCichocki/c4pm/internal/config"
	"github.com/ShayCichocki/c4pm/internal/history"
	"github.com/ShayCichocki/c4pm/internal/logging"
	"github.com/ShayCichocki/c4pm/internal/metrics"
	"github.com/ShayCichocki/c4pm/internal/pipeline"
	"github.com/ShayCichocki/c4pm/pkg/models"
)

// env is what every command needs after configuration is loaded.
type env struct {
	cfg     *config.Config
	log     *logrus.Logger
	metrics *metrics.Recorder
}

// loadConfig reads .env, then the config file given by --config or the
// standard locations.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFromPath(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// setup loads and validates configuration and builds the logger.
func setup(stderr io.Writer) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Verbose: verbose,
		Output:  stderr,
	})
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, log: log, metrics: metrics.New()}, nil
}

// pipelineOptions maps configuration onto stage options.
func pipelineOptions(cfg *config.Config, strict bool) (pipeline.Options, error) {
	scheme, err := models.SchemeByName(cfg.Scoring.Scheme)
	if err != nil {
		return pipeline.Options{}, err
	}
	prompts, err := config.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.DefaultOptions()

	s := cfg.Stages.Extract
	opts.Extract.MaxChars = s.MaxChars
	opts.Extract.MaxTokens = s.MaxTokens
	opts.Extract.Temperature = s.Temperature
	opts.Extract.System = prompts.Extract.System

	s = cfg.Stages.Rank
	opts.Rank.ExcerptChars = s.ExcerptChars
	opts.Rank.MaxTranscripts = s.MaxTranscripts
	opts.Rank.MaxTokens = s.MaxTokens
	opts.Rank.Temperature = s.Temperature
	opts.Rank.Scheme = scheme
	opts.Rank.Strict = strict || cfg.Scoring.StrictValidation
	opts.Rank.System = prompts.Rank.System

	s = cfg.Stages.Spec
	opts.Spec.ExcerptChars = s.ExcerptChars
	opts.Spec.MaxTranscripts = s.MaxTranscripts
	opts.Spec.MaxTokens = s.MaxTokens
	opts.Spec.Temperature = s.Temperature
	opts.Spec.Scheme = scheme
	opts.Spec.System = prompts.Spec.System

	return opts, nil
}

// runContext returns a context cancelled on SIGINT/SIGTERM and, when
// configured, after run.timeout.
func runContext(parent context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if cfg.Run.Timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Run.Timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// historyPath returns the configured history database path.
func historyPath(cfg *config.Config) string {
	if cfg.History.Path != "" {
		return os.ExpandEnv(cfg.History.Path)
	}
	return config.DefaultHistoryPath()
}

// openHistory opens and migrates the run history database.
func openHistory(cfg *config.Config) (*history.DB, error) {
	db, err := history.Open(historyPath(cfg))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// recordRun stores a finished run when history is enabled. Failures are
// logged, never returned: a run that produced output has succeeded.
func recordRun(ctx context.Context, e *env, run history.Run) {
	if !e.cfg.History.Enabled {
		return
	}
	db, err := openHistory(e.cfg)
	if err != nil {
		e.log.WithError(err).Warn("run history unavailable")
		return
	}
	defer db.Close()

	if err := db.Record(ctx, run); err != nil {
		e.log.WithError(err).Warn("failed to record run")
	}
}

// newRun builds the history record for an analysis.
func newRun(command, dir string, a *pipeline.Analysis, c *capability, degraded bool) history.Run {
	calls, input, output := c.usage()
	return history.Run{
		ID:            a.RunID,
		Command:       command,
		TranscriptDir: dir,
		Provider:      c.provider,
		Model:         c.model,
		Transcripts:   a.Transcripts,
		Degraded:      degraded,
		Calls:         calls,
		InputTokens:   input,
		OutputTokens:  output,
		StartedAt:     a.Started,
		FinishedAt:    a.Finished,
		Ranking:       a.Problems(),
	}
}

// writeMetrics exports counters to the configured textfile.
func writeMetrics(e *env) {
	if err := e.metrics.WriteTextfile(os.ExpandEnv(e.cfg.Metrics.Textfile)); err != nil {
		e.log.WithError(err).Warn("failed to write metrics")
	}
}

// schemeOrStrict resolves a scheme name, falling back to the strict rubric.
func schemeOrStrict(name string) models.ScoringScheme {
	scheme, err := models.SchemeByName(name)
	if err != nil {
		return models.StrictScheme
	}
	return scheme
}
