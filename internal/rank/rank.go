// Package rank scores and orders extracted problems.
//
// The ranking itself is delegated to the reasoning capability together with
// a set of advisory constraints (see Advisories). The stage then applies its
// own invariants to the result: a stable sort by impact score and a derived
// confidence label. In strict mode the advisory constraints are also checked
// locally and violations are reported, never repaired.
package rank

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ShayCichocki/c4pm/internal/contract"
	"github.com/ShayCichocki/c4pm/internal/logging"
	"github.com/ShayCichocki/c4pm/internal/metrics"
	"github.com/ShayCichocki/c4pm/internal/reasoning"
	"github.com/ShayCichocki/c4pm/pkg/models"
)

// StageName labels ranking in logs and metrics.
const StageName = "rank"

// Fallback values stamped on every problem when the ranking cannot be decoded.
const (
	FallbackImpactScore = 5
	FallbackReasoning   = "Unable to rank"
)

// Options configures the ranking request.
type Options struct {
	// ExcerptChars is the per-transcript context budget, in characters.
	ExcerptChars int
	// MaxTranscripts bounds how many transcripts are excerpted.
	MaxTranscripts int
	MaxTokens      int
	Temperature    float64
	Scheme         models.ScoringScheme
	// Strict enables local validation of the advisory constraints.
	Strict bool
	System string
}

// DefaultOptions returns the stock ranking budget with the strict scheme.
func DefaultOptions() Options {
	return Options{
		ExcerptChars:   1500,
		MaxTranscripts: 10,
		MaxTokens:      4096,
		Temperature:    0.2,
		Scheme:         models.StrictScheme,
	}
}

// Result is the ranking output.
type Result struct {
	// Problems is ordered by impact score, highest first.
	Problems []models.ProblemRecord
	// Degraded is set when the fallback ranking was used.
	Degraded       bool
	DecodeErr      error
	Recommendation string
	// Violations lists advisory constraints the capability broke. Only
	// populated in strict mode.
	Violations []Violation
}

// Stage is the ranking stage.
type Stage struct {
	invoker reasoning.Invoker
	opts    Options
	log     logrus.FieldLogger
	metrics *metrics.Recorder
}

// New creates a ranking stage.
func New(invoker reasoning.Invoker, opts Options, log logrus.FieldLogger, m *metrics.Recorder) *Stage {
	if opts.Scheme.Max == nil {
		opts.Scheme = models.StrictScheme
	}
	return &Stage{
		invoker: invoker,
		opts:    opts,
		log:     logging.OrDiscard(log).WithField("stage", StageName),
		metrics: m,
	}
}

// Run ranks problems. Zero problems yield an empty result without calling
// the capability. The input slice is never modified.
func (s *Stage) Run(ctx context.Context, problems []models.ProblemRecord, transcripts []models.TranscriptRecord) (*Result, error) {
	if len(problems) == 0 {
		return &Result{Problems: []models.ProblemRecord{}}, nil
	}

	prompt, err := BuildPrompt(problems, transcripts, s.opts)
	if err != nil {
		return nil, fmt.Errorf("rank problems: %w", err)
	}

	system := s.opts.System
	if system == "" {
		system = defaultSystem
	}

	s.log.WithField("problems", len(problems)).Debug("calling capability for ranking")
	resp, err := s.invoker.Invoke(ctx, reasoning.Request{
		Stage:       StageName,
		System:      system,
		Prompt:      prompt,
		Format:      reasoning.FormatJSONObject,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("rank problems: %w", err)
	}

	parsed := contract.Parse(resp.Text, contract.Expect{Key: "ranked_problems"}, func() []models.ProblemRecord {
		return Fallback(problems)
	})

	result := &Result{
		Problems:       parsed.Value,
		Degraded:       parsed.Degraded,
		DecodeErr:      parsed.Err,
		Recommendation: parsed.Note("recommendation"),
	}
	if result.Problems == nil {
		result.Problems = []models.ProblemRecord{}
	}

	if parsed.Degraded {
		s.metrics.Fallback(StageName)
		s.log.WithError(parsed.Err).Warn("could not parse ranking response, using unranked fallback")
		return result, nil
	}

	for _, inv := range Invariants() {
		inv.Apply(result.Problems)
	}

	if len(result.Problems) != len(problems) {
		s.log.WithFields(logrus.Fields{
			"sent":     len(problems),
			"returned": len(result.Problems),
		}).Debug("ranking returned a different number of problems")
	}
	if result.Recommendation != "" {
		s.log.Debugf("recommendation: %s", result.Recommendation)
	}

	if s.opts.Strict {
		result.Violations = Validate(result.Problems, len(transcripts), s.opts.Scheme)
		for _, v := range result.Violations {
			s.log.WithFields(logrus.Fields{
				"constraint": v.Constraint,
				"problem":    v.Problem,
			}).Warn(v.Detail)
		}
	}

	return result, nil
}

// Fallback returns a copy of problems, each stamped with the synthetic
// fallback score, reasoning and a "low" confidence label.
func Fallback(problems []models.ProblemRecord) []models.ProblemRecord {
	out := make([]models.ProblemRecord, len(problems))
	for i, p := range problems {
		p.ImpactScore = FallbackImpactScore
		p.Reasoning = FallbackReasoning
		p.Confidence = models.ConfidenceLow
		out[i] = p
	}
	return out
}
