// Package specgen writes a build specification for one ranked problem.
package specgen

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

// StageName labels the specification stage in logs and metrics.
const StageName = "spec"

// FallbackSummary is the proposed-solution summary of a degraded document.
const FallbackSummary = "Unable to generate solution"

// evidenceSummaryLen is how many evidence entries back a missing summary.
const evidenceSummaryLen = 3

// Options configures the specification request.
type Options struct {
	// MaxTranscripts bounds how many transcripts are excerpted.
	MaxTranscripts int
	// ExcerptChars is the per-transcript context budget, in characters.
	ExcerptChars int
	MaxTokens    int
	Temperature  float64
	// Scheme supplies factor maxima for the scoring summary.
	Scheme models.ScoringScheme
	System string
}

// DefaultOptions returns the stock specification budget.
func DefaultOptions() Options {
	return Options{
		MaxTranscripts: 3,
		ExcerptChars:   2000,
		MaxTokens:      4096,
		Temperature:    0.3,
		Scheme:         models.StrictScheme,
	}
}

// Result is the specification output.
type Result struct {
	Document *models.SpecificationDocument
	// Degraded is set when the fallback document was used.
	Degraded  bool
	DecodeErr error
}

// Stage is the specification stage.
type Stage struct {
	invoker reasoning.Invoker
	opts    Options
	log     logrus.FieldLogger
	metrics *metrics.Recorder
}

// New creates a specification stage.
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

// Run generates the specification for problem. The returned document always
// carries locally built metadata.
func (s *Stage) Run(ctx context.Context, problem models.ProblemRecord, transcripts []models.TranscriptRecord) (*Result, error) {
	prompt, err := BuildPrompt(problem, transcripts, s.opts)
	if err != nil {
		return nil, fmt.Errorf("generate spec: %w", err)
	}

	system := s.opts.System
	if system == "" {
		system = defaultSystem
	}

	s.log.WithField("problem", problem.Name).Debug("calling capability for specification")
	resp, err := s.invoker.Invoke(ctx, reasoning.Request{
		Stage:       StageName,
		System:      system,
		Prompt:      prompt,
		Format:      reasoning.FormatJSONObject,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate spec: %w", err)
	}

	parsed := contract.Parse(resp.Text, contract.Expect{Key: "specification", Object: true}, func() *models.SpecificationDocument {
		return Fallback(problem)
	})

	doc := parsed.Value
	if doc == nil {
		doc = Fallback(problem)
	}
	if parsed.Degraded {
		s.metrics.Fallback(StageName)
		s.log.WithError(parsed.Err).Warn("could not parse specification response, using fallback document")
	} else if !doc.HasEvidenceSummary() {
		doc.EvidenceSummary = firstEvidence(problem.Evidence)
		s.log.Debug("response had no evidence_summary, backfilled from problem evidence")
	}

	doc.Metadata = Metadata(problem)
	return &Result{Document: doc, Degraded: parsed.Degraded, DecodeErr: parsed.Err}, nil
}

// Fallback returns the degraded document for problem: every content section
// empty, the description as problem statement and the first evidence entries
// as evidence summary.
func Fallback(problem models.ProblemRecord) *models.SpecificationDocument {
	doc := models.EmptySpecification()
	doc.ProblemStatement = problem.Description
	doc.ProposedSolution.Summary = FallbackSummary
	doc.EvidenceSummary = firstEvidence(problem.Evidence)
	return doc
}

// Metadata builds the _metadata block for problem.
func Metadata(problem models.ProblemRecord) *models.SpecMetadata {
	return &models.SpecMetadata{
		SourceProblem: problem.Name,
		ImpactScore:   problem.ImpactScore,
		Confidence:    models.ConfidenceLabel(orUnknown(string(problem.Confidence))),
		UserSegment:   orUnknown(problem.UserSegment),
		Severity:      orUnknown(string(problem.Severity)),
		GeneratedBy:   models.SpecGenerator,
		Version:       models.SpecSchemaVersion,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func firstEvidence(evidence models.Quotes) models.Items {
	n := len(evidence)
	if n > evidenceSummaryLen {
		n = evidenceSummaryLen
	}
	return models.ItemsOf(evidence[:n]...)
}
