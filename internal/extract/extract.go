// Package extract turns interview transcripts into candidate problem records
// with a single request to the reasoning capability.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/ShayCichocki/c4pm/internal/contract"
	"github.com/ShayCichocki/c4pm/internal/logging"
	"github.com/ShayCichocki/c4pm/internal/metrics"
	"github.com/ShayCichocki/c4pm/internal/reasoning"
	"github.com/ShayCichocki/c4pm/pkg/models"
)

// StageName labels extraction in logs and metrics.
const StageName = "extract"

// TruncationMarker is appended when the combined transcripts exceed the cap.
const TruncationMarker = "\n\n[TRUNCATED]"

// transcriptSeparator delimits transcripts in the combined payload.
var transcriptSeparator = "\n\n" + strings.Repeat("=", 50) + "\n\n"

// Options configures the extraction request.
type Options struct {
	// MaxChars caps the combined transcript payload, in characters.
	MaxChars    int
	MaxTokens   int
	Temperature float64
	// System overrides the role instruction when non-empty.
	System string
}

// DefaultOptions returns the stock extraction budget.
func DefaultOptions() Options {
	return Options{
		MaxChars:    120000,
		MaxTokens:   4096,
		Temperature: 0.3,
	}
}

// Result is the extraction output.
type Result struct {
	Problems []models.ProblemRecord
	// Degraded is set when the response could not be decoded and the empty
	// fallback was used.
	Degraded bool
	// DecodeErr explains a degraded result.
	DecodeErr error
	// SynthesisNotes is the capability's note on how it clustered.
	SynthesisNotes string
	// Truncated is set when the payload hit the character cap.
	Truncated bool
}

// Stage is the extraction stage. It holds no state between runs.
type Stage struct {
	invoker reasoning.Invoker
	opts    Options
	log     logrus.FieldLogger
	metrics *metrics.Recorder
}

// New creates an extraction stage.
func New(invoker reasoning.Invoker, opts Options, log logrus.FieldLogger, m *metrics.Recorder) *Stage {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultOptions().MaxChars
	}
	return &Stage{
		invoker: invoker,
		opts:    opts,
		log:     logging.OrDiscard(log).WithField("stage", StageName),
		metrics: m,
	}
}

// Run extracts problems from transcripts. An empty transcript list yields
// an empty result without calling the capability. Capability failures are
// returned; undecodable responses are not, they produce an empty, degraded
// result instead.
func (s *Stage) Run(ctx context.Context, transcripts []models.TranscriptRecord) (*Result, error) {
	if len(transcripts) == 0 {
		return &Result{Problems: []models.ProblemRecord{}}, nil
	}

	prompt, truncated := BuildPrompt(transcripts, s.opts.MaxChars)
	if truncated {
		s.log.WithField("max_chars", s.opts.MaxChars).Warn("transcripts truncated to fit extraction budget")
	}

	system := s.opts.System
	if system == "" {
		system = defaultSystem
	}

	s.log.WithField("transcripts", len(transcripts)).Debug("calling capability for problem extraction")
	resp, err := s.invoker.Invoke(ctx, reasoning.Request{
		Stage:       StageName,
		System:      system,
		Prompt:      prompt,
		Format:      reasoning.FormatJSONObject,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("extract problems: %w", err)
	}

	parsed := contract.Parse(resp.Text, contract.Expect{Key: "problems"}, func() []models.ProblemRecord {
		return []models.ProblemRecord{}
	})

	result := &Result{
		Problems:       parsed.Value,
		Degraded:       parsed.Degraded,
		DecodeErr:      parsed.Err,
		SynthesisNotes: parsed.Note("synthesis_notes"),
		Truncated:      truncated,
	}
	if result.Problems == nil {
		result.Problems = []models.ProblemRecord{}
	}

	if parsed.Degraded {
		s.metrics.Fallback(StageName)
		s.log.WithError(parsed.Err).Warn("could not parse extraction response, continuing with no problems")
		return result, nil
	}

	for _, p := range result.Problems {
		if !p.FrequencyConsistent() {
			s.log.WithFields(logrus.Fields{
				"problem":   p.Name,
				"frequency": p.Frequency,
				"mentions":  p.DistinctMentions(),
			}).Debug("frequency disagrees with mentioned_by")
		}
	}
	if result.SynthesisNotes != "" {
		s.log.Debugf("synthesis: %s", result.SynthesisNotes)
	}
	s.log.WithFields(logrus.Fields{
		"problems": len(result.Problems),
		"shape":    parsed.Shape.String(),
	}).Debug("extraction complete")

	return result, nil
}

// BuildPrompt renders the extraction prompt for transcripts.
func BuildPrompt(transcripts []models.TranscriptRecord, maxChars int) (string, bool) {
	payload, truncated := BuildPayload(transcripts, maxChars)
	return fmt.Sprintf(extractionPrompt, len(transcripts), payload), truncated
}

// BuildPayload combines transcripts behind attribution headers. When the
// result is longer than maxChars characters it is cut and TruncationMarker
// is appended; the second return value reports that.
func BuildPayload(transcripts []models.TranscriptRecord, maxChars int) (string, bool) {
	parts := make([]string, 0, len(transcripts))
	for _, t := range transcripts {
		parts = append(parts, fmt.Sprintf("[INTERVIEW: %s]\n[Interviewee: %s]\n[Role: %s]\n\n%s",
			t.Filename,
			t.Meta(models.MetaInterviewee, "Unknown"),
			t.Meta(models.MetaRole, "Unknown"),
			t.Content,
		))
	}
	combined := transcriptSeparator + strings.Join(parts, transcriptSeparator)

	if maxChars <= 0 || utf8.RuneCountInString(combined) <= maxChars {
		return combined, false
	}
	return truncateRunes(combined, maxChars) + TruncationMarker, true
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
