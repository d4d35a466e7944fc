// Package pipeline sequences the extraction, ranking and specification
// stages. Each stage receives the untouched output of the previous one; the
// pipeline keeps no state between runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ShayCichocki/c4pm/internal/extract"
	"github.com/ShayCichocki/c4pm/internal/logging"
	"github.com/ShayCichocki/c4pm/internal/metrics"
	"github.com/ShayCichocki/c4pm/internal/rank"
	"github.com/ShayCichocki/c4pm/internal/reasoning"
	"github.com/ShayCichocki/c4pm/internal/specgen"
	"github.com/ShayCichocki/c4pm/pkg/models"
)

// ErrNoProblems is returned by Specify when ranking produced nothing to
// anchor a specification on.
var ErrNoProblems = errors.New("no problems to specify")

// Options holds the per-stage options.
type Options struct {
	Extract extract.Options
	Rank    rank.Options
	Spec    specgen.Options
}

// DefaultOptions returns every stage's defaults.
func DefaultOptions() Options {
	return Options{
		Extract: extract.DefaultOptions(),
		Rank:    rank.DefaultOptions(),
		Spec:    specgen.DefaultOptions(),
	}
}

// Analysis is the result of the extract and rank stages.
type Analysis struct {
	RunID       string
	Transcripts int
	Extraction  *extract.Result
	Ranking     *rank.Result
	Started     time.Time
	Finished    time.Time
}

// Problems returns the ranked problems, highest impact first.
func (a *Analysis) Problems() []models.ProblemRecord {
	if a == nil || a.Ranking == nil {
		return nil
	}
	return a.Ranking.Problems
}

// Degraded reports whether any stage fell back.
func (a *Analysis) Degraded() bool {
	return a != nil && ((a.Extraction != nil && a.Extraction.Degraded) || (a.Ranking != nil && a.Ranking.Degraded))
}

// SpecRun is the result of a full run.
type SpecRun struct {
	*Analysis
	// Problem is the head of the ranking the document was written for.
	Problem models.ProblemRecord
	Spec    *specgen.Result
}

// Degraded reports whether any stage fell back.
func (r *SpecRun) Degraded() bool {
	return r.Analysis.Degraded() || (r.Spec != nil && r.Spec.Degraded)
}

// Pipeline runs the stages in order. One Pipeline may serve many runs.
type Pipeline struct {
	extract *extract.Stage
	rank    *rank.Stage
	spec    *specgen.Stage
	log     logrus.FieldLogger
	now     func() time.Time
}

// New creates a pipeline whose stages share invoker.
func New(invoker reasoning.Invoker, opts Options, log logrus.FieldLogger, m *metrics.Recorder) *Pipeline {
	log = logging.OrDiscard(log)
	return &Pipeline{
		extract: extract.New(invoker, opts.Extract, log, m),
		rank:    rank.New(invoker, opts.Rank, log, m),
		spec:    specgen.New(invoker, opts.Spec, log, m),
		log:     log,
		now:     time.Now,
	}
}

// Analyze extracts and ranks problems.
func (p *Pipeline) Analyze(ctx context.Context, transcripts []models.TranscriptRecord) (*Analysis, error) {
	a := &Analysis{
		RunID:       uuid.New().String(),
		Transcripts: len(transcripts),
		Started:     p.now(),
	}
	log := p.log.WithField("run_id", a.RunID)
	log.WithField("transcripts", len(transcripts)).Info("analyzing transcripts")

	extracted, err := p.extract.Run(ctx, transcripts)
	if err != nil {
		return nil, err
	}
	a.Extraction = extracted
	log.WithField("problems", len(extracted.Problems)).Info("extraction finished")

	ranked, err := p.rank.Run(ctx, extracted.Problems, transcripts)
	if err != nil {
		return nil, err
	}
	a.Ranking = ranked
	a.Finished = p.now()

	log.WithFields(logrus.Fields{
		"problems": len(ranked.Problems),
		"degraded": a.Degraded(),
		"elapsed":  a.Finished.Sub(a.Started).Round(time.Millisecond),
	}).Info("ranking finished")

	return a, nil
}

// Specify runs Analyze and writes a specification for the top-ranked
// problem. It returns ErrNoProblems when the ranking is empty.
func (p *Pipeline) Specify(ctx context.Context, transcripts []models.TranscriptRecord) (*SpecRun, error) {
	a, err := p.Analyze(ctx, transcripts)
	if err != nil {
		return nil, err
	}

	problems := a.Problems()
	if len(problems) == 0 {
		return nil, fmt.Errorf("run %s: %w", a.RunID, ErrNoProblems)
	}

	top := problems[0]
	log := p.log.WithFields(logrus.Fields{"run_id": a.RunID, "problem": top.Name})
	log.Info("generating specification")

	spec, err := p.spec.Run(ctx, top, transcripts)
	if err != nil {
		return nil, err
	}
	a.Finished = p.now()

	return &SpecRun{Analysis: a, Problem: top, Spec: spec}, nil
}
