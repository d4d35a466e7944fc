package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/c4pm/internal/extract"
	"github.com/ShayCichocki/c4pm/internal/ingest"
	"github.com/ShayCichocki/c4pm/internal/pipeline"
	"github.com/ShayCichocki/c4pm/internal/rank"
	"github.com/ShayCichocki/c4pm/internal/render"
	"github.com/ShayCichocki/c4pm/internal/tui"
	"github.com/ShayCichocki/c4pm/internal/watch"
	"github.com/ShayCichocki/c4pm/pkg/models"
)

var (
	analyzeCount  int
	analyzeBrowse bool
	analyzeWatch  bool
	analyzeStrict bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <transcript-dir>",
	Short: "Extract and rank problems from interview transcripts",
	Long: `Analyze reads every *.txt and *.md transcript in a directory, extracts the
product problems interviewees describe, and ranks them by impact.

Ranking uses a 16-point rubric (reach, intensity, user value, confidence).
Set scoring.scheme to "legacy" for the older 10-point rubric.

Examples:
  c4pm analyze ./interviews
  c4pm analyze ./interviews --count 10 --strict
  c4pm analyze ./interviews --browse
  c4pm analyze ./interviews --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args[0])
	},
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeCount, "count", "n", render.DefaultCount, "Number of problems to display")
	analyzeCmd.Flags().BoolVar(&analyzeBrowse, "browse", false, "Browse the full ranking in an interactive view")
	analyzeCmd.Flags().BoolVar(&analyzeWatch, "watch", false, "Re-run the analysis when transcripts change")
	analyzeCmd.Flags().BoolVar(&analyzeStrict, "strict", false, "Check the ranking against its constraints and report violations")
}

func runAnalyze(cmd *cobra.Command, dir string) error {
	if analyzeBrowse && analyzeWatch {
		return errors.New("--browse and --watch cannot be combined")
	}
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	e, err := setup(errOut)
	if err != nil {
		return err
	}

	// The directory is checked before any stage can run.
	transcripts, err := ingest.Load(dir)
	if err != nil {
		return err
	}

	opts, err := pipelineOptions(e.cfg, analyzeStrict)
	if err != nil {
		return err
	}

	ctx, cancel := runContext(cmd.Context(), e.cfg)
	defer cancel()

	c, err := newCapability(ctx, e.cfg, e.log, e.metrics)
	if err != nil {
		return err
	}
	p := pipeline.New(c.invoker, opts, e.log, e.metrics)

	once := func(ctx context.Context, transcripts []models.TranscriptRecord) (*pipeline.Analysis, error) {
		render.LoadSummary(out, dir, len(transcripts))
		a, err := p.Analyze(ctx, transcripts)
		if err != nil {
			return nil, err
		}
		printAnalysis(out, a, c, opts.Rank.Scheme)
		recordRun(ctx, e, newRun("analyze", dir, a, c, a.Degraded()))
		writeMetrics(e)
		return a, nil
	}

	if analyzeWatch {
		first := true
		return watch.New(0, e.log).Run(ctx, dir, func(ctx context.Context) error {
			if !first {
				if transcripts, err = ingest.Load(dir); err != nil {
					return err
				}
			}
			first = false
			_, err := once(ctx, transcripts)
			return err
		})
	}

	a, err := once(ctx, transcripts)
	if err != nil {
		return err
	}
	if analyzeBrowse && len(a.Problems()) > 0 {
		return tui.Browse(a.Problems(), opts.Rank.Scheme)
	}
	return nil
}

// printAnalysis renders degradation notices, the top problems, any
// constraint violations, and usage.
func printAnalysis(w io.Writer, a *pipeline.Analysis, c *capability, scheme models.ScoringScheme) {
	if a.Extraction.Degraded {
		render.Degraded(w, extract.StageName, a.Extraction.DecodeErr)
	}
	if a.Ranking.Degraded {
		render.Degraded(w, rank.StageName, a.Ranking.DecodeErr)
	}

	render.Problems(w, a.Problems(), analyzeCount, scheme)
	render.Violations(w, a.Ranking.Violations)

	if verbose {
		if notes := a.Extraction.SynthesisNotes; notes != "" {
			fmt.Fprintf(w, "\nSynthesis notes: %s\n", notes)
		}
		if rec := a.Ranking.Recommendation; rec != "" {
			fmt.Fprintf(w, "\nRecommendation: %s\n", rec)
		}
	}

	calls, input, output := c.usage()
	render.Usage(w, calls, input, output, a.Finished.Sub(a.Started))
}
