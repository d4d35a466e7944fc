package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/c4pm/internal/ingest"
	"github.com/ShayCichocki/c4pm/internal/pipeline"
	"github.com/ShayCichocki/c4pm/internal/render"
	"github.com/ShayCichocki/c4pm/internal/specgen"
)

var (
	specOutput string
	specFormat string
	specStrict bool
)

var specCmd = &cobra.Command{
	Use:   "spec <transcript-dir>",
	Short: "Write a build specification for the top-ranked problem",
	Long: `Spec analyzes the transcripts like analyze does, then writes a build
specification for the highest-impact problem: problem statement, user stories,
proposed solution, acceptance criteria, scope, metrics, risks and evidence.

The document is printed to stdout unless --output is given. Progress and
logs go to stderr, so stdout can be piped.

Examples:
  c4pm spec ./interviews > spec.json
  c4pm spec ./interviews -o spec.yaml --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpec(cmd, args[0])
	},
}

func init() {
	specCmd.Flags().StringVarP(&specOutput, "output", "o", "", "Write the specification to a file instead of stdout")
	specCmd.Flags().StringVar(&specFormat, "format", "json", "Output format: json or yaml")
	specCmd.Flags().BoolVar(&specStrict, "strict", false, "Check the ranking against its constraints and report violations")
}

func runSpec(cmd *cobra.Command, dir string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	format, err := render.ParseFormat(specFormat)
	if err != nil {
		return err
	}

	e, err := setup(errOut)
	if err != nil {
		return err
	}

	transcripts, err := ingest.Load(dir)
	if err != nil {
		return err
	}
	render.LoadSummary(errOut, dir, len(transcripts))

	opts, err := pipelineOptions(e.cfg, specStrict)
	if err != nil {
		return err
	}

	ctx, cancel := runContext(cmd.Context(), e.cfg)
	defer cancel()

	c, err := newCapability(ctx, e.cfg, e.log, e.metrics)
	if err != nil {
		return err
	}

	run, err := pipeline.New(c.invoker, opts, e.log, e.metrics).Specify(ctx, transcripts)
	if err != nil {
		return err
	}

	if run.Spec.Degraded {
		render.Degraded(errOut, specgen.StageName, run.Spec.DecodeErr)
	}
	render.Violations(errOut, run.Ranking.Violations)

	if specOutput != "" {
		if err := render.WriteDocument(specOutput, run.Spec.Document, format); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Specification for %q written to %s\n", run.Problem.Name, specOutput)
	} else if err := render.Document(out, run.Spec.Document, format); err != nil {
		return fmt.Errorf("write specification: %w", err)
	}

	calls, input, output := c.usage()
	render.Usage(errOut, calls, input, output, run.Finished.Sub(run.Started))
	recordRun(ctx, e, newRun("spec", dir, run.Analysis, c, run.Degraded()))
	writeMetrics(e)
	return nil
}
