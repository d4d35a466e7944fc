package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/c4pm/internal/render"
)

var (
	historyLimit int
	historyShow  string
	historyPurge time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs",
	Long: `History lists recorded analyze and spec runs, newest first.

Examples:
  c4pm history
  c4pm history --limit 50
  c4pm history --show 3f2a9c1e-...    # full ranking of one run
  c4pm history --purge 720h           # delete runs older than 30 days`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()

		if historyPurge > 0 {
			n, err := db.Purge(ctx, historyPurge)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted %d run(s) older than %s\n", n, historyPurge)
			return nil
		}

		if historyShow != "" {
			run, err := db.Get(ctx, historyShow)
			if err != nil {
				return err
			}
			scheme := schemeOrStrict(cfg.Scoring.Scheme)
			fmt.Fprintf(out, "Run %s (%s) on %s, %s\n", run.ID, run.Command, run.TranscriptDir,
				run.StartedAt.Local().Format(time.RFC1123))
			render.Problems(out, run.Ranking, len(run.Ranking), scheme)
			return nil
		}

		runs, err := db.List(ctx, historyLimit)
		if err != nil {
			return err
		}
		render.Runs(out, runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list (0 for all)")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "Show the full ranking of the run with this ID")
	historyCmd.Flags().DurationVar(&historyPurge, "purge", 0, "Delete runs older than this duration")
}
