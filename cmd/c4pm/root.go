package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/c4pm/internal/render"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "c4pm",
	Short: "Turn customer interviews into ranked problems and build specs",
	Long: `c4pm reads a directory of interview transcripts (*.txt and *.md),
extracts the product problems customers describe, ranks them by impact,
and writes a build specification for the top-ranked problem.

Commands:
  analyze <dir>   extract and rank problems
  spec <dir>      analyze, then write a spec for the top problem
  history         list past runs
  config          show or change configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with its status.
func Execute() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command tree with the given arguments and returns the
// process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		render.Error(stderr, err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: XDG user config merged with .c4pm.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logs, synthesis notes, ranking recommendation)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(specCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
