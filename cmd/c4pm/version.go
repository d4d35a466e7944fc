package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/c4pm/internal/version"
	"github.com/ShayCichocki/c4pm/pkg/models"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build details",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, version.Get())
			return
		}
		fmt.Fprintf(out, "c4pm version %s\n", version.Get())
		fmt.Fprintf(out, "  go:          %s\n", runtime.Version())
		fmt.Fprintf(out, "  platform:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "  spec schema: %s\n", models.SpecSchemaVersion)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}
