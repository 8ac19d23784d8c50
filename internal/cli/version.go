package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information - can be set during build with ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information for cvforge",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "cvforge version %s\n", Version)
		_, _ = fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
		_, _ = fmt.Fprintf(out, "Build date: %s\n", BuildDate)
		_, _ = fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
	},
}
