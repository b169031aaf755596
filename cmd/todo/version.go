package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information, set at build time with ldflags
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "todo version %s\n", Version)
		fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Built:      %s\n", BuildDate)
		fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
