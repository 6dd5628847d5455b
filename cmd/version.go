package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/spigell/resume-matcher/internal/schema"
)

// Set at build time with -ldflags "-X github.com/spigell/resume-matcher/cmd.version=...".
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the built-in schemas",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s (%s)\n", app, version, runtime.Version())
		fmt.Printf("schemas: %v\n", schema.Versions())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
