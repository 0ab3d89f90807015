// Package cmd implements the appfs command-line front-end: thin cobra
// commands wrapping the core appfs package's operations (spec.md §6.3).
// These adapters are intentionally minimal - they consume only
// Open/New/CreateFile/ExtractAll/Raw.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"appfs/appfs"
	"appfs/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "appfs",
	Short: "Create, inspect and extract AppFS flash partition images",
	Long: `appfs creates, inspects and extracts AppFS partition images: a
simple, append-friendly filesystem format for flash-like partitions
carrying small self-contained "app" payloads (name + title + version +
contents).`,
}

// Execute runs the root command, exiting the process with status 1 on
// any error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// logDiagnostics surfaces non-fatal mount/extraction diagnostics (an
// invalid-CRC metadata slot, a chain that ran past its declared size)
// through the structured logger rather than stdout noise.
func logDiagnostics(diags []appfs.Diagnostic) {
	for _, d := range diags {
		logging.Warn(d.Message, "page", d.Page)
	}
}
