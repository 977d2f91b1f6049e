// Package cmd implements the kbcrew command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kbcrew/kbcrew/internal/log"
)

var (
	verbose bool
	jsonLog bool
)

var rootCmd = &cobra.Command{
	Use:   "kbcrew",
	Short: "kbcrew - knowledge base research crew",
	Long: `kbcrew indexes documents into a PostgreSQL-backed knowledge base and
runs a multi-agent analysis workflow over it.

Index content with "kbcrew index add", query it with "kbcrew search" or
"kbcrew ask", and produce full research reports with "kbcrew run".`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "write logs as JSON")
}

// newLogger builds the process logger from the persistent flags.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: jsonLog})
}
