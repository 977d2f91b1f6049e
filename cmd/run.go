package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbcrew/kbcrew/internal/app"
)

var runOutput string

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Run the analysis workflow and produce a report",
	Long: `Run executes the three-stage analysis workflow over the knowledge
base: a research task gathers relevant material, an analysis task extracts
patterns and insights, and a report task writes the final markdown report.

Intermediate task failures do not abort the workflow; the report notes the
gaps instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "write the report to a file instead of stdout")
	rootCmd.AddCommand(runCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		topic := strings.Join(args, " ")

		report, err := a.Analyze(ctx, topic)
		if err != nil {
			return fmt.Errorf("running analysis workflow: %w", err)
		}

		if runOutput != "" {
			if err := os.WriteFile(runOutput, []byte(report), 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", runOutput)
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderMarkdown(report))
		return nil
	})
}
