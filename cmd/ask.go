package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbcrew/kbcrew/internal/app"
	"github.com/kbcrew/kbcrew/internal/bridge"
	"github.com/kbcrew/kbcrew/internal/crew"
)

var askTopK int32

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question grounded on the knowledge base",
	Long: `Ask retrieves relevant chunks for the question, hands them to the
model as context, and prints the answer. When the knowledge base is
unreachable the model is told so and answers from general knowledge.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Int32VarP(&askTopK, "top-k", "k", 0, "number of context chunks (default from config)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		question := strings.Join(args, " ")

		opts, err := searchOptions(askTopK, nil)
		if err != nil {
			return err
		}
		result, err := a.SearchContext(ctx, question, opts...)
		if err != nil {
			return fmt.Errorf("retrieving context: %w", err)
		}

		answer, err := a.LLM.Generate(ctx,
			"You answer questions using the provided knowledge base context. "+
				"Cite sources by name. When the context does not cover the "+
				"question or is unavailable, say so explicitly.",
			askPrompt(question, result))
		if err != nil {
			return fmt.Errorf("generating answer: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderMarkdown(answer))
		return nil
	})
}

func askPrompt(question string, result bridge.Result) string {
	var sb strings.Builder
	sb.WriteString("## Question\n\n")
	sb.WriteString(question)
	sb.WriteString("\n\n## Knowledge base context\n\n")
	switch {
	case result.Degraded:
		sb.WriteString("(knowledge base unavailable)")
	case len(result.Chunks) == 0:
		sb.WriteString("(no matching documents)")
	default:
		sb.WriteString(crew.FormatChunks(result))
	}
	return sb.String()
}
