package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbcrew/kbcrew/internal/app"
	"github.com/kbcrew/kbcrew/internal/bridge"
)

var (
	searchTopK    int32
	searchFilters []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Search runs one retrieval through the bridge and prints the matching
chunks with their sources and similarity scores.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int32VarP(&searchTopK, "top-k", "k", 0, "number of chunks to return (default from config)")
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil, "metadata filter as key=value, repeatable")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		opts, err := searchOptions(searchTopK, searchFilters)
		if err != nil {
			return err
		}

		result, err := a.SearchContext(ctx, strings.Join(args, " "), opts...)
		if err != nil {
			return err
		}

		printSearchResult(cmd, result)
		return nil
	})
}

// searchOptions translates CLI flags into bridge search options.
func searchOptions(topK int32, filters []string) ([]bridge.SearchOption, error) {
	var opts []bridge.SearchOption
	if topK != 0 {
		opts = append(opts, bridge.WithTopK(topK))
	}
	for _, f := range filters {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", f)
		}
		opts = append(opts, bridge.WithFilter(key, value))
	}
	return opts, nil
}

func printSearchResult(cmd *cobra.Command, result bridge.Result) {
	out := cmd.OutOrStdout()

	if result.Degraded {
		fmt.Fprintln(out, "knowledge base unavailable, no results")
		return
	}
	if len(result.Chunks) == 0 {
		fmt.Fprintln(out, "no matching documents")
		return
	}

	for i, chunk := range result.Chunks {
		source := chunk.Metadata["source"]
		if source == "" {
			source = chunk.DocID
		}
		fmt.Fprintf(out, "%2d. %.3f  %s\n", i+1, chunk.Score, source)
		fmt.Fprintf(out, "    %s\n\n", previewText(chunk.Text, 200))
	}
	if result.Truncated {
		fmt.Fprintln(out, "(more matches exist, raise --top-k to see them)")
	}
	if result.Dropped > 0 {
		fmt.Fprintf(out, "(%d malformed chunks dropped)\n", result.Dropped)
	}
	fmt.Fprintf(out, "%d chunks in %v\n", len(result.Chunks), result.Latency.Round(time.Millisecond))
}

// previewText truncates text at a rune boundary for single-line display.
func previewText(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
