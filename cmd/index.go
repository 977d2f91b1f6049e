package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbcrew/kbcrew/internal/app"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the knowledge base index",
}

var indexAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Index a file or directory",
	Long: `Add chunks the given file, embeds each chunk, and stores it in the
knowledge base. Directories are walked recursively; unsupported and
gitignored files are skipped. Re-indexing a source replaces its previous
chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexAdd,
}

var indexAddURLCmd = &cobra.Command{
	Use:   "add-url [url]",
	Short: "Fetch a web page and index its readable content",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexAddURL,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runIndexList,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove [source|chunk-id]",
	Short: "Remove a source's chunks, or a single chunk by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runIndexStats,
}

func init() {
	indexCmd.AddCommand(indexAddCmd, indexAddURLCmd, indexListCmd, indexRemoveCmd, indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexAdd(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			result, err := a.Indexer.AddDirectory(ctx, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"indexed %d files (%d chunks, %d skipped, %d failed) in %v\n",
				result.FilesAdded, result.ChunksAdded, result.FilesSkipped,
				result.FilesFailed, result.Duration.Round(time.Millisecond))
			return nil
		}

		chunks, err := a.Indexer.AddFile(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %s (%d chunks)\n", path, chunks)
		return nil
	})
}

func runIndexAddURL(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		fetcher := app.NewScraper(a.Config.Indexer.Scraper)
		chunks, err := a.Indexer.AddURL(ctx, fetcher, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %s (%d chunks)\n", args[0], chunks)
		return nil
	})
}

func runIndexList(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		docs, err := a.Indexer.ListDocuments(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "index is empty")
			return nil
		}

		// One line per source, not per chunk.
		chunksBySource := make(map[string]int)
		for _, doc := range docs {
			chunksBySource[doc.Metadata["source"]]++
		}
		sources := make([]string, 0, len(chunksBySource))
		for source := range chunksBySource {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		for _, source := range sources {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d chunks)\n", source, chunksBySource[source])
		}
		return nil
	})
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		removed, err := a.Indexer.RemoveSource(ctx, args[0])
		if err != nil {
			return err
		}
		if removed == 0 && strings.HasPrefix(args[0], "kb_") {
			// Not a known source; the argument may be a single chunk ID.
			if err := a.Indexer.RemoveDocument(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed chunk %s\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d chunks of %s\n", removed, args[0])
		return nil
	})
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		stats, err := a.Indexer.Stats(ctx)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(stats))
		for key := range stats {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", key, stats[key])
		}
		return nil
	})
}
