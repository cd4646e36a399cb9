package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/propdoc-io/propdoc/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Semantic search over indexed passages",
	Long: `Searches the semantic index directly, without routing or structured
lookup. Useful for inspecting what the index retrieves for a phrase.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 5, "maximum number of results")
	searchCmd.Flags().String("property", "", "restrict the search to one property")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	limit, _ := cmd.Flags().GetInt("limit")
	property, _ := cmd.Flags().GetString("property")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.index.Count() == 0 {
		fmt.Println("Semantic index is empty. Run `propdoc ingest` first.")
		return nil
	}

	var filter *vectordb.Filter
	if property != "" {
		filter = &vectordb.Filter{PropertyName: property}
	}
	hits, err := a.index.Search(ctx, args[0], limit, float32(a.cfg.Retrieval.SimilarityFloor), filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Print(vectordb.FormatHits(hits))
	return nil
}
