package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/propdoc-io/propdoc/internal/answer"
	"github.com/propdoc-io/propdoc/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question over the ingested documents",
	Long: `Routes the question to structured lookup, semantic search, or both,
and prints the retrieved facts and passages with their sources. With an
OPENAI_API_KEY set, a synthesized answer is printed as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Bool("examples", false, "print example questions per intent and exit")
	queryCmd.Flags().String("property", "", "restrict the question to one property")
	queryCmd.Flags().Bool("json", false, "output the bundle as JSON")
	queryCmd.Flags().Bool("no-synthesize", false, "print only the retrieved context, without a prose answer")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if examples, _ := cmd.Flags().GetBool("examples"); examples {
		printExampleQueries()
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("a question is required (or use --examples)")
	}
	question := args[0]

	property, _ := cmd.Flags().GetString("property")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noSynthesize, _ := cmd.Flags().GetBool("no-synthesize")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	bundle, err := a.engine.Ask(ctx, question, property)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var ans *answer.Answer
	if !noSynthesize && !jsonOutput {
		if synth := newSynthesizer(a.cfg); synth != nil {
			ans, err = synth.Synthesize(ctx, question, bundle)
			if err != nil {
				// The bundle stands on its own; report and keep going.
				fmt.Fprintf(os.Stderr, "Warning: synthesis failed: %v\n", err)
			}
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}

	printBundle(os.Stdout, bundle)
	if ans != nil {
		fmt.Println()
		fmt.Println(ans.Text)
	}
	return nil
}

func printExampleQueries() {
	for _, intent := range []query.Intent{query.IntentStructured, query.IntentSemantic, query.IntentHybrid} {
		fmt.Printf("%s:\n", intent)
		for _, q := range query.ExampleQueries()[intent] {
			fmt.Printf("  %s\n", q)
		}
	}
}

func printBundle(w io.Writer, b *query.ContextBundle) {
	fmt.Fprintf(w, "Intent: %s\n", b.Intent)
	if b.Partial {
		fmt.Fprintln(w, "Note: partial result, one retrieval path was unavailable.")
	}

	if b.Aggregates != nil && b.Aggregates.TotalUnits > 0 {
		// OccupancyRate is already a percentage.
		s := b.Aggregates
		fmt.Fprintf(w, "Units: %d total, %d occupied, %d vacant (%.1f%% occupancy)\n",
			s.TotalUnits, s.OccupiedUnits, s.VacantUnits, s.OccupancyRate)
		if s.TotalRent > 0 {
			fmt.Fprintf(w, "Rent: $%.2f total, $%.2f average\n", s.TotalRent, s.AverageRent)
		}
	}

	if len(b.Items) == 0 {
		fmt.Fprintln(w, "No matching records or passages.")
		return
	}
	fmt.Fprintln(w)
	for i, item := range b.Items {
		flag := ""
		if item.NeedsReview {
			flag = " [needs review]"
		}
		fmt.Fprintf(w, "  %d. [%.2f] (%s, doc %s p.%d-%d)%s\n", i+1, item.Score,
			item.Kind, shortID(item.DocumentID), item.PageStart, item.PageEnd, flag)
		fmt.Fprintf(w, "     %s\n", item.Text)
	}
	if b.Truncated {
		fmt.Fprintln(w, "  (truncated to the context budget)")
	}
}
