package cmd

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/propdoc-io/propdoc/internal/document"
	"github.com/propdoc-io/propdoc/internal/ingest"
	"github.com/propdoc-io/propdoc/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest PDF documents into the store and semantic index",
	Long: `Extracts text from each document (OCR when the text layer is
missing), parses structured records, and indexes both records and text
chunks. Directories are walked with the configured include/exclude globs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("property", "", "property name to tag the documents with")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	property, _ := cmd.Flags().GetString("property")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Count files up front so the bar has a total.
	total := 0
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if info.IsDir() {
			files, err := a.pipeline.ListFiles(arg)
			if err != nil {
				return err
			}
			total += len(files)
		} else {
			total++
		}
	}
	if total == 0 {
		fmt.Println("No documents matched the configured globs.")
		return nil
	}

	reporter := progress.NewReporter()
	reporter.Start(total)
	var done atomic.Int64
	a.pipeline.SetProgressFunc(func(stage string, d *document.Document) {
		switch stage {
		case ingest.StageIndexed, ingest.StageFailed, ingest.StageSkipped:
			reporter.Stage(int(done.Add(1)), d.Filename, stage)
		default:
			reporter.Stage(int(done.Load()), d.Filename, stage)
		}
	})

	var results []*ingest.Result
	var errs []error
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if info.IsDir() {
			batch, err := a.pipeline.IngestDir(ctx, arg, property)
			if err != nil {
				return err
			}
			results = append(results, batch.Results...)
			errs = append(errs, batch.Errors...)
			continue
		}
		res, err := a.pipeline.IngestFile(ctx, arg, property)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", arg, err))
		}
		if res != nil {
			results = append(results, res)
		}
	}
	reporter.Finish()

	printIngestResults(results, errs)
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(errs), total)
	}
	return nil
}

func printIngestResults(results []*ingest.Result, errs []error) {
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Printf("  %s v%d: unchanged, skipped\n", shortID(r.DocumentID), r.Version)
		case r.Resumed:
			fmt.Printf("  %s v%d: resumed, %d passages indexed\n", shortID(r.DocumentID), r.Version, r.PassageCount)
		default:
			fmt.Printf("  %s v%d: %d pages (%s), %d records, %d passages\n",
				shortID(r.DocumentID), r.Version, r.PageCount, r.Method, r.RecordCount, r.PassageCount)
		}
	}
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "  failed: %v\n", err)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
