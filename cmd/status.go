package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/propdoc-io/propdoc/internal/document"
	"github.com/propdoc-io/propdoc/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show ingested documents and their pipeline status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// runStatus reads the store directly; no embedder or API key is needed.
func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(filepath.Join(cfg.DataDir, "propdoc.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		return printDocumentStatus(ctx, st, args[0])
	}

	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents ingested yet.")
		return nil
	}
	for _, d := range docs {
		property := d.PropertyName
		if property == "" {
			property = "-"
		}
		fmt.Printf("  %s v%d  %-9s  %-8s  %3d pages  %s/%s\n",
			shortID(d.ID), d.Version, d.Status, d.Method, d.PageCount, property, d.Filename)
	}
	return nil
}

func printDocumentStatus(ctx context.Context, st *store.Store, id string) error {
	d, err := st.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Document:  %s\n", d.ID)
	fmt.Printf("File:      %s\n", d.Filename)
	if d.PropertyName != "" {
		fmt.Printf("Property:  %s\n", d.PropertyName)
	}
	fmt.Printf("Version:   %d\n", d.Version)
	fmt.Printf("Status:    %s\n", d.Status)
	fmt.Printf("Method:    %s\n", d.Method)
	fmt.Printf("Pages:     %d\n", d.PageCount)
	if d.FailReason != "" {
		fmt.Printf("Failure:   %s\n", d.FailReason)
	}

	records, err := st.QueryRecords(ctx, store.RecordFilter{DocumentID: d.ID})
	if err != nil {
		return err
	}
	review := 0
	for _, r := range records {
		if r.NeedsReview {
			review++
		}
	}
	fmt.Printf("Records:   %d (%d need review)\n", len(records), review)

	if d.Status == document.StatusIndexed {
		passages, err := st.GetPassages(ctx, d.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Passages:  %d\n", len(passages))
	}
	return nil
}
