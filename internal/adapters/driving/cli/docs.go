package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citeseek/citeseek/internal/core/domain"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Inspect ingested documents",
	Long:  `List, inspect or delete ingested documents and their chunks.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show a document and its chunks",
	Long: `Shows a document's metadata and dumps its chunks in positional
order. Useful for checking what a citation like 2301.04567_0003
actually points at.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocsShow,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document, its chunks and their vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		if err := initOffline(cmd.Context()); err != nil {
			return err
		}
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	cmd.Println("Ingested documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title: %s\n", docs[i].Title)
		if len(docs[i].Authors) > 0 {
			cmd.Printf("    Authors: %s\n", strings.Join(docs[i].Authors, ", "))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		if err := initOffline(cmd.Context()); err != nil {
			return err
		}
	}

	doc, chunks, err := documentService.Show(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %s is not ingested", args[0])
		}
		return fmt.Errorf("failed to show document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:          %s\n", doc.Title)
	if len(doc.Authors) > 0 {
		cmd.Printf("  Authors:        %s\n", strings.Join(doc.Authors, ", "))
	}
	if doc.PublicationID != "" {
		cmd.Printf("  Publication:    %s\n", doc.PublicationID)
	}
	cmd.Printf("  Parse strategy: %s\n", doc.ParseStrategy)
	cmd.Printf("  Ingested:       %s\n", doc.IngestedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Chunks:         %d\n", len(chunks))

	for i := range chunks {
		c := &chunks[i]
		cmd.Println()
		cmd.Printf("  [%s] %s, %d runes", c.ID, c.Type, c.Size())
		if c.Section != "" {
			cmd.Printf(", %s", c.Section)
		}
		cmd.Println()
		cmd.Printf("    %s\n", snippet(c.Text, 200))
	}

	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		if err := initOffline(cmd.Context()); err != nil {
			return err
		}
	}

	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %s is not ingested", args[0])
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document %s.\n", args[0])
	return nil
}
