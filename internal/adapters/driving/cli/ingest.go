package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/citeseek/citeseek/internal/core/domain"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest parse-result files into the index",
	Long: `Ingests parse-result JSON files into the chunk index.

Each path may be a single .json file or a directory, which is scanned
recursively. Re-ingesting an unchanged document is a no-op; a chunk
re-ingested with different text is reported as a conflict and the
indexed text kept.

With --watch the command ingests the directory, then keeps running and
ingests files as the external parser drops them, until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory for new files")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		if err := initServices(cmd.Context(), false); err != nil {
			return err
		}
	}

	ctx := cmd.Context()

	if ingestWatch {
		return runIngestWatch(ctx, cmd, args)
	}

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		var summary *domain.IngestSummary
		if info.IsDir() {
			summary, err = ingestService.IngestDir(ctx, path)
		} else {
			summary, err = ingestService.IngestFile(ctx, path)
		}
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		printIngestSummary(cmd, summary)
	}
	return nil
}

func runIngestWatch(ctx context.Context, cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("--watch takes exactly one directory")
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("stat %s: %w", args[0], err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--watch requires a directory, %s is a file", args[0])
	}

	err = ingestService.Watch(ctx, args[0], func(summary *domain.IngestSummary) {
		printIngestSummary(cmd, summary)
		cmd.Println("Watching for changes. Press Ctrl+C to stop.")
	})
	// Interruption is how a watch ends, not a failure.
	if errors.Is(err, context.Canceled) {
		cmd.Println("Watch stopped.")
		return nil
	}
	return err
}

func printIngestSummary(cmd *cobra.Command, s *domain.IngestSummary) {
	cmd.Printf("Ingest run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	cmd.Printf("  Documents:        %d", s.Documents)
	if s.EmptyDocuments > 0 {
		cmd.Printf(" (%d empty)", s.EmptyDocuments)
	}
	cmd.Println()
	cmd.Printf("  Chunks indexed:   %d\n", s.ChunksAdded)
	cmd.Printf("  Chunks unchanged: %d\n", s.ChunksUnchanged)

	if len(s.Conflicts) > 0 {
		cmd.Printf("  Conflicts:        %d (existing text kept)\n", len(s.Conflicts))
		for _, id := range s.Conflicts {
			cmd.Printf("    %s\n", id)
		}
	}
	if len(s.Failures) > 0 {
		cmd.Printf("  Failures:         %d\n", len(s.Failures))
		for _, f := range s.Failures {
			cmd.Printf("    %s: %s\n", f.Path, f.Reason)
		}
	}
}
