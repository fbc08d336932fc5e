package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/citeseek/citeseek/internal/core/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	Long:  `Shows document and chunk counts, chunk size distribution and the embedding configuration the index was built with.`,
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// chunkTypeOrder fixes the display order of the by-type breakdown.
var chunkTypeOrder = []domain.ChunkType{
	domain.ChunkAbstract,
	domain.ChunkBody,
	domain.ChunkEquation,
	domain.ChunkTable,
}

func runStats(cmd *cobra.Command, _ []string) error {
	if statsService == nil {
		if err := initOffline(cmd.Context()); err != nil {
			return err
		}
	}

	stats, err := statsService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	cmd.Println("Corpus statistics:")
	cmd.Println()
	cmd.Printf("  Documents: %d\n", stats.Documents)
	cmd.Printf("  Chunks:    %d\n", stats.Chunks)

	if stats.Chunks > 0 {
		cmd.Println()
		cmd.Println("  Chunks by type:")
		for _, t := range chunkTypeOrder {
			if n := stats.ChunksByType[t]; n > 0 {
				cmd.Printf("    %-10s %d\n", t, n)
			}
		}

		cmd.Println()
		cmd.Println("  Chunk size (runes):")
		cmd.Printf("    min  %d\n", stats.MinChunkSize)
		cmd.Printf("    max  %d\n", stats.MaxChunkSize)
		cmd.Printf("    mean %.1f\n", stats.MeanChunkSize)
	}

	if stats.EmbeddingModel != "" {
		cmd.Println()
		cmd.Printf("  Embedding model:      %s\n", stats.EmbeddingModel)
		cmd.Printf("  Embedding dimensions: %d\n", stats.EmbeddingDimensions)
	}

	return nil
}
