package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/services"
)

var (
	queryTopK         int
	queryMinRelevance float64
	queryJSON         bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve the chunks most relevant to a query",
	Long: `Embeds the query and returns the most similar indexed chunks, ranked
by cosine similarity. No answer is generated; this shows exactly what
the generator would be grounded on.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", services.DefaultTopK, "maximum number of results")
	queryCmd.Flags().Float64Var(&queryMinRelevance, "min-relevance", 0, "minimum cosine similarity, in [-1, 1]")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		if err := initServices(cmd.Context(), false); err != nil {
			return err
		}
	}

	opts := domain.RetrievalOptions{
		K:            queryTopK,
		MinRelevance: queryMinRelevance,
	}

	results, err := queryService.Query(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputResultsJSON(cmd, results)
	}
	return outputResultsTable(cmd, results)
}

func outputResultsJSON(cmd *cobra.Command, results []domain.QueryResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResultsTable(cmd *cobra.Command, results []domain.QueryResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]

		title := r.DocumentTitle
		if title == "" {
			title = r.Chunk.DocumentID
		}

		cmd.Printf("  [%d] %s (%.3f)\n", r.Rank, title, r.Score)
		cmd.Printf("      %s", r.Chunk.ID)
		if r.Chunk.Section != "" {
			cmd.Printf("  %s", r.Chunk.Section)
		}
		cmd.Printf("  (%s)\n", r.Chunk.Type)
		cmd.Printf("      %s\n", snippet(r.Chunk.Text, 160))
		cmd.Println()
	}
	return nil
}

// snippet flattens text to one line and cuts it to n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-3]) + "..."
}
