package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/services"
)

var (
	askTopK          int
	askMinRelevance  float64
	askContextBudget int
	askJSON          bool
	askShowContext   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question and get a cited answer",
	Long: `Answers a natural-language question from the indexed corpus.

The best-matching chunks are retrieved, assembled into a budgeted
context and handed to the generation model. Every [Source N] marker in
the answer is validated against that context: markers that resolve are
listed as citations, markers that do not are flagged inline as
unverified. When generation is unavailable the retrieved sources are
still shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", services.DefaultTopK, "maximum number of chunks to retrieve")
	askCmd.Flags().Float64Var(&askMinRelevance, "min-relevance", 0, "minimum cosine similarity, in [-1, 1]")
	askCmd.Flags().IntVar(&askContextBudget, "context-budget", 0, "context budget in characters (0 = configured default)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full result as JSON")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the assembled context before the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askService == nil {
		if err := initServices(cmd.Context(), true); err != nil {
			return err
		}
	}

	opts := domain.AskOptions{
		Retrieval: domain.RetrievalOptions{
			K:            askTopK,
			MinRelevance: askMinRelevance,
		},
		ContextBudget: askContextBudget,
	}

	result, err := askService.Ask(cmd.Context(), args[0], opts)
	if err != nil {
		// Generation failures still carry the retrieval trace. Show
		// the sources so the user is not left empty-handed.
		if result != nil && errors.Is(err, domain.ErrGenerationUnavailable) && len(result.Results) > 0 {
			cmd.Println("No answer could be generated. Retrieved sources:")
			cmd.Println()
			if outErr := outputResultsTable(cmd, result.Results); outErr != nil {
				return outErr
			}
		}
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if askShowContext {
		printContext(cmd, result.Context)
	}

	printAnswer(cmd, result.Answer)
	return nil
}

func printContext(cmd *cobra.Command, assembled domain.AssembledContext) {
	cmd.Printf("Context (%d/%d characters):\n", assembled.Size, assembled.Budget)
	for i, entry := range assembled.Entries {
		cmd.Printf("  Source %d: %s (%s, score %.3f", i+1, entry.Chunk.ID, entry.Chunk.Type, entry.Score)
		if entry.Truncated {
			cmd.Print(", truncated")
		}
		cmd.Println(")")
	}
	cmd.Println()
}

func printAnswer(cmd *cobra.Command, answer domain.Answer) {
	cmd.Println(answer.Text)

	if len(answer.Unverified) > 0 {
		cmd.Println()
		cmd.Printf("Warning: %d citation(s) did not resolve to the provided context and are marked unverified.\n", len(answer.Unverified))
	}

	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, c := range answer.Citations {
			cmd.Printf("  [Source %d] %s", c.Marker, c.DocumentTitle)
			if c.Section != "" {
				cmd.Printf(", %s", c.Section)
			}
			cmd.Printf(" (%s)\n", c.ChunkID)
		}
	}

	if answer.Model != "" {
		cmd.Println()
		cmd.Printf("Generated by %s.\n", answer.Model)
	}
}
