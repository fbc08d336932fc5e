package driving

import (
	"context"

	"github.com/citeseek/citeseek/internal/core/domain"
)

// AskResult is the full outcome of a grounded question: the answer
// itself plus the retrieval trace that grounded it. The trace stays
// available even when generation fails, so callers can show the user
// what was retrieved.
type AskResult struct {
	// Answer is the generated, citation-validated answer.
	Answer domain.Answer

	// Context is the assembled context the generator saw. Empty when
	// nothing cleared the relevance threshold.
	Context domain.AssembledContext

	// Results is the ranked retrieval output before assembly.
	Results []domain.QueryResult
}

// AskService answers natural-language questions over the indexed
// corpus with verifiable citations.
type AskService interface {
	// Ask runs retrieve, assemble and generate for the question.
	// When generation fails the returned error wraps
	// domain.ErrGenerationUnavailable and the result still carries
	// the retrieval trace.
	Ask(ctx context.Context, question string, opts domain.AskOptions) (*AskResult, error)
}
