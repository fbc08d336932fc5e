package driving

import (
	"context"

	"github.com/citeseek/citeseek/internal/core/domain"
)

// QueryService provides retrieval without generation: a query in,
// ranked chunks out. Useful for inspecting what the index would feed
// the generator.
type QueryService interface {
	// Query embeds the query text and returns the ranked, thresholded
	// results. An empty result list is a valid outcome.
	Query(ctx context.Context, queryText string, opts domain.RetrievalOptions) ([]domain.QueryResult, error)
}
