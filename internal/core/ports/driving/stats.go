package driving

import (
	"context"

	"github.com/citeseek/citeseek/internal/core/domain"
)

// StatsService reports aggregate statistics over the indexed corpus.
type StatsService interface {
	// Stats computes corpus statistics from the store.
	Stats(ctx context.Context) (*domain.CorpusStats, error)
}
