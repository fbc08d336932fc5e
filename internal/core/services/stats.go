package services

import (
	"context"
	"fmt"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
	"github.com/citeseek/citeseek/internal/core/ports/driving"
)

// Ensure StatsService implements the interface.
var _ driving.StatsService = (*StatsService)(nil)

// StatsService reports aggregate statistics over the indexed corpus.
type StatsService struct {
	docStore driven.DocumentStore
}

// NewStatsService creates a new stats service.
func NewStatsService(docStore driven.DocumentStore) *StatsService {
	return &StatsService{docStore: docStore}
}

// Stats computes corpus statistics from the store.
func (s *StatsService) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	stats, err := s.docStore.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("corpus stats: %w", err)
	}
	return stats, nil
}
