package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
	"github.com/citeseek/citeseek/internal/core/ports/driving"
	"github.com/citeseek/citeseek/internal/logger"
)

// DefaultTopK is the number of results returned when the caller does
// not say otherwise.
const DefaultTopK = 5

// overFetchFactor is how many times k the vector index is asked for,
// leaving headroom for threshold filtering.
const overFetchFactor = 3

// Ensure RetrievalService implements the interface.
var _ driving.QueryService = (*RetrievalService)(nil)

// RetrievalService turns a free-text query into a ranked list of
// chunks with relevance scores.
type RetrievalService struct {
	docStore driven.DocumentStore
	index    *IndexService
	embedder driven.EmbeddingService
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	docStore driven.DocumentStore,
	index *IndexService,
	embedder driven.EmbeddingService,
) *RetrievalService {
	return &RetrievalService{
		docStore: docStore,
		index:    index,
		embedder: embedder,
	}
}

// Query embeds the query text and returns ranked, thresholded results.
// Ordering is deterministic: descending score, ties broken by
// ascending chunk ID. Fewer than k results is a valid outcome; the
// list is never padded.
func (s *RetrievalService) Query(
	ctx context.Context, queryText string, opts domain.RetrievalOptions,
) ([]domain.QueryResult, error) {
	logger.Section("Retrieval")

	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}

	k := opts.K
	if k <= 0 {
		k = DefaultTopK
	}
	logger.Debug("query=%q k=%d minRelevance=%.3f", queryText, k, opts.MinRelevance)

	// 1. Embed the query with the same service the index was built
	// with. Mixing embedding models invalidates every score.
	queryVector, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	logger.Debug("query embedding: %d dimensions", len(queryVector))

	// 2. Over-fetch so threshold filtering still leaves k candidates.
	hits, err := s.index.Search(ctx, queryVector, k*overFetchFactor)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("raw hits: %d", len(hits))

	// 3. Threshold, then re-assert deterministic order.
	filtered := make([]driven.VectorHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Similarity >= opts.MinRelevance {
			filtered = append(filtered, hit)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Similarity != filtered[j].Similarity {
			return filtered[i].Similarity > filtered[j].Similarity
		}
		return filtered[i].ChunkID < filtered[j].ChunkID
	})

	// 4. Truncate to k; never pad a short list.
	if len(filtered) > k {
		filtered = filtered[:k]
	}

	results, err := s.hydrate(ctx, filtered)
	if err != nil {
		return nil, err
	}

	logger.Info("retrieval: %d results above %.3f", len(results), opts.MinRelevance)
	return results, nil
}

// hydrate resolves vector hits into full results with chunk text and
// document title. Hits whose chunk or document has been deleted are
// dropped rather than failing the query.
func (s *RetrievalService) hydrate(ctx context.Context, hits []driven.VectorHit) ([]domain.QueryResult, error) {
	results := make([]domain.QueryResult, 0, len(hits))

	for _, hit := range hits {
		chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("hit %s has no chunk row, dropping", hit.ChunkID)
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}

		doc, err := s.docStore.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("chunk %s has no document, dropping", hit.ChunkID)
				continue
			}
			return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
		}

		results = append(results, domain.QueryResult{
			Chunk:         *chunk,
			DocumentTitle: doc.Title,
			Score:         hit.Similarity,
			Rank:          len(results) + 1,
		})
	}

	return results, nil
}
