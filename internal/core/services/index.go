package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
	"github.com/citeseek/citeseek/internal/logger"
)

// DefaultEmbedBatchSize is how many chunk texts are embedded per
// provider call during ingestion.
const DefaultEmbedBatchSize = 32

// IndexBatchResult reports the outcome of adding a batch of chunks.
type IndexBatchResult struct {
	// Added counts chunks embedded and indexed by this call.
	Added int

	// Unchanged counts chunks whose ID and text already matched the
	// index; they were skipped without re-embedding.
	Unchanged int

	// Conflicts lists chunk IDs re-added with different text. The
	// indexed text wins; the new text is discarded.
	Conflicts []string

	// Skipped maps chunk IDs to the reason they could not be indexed
	// (embedding failure, storage failure). Skips never abort the batch.
	Skipped map[string]string
}

// IndexService keeps the chunk store and the vector index in step: a
// vector is only ever written after its chunk row, so the index never
// holds a vector for an unknown chunk. All writes are idempotent by
// chunk ID.
type IndexService struct {
	docStore  driven.DocumentStore
	vectors   driven.VectorIndex
	embedder  driven.EmbeddingService
	batchSize int
}

// IndexOption configures the index service.
type IndexOption func(*IndexService)

// WithEmbedBatchSize sets how many texts are embedded per provider call.
func WithEmbedBatchSize(n int) IndexOption {
	return func(s *IndexService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewIndexService creates a new index service.
func NewIndexService(
	docStore driven.DocumentStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	opts ...IndexOption,
) *IndexService {
	s := &IndexService{
		docStore:  docStore,
		vectors:   vectors,
		embedder:  embedder,
		batchSize: DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureMeta verifies the store's embedding configuration against the
// configured embedding service, recording it on first use. A changed
// vector width is fatal: mixed-width vectors cannot be compared. A
// changed model name with the same width only warns, since scores are
// still computable, just not meaningful across the boundary.
func (s *IndexService) EnsureMeta(ctx context.Context) error {
	meta, err := s.docStore.GetIndexMeta(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		meta = &domain.IndexMeta{
			EmbeddingModel: s.embedder.ModelName(),
			Dimensions:     s.embedder.Dimensions(),
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.docStore.SaveIndexMeta(ctx, *meta); err != nil {
			return fmt.Errorf("save index meta: %w", err)
		}
		logger.Debug("index meta recorded: model=%s dimensions=%d", meta.EmbeddingModel, meta.Dimensions)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get index meta: %w", err)
	}

	if meta.Dimensions != s.embedder.Dimensions() {
		return fmt.Errorf("index built with %d dimensions, embedding service produces %d: %w",
			meta.Dimensions, s.embedder.Dimensions(), domain.ErrDimensionMismatch)
	}
	if meta.EmbeddingModel != s.embedder.ModelName() {
		logger.Warn("index built with model %q but service uses %q; similarity scores are not comparable across models",
			meta.EmbeddingModel, s.embedder.ModelName())
	}
	return nil
}

// Add indexes a single chunk, embedding it synchronously. Re-adding
// an identical chunk is a no-op; re-adding an existing ID with
// different text returns domain.ErrIndexConflict.
func (s *IndexService) Add(ctx context.Context, chunk domain.Chunk) error {
	existing, err := s.docStore.GetChunk(ctx, chunk.ID)
	switch {
	case err == nil:
		if existing.Text == chunk.Text {
			return nil
		}
		return fmt.Errorf("chunk %s re-added with different text: %w", chunk.ID, domain.ErrIndexConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("get chunk %s: %w", chunk.ID, err)
	}

	if chunk.Embedding == nil {
		embedding, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
		}
		chunk.Embedding = embedding
	}

	// Chunk row before vector: the index must never hold a vector for
	// a chunk the store does not know.
	if err := s.docStore.SaveChunks(ctx, []domain.Chunk{chunk}); err != nil {
		return fmt.Errorf("save chunk %s: %w", chunk.ID, err)
	}
	if err := s.vectors.Add(ctx, chunk.ID, chunk.Embedding); err != nil {
		return fmt.Errorf("index chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// AddBatch indexes a batch of chunks. Unchanged chunks are skipped,
// conflicting chunks are collected, and per-chunk embedding failures
// skip only the offending chunk. The batch itself never aborts.
func (s *IndexService) AddBatch(ctx context.Context, chunks []domain.Chunk) (*IndexBatchResult, error) {
	result := &IndexBatchResult{Skipped: make(map[string]string)}

	var pending []domain.Chunk
	for _, chunk := range chunks {
		existing, err := s.docStore.GetChunk(ctx, chunk.ID)
		switch {
		case err == nil:
			if existing.Text == chunk.Text {
				result.Unchanged++
			} else {
				result.Conflicts = append(result.Conflicts, chunk.ID)
				logger.Warn("chunk %s re-added with different text; keeping indexed text", chunk.ID)
			}
		case errors.Is(err, domain.ErrNotFound):
			pending = append(pending, chunk)
		default:
			return nil, fmt.Errorf("get chunk %s: %w", chunk.ID, err)
		}
	}

	for start := 0; start < len(pending); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		s.indexBatch(ctx, pending[start:end], result)
	}

	return result, nil
}

// indexBatch embeds and stores one provider-sized batch. A failed
// batch call falls back to per-chunk embedding so one oversized or
// malformed text cannot sink its batchmates.
func (s *IndexService) indexBatch(ctx context.Context, batch []domain.Chunk, result *IndexBatchResult) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(embeddings) != len(batch) {
		if err != nil {
			logger.Debug("batch embed failed (%v), retrying per chunk", err)
		}
		embeddings = make([][]float32, len(batch))
		for i, c := range batch {
			embedding, err := s.embedder.Embed(ctx, c.Text)
			if err != nil {
				result.Skipped[c.ID] = fmt.Sprintf("embed: %v", err)
				logger.Warn("skipping chunk %s: embedding failed: %v", c.ID, err)
				continue
			}
			embeddings[i] = embedding
		}
	}

	for i, c := range batch {
		if embeddings[i] == nil {
			continue
		}
		c.Embedding = embeddings[i]

		if err := s.docStore.SaveChunks(ctx, []domain.Chunk{c}); err != nil {
			result.Skipped[c.ID] = fmt.Sprintf("save: %v", err)
			logger.Warn("skipping chunk %s: save failed: %v", c.ID, err)
			continue
		}
		if err := s.vectors.Add(ctx, c.ID, c.Embedding); err != nil {
			// Row is stored; Rebuild restores the vector later.
			result.Skipped[c.ID] = fmt.Sprintf("index: %v", err)
			logger.Warn("chunk %s stored but not indexed: %v", c.ID, err)
			continue
		}
		result.Added++
	}
}

// Search delegates to the vector index.
func (s *IndexService) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	return s.vectors.Search(ctx, query, k)
}

// Len returns the number of indexed vectors.
func (s *IndexService) Len() int {
	return s.vectors.Len()
}

// Rebuild loads every stored chunk embedding into the vector index.
// Called on startup so the in-memory index always reflects the store;
// rebuilding from the same rows reproduces identical search results.
func (s *IndexService) Rebuild(ctx context.Context) (int, error) {
	chunks, err := s.docStore.ListChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}

	loaded := 0
	for _, chunk := range chunks {
		if chunk.Embedding == nil {
			logger.Debug("chunk %s has no stored embedding, skipping", chunk.ID)
			continue
		}
		if err := s.vectors.Add(ctx, chunk.ID, chunk.Embedding); err != nil {
			return loaded, fmt.Errorf("rebuild chunk %s: %w", chunk.ID, err)
		}
		loaded++
	}

	logger.Debug("vector index rebuilt: %d vectors", loaded)
	return loaded, nil
}
