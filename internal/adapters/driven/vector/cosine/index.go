// Package cosine provides an exact, in-memory vector index using
// cosine similarity. Exact search keeps results bit-for-bit
// reproducible across restarts, which approximate neighbour
// structures cannot promise; persistence comes from the chunk store,
// from which the index is rebuilt on startup.
package cosine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a brute-force cosine similarity index.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[string][]float32
	closed    bool
}

// New creates an index for vectors of the given width.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("cosine: dimension must be positive, got %d", dimension)
	}
	return &Index{
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}, nil
}

// Add inserts or replaces the vector for the given chunk ID.
func (idx *Index) Add(_ context.Context, chunkID string, embedding []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return domain.ErrIndexClosed
	}
	if len(embedding) != idx.dimension {
		return fmt.Errorf("cosine: vector for %s has %d dimensions, index has %d: %w",
			chunkID, len(embedding), idx.dimension, domain.ErrDimensionMismatch)
	}

	stored := make([]float32, len(embedding))
	copy(stored, embedding)
	idx.vectors[chunkID] = stored
	return nil
}

// Delete removes a vector. Absent IDs are a no-op.
func (idx *Index) Delete(_ context.Context, chunkID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return domain.ErrIndexClosed
	}
	delete(idx.vectors, chunkID)
	return nil
}

// Search scores every vector against the query and returns the top k,
// ordered by descending similarity with ties broken by ascending
// chunk ID. The tie iteration is sorted, never map order, so repeated
// searches return identical results.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, domain.ErrIndexClosed
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("cosine: query has %d dimensions, index has %d: %w",
			len(query), idx.dimension, domain.ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for chunkID, vector := range idx.vectors {
		hits = append(hits, driven.VectorHit{
			ChunkID:    chunkID,
			Similarity: similarity(query, vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Close drops all vectors and rejects further use.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	idx.vectors = nil
	return nil
}

// similarity computes cosine similarity with float64 accumulation.
// Zero vectors score zero rather than dividing by zero.
func similarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
