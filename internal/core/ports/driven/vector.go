package driven

import "context"

// VectorIndex provides semantic similarity search operations.
// The index stores vectors only; chunk text and metadata live in the
// DocumentStore. Both are kept in step by the index service so no
// vector ever exists without its chunk.
type VectorIndex interface {
	// Add inserts or replaces the vector for the given chunk ID.
	// Vectors whose width does not match the index are rejected with
	// domain.ErrDimensionMismatch.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Delete removes a vector from the index. Deleting an absent ID
	// is a no-op.
	Delete(ctx context.Context, chunkID string) error

	// Search finds the k nearest neighbours to the query vector,
	// ordered by descending similarity with ties broken by ascending
	// chunk ID. Returns fewer than k hits when the index is small.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of vectors currently indexed.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score in [-1, 1].
	Similarity float64
}
