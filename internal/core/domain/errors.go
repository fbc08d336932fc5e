package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexConflict indicates a chunk was re-indexed under an
	// existing ID with different text. The index keeps the original
	// text; the caller decides whether to surface or collect the
	// conflict.
	ErrIndexConflict = errors.New("index conflict")

	// ErrDimensionMismatch indicates a vector's width does not match
	// the index. Mixing embeddings from different models corrupts
	// similarity scores, so the index rejects the vector outright.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexClosed indicates an operation on a closed vector index.
	ErrIndexClosed = errors.New("vector index closed")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or not reachable. Neither ingestion nor retrieval
	// can proceed without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generator failed or timed
	// out. Retrieval results may still be usable; the answer is not.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrRateLimited indicates a provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
