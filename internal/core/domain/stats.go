package domain

import "time"

// IndexMeta records which embedding configuration the index was built
// with. Mixing embedding models between build and query invalidates
// every similarity score, so the meta is checked on open.
type IndexMeta struct {
	// EmbeddingModel is the model name the vectors were produced by.
	EmbeddingModel string

	// Dimensions is the vector width.
	Dimensions int

	// CreatedAt is when the index was first written.
	CreatedAt time.Time
}

// CorpusStats summarises the indexed corpus.
type CorpusStats struct {
	// Documents is the number of ingested documents.
	Documents int

	// Chunks is the number of indexed chunks.
	Chunks int

	// ChunksByType breaks Chunks down by chunk type.
	ChunksByType map[ChunkType]int

	// MinChunkSize is the smallest chunk size in runes. Zero when the
	// corpus is empty.
	MinChunkSize int

	// MaxChunkSize is the largest chunk size in runes.
	MaxChunkSize int

	// MeanChunkSize is the mean chunk size in runes.
	MeanChunkSize float64

	// EmbeddingModel is the model the index was built with.
	EmbeddingModel string

	// EmbeddingDimensions is the vector width of the index.
	EmbeddingDimensions int
}
