package driven

import (
	"context"

	"github.com/citeseek/citeseek/internal/core/domain"
)

// DocumentStore persists documents, chunks and index metadata.
// Backed by SQLite. Chunk rows carry their embedding so the vector
// index can be rebuilt deterministically from the store alone.
type DocumentStore interface {
	// SaveDocument stores or updates a document and its elements.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores chunks, replacing any existing rows with the
	// same IDs.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound when absent.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunk retrieves a specific chunk by ID.
	// Returns domain.ErrNotFound when absent.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a document, ordered by
	// position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListDocuments returns all documents without their elements,
	// ordered by ID.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ListChunks returns every stored chunk ordered by ID. Used to
	// rebuild the vector index on startup.
	ListChunks(ctx context.Context) ([]domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// GetIndexMeta returns the embedding configuration the index was
	// built with. Returns domain.ErrNotFound before the first ingest.
	GetIndexMeta(ctx context.Context) (*domain.IndexMeta, error)

	// SaveIndexMeta stores the embedding configuration.
	SaveIndexMeta(ctx context.Context, meta domain.IndexMeta) error

	// Stats aggregates corpus statistics from the stored chunks.
	Stats(ctx context.Context) (*domain.CorpusStats, error)

	// Close releases the underlying database handle.
	Close() error
}
