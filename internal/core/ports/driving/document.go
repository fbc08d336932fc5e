package driving

import (
	"context"

	"github.com/citeseek/citeseek/internal/core/domain"
)

// DocumentService exposes the ingested corpus for inspection.
type DocumentService interface {
	// List returns all ingested documents without their elements.
	List(ctx context.Context) ([]domain.Document, error)

	// Show returns a document and its chunks.
	Show(ctx context.Context, id string) (*domain.Document, []domain.Chunk, error)

	// Delete removes a document, its chunks and their vectors.
	Delete(ctx context.Context, id string) error
}
