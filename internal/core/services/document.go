package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
	"github.com/citeseek/citeseek/internal/core/ports/driving"
	"github.com/citeseek/citeseek/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService exposes the ingested corpus for listing, inspection
// and removal.
type DocumentService struct {
	docStore driven.DocumentStore
	vectors  driven.VectorIndex
}

// NewDocumentService creates a new document service.
func NewDocumentService(docStore driven.DocumentStore, vectors driven.VectorIndex) *DocumentService {
	return &DocumentService{docStore: docStore, vectors: vectors}
}

// List returns all ingested documents, without elements.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Show returns one document and its chunks in positional order.
func (s *DocumentService) Show(ctx context.Context, id string) (*domain.Document, []domain.Chunk, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, fmt.Errorf("document id is empty: %w", domain.ErrInvalidInput)
	}

	doc, err := s.docStore.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get document %s: %w", id, err)
	}
	chunks, err := s.docStore.GetChunks(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get chunks for %s: %w", id, err)
	}
	return doc, chunks, nil
}

// Delete removes a document, its chunks and their vectors. Vectors go
// first so the index never holds an entry without a backing row.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("document id is empty: %w", domain.ErrInvalidInput)
	}

	if _, err := s.docStore.GetDocument(ctx, id); err != nil {
		return fmt.Errorf("get document %s: %w", id, err)
	}

	chunks, err := s.docStore.GetChunks(ctx, id)
	if err != nil {
		return fmt.Errorf("get chunks for %s: %w", id, err)
	}
	for _, chunk := range chunks {
		if err := s.vectors.Delete(ctx, chunk.ID); err != nil {
			return fmt.Errorf("delete vector %s: %w", chunk.ID, err)
		}
	}

	if err := s.docStore.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	logger.Info("deleted document %s (%d chunks)", id, len(chunks))
	return nil
}
