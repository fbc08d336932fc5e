package driven

import (
	"context"

	"github.com/citeseek/citeseek/internal/core/domain"
)

// CorpusReader reads parsed documents from a corpus location.
// The canonical implementation reads the JSON parse results the
// document parser writes, one file per document.
type CorpusReader interface {
	// List returns the paths of all readable documents under dir,
	// sorted lexicographically for deterministic ingest order.
	List(ctx context.Context, dir string) ([]string, error)

	// Read loads and validates a single document. Malformed files
	// return an error wrapping domain.ErrInvalidInput.
	Read(ctx context.Context, path string) (*domain.Document, error)
}

// CorpusWatcher extends a reader with filesystem watching for
// continuous ingestion. Optional: readers that cannot watch simply
// do not implement it.
type CorpusWatcher interface {
	// Watch emits the path of each corpus file that is created or
	// modified under dir until ctx is cancelled. The channel is
	// closed on cancellation or watch failure.
	Watch(ctx context.Context, dir string) (<-chan string, error)
}
