package driving

import (
	"context"

	"github.com/citeseek/citeseek/internal/core/domain"
)

// IngestService turns parsed documents into indexed, citable chunks.
type IngestService interface {
	// IngestDir ingests every document under dir. Per-document
	// failures are collected in the summary, never fatal to the run.
	IngestDir(ctx context.Context, dir string) (*domain.IngestSummary, error)

	// IngestFile ingests a single document file.
	IngestFile(ctx context.Context, path string) (*domain.IngestSummary, error)

	// Watch ingests dir, then keeps ingesting files as they appear or
	// change until ctx is cancelled. Summaries are reported through
	// onRun after the initial pass and after each triggered run.
	Watch(ctx context.Context, dir string, onRun func(*domain.IngestSummary)) error
}
