package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
	"github.com/citeseek/citeseek/internal/core/ports/driving"
	"github.com/citeseek/citeseek/internal/logger"
	"github.com/citeseek/citeseek/internal/worker"
)

// DefaultIngestWorkers is how many documents are ingested in parallel.
// Extraction and embedding are independent per document; the store and
// the vector index serialise their own writes.
const DefaultIngestWorkers = 4

// Ensure IngestOrchestrator implements the interface.
var _ driving.IngestService = (*IngestOrchestrator)(nil)

// IngestOrchestrator coordinates the corpus reader, the unit
// extractor and the embedding index into full ingest runs.
type IngestOrchestrator struct {
	corpus    driven.CorpusReader
	docStore  driven.DocumentStore
	extractor *Extractor
	index     *IndexService
	workers   int
}

// IngestOption configures the ingest orchestrator.
type IngestOption func(*IngestOrchestrator)

// WithIngestWorkers sets the parallel worker count.
func WithIngestWorkers(n int) IngestOption {
	return func(s *IngestOrchestrator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewIngestOrchestrator creates a new ingest orchestrator.
func NewIngestOrchestrator(
	corpus driven.CorpusReader,
	docStore driven.DocumentStore,
	extractor *Extractor,
	index *IndexService,
	opts ...IngestOption,
) *IngestOrchestrator {
	s := &IngestOrchestrator{
		corpus:    corpus,
		docStore:  docStore,
		extractor: extractor,
		index:     index,
		workers:   DefaultIngestWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestDir ingests every document under dir. One bad document never
// aborts the run; its failure is reported in the summary.
func (s *IngestOrchestrator) IngestDir(ctx context.Context, dir string) (*domain.IngestSummary, error) {
	logger.Section("Ingest")

	// 1. Verify the embedding configuration before writing anything.
	if err := s.index.EnsureMeta(ctx); err != nil {
		return nil, err
	}

	// 2. Enumerate the corpus deterministically.
	paths, err := s.corpus.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("list corpus %s: %w", dir, err)
	}
	logger.Info("ingesting %d documents from %s", len(paths), dir)

	return s.run(ctx, paths)
}

// IngestFile ingests a single document file.
func (s *IngestOrchestrator) IngestFile(ctx context.Context, path string) (*domain.IngestSummary, error) {
	if err := s.index.EnsureMeta(ctx); err != nil {
		return nil, err
	}
	return s.run(ctx, []string{path})
}

// Watch ingests dir, then re-ingests files as the corpus reader
// reports changes, until ctx is cancelled.
func (s *IngestOrchestrator) Watch(ctx context.Context, dir string, onRun func(*domain.IngestSummary)) error {
	watcher, ok := s.corpus.(driven.CorpusWatcher)
	if !ok {
		return fmt.Errorf("corpus reader does not support watching: %w", domain.ErrInvalidInput)
	}

	summary, err := s.IngestDir(ctx, dir)
	if err != nil {
		return err
	}
	if onRun != nil {
		onRun(summary)
	}

	changes, err := watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching %s for changes", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Debug("change detected: %s", path)
			summary, err := s.IngestFile(ctx, path)
			if err != nil {
				logger.Warn("re-ingest %s failed: %v", path, err)
				continue
			}
			if onRun != nil {
				onRun(summary)
			}
		}
	}
}

// run executes one ingest pass over the given paths with a worker
// pool. Workers share nothing but the store and the index, both of
// which serialise their own writes.
func (s *IngestOrchestrator) run(ctx context.Context, paths []string) (*domain.IngestSummary, error) {
	start := time.Now()
	summary := &domain.IngestSummary{RunID: uuid.New().String()}

	if len(paths) == 0 {
		summary.Duration = time.Since(start)
		return summary, nil
	}

	workers := s.workers
	if workers > len(paths) {
		workers = len(paths)
	}

	pool := worker.NewPool(ctx, workers)
	pool.Start()
	for _, path := range paths {
		pool.Submit(&ingestJob{svc: s, path: path})
	}

	for _, r := range pool.Wait() {
		res, ok := r.(*ingestResult)
		if !ok {
			continue
		}

		if res.failure != nil {
			summary.Failures = append(summary.Failures, *res.failure)
			continue
		}

		summary.Documents++
		if res.empty {
			summary.EmptyDocuments++
		}
		if res.batch != nil {
			summary.ChunksAdded += res.batch.Added
			summary.ChunksUnchanged += res.batch.Unchanged
			summary.Conflicts = append(summary.Conflicts, res.batch.Conflicts...)
			for chunkID, reason := range res.batch.Skipped {
				summary.Failures = append(summary.Failures, domain.IngestFailure{
					DocumentID: res.documentID,
					Path:       res.path,
					Reason:     fmt.Sprintf("chunk %s: %s", chunkID, reason),
				})
			}
		}
	}

	// Deterministic report order regardless of worker scheduling.
	sort.Strings(summary.Conflicts)
	sort.Slice(summary.Failures, func(i, j int) bool {
		if summary.Failures[i].Path != summary.Failures[j].Path {
			return summary.Failures[i].Path < summary.Failures[j].Path
		}
		return summary.Failures[i].Reason < summary.Failures[j].Reason
	})

	summary.Duration = time.Since(start)
	logger.Info("ingest run %s: %d documents (%d empty), %d chunks added, %d unchanged, %d conflicts, %d failures in %s",
		summary.RunID, summary.Documents, summary.EmptyDocuments, summary.ChunksAdded,
		summary.ChunksUnchanged, len(summary.Conflicts), len(summary.Failures), summary.Duration)

	return summary, nil
}

// ingestResult is the per-document outcome collected by the pool.
type ingestResult struct {
	path       string
	documentID string
	empty      bool
	batch      *IndexBatchResult
	failure    *domain.IngestFailure
	err        error
}

func (r *ingestResult) Err() error {
	return r.err
}

// ingestJob ingests one document: read, extract, persist, index.
type ingestJob struct {
	svc  *IngestOrchestrator
	path string
}

var _ worker.Job = (*ingestJob)(nil)

func (j *ingestJob) Execute(ctx context.Context) worker.Result {
	res := &ingestResult{path: j.path}

	// Read and validate. A malformed document fails alone.
	doc, err := j.svc.corpus.Read(ctx, j.path)
	if err != nil {
		res.failure = &domain.IngestFailure{Path: j.path, Reason: err.Error()}
		res.err = err
		return res
	}
	res.documentID = doc.ID

	chunks, err := j.svc.extractor.Extract(doc)
	if err != nil {
		res.failure = &domain.IngestFailure{DocumentID: doc.ID, Path: j.path, Reason: err.Error()}
		res.err = err
		return res
	}

	// The document row is written before its chunks so every chunk
	// always references a present document.
	doc.IngestedAt = time.Now().UTC()
	if err := j.svc.docStore.SaveDocument(ctx, doc); err != nil {
		res.failure = &domain.IngestFailure{DocumentID: doc.ID, Path: j.path, Reason: fmt.Sprintf("save document: %v", err)}
		res.err = err
		return res
	}

	if len(chunks) == 0 {
		// A parse that yielded nothing is a valid, empty document.
		res.empty = true
		logger.Debug("document %s produced no chunks", doc.ID)
		return res
	}

	batch, err := j.svc.index.AddBatch(ctx, chunks)
	if err != nil {
		res.failure = &domain.IngestFailure{DocumentID: doc.ID, Path: j.path, Reason: fmt.Sprintf("index: %v", err)}
		res.err = err
		return res
	}
	res.batch = batch

	return res
}
