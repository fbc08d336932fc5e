package domain

import "time"

// IngestFailure records a document that could not be ingested.
// Failures are isolated: one bad document never aborts the run.
type IngestFailure struct {
	// DocumentID is the failing document's ID, when known.
	DocumentID string

	// Path is the corpus path the document was read from.
	Path string

	// Reason is the error message.
	Reason string
}

// IngestSummary reports the outcome of an ingest run.
type IngestSummary struct {
	// RunID uniquely identifies the ingest run in logs and output.
	RunID string

	// Documents is the number of documents successfully ingested,
	// including empty ones.
	Documents int

	// EmptyDocuments counts documents that yielded zero chunks.
	EmptyDocuments int

	// ChunksAdded counts chunks newly embedded and indexed.
	ChunksAdded int

	// ChunksUnchanged counts chunks whose ID and text already matched
	// the index and were skipped.
	ChunksUnchanged int

	// Conflicts lists chunk IDs that were re-ingested with different
	// text. Conflicting chunks keep their existing indexed text.
	Conflicts []string

	// Failures lists documents that could not be ingested.
	Failures []IngestFailure

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}
