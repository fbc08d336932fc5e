package services

import (
	"fmt"
	"strings"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/logger"
)

// DefaultMaxChunkSize is the default maximum chunk size in runes.
// Runs of compatible elements are closed once they would exceed it.
const DefaultMaxChunkSize = 1500

// chunkJoiner separates merged element texts within a chunk.
const chunkJoiner = "\n\n"

// groupPolicy states how the extractor treats one element type.
// Grouping decisions come from this table, never from inspecting
// element internals.
type groupPolicy struct {
	// emit: the element's text belongs in chunk output.
	emit bool

	// section: the element's text becomes the current section header.
	section bool

	// run names the merge group. Consecutive emitted elements with the
	// same run share a chunk; a change of run closes the open chunk.
	run string

	// solo: the element forms a chunk on its own, regardless of run.
	solo bool
}

// policies is the closed grouping table. Abstracts always stand
// alone; paragraphs, equations and tables merge into body runs;
// titles only update section context; unknown elements are skipped.
var policies = map[domain.ElementType]groupPolicy{
	domain.ElementTitle:     {section: true},
	domain.ElementAbstract:  {emit: true, run: "abstract", solo: true},
	domain.ElementParagraph: {emit: true, run: "body"},
	domain.ElementEquation:  {emit: true, run: "body"},
	domain.ElementTable:     {emit: true, run: "body"},
	domain.ElementUnknown:   {},
}

// chunkTypeFor maps a dominant element type to the chunk type.
var chunkTypeFor = map[domain.ElementType]domain.ChunkType{
	domain.ElementAbstract:  domain.ChunkAbstract,
	domain.ElementParagraph: domain.ChunkBody,
	domain.ElementEquation:  domain.ChunkEquation,
	domain.ElementTable:     domain.ChunkTable,
}

// Extractor turns a parsed document into retrieval units. It is pure:
// no network or file I/O, and identical input always yields identical
// chunks, including IDs.
type Extractor struct {
	maxChunkSize int
}

// ExtractorOption configures the extractor.
type ExtractorOption func(*Extractor)

// WithMaxChunkSize sets the maximum chunk size in runes.
func WithMaxChunkSize(size int) ExtractorOption {
	return func(e *Extractor) {
		if size > 0 {
			e.maxChunkSize = size
		}
	}
}

// NewExtractor creates an extractor with the given options.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{maxChunkSize: DefaultMaxChunkSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run accumulates compatible elements until closed into a chunk.
type run struct {
	name     string
	section  string
	texts    []string
	sizes    map[domain.ElementType]int
	span     domain.Span
	hasSpan  bool
	runeSize int
}

// Extract groups the document's elements into chunks. A document with
// no usable elements yields zero chunks; that is a valid outcome, not
// an error.
func (e *Extractor) Extract(doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("extract: nil document: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.ID) == "" {
		return nil, fmt.Errorf("extract: document without ID: %w", domain.ErrInvalidInput)
	}

	var (
		chunks   []domain.Chunk
		open     *run
		section  string
		position int
		skipped  int
	)

	closeRun := func() {
		if open == nil {
			return
		}
		if c, ok := e.finishRun(doc.ID, open, position); ok {
			chunks = append(chunks, c)
			position++
		}
		open = nil
	}

	for _, el := range doc.Elements {
		policy, known := policies[el.Type]
		if !known {
			policy = policies[domain.ElementUnknown]
		}

		if policy.section {
			closeRun()
			if s := strings.TrimSpace(el.Text); s != "" {
				section = s
			}
			continue
		}

		if !policy.emit {
			skipped++
			continue
		}

		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}

		size := len([]rune(text))

		// Close the open run when the merge group changes or the
		// addition would push it past the size cap. A single element
		// over the cap still becomes its own chunk: elements are
		// never split.
		if open != nil && (open.name != policy.run || open.runeSize+len(chunkJoiner)+size > e.maxChunkSize) {
			closeRun()
		}
		if open == nil {
			open = &run{
				name:    policy.run,
				section: section,
				sizes:   make(map[domain.ElementType]int),
			}
		}

		if len(open.texts) > 0 {
			open.runeSize += len(chunkJoiner)
		}
		open.texts = append(open.texts, text)
		open.runeSize += size
		open.sizes[el.Type] += size

		if el.End > el.Start {
			if !open.hasSpan {
				open.span = domain.Span{Start: el.Start, End: el.End}
				open.hasSpan = true
			} else {
				if el.Start < open.span.Start {
					open.span.Start = el.Start
				}
				if el.End > open.span.End {
					open.span.End = el.End
				}
			}
		}

		if policy.solo {
			closeRun()
		}
	}
	closeRun()

	if skipped > 0 {
		logger.Debug("extract %s: skipped %d unclassified elements", doc.ID, skipped)
	}

	return chunks, nil
}

// finishRun materialises a run into a chunk. Runs whose combined text
// cleaned to nothing are dropped.
func (e *Extractor) finishRun(docID string, r *run, position int) (domain.Chunk, bool) {
	text := strings.TrimSpace(strings.Join(r.texts, chunkJoiner))
	if text == "" {
		return domain.Chunk{}, false
	}

	return domain.Chunk{
		ID:         domain.ChunkID(docID, position),
		DocumentID: docID,
		Type:       chunkTypeFor[r.dominant()],
		Section:    r.section,
		Text:       text,
		Position:   position,
		Span:       r.span,
	}, true
}

// dominant returns the element type that contributed the most text to
// the run. Ties resolve in favour of paragraphs so mixed runs stay
// body chunks.
func (r *run) dominant() domain.ElementType {
	best := domain.ElementParagraph
	bestSize := r.sizes[domain.ElementParagraph]

	for _, t := range []domain.ElementType{domain.ElementAbstract, domain.ElementEquation, domain.ElementTable} {
		if r.sizes[t] > bestSize {
			best = t
			bestSize = r.sizes[t]
		}
	}
	return best
}
