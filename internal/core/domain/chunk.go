package domain

import (
	"fmt"
	"unicode/utf8"
)

// ChunkType classifies a retrieval unit by the content that dominates it.
type ChunkType string

const (
	// ChunkAbstract is a chunk holding a document abstract.
	// Abstracts always form their own chunk.
	ChunkAbstract ChunkType = "abstract"

	// ChunkBody is a chunk of one or more consecutive paragraphs,
	// possibly with equations or tables folded in.
	ChunkBody ChunkType = "body"

	// ChunkEquation is a standalone equation that did not fit into
	// an adjacent body chunk.
	ChunkEquation ChunkType = "equation"

	// ChunkTable is a standalone table that did not fit into an
	// adjacent body chunk.
	ChunkTable ChunkType = "table"
)

// Span records the rune offsets a chunk covers in the source document.
type Span struct {
	// Start is the inclusive rune offset of the first element.
	Start int

	// End is the exclusive rune offset of the last element.
	End int
}

// Chunk is a retrieval unit extracted from a document. Chunks are the
// granularity of indexing, retrieval and citation: every citation in
// an answer resolves to exactly one chunk.
type Chunk struct {
	// ID is the deterministic identifier, derived from the document
	// ID and the chunk's ordinal position. See ChunkID.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Type classifies the chunk.
	Type ChunkType

	// Section is the heading under which the chunk's content appears,
	// e.g. "3. Method". Empty for content before the first heading.
	Section string

	// Text is the chunk's verbatim text.
	Text string

	// Position is the ordinal position within the document, starting
	// at zero. Positions are dense per document.
	Position int

	// Span covers the chunk's extent in the source document.
	Span Span

	// Embedding is the vector representation used for similarity
	// search. Nil until the chunk has been embedded.
	Embedding []float32
}

// ChunkID derives the deterministic chunk identifier for a document
// and position. The position is zero-padded so lexicographic order
// matches positional order, which keeps tie-breaking on chunk ID
// stable and meaningful.
func ChunkID(documentID string, position int) string {
	return fmt.Sprintf("%s_%04d", documentID, position)
}

// Size returns the chunk's text length in runes. Context budgets are
// expressed in the same unit.
func (c Chunk) Size() int {
	return utf8.RuneCountInString(c.Text)
}
