package domain

import (
	"strings"
	"time"
)

// ElementType classifies a structural element of a parsed document.
// The set is closed: parsers map anything they cannot classify to
// ElementUnknown rather than inventing new types.
type ElementType string

const (
	// ElementTitle is a section or document heading. Titles contribute
	// section context to subsequent chunks but never form chunks themselves.
	ElementTitle ElementType = "title"

	// ElementAbstract is the document abstract.
	ElementAbstract ElementType = "abstract"

	// ElementParagraph is narrative body text.
	ElementParagraph ElementType = "paragraph"

	// ElementEquation is a display equation or formula.
	ElementEquation ElementType = "equation"

	// ElementTable is tabular content rendered as text.
	ElementTable ElementType = "table"

	// ElementUnknown is anything the parser could not classify.
	ElementUnknown ElementType = "unknown"
)

// ParseElementType normalises a string to an ElementType.
// Unrecognised values map to ElementUnknown; callers decide whether
// that is an error or a skip.
func ParseElementType(s string) ElementType {
	switch ElementType(strings.ToLower(strings.TrimSpace(s))) {
	case ElementTitle:
		return ElementTitle
	case ElementAbstract:
		return ElementAbstract
	case ElementParagraph:
		return ElementParagraph
	case ElementEquation:
		return ElementEquation
	case ElementTable:
		return ElementTable
	default:
		return ElementUnknown
	}
}

// Valid reports whether t is one of the known element types.
// ElementUnknown is valid: it is the explicit bucket for
// unclassifiable content.
func (t ElementType) Valid() bool {
	switch t {
	case ElementTitle, ElementAbstract, ElementParagraph, ElementEquation, ElementTable, ElementUnknown:
		return true
	default:
		return false
	}
}

// ParseStrategy records how a document was converted from its
// original format into structural elements.
type ParseStrategy string

const (
	// ParseFast is the layout-free text extraction pass.
	ParseFast ParseStrategy = "fast"

	// ParseHiRes is the layout-aware extraction pass, used when
	// fast extraction produced too little structure.
	ParseHiRes ParseStrategy = "hi_res"

	// ParseAuto lets the parser choose per page.
	ParseAuto ParseStrategy = "auto"
)

// Element is a single structural unit emitted by the document parser,
// in reading order.
type Element struct {
	// Type classifies the element.
	Type ElementType

	// Text is the extracted text content.
	Text string

	// Start is the rune offset of the element within the source
	// document's extracted text. Zero when the parser does not
	// report offsets.
	Start int

	// End is the exclusive rune offset of the element's end.
	End int
}

// Document represents a parsed scientific document. It is the
// canonical representation handed to the unit extractor: an ordered
// list of typed elements plus identifying metadata.
type Document struct {
	// ID is the unique identifier for the document, typically the
	// paper identifier assigned by the corpus (e.g. an arXiv ID).
	ID string

	// Title is the human-readable document title.
	Title string

	// Authors lists the document authors in citation order.
	Authors []string

	// PublicationID is an external identifier such as a DOI.
	// Empty when the corpus does not record one.
	PublicationID string

	// ParseStrategy records which extraction pass produced Elements.
	ParseStrategy ParseStrategy

	// Elements is the ordered structural content of the document.
	// A document with no elements is valid and yields zero chunks.
	Elements []Element

	// IngestedAt is when the document was ingested into the store.
	IngestedAt time.Time
}

// Empty reports whether the document carries no extractable content.
func (d Document) Empty() bool {
	return len(d.Elements) == 0
}
