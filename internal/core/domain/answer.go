package domain

// AskOptions configures an end-to-end grounded question.
type AskOptions struct {
	// Retrieval configures the retrieval stage.
	Retrieval RetrievalOptions

	// ContextBudget is the maximum combined chunk size, in runes,
	// assembled into the generation prompt.
	ContextBudget int
}

// Citation links a source marker in an answer to the chunk that
// backs it. Citations are only emitted for markers that resolved to a
// chunk actually present in the assembled context.
type Citation struct {
	// Marker is the source number as cited, e.g. 2 for "[Source 2]".
	Marker int

	// ChunkID identifies the cited chunk.
	ChunkID string

	// DocumentID identifies the chunk's parent document.
	DocumentID string

	// DocumentTitle is the parent document's title.
	DocumentTitle string

	// Section is the heading the cited content appears under.
	Section string

	// Position is the chunk's ordinal position in the document.
	Position int
}

// Answer is the result of a grounded question. The text is returned
// verbatim from the generator; citations are validated against the
// assembled context before being attached.
type Answer struct {
	// Text is the generator's answer text, unmodified except for
	// markers that failed validation, which are rewritten in place.
	Text string

	// Citations lists the resolved source markers in order of first
	// appearance. Empty when Grounded is false.
	Citations []Citation

	// Unverified lists marker numbers the generator cited but which
	// did not resolve to any context entry.
	Unverified []int

	// Grounded is false when the generator declared the context
	// insufficient, or when the context was empty and generation was
	// skipped entirely.
	Grounded bool

	// Model names the generator model that produced the text. Empty
	// when generation was skipped.
	Model string
}
