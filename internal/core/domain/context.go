package domain

// ContextEntry is one chunk selected into an assembled context.
type ContextEntry struct {
	// Chunk is the selected unit. When Truncated is true, Chunk.Text
	// holds the truncated text actually presented to the generator.
	Chunk Chunk

	// DocumentTitle is the title of the chunk's parent document.
	DocumentTitle string

	// Score is the retrieval score the chunk was selected with.
	Score float64

	// Truncated reports that the chunk text was cut to fit the
	// budget. Only the sole entry of a context may be truncated.
	Truncated bool
}

// AssembledContext is the budgeted selection of chunks handed to the
// generator. Entries preserve retrieval order: descending score, ties
// broken by ascending chunk ID.
type AssembledContext struct {
	// Entries are the selected chunks in presentation order. The
	// 1-based index of an entry is its source number in the prompt.
	Entries []ContextEntry

	// Budget is the character budget the assembly was built against.
	Budget int

	// Size is the total rune count of the included texts.
	Size int
}

// Empty reports whether no chunks made it into the context. An empty
// context must never reach the generator.
func (c AssembledContext) Empty() bool {
	return len(c.Entries) == 0
}

// Entry returns the entry for a 1-based source number, or false when
// the number is out of range.
func (c AssembledContext) Entry(source int) (ContextEntry, bool) {
	if source < 1 || source > len(c.Entries) {
		return ContextEntry{}, false
	}
	return c.Entries[source-1], true
}
