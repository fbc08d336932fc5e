package domain

// RetrievalOptions configures a retrieval query.
type RetrievalOptions struct {
	// K is the maximum number of results to return. Fewer may come
	// back when the threshold filters candidates out.
	K int

	// MinRelevance is the minimum cosine similarity a chunk must
	// score to be returned. The zero default drops only
	// anti-correlated chunks (negative similarity).
	MinRelevance float64
}

// QueryResult is a single scored chunk returned by retrieval.
type QueryResult struct {
	// Chunk is the retrieved unit, hydrated from the store.
	Chunk Chunk

	// DocumentTitle is the title of the chunk's parent document,
	// carried so callers can render results without another lookup.
	DocumentTitle string

	// Score is the cosine similarity between the query embedding and
	// the chunk embedding, in [-1, 1]. Higher is more relevant.
	Score float64

	// Rank is the 1-based position in the result list.
	Rank int
}
