package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek/citeseek/internal/adapters/driven/storage/memory"
	"github.com/citeseek/citeseek/internal/adapters/driven/vector/cosine"
	"github.com/citeseek/citeseek/internal/core/domain"
)

// --- Test helpers ---

// seedRetrievalCorpus indexes two documents with hand-picked unit
// vectors so similarities against the "stars" query vector (1,0) are
// known: 1.0, 0.8, 0.8 (tie), 0.0 and -1.0.
func seedRetrievalCorpus(t *testing.T) (*memory.DocumentStore, *RetrievalService) {
	t.Helper()
	ctx := context.Background()

	store := memory.NewDocumentStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:    "paper-a",
		Title: "Spectral Lines in M-Dwarfs",
	}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:    "paper-b",
		Title: "A Gravitational Wave Primer",
	}))

	embedder := &mockEmbedder{dims: 2, vectors: map[string][]float32{
		"stars": {1, 0},
	}}
	vectors, err := cosine.New(2)
	require.NoError(t, err)
	index := NewIndexService(store, vectors, embedder)

	seed := []struct {
		docID string
		pos   int
		vec   []float32
	}{
		{"paper-a", 0, []float32{1, 0}},
		{"paper-a", 1, []float32{0.8, 0.6}},
		{"paper-b", 0, []float32{0.8, 0.6}},
		{"paper-b", 1, []float32{0, 1}},
		{"paper-b", 2, []float32{-1, 0}},
	}
	for _, s := range seed {
		chunk := testChunk(s.docID, s.pos, "chunk "+domain.ChunkID(s.docID, s.pos))
		chunk.Embedding = s.vec
		require.NoError(t, index.Add(ctx, chunk))
	}

	return store, NewRetrievalService(store, index, embedder)
}

func resultIDs(results []domain.QueryResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Chunk.ID
	}
	return ids
}

// --- Tests ---

func TestRetrievalService_Query_EmptyQuery(t *testing.T) {
	_, svc := seedRetrievalCorpus(t)
	ctx := context.Background()

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := svc.Query(ctx, query, domain.RetrievalOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestRetrievalService_Query_OrdersByScoreThenChunkID(t *testing.T) {
	_, svc := seedRetrievalCorpus(t)

	results, err := svc.Query(context.Background(), "stars", domain.RetrievalOptions{
		K:            5,
		MinRelevance: -1,
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	// Tied scores (0.8) fall back to ascending chunk ID, so the same
	// query always returns the same order.
	assert.Equal(t, []string{
		"paper-a_0000",
		"paper-a_0001",
		"paper-b_0000",
		"paper-b_0001",
		"paper-b_0002",
	}, resultIDs(results))

	assert.InDelta(t, 1.0, results[0].Score, 1e-3)
	assert.InDelta(t, 0.8, results[1].Score, 1e-3)
	assert.InDelta(t, 0.8, results[2].Score, 1e-3)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
	assert.Equal(t, "Spectral Lines in M-Dwarfs", results[0].DocumentTitle)
}

func TestRetrievalService_Query_NegativeSimilarityDroppedByDefault(t *testing.T) {
	_, svc := seedRetrievalCorpus(t)

	results, err := svc.Query(context.Background(), "stars", domain.RetrievalOptions{K: 5})
	require.NoError(t, err)

	// The zero-value threshold keeps orthogonal chunks but drops
	// anti-correlated ones.
	assert.Len(t, results, 4)
	assert.NotContains(t, resultIDs(results), "paper-b_0002")
}

func TestRetrievalService_Query_AppliesThreshold(t *testing.T) {
	_, svc := seedRetrievalCorpus(t)

	results, err := svc.Query(context.Background(), "stars", domain.RetrievalOptions{
		K:            5,
		MinRelevance: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"paper-a_0000", "paper-a_0001", "paper-b_0000"}, resultIDs(results))
}

func TestRetrievalService_Query_RaisingThresholdNeverAddsResults(t *testing.T) {
	_, svc := seedRetrievalCorpus(t)
	ctx := context.Background()

	var previous []string
	for _, min := range []float64{0.9, 0.5, 0.0} {
		results, err := svc.Query(ctx, "stars", domain.RetrievalOptions{K: 5, MinRelevance: min})
		require.NoError(t, err)

		ids := resultIDs(results)
		if previous != nil {
			require.GreaterOrEqual(t, len(ids), len(previous))
			assert.Equal(t, previous, ids[:len(previous)], "higher threshold must be a prefix of lower")
		}
		previous = ids
	}
}

func TestRetrievalService_Query_ShortListNeverPadded(t *testing.T) {
	_, svc := seedRetrievalCorpus(t)

	results, err := svc.Query(context.Background(), "stars", domain.RetrievalOptions{K: 50})
	require.NoError(t, err)

	assert.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRetrievalService_Query_DefaultK(t *testing.T) {
	_, svc := seedRetrievalCorpus(t)

	results, err := svc.Query(context.Background(), "stars", domain.RetrievalOptions{MinRelevance: -1})
	require.NoError(t, err)

	assert.Len(t, results, DefaultTopK)
}

func TestRetrievalService_Query_DropsHitsWithoutRows(t *testing.T) {
	store, svc := seedRetrievalCorpus(t)
	ctx := context.Background()

	// Remove paper-a's rows but leave its vectors behind; the stale
	// hits must be dropped, not fail the query.
	require.NoError(t, store.DeleteDocument(ctx, "paper-a"))

	results, err := svc.Query(ctx, "stars", domain.RetrievalOptions{K: 5})
	require.NoError(t, err)

	assert.Equal(t, []string{"paper-b_0000", "paper-b_0001"}, resultIDs(results))
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank, "ranks renumber after dropped hits")
	}
}

func TestRetrievalService_Query_EmbedFailure(t *testing.T) {
	store := memory.NewDocumentStore()
	embedder := &mockEmbedder{embedErr: errors.New("model offline")}
	vectors, err := cosine.New(3)
	require.NoError(t, err)
	index := NewIndexService(store, vectors, embedder)
	svc := NewRetrievalService(store, index, embedder)

	_, err = svc.Query(context.Background(), "stars", domain.RetrievalOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}
