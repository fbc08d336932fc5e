package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek/citeseek/internal/core/domain"
)

func TestDocumentStore_SaveAndGetDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{
		ID:    "2105.00001",
		Title: "Dense Retrieval at Scale",
		Elements: []domain.Element{
			{Type: domain.ElementAbstract, Text: "We study retrieval."},
		},
	}
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "2105.00001")
	require.NoError(t, err)
	assert.Equal(t, "Dense Retrieval at Scale", got.Title)
	assert.Len(t, got.Elements, 1)
}

func TestDocumentStore_GetDocument_NotFound(t *testing.T) {
	store := NewDocumentStore()

	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveChunks_UpsertsByID(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	first := domain.Chunk{ID: "d_0000", DocumentID: "d", Text: "one", Position: 0}
	second := domain.Chunk{ID: "d_0001", DocumentID: "d", Text: "two", Position: 1}

	// Separate saves must not clobber earlier chunks of the same document.
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{first}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{second}))

	chunks, err := store.GetChunks(ctx, "d")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "d_0000", chunks[0].ID)
	assert.Equal(t, "d_0001", chunks[1].ID)

	// Re-saving an existing ID replaces the row.
	first.Text = "one updated"
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{first}))
	got, err := store.GetChunk(ctx, "d_0000")
	require.NoError(t, err)
	assert.Equal(t, "one updated", got.Text)
}

func TestDocumentStore_ListChunks_OrderedByID(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "b_0000", DocumentID: "b"},
		{ID: "a_0001", DocumentID: "a"},
		{ID: "a_0000", DocumentID: "a"},
	}))

	chunks, err := store.ListChunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a_0000", chunks[0].ID)
	assert.Equal(t, "a_0001", chunks[1].ID)
	assert.Equal(t, "b_0000", chunks[2].ID)
}

func TestDocumentStore_DeleteDocument_RemovesChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "d"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "d_0000", DocumentID: "d"},
		{ID: "e_0000", DocumentID: "e"},
	}))

	require.NoError(t, store.DeleteDocument(ctx, "d"))

	_, err := store.GetDocument(ctx, "d")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetChunk(ctx, "d_0000")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Other documents' chunks survive.
	_, err = store.GetChunk(ctx, "e_0000")
	assert.NoError(t, err)
}

func TestDocumentStore_IndexMeta(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	_, err := store.GetIndexMeta(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.SaveIndexMeta(ctx, domain.IndexMeta{
		EmbeddingModel: "bge-large",
		Dimensions:     1024,
	}))

	meta, err := store.GetIndexMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bge-large", meta.EmbeddingModel)
	assert.Equal(t, 1024, meta.Dimensions)
}

func TestDocumentStore_Stats(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "d"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "d_0000", DocumentID: "d", Type: domain.ChunkAbstract, Text: "abcd"},
		{ID: "d_0001", DocumentID: "d", Type: domain.ChunkBody, Text: "abcdefgh"},
	}))
	require.NoError(t, store.SaveIndexMeta(ctx, domain.IndexMeta{EmbeddingModel: "m", Dimensions: 8}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 4, stats.MinChunkSize)
	assert.Equal(t, 8, stats.MaxChunkSize)
	assert.InDelta(t, 6.0, stats.MeanChunkSize, 0.001)
	assert.Equal(t, 1, stats.ChunksByType[domain.ChunkAbstract])
	assert.Equal(t, 1, stats.ChunksByType[domain.ChunkBody])
	assert.Equal(t, "m", stats.EmbeddingModel)
}

func TestDocumentStore_StatsEmpty(t *testing.T) {
	stats, err := NewDocumentStore().Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Chunks)
	assert.Zero(t, stats.MinChunkSize)
	assert.Zero(t, stats.MeanChunkSize)
}
