package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek/citeseek/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

func saveTestDocument(t *testing.T, store *Store, id string) {
	t.Helper()
	doc := &domain.Document{
		ID:            id,
		Title:         "Title of " + id,
		Authors:       []string{"A. Author", "B. Author"},
		PublicationID: "10.1000/" + id,
		ParseStrategy: domain.ParseFast,
		Elements: []domain.Element{
			{Type: domain.ElementAbstract, Text: "An abstract.", Start: 0, End: 12},
			{Type: domain.ElementParagraph, Text: "A paragraph.", Start: 12, End: 24},
		},
		IngestedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveDocument(context.Background(), doc))
}

func TestStore_SaveDocument_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	saveTestDocument(t, store, "paper-a")

	doc, err := store.GetDocument(ctx, "paper-a")
	require.NoError(t, err)

	assert.Equal(t, "Title of paper-a", doc.Title)
	assert.Equal(t, []string{"A. Author", "B. Author"}, doc.Authors)
	assert.Equal(t, "10.1000/paper-a", doc.PublicationID)
	assert.Equal(t, domain.ParseFast, doc.ParseStrategy)
	require.Len(t, doc.Elements, 2)
	assert.Equal(t, domain.ElementAbstract, doc.Elements[0].Type)
	assert.Equal(t, 24, doc.Elements[1].End)
	assert.False(t, doc.IngestedAt.IsZero())
}

func TestStore_SaveDocument_Upsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	saveTestDocument(t, store, "paper-a")
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:    "paper-a",
		Title: "Revised Title",
	}))

	doc, err := store.GetDocument(ctx, "paper-a")
	require.NoError(t, err)
	assert.Equal(t, "Revised Title", doc.Title)
	assert.Empty(t, doc.Elements)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStore_GetDocument_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListDocuments_OrderedWithoutElements(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	saveTestDocument(t, store, "paper-b")
	saveTestDocument(t, store, "paper-a")

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "paper-a", docs[0].ID)
	assert.Equal(t, "paper-b", docs[1].ID)
	assert.Empty(t, docs[0].Elements, "listings omit the element payload")
	assert.Equal(t, []string{"A. Author", "B. Author"}, docs[0].Authors)
}

func TestStore_SaveChunks_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "paper-a")

	chunks := []domain.Chunk{
		{
			ID:         domain.ChunkID("paper-a", 0),
			DocumentID: "paper-a",
			Type:       domain.ChunkAbstract,
			Section:    "",
			Text:       "An abstract.",
			Position:   0,
			Span:       domain.Span{Start: 0, End: 12},
			Embedding:  []float32{0.1, -0.2, 0.3},
		},
		{
			ID:         domain.ChunkID("paper-a", 1),
			DocumentID: "paper-a",
			Type:       domain.ChunkBody,
			Section:    "Introduction",
			Text:       "A paragraph.",
			Position:   1,
			Span:       domain.Span{Start: 12, End: 24},
			Embedding:  []float32{-0.4, 0.5, 0.6},
		},
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	got, err := store.GetChunk(ctx, chunks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChunkBody, got.Type)
	assert.Equal(t, "Introduction", got.Section)
	assert.Equal(t, "A paragraph.", got.Text)
	assert.Equal(t, domain.Span{Start: 12, End: 24}, got.Span)
	assert.Equal(t, []float32{-0.4, 0.5, 0.6}, got.Embedding, "embedding blob round-trips exactly")

	byDoc, err := store.GetChunks(ctx, "paper-a")
	require.NoError(t, err)
	require.Len(t, byDoc, 2)
	assert.Equal(t, 0, byDoc[0].Position)
	assert.Equal(t, 1, byDoc[1].Position)
}

func TestStore_SaveChunks_UpsertByID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "paper-a")

	chunk := domain.Chunk{
		ID:         domain.ChunkID("paper-a", 0),
		DocumentID: "paper-a",
		Type:       domain.ChunkBody,
		Text:       "Old text.",
		Embedding:  []float32{1, 0},
	}
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{chunk}))

	chunk.Text = "New text."
	chunk.Embedding = []float32{0, 1}
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{chunk}))

	got, err := store.GetChunk(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, "New text.", got.Text)
	assert.Equal(t, []float32{0, 1}, got.Embedding)

	all, err := store.ListChunks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_GetChunk_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetChunk(context.Background(), "missing_0000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListChunks_OrderedByID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "paper-a")

	var chunks []domain.Chunk
	for _, pos := range []int{2, 0, 1} {
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID("paper-a", pos),
			DocumentID: "paper-a",
			Type:       domain.ChunkBody,
			Text:       "text",
			Position:   pos,
		})
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	all, err := store.ListChunks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.ChunkID("paper-a", 0), all[0].ID)
	assert.Equal(t, domain.ChunkID("paper-a", 2), all[2].ID)
}

func TestStore_DeleteDocument_CascadesToChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "paper-a")
	saveTestDocument(t, store, "paper-b")

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: domain.ChunkID("paper-a", 0), DocumentID: "paper-a", Type: domain.ChunkBody, Text: "a"},
		{ID: domain.ChunkID("paper-b", 0), DocumentID: "paper-b", Type: domain.ChunkBody, Text: "b"},
	}))

	require.NoError(t, store.DeleteDocument(ctx, "paper-a"))

	_, err := store.GetDocument(ctx, "paper-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetChunk(ctx, domain.ChunkID("paper-a", 0))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The other document's chunks survive.
	_, err = store.GetChunk(ctx, domain.ChunkID("paper-b", 0))
	assert.NoError(t, err)
}

func TestStore_IndexMeta_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetIndexMeta(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	meta := domain.IndexMeta{
		EmbeddingModel: "text-embedding-3-small",
		Dimensions:     1536,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveIndexMeta(ctx, meta))

	got, err := store.GetIndexMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, meta.EmbeddingModel, got.EmbeddingModel)
	assert.Equal(t, meta.Dimensions, got.Dimensions)

	// Saving again overwrites the single row.
	meta.Dimensions = 768
	require.NoError(t, store.SaveIndexMeta(ctx, meta))
	got, err = store.GetIndexMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, 768, got.Dimensions)
}

func TestStore_Stats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "paper-a")

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: domain.ChunkID("paper-a", 0), DocumentID: "paper-a", Type: domain.ChunkAbstract, Text: "Short."},
		{ID: domain.ChunkID("paper-a", 1), DocumentID: "paper-a", Type: domain.ChunkBody, Text: "A considerably longer chunk."},
	}))
	require.NoError(t, store.SaveIndexMeta(ctx, domain.IndexMeta{
		EmbeddingModel: "mock-embed",
		Dimensions:     3,
		CreatedAt:      time.Now().UTC(),
	}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 1, stats.ChunksByType[domain.ChunkAbstract])
	assert.Equal(t, 1, stats.ChunksByType[domain.ChunkBody])
	assert.Equal(t, 6, stats.MinChunkSize)
	assert.Equal(t, 28, stats.MaxChunkSize)
	assert.InDelta(t, 17.0, stats.MeanChunkSize, 1e-9)
	assert.Equal(t, "mock-embed", stats.EmbeddingModel)
	assert.Equal(t, 3, stats.EmbeddingDimensions)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "paper-a", Title: "Persistent"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: domain.ChunkID("paper-a", 0), DocumentID: "paper-a", Type: domain.ChunkBody, Text: "t", Embedding: []float32{1}},
	}))
	require.NoError(t, store.Close())

	// Reopening runs migrations again; they must be no-ops.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.GetDocument(ctx, "paper-a")
	require.NoError(t, err)
	assert.Equal(t, "Persistent", doc.Title)

	chunk, err := reopened.GetChunk(ctx, domain.ChunkID("paper-a", 0))
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, chunk.Embedding)
}
