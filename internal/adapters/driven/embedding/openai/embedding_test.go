package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps retries and rate limiting out of the test's way.
func fastConfig(baseURL string) Config {
	return Config{
		APIKey:            "test-key",
		BaseURL:           baseURL,
		RetryDelay:        time.Millisecond,
		RequestsPerSecond: 1000,
		BurstSize:         1000,
	}
}

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "test-key"})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())
}

func TestNewEmbeddingService_ModelDimensions(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, svc.Dimensions())

	svc, err = NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-small", Dimensions: 256})
	require.NoError(t, err)
	assert.Equal(t, 256, svc.Dimensions())
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		// Vectors returned out of order; Index restores input order.
		w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "embedding", "embedding": [0, 1], "index": 1},
				{"object": "embedding", "embedding": [1, 0], "index": 0}
			],
			"model": "text-embedding-3-small"
		}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(fastConfig(server.URL))
	require.NoError(t, err)

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{1, 0}, embeddings[0])
	assert.Equal(t, []float32{0, 1}, embeddings[1])

	assert.Equal(t, "text-embedding-3-small", gotBody["model"])
	assert.Equal(t, float64(1536), gotBody["dimensions"], "v3 models carry an explicit dimensions parameter")
}

func TestEmbeddingService_EmbedBatch_NoDimensionsForLegacyModel(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data": [{"embedding": [1], "index": 0}]}`))
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.Model = "text-embedding-ada-002"
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"one"})
	require.NoError(t, err)

	_, present := gotBody["dimensions"]
	assert.False(t, present, "ada-002 does not accept a dimensions parameter")
}

func TestEmbeddingService_EmbedBatch_EmptyInput(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(fastConfig(server.URL))
	require.NoError(t, err)

	embeddings, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestEmbeddingService_EmbedBatch_RetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"message": "upstream hiccup", "type": "server_error"}}`))
			return
		}
		w.Write([]byte(`{"data": [{"embedding": [1, 2], "index": 0}]}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(fastConfig(server.URL))
	require.NoError(t, err)

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"flaky"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, embeddings[0])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEmbeddingService_EmbedBatch_ExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "rate_limit_error"}}`))
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.MaxRetries = 2
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"doomed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEmbeddingService_EmbedBatch_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"embedding": [1], "index": 0}]}`))
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.MaxRetries = 1
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 embeddings for 2 texts")
}

func TestEmbeddingService_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"embedding": [0.5, -0.5], "index": 0}]}`))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(fastConfig(server.URL))
	require.NoError(t, err)

	embedding, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5}, embedding)
}

func TestEmbeddingService_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Write([]byte(`{"data": [{"id": "text-embedding-3-small"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(fastConfig(server.URL))
	require.NoError(t, err)
	assert.NoError(t, svc.Ping(context.Background()))

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	})
	assert.Error(t, svc.Ping(context.Background()))
}
