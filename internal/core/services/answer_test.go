package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockGenerator implements driven.Generator for testing.
type mockGenerator struct {
	output     string
	err        error
	delay      time.Duration
	calls      int32
	lastPrompt string
	lastOpts   driven.GenerateOptions
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	m.lastPrompt = prompt
	m.lastOpts = opts
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

func (m *mockGenerator) ModelName() string {
	return "mock-gen"
}

func (m *mockGenerator) Ping(_ context.Context) error {
	return nil
}

func (m *mockGenerator) Close() error {
	return nil
}

// --- Test helpers ---

// assembledEntries builds a context of n small chunks from one paper.
func assembledEntries(n int) domain.AssembledContext {
	ctx := domain.AssembledContext{Budget: 1000}
	for i := 0; i < n; i++ {
		chunk := testChunk("paper-a", i, fmt.Sprintf("Fact number %d.", i))
		ctx.Entries = append(ctx.Entries, domain.ContextEntry{
			Chunk:         chunk,
			DocumentTitle: "Paper A",
			Score:         0.9 - float64(i)*0.1,
		})
		ctx.Size += chunk.Size()
	}
	return ctx
}

// --- Tests ---

func TestAnswerService_Answer_EmptyContextSkipsGeneration(t *testing.T) {
	gen := &mockGenerator{output: "should never be seen"}
	svc := NewAnswerService(nil, nil, gen)

	answer, err := svc.Answer(context.Background(), "How do stars shine?", domain.AssembledContext{})

	require.NoError(t, err)
	assert.Equal(t, InsufficientContextText, answer.Text)
	assert.False(t, answer.Grounded)
	assert.Empty(t, answer.Citations)
	assert.Zero(t, atomic.LoadInt32(&gen.calls), "generator must not run on empty context")
}

func TestAnswerService_Answer_NilGenerator(t *testing.T) {
	svc := NewAnswerService(nil, nil, nil)

	_, err := svc.Answer(context.Background(), "How do stars shine?", assembledEntries(1))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestAnswerService_Answer_ValidCitationsResolve(t *testing.T) {
	gen := &mockGenerator{output: "Stars fuse hydrogen [Source 1]. Light bends near mass [Source 2]."}
	svc := NewAnswerService(nil, nil, gen)

	answer, err := svc.Answer(context.Background(), "How do stars shine?", assembledEntries(2))
	require.NoError(t, err)

	assert.Equal(t, gen.output, answer.Text, "resolved markers stay verbatim")
	assert.True(t, answer.Grounded)
	assert.Empty(t, answer.Unverified)
	assert.Equal(t, "mock-gen", answer.Model)

	require.Len(t, answer.Citations, 2)
	assert.Equal(t, 1, answer.Citations[0].Marker)
	assert.Equal(t, "paper-a_0000", answer.Citations[0].ChunkID)
	assert.Equal(t, "paper-a", answer.Citations[0].DocumentID)
	assert.Equal(t, "Paper A", answer.Citations[0].DocumentTitle)
	assert.Equal(t, 2, answer.Citations[1].Marker)
	assert.Equal(t, "paper-a_0001", answer.Citations[1].ChunkID)
}

func TestAnswerService_Answer_RepeatedMarkerCitedOnce(t *testing.T) {
	gen := &mockGenerator{output: "Fusion [Source 1] powers stars, as noted [Source 1]."}
	svc := NewAnswerService(nil, nil, gen)

	answer, err := svc.Answer(context.Background(), "q", assembledEntries(1))
	require.NoError(t, err)

	assert.Equal(t, gen.output, answer.Text)
	assert.Len(t, answer.Citations, 1)
	assert.Equal(t, 2, strings.Count(answer.Text, "[Source 1]"))
}

func TestAnswerService_Answer_MarkerFormatVariants(t *testing.T) {
	gen := &mockGenerator{output: "See [source 2] and also [ Source 1 ]."}
	svc := NewAnswerService(nil, nil, gen)

	answer, err := svc.Answer(context.Background(), "q", assembledEntries(2))
	require.NoError(t, err)

	// Case and inner whitespace variants still resolve, and the text
	// keeps the generator's original spelling.
	assert.Equal(t, gen.output, answer.Text)
	require.Len(t, answer.Citations, 2)
	assert.Equal(t, 2, answer.Citations[0].Marker, "citations appear in order of first use")
	assert.Equal(t, 1, answer.Citations[1].Marker)
}

func TestAnswerService_Answer_UnresolvedMarkerRewritten(t *testing.T) {
	gen := &mockGenerator{output: "Bold claim [Source 3]. Modest claim [Source 1]."}
	svc := NewAnswerService(nil, nil, gen)

	answer, err := svc.Answer(context.Background(), "q", assembledEntries(1))
	require.NoError(t, err)

	assert.Equal(t, "Bold claim [unverified: Source 3]. Modest claim [Source 1].", answer.Text)
	assert.Equal(t, []int{3}, answer.Unverified)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, 1, answer.Citations[0].Marker)
	assert.True(t, answer.Grounded, "one resolved citation keeps the answer grounded")
}

func TestAnswerService_Answer_AllMarkersUnresolved(t *testing.T) {
	gen := &mockGenerator{output: "Pure invention [Source 9]."}
	svc := NewAnswerService(nil, nil, gen)

	answer, err := svc.Answer(context.Background(), "q", assembledEntries(1))
	require.NoError(t, err)

	assert.Equal(t, "Pure invention [unverified: Source 9].", answer.Text)
	assert.False(t, answer.Grounded)
	assert.Empty(t, answer.Citations)
	assert.Equal(t, []int{9}, answer.Unverified)
}

func TestAnswerService_Answer_NoMarkersIsUngrounded(t *testing.T) {
	gen := &mockGenerator{output: "An answer with no citations at all."}
	svc := NewAnswerService(nil, nil, gen)

	answer, err := svc.Answer(context.Background(), "q", assembledEntries(2))
	require.NoError(t, err)

	assert.Equal(t, gen.output, answer.Text)
	assert.False(t, answer.Grounded)
	assert.Empty(t, answer.Citations)
	assert.Empty(t, answer.Unverified)
}

func TestAnswerService_Answer_TimeoutMapsToUnavailable(t *testing.T) {
	gen := &mockGenerator{output: "too slow", delay: 200 * time.Millisecond}
	svc := NewAnswerService(nil, nil, gen, WithGenerationTimeout(20*time.Millisecond))

	_, err := svc.Answer(context.Background(), "q", assembledEntries(1))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.Contains(t, err.Error(), "timed out")
}

func TestAnswerService_Answer_GeneratorErrorWrapped(t *testing.T) {
	gen := &mockGenerator{err: errors.New("quota exhausted")}
	svc := NewAnswerService(nil, nil, gen)

	_, err := svc.Answer(context.Background(), "q", assembledEntries(1))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestAnswerService_Answer_PromptGrammar(t *testing.T) {
	gen := &mockGenerator{output: "ok"}
	svc := NewAnswerService(nil, nil, gen)

	_, err := svc.Answer(context.Background(), "How do stars shine?", assembledEntries(2))
	require.NoError(t, err)

	prompt := gen.lastPrompt
	assert.True(t, strings.HasPrefix(prompt, "You are an expert scientific researcher and educator."))
	assert.Contains(t, prompt, "IMPORTANT INSTRUCTIONS:")
	assert.Contains(t, prompt, "[Source X]")
	assert.Contains(t, prompt, "CONTEXT:\n")
	assert.Contains(t, prompt, "Source 1 (Paper: paper-a, Section: Introduction):\nFact number 0.")
	assert.Contains(t, prompt, "Source 2 (Paper: paper-a, Section: Introduction):\nFact number 1.")
	assert.True(t, strings.HasSuffix(prompt, "QUESTION: How do stars shine?\n\nANSWER:"))
}

func TestAnswerService_Answer_GenerateOptions(t *testing.T) {
	gen := &mockGenerator{output: "ok"}
	svc := NewAnswerService(nil, nil, gen)

	_, err := svc.Answer(context.Background(), "q", assembledEntries(1))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAnswerTokens, gen.lastOpts.MaxTokens)
	assert.InDelta(t, DefaultTemperature, gen.lastOpts.Temperature, 1e-9)

	custom := NewAnswerService(nil, nil, gen, WithGenerateOptions(driven.GenerateOptions{
		MaxTokens:   99,
		Temperature: 0.2,
	}))
	_, err = custom.Answer(context.Background(), "q", assembledEntries(1))
	require.NoError(t, err)
	assert.Equal(t, 99, gen.lastOpts.MaxTokens)
	assert.InDelta(t, 0.2, gen.lastOpts.Temperature, 1e-9)
}

func TestAnswerService_Ask_EmptyQuestion(t *testing.T) {
	_, retrieval := seedRetrievalCorpus(t)
	svc := NewAnswerService(retrieval, NewAssembler(), &mockGenerator{output: "ok"})

	for _, question := range []string{"", "  \t"} {
		_, err := svc.Ask(context.Background(), question, domain.AskOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestAnswerService_Ask_EndToEnd(t *testing.T) {
	_, retrieval := seedRetrievalCorpus(t)
	gen := &mockGenerator{output: "It shines by fusion [Source 1]."}
	svc := NewAnswerService(retrieval, NewAssembler(), gen)

	result, err := svc.Ask(context.Background(), "stars", domain.AskOptions{})
	require.NoError(t, err)

	assert.Len(t, result.Results, 4)
	assert.Len(t, result.Context.Entries, 4)
	assert.True(t, result.Answer.Grounded)
	require.Len(t, result.Answer.Citations, 1)
	assert.Equal(t, result.Context.Entries[0].Chunk.ID, result.Answer.Citations[0].ChunkID)
}

func TestAnswerService_Ask_NoRelevantChunks(t *testing.T) {
	_, retrieval := seedRetrievalCorpus(t)
	gen := &mockGenerator{output: "should never be seen"}
	svc := NewAnswerService(retrieval, NewAssembler(), gen)

	result, err := svc.Ask(context.Background(), "stars", domain.AskOptions{
		Retrieval: domain.RetrievalOptions{MinRelevance: 1.1},
	})
	require.NoError(t, err)

	assert.True(t, result.Context.Empty())
	assert.Equal(t, InsufficientContextText, result.Answer.Text)
	assert.False(t, result.Answer.Grounded)
	assert.Zero(t, atomic.LoadInt32(&gen.calls))
}

func TestAnswerService_Ask_GenerationFailureKeepsTrace(t *testing.T) {
	_, retrieval := seedRetrievalCorpus(t)
	gen := &mockGenerator{err: errors.New("backend down")}
	svc := NewAnswerService(retrieval, NewAssembler(), gen)

	result, err := svc.Ask(context.Background(), "stars", domain.AskOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	require.NotNil(t, result, "retrieval trace survives generation failure")
	assert.NotEmpty(t, result.Results)
	assert.False(t, result.Context.Empty())
	assert.Empty(t, result.Answer.Text)
}
