package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
	"github.com/citeseek/citeseek/internal/core/ports/driving"
	"github.com/citeseek/citeseek/internal/logger"
)

// Generation defaults.
const (
	// DefaultMaxAnswerTokens caps generated answer length.
	DefaultMaxAnswerTokens = 512

	// DefaultTemperature is the generation temperature.
	DefaultTemperature = 0.7

	// DefaultGenerationTimeout bounds one generation call. Timeouts
	// surface as domain.ErrGenerationUnavailable.
	DefaultGenerationTimeout = 60 * time.Second
)

// InsufficientContextText is returned when no chunk cleared the
// relevance threshold. Generation is never invoked in that case.
const InsufficientContextText = "The indexed corpus does not contain enough relevant information to answer this question."

// markerPattern matches citation markers like [Source 3], case
// insensitively, tolerating stray whitespace.
var markerPattern = regexp.MustCompile(`(?i)\[\s*source\s+(\d+)\s*\]`)

// Ensure AnswerService implements the interface.
var _ driving.AskService = (*AnswerService)(nil)

// AnswerService orchestrates retrieve, assemble and generate into a
// citation-validated answer. Marker assignment is deterministic: a
// chunk's marker is its 1-based position in the assembled context.
type AnswerService struct {
	retrieval *RetrievalService
	assembler *Assembler
	generator driven.Generator
	timeout   time.Duration
	genOpts   driven.GenerateOptions
}

// AnswerOption configures the answer service.
type AnswerOption func(*AnswerService)

// WithGenerationTimeout bounds each generation call.
func WithGenerationTimeout(d time.Duration) AnswerOption {
	return func(s *AnswerService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithGenerateOptions overrides the generation parameters.
func WithGenerateOptions(opts driven.GenerateOptions) AnswerOption {
	return func(s *AnswerService) {
		s.genOpts = opts
	}
}

// NewAnswerService creates a new answer service. The generator may be
// nil, in which case Ask reports domain.ErrGenerationUnavailable while
// retrieval keeps working through the QueryService.
func NewAnswerService(
	retrieval *RetrievalService,
	assembler *Assembler,
	generator driven.Generator,
	opts ...AnswerOption,
) *AnswerService {
	s := &AnswerService{
		retrieval: retrieval,
		assembler: assembler,
		generator: generator,
		timeout:   DefaultGenerationTimeout,
		genOpts: driven.GenerateOptions{
			MaxTokens:   DefaultMaxAnswerTokens,
			Temperature: DefaultTemperature,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask answers a natural-language question over the indexed corpus.
func (s *AnswerService) Ask(
	ctx context.Context, question string, opts domain.AskOptions,
) (*driving.AskResult, error) {
	logger.Section("Ask")

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}

	// 1. Retrieve candidates.
	results, err := s.retrieval.Query(ctx, question, opts.Retrieval)
	if err != nil {
		return nil, err
	}

	// 2. Assemble the context within budget.
	assembled := s.assembler.Assemble(results, opts.ContextBudget)

	result := &driving.AskResult{
		Context: assembled,
		Results: results,
	}

	// 3. Generate and validate. Generation failures keep the
	// retrieval trace so the caller can still show what was found.
	answer, err := s.Answer(ctx, question, assembled)
	if err != nil {
		return result, err
	}
	result.Answer = answer

	return result, nil
}

// Answer runs the generation step for an already assembled context.
// An empty context short-circuits to an insufficient-context answer
// without ever invoking the generator.
func (s *AnswerService) Answer(
	ctx context.Context, question string, assembled domain.AssembledContext,
) (domain.Answer, error) {
	if assembled.Empty() {
		logger.Info("no chunks cleared the threshold, skipping generation")
		return domain.Answer{
			Text:     InsufficientContextText,
			Grounded: false,
		}, nil
	}

	if s.generator == nil {
		return domain.Answer{}, fmt.Errorf("no generator configured: %w", domain.ErrGenerationUnavailable)
	}

	prompt := s.buildPrompt(question, assembled)
	logger.Debug("prompt: %d runes, %d context entries", len([]rune(prompt)), len(assembled.Entries))

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.generator.Generate(genCtx, prompt, s.genOpts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Answer{}, fmt.Errorf("generation timed out after %s: %w", s.timeout, domain.ErrGenerationUnavailable)
		}
		return domain.Answer{}, fmt.Errorf("generation failed: %w: %v", domain.ErrGenerationUnavailable, err)
	}

	answer := s.validate(raw, assembled)
	answer.Model = s.generator.ModelName()

	logger.Info("answer: %d citations, %d unverified markers, grounded=%t",
		len(answer.Citations), len(answer.Unverified), answer.Grounded)
	return answer, nil
}

// buildPrompt renders the instruction preamble, the enumerated context
// and the question. Source numbers are the entries' 1-based positions,
// the same numbers validation resolves against.
func (s *AnswerService) buildPrompt(question string, assembled domain.AssembledContext) string {
	var b strings.Builder

	b.WriteString("You are an expert scientific researcher and educator. ")
	b.WriteString("Your task is to answer questions about scientific literature based ONLY on the provided context.\n\n")
	b.WriteString("IMPORTANT INSTRUCTIONS:\n")
	b.WriteString("1. Answer the question using ONLY the information provided in the context\n")
	b.WriteString("2. If the context doesn't contain enough information to answer the question, say so clearly\n")
	b.WriteString("3. Cite your sources using the format [Source X] where X is the source number\n")
	b.WriteString("4. Be precise, accurate, and scientific in your response\n")
	b.WriteString("5. If you mention specific findings, methods, or results, always cite the source\n")
	b.WriteString("6. Use clear, academic language appropriate for scientific communication\n\n")
	b.WriteString("CONTEXT:\n")

	for i, entry := range assembled.Entries {
		fmt.Fprintf(&b, "Source %d (Paper: %s, Section: %s):\n%s\n\n",
			i+1, entry.Chunk.DocumentID, sectionLabel(entry), entry.Chunk.Text)
	}

	fmt.Fprintf(&b, "QUESTION: %s\n\nANSWER:", question)
	return b.String()
}

// sectionLabel names the section a chunk came from, falling back to
// the chunk type for content outside any heading.
func sectionLabel(entry domain.ContextEntry) string {
	if entry.Chunk.Section != "" {
		return entry.Chunk.Section
	}
	switch entry.Chunk.Type {
	case domain.ChunkAbstract:
		return "Abstract"
	case domain.ChunkEquation:
		return "Equation"
	case domain.ChunkTable:
		return "Table"
	default:
		return "Body"
	}
}

// validate parses the generator output for citation markers and keeps
// only those that resolve to an entry of the assembled context.
// Unresolvable markers are dropped from the citation list and the
// marker text is rewritten in place so unverified claims stay visible
// but distinguishable.
func (s *AnswerService) validate(raw string, assembled domain.AssembledContext) domain.Answer {
	answer := domain.Answer{}

	seen := make(map[int]bool)
	unverified := make(map[int]bool)

	answer.Text = markerPattern.ReplaceAllStringFunc(raw, func(match string) string {
		groups := markerPattern.FindStringSubmatch(match)
		marker, err := strconv.Atoi(groups[1])
		if err != nil {
			return match
		}

		entry, ok := assembled.Entry(marker)
		if !ok {
			if !unverified[marker] {
				unverified[marker] = true
				answer.Unverified = append(answer.Unverified, marker)
				logger.Warn("generator cited [Source %d] which is not in the assembled context", marker)
			}
			return fmt.Sprintf("[unverified: Source %d]", marker)
		}

		if !seen[marker] {
			seen[marker] = true
			answer.Citations = append(answer.Citations, domain.Citation{
				Marker:        marker,
				ChunkID:       entry.Chunk.ID,
				DocumentID:    entry.Chunk.DocumentID,
				DocumentTitle: entry.DocumentTitle,
				Section:       entry.Chunk.Section,
				Position:      entry.Chunk.Position,
			})
		}
		return match
	})

	answer.Grounded = len(answer.Citations) > 0
	return answer
}
