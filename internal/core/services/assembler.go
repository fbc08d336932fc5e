package services

import (
	"strings"

	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/logger"
)

// DefaultContextBudget is the default combined chunk size, in runes,
// assembled into one generation prompt.
const DefaultContextBudget = 4000

// Assembler selects retrieved chunks into a bounded context. It is
// pure: no I/O, and the same inputs always produce the same context.
type Assembler struct {
	budget int
}

// AssemblerOption configures the assembler.
type AssemblerOption func(*Assembler)

// WithContextBudget sets the default context budget in runes.
func WithContextBudget(budget int) AssemblerOption {
	return func(a *Assembler) {
		if budget > 0 {
			a.budget = budget
		}
	}
}

// NewAssembler creates an assembler with the given options.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{budget: DefaultContextBudget}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble consumes results in ranking order, accumulating whole
// chunks until the next chunk would exceed the budget. Chunks are
// never split, with one exception: when the highest-ranked chunk
// alone exceeds the budget it is truncated at the sentence boundary
// nearest the budget and flagged, because an unbounded single chunk
// must not make assembly impossible.
func (a *Assembler) Assemble(results []domain.QueryResult, budget int) domain.AssembledContext {
	if budget <= 0 {
		budget = a.budget
	}

	ctx := domain.AssembledContext{Budget: budget}

	for i, r := range results {
		size := r.Chunk.Size()

		if ctx.Size+size > budget {
			if i == 0 {
				entry := a.truncateEntry(r, budget)
				ctx.Entries = append(ctx.Entries, entry)
				ctx.Size += entry.Chunk.Size()
				logger.Debug("assemble: chunk %s truncated from %d to %d runes",
					r.Chunk.ID, size, entry.Chunk.Size())
			}
			break
		}

		ctx.Entries = append(ctx.Entries, domain.ContextEntry{
			Chunk:         r.Chunk,
			DocumentTitle: r.DocumentTitle,
			Score:         r.Score,
		})
		ctx.Size += size
	}

	logger.Debug("assemble: %d of %d chunks, %d/%d runes",
		len(ctx.Entries), len(results), ctx.Size, budget)
	return ctx
}

// truncateEntry cuts the chunk text at the sentence boundary nearest
// the budget. When no boundary falls inside the budget the cut is a
// plain rune cut, never a byte cut.
func (a *Assembler) truncateEntry(r domain.QueryResult, budget int) domain.ContextEntry {
	chunk := r.Chunk
	chunk.Text = truncateAtSentence(chunk.Text, budget)

	return domain.ContextEntry{
		Chunk:         chunk,
		DocumentTitle: r.DocumentTitle,
		Score:         r.Score,
		Truncated:     true,
	}
}

// truncateAtSentence returns text cut to at most budget runes,
// preferring the latest sentence terminator at or below the budget.
func truncateAtSentence(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	if budget <= 0 {
		return ""
	}

	cut := 0
	for i := 0; i < budget; i++ {
		switch runes[i] {
		case '.', '!', '?', '\n':
			cut = i + 1
		}
	}
	if cut == 0 {
		cut = budget
	}

	return strings.TrimSpace(string(runes[:cut]))
}
