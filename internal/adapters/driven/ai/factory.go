// Package ai builds embedding and generation adapters from configuration.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	ollamaembed "github.com/citeseek/citeseek/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/citeseek/citeseek/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/citeseek/citeseek/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/citeseek/citeseek/internal/adapters/driven/llm/ollama"
	openaillm "github.com/citeseek/citeseek/internal/adapters/driven/llm/openai"
	"github.com/citeseek/citeseek/internal/core/domain"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
)

// Provider identifies a hosted or local model API.
type Provider string

// Supported providers.
const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// pingTimeout is the maximum time to wait for connectivity validation.
const pingTimeout = 5 * time.Second

// EmbeddingSettings selects and configures the embedding provider.
type EmbeddingSettings struct {
	Provider   Provider
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
}

// GeneratorSettings selects and configures the answer-generation provider.
type GeneratorSettings struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string
}

// EmbeddingSettingsFromConfig reads the [embedding] config table. The
// provider defaults to ollama so a fresh install works without any hosted
// API key. API keys come from the environment, never the config file.
func EmbeddingSettingsFromConfig(cfg driven.ConfigStore) EmbeddingSettings {
	s := EmbeddingSettings{
		Provider:   Provider(strings.ToLower(cfg.GetString("embedding.provider"))),
		Model:      cfg.GetString("embedding.model"),
		BaseURL:    cfg.GetString("embedding.base_url"),
		Dimensions: cfg.GetInt("embedding.dimensions"),
	}
	if s.Provider == "" {
		s.Provider = ProviderOllama
	}
	if s.Provider == ProviderOpenAI {
		s.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return s
}

// GeneratorSettingsFromConfig reads the [llm] config table. The provider
// defaults to ollama. API keys come from the environment, never the config
// file.
func GeneratorSettingsFromConfig(cfg driven.ConfigStore) GeneratorSettings {
	s := GeneratorSettings{
		Provider: Provider(strings.ToLower(cfg.GetString("llm.provider"))),
		Model:    cfg.GetString("llm.model"),
		BaseURL:  cfg.GetString("llm.base_url"),
	}
	if s.Provider == "" {
		s.Provider = ProviderOllama
	}
	switch s.Provider {
	case ProviderOpenAI:
		s.APIKey = os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		s.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return s
}

// NewEmbeddingService creates the configured embedding adapter.
func NewEmbeddingService(settings EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case ProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case ProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case ProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not provide an embeddings API, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
}

// NewGenerator creates the configured generation adapter.
func NewGenerator(settings GeneratorSettings) (driven.Generator, error) {
	switch settings.Provider {
	case ProviderOllama:
		return ollamallm.NewGenerator(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case ProviderOpenAI:
		return openaillm.NewGenerator(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case ProviderAnthropic:
		return anthropicllm.NewGenerator(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported generation provider: %q", settings.Provider)
	}
}

// NewValidatedEmbeddingService creates the embedding adapter and verifies
// the provider is reachable before handing it out.
func NewValidatedEmbeddingService(ctx context.Context, settings EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := NewEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}
	return svc, nil
}

// NewValidatedGenerator creates the generation adapter and verifies the
// provider is reachable before handing it out.
func NewValidatedGenerator(ctx context.Context, settings GeneratorSettings) (driven.Generator, error) {
	gen, err := NewGenerator(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := gen.Ping(pingCtx); err != nil {
		gen.Close()
		return nil, fmt.Errorf("%w: %s unreachable: %w", domain.ErrGenerationUnavailable, settings.Provider, err)
	}
	return gen, nil
}
