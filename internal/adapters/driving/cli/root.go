// Package cli implements the citeseek command-line interface. It is a
// driving adapter: commands parse flags, call the core services through
// their driving ports and render the results. Service construction is
// lazy so commands that never touch the corpus or a provider do not pay
// for them.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/citeseek/citeseek/internal/adapters/driven/ai"
	configfile "github.com/citeseek/citeseek/internal/adapters/driven/config/file"
	"github.com/citeseek/citeseek/internal/adapters/driven/corpus/jsonfile"
	"github.com/citeseek/citeseek/internal/adapters/driven/storage/sqlite"
	"github.com/citeseek/citeseek/internal/adapters/driven/vector/cosine"
	"github.com/citeseek/citeseek/internal/core/ports/driven"
	"github.com/citeseek/citeseek/internal/core/ports/driving"
	"github.com/citeseek/citeseek/internal/core/services"
	"github.com/citeseek/citeseek/internal/logger"
)

// version is the build version, overridden via SetVersion.
var version = "dev"

// fallbackDimensions sizes the vector index when no corpus metadata
// exists yet. The offline commands never add vectors, so the width
// only has to be positive; the first ingest records the real width.
const fallbackDimensions = 768

var verbose bool

// Services the commands call, injected by the init functions below or
// directly by tests.
var (
	configStore     driven.ConfigStore
	ingestService   driving.IngestService
	queryService    driving.QueryService
	askService      driving.AskService
	documentService driving.DocumentService
	statsService    driving.StatsService

	// stackClose releases whatever initOffline/initServices built.
	stackClose func()
)

var rootCmd = &cobra.Command{
	Use:   "citeseek",
	Short: "Question answering over scientific documents with verifiable citations",
	Long: `Citeseek indexes parsed scientific documents and answers natural-language
questions about them, citing the exact passages each statement rests on.

Documents arrive as parse-result JSON files produced by an external
parser. Ingestion groups their elements into retrieval chunks, embeds
the chunks and indexes the vectors. Asking a question retrieves the
best-matching chunks, assembles them into a budgeted context and
generates an answer whose [Source N] markers are validated against
that context before anything is shown.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// API keys may live in a .env file next to the shell session.
		_ = godotenv.Load()
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command and releases any adapters the
// commands built.
func Execute(ctx context.Context) error {
	defer closeStack()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion records the build version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func closeStack() {
	if stackClose != nil {
		stackClose()
		stackClose = nil
	}
}

// initConfig opens the config store once.
func initConfig() error {
	if configStore != nil {
		return nil
	}
	cs, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	configStore = cs
	return nil
}

// initOffline wires the commands that only read local state: the
// document store plus a placeholder vector index. No provider is
// contacted. Deletes against the placeholder index are no-ops; the
// store cascade is what persists, and search commands rebuild the
// real index through initServices.
func initOffline(ctx context.Context) error {
	if err := initConfig(); err != nil {
		return err
	}

	store, err := sqlite.NewStore(configStore.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	dims := fallbackDimensions
	if meta, err := store.GetIndexMeta(ctx); err == nil {
		dims = meta.Dimensions
	}
	vectors, err := cosine.New(dims)
	if err != nil {
		store.Close()
		return fmt.Errorf("create vector index: %w", err)
	}

	documentService = services.NewDocumentService(store, vectors)
	statsService = services.NewStatsService(store)
	stackClose = func() {
		vectors.Close()
		store.Close()
	}
	return nil
}

// initServices wires the full stack: store, embedding provider, vector
// index rebuilt from the stored embeddings, and every service. The
// embedding provider is pinged before anything else happens so an
// unreachable provider fails fast, with the store untouched. When
// needGenerator is set the generation adapter is built too, without a
// ping: generation failures must surface through the ask pipeline,
// which still returns the retrieval trace.
func initServices(ctx context.Context, needGenerator bool) error {
	if err := initConfig(); err != nil {
		return err
	}

	embedder, err := ai.NewValidatedEmbeddingService(ctx, ai.EmbeddingSettingsFromConfig(configStore))
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(configStore.GetString("storage.data_dir"))
	if err != nil {
		embedder.Close()
		return fmt.Errorf("open store: %w", err)
	}

	// The index width must match the stored vectors. A differing
	// configured model still opens: retrieval-only inspection of the
	// old index stays possible, and ingest rejects the mismatch.
	dims := embedder.Dimensions()
	if meta, err := store.GetIndexMeta(ctx); err == nil {
		if meta.EmbeddingModel != embedder.ModelName() {
			logger.Warn("configured embedding model %q differs from indexed model %q; re-ingest before querying",
				embedder.ModelName(), meta.EmbeddingModel)
		}
		dims = meta.Dimensions
	}

	vectors, err := cosine.New(dims)
	if err != nil {
		store.Close()
		embedder.Close()
		return fmt.Errorf("create vector index: %w", err)
	}

	index := services.NewIndexService(store, vectors, embedder,
		services.WithEmbedBatchSize(configStore.GetInt("embedding.batch_size")))
	if _, err := index.Rebuild(ctx); err != nil {
		vectors.Close()
		store.Close()
		embedder.Close()
		return fmt.Errorf("rebuild vector index: %w", err)
	}

	var generator driven.Generator
	if needGenerator {
		generator, err = ai.NewGenerator(ai.GeneratorSettingsFromConfig(configStore))
		if err != nil {
			vectors.Close()
			store.Close()
			embedder.Close()
			return err
		}
	}

	extractor := services.NewExtractor(
		services.WithMaxChunkSize(configStore.GetInt("ingest.max_chunk_size")))
	retrieval := services.NewRetrievalService(store, index, embedder)
	assembler := services.NewAssembler(
		services.WithContextBudget(configStore.GetInt("ask.context_budget")))

	genOpts := driven.GenerateOptions{
		MaxTokens:   services.DefaultMaxAnswerTokens,
		Temperature: services.DefaultTemperature,
	}
	if n := configStore.GetInt("llm.max_tokens"); n > 0 {
		genOpts.MaxTokens = n
	}
	// An explicit temperature of 0 is meaningful, so presence is
	// checked rather than the value.
	if _, ok := configStore.Get("llm.temperature"); ok {
		genOpts.Temperature = configStore.GetFloat("llm.temperature")
	}
	askOpts := []services.AnswerOption{services.WithGenerateOptions(genOpts)}
	if secs := configStore.GetInt("llm.timeout_seconds"); secs > 0 {
		askOpts = append(askOpts, services.WithGenerationTimeout(time.Duration(secs)*time.Second))
	}

	ingestService = services.NewIngestOrchestrator(jsonfile.New(), store, extractor, index,
		services.WithIngestWorkers(configStore.GetInt("ingest.workers")))
	queryService = retrieval
	askService = services.NewAnswerService(retrieval, assembler, generator, askOpts...)
	documentService = services.NewDocumentService(store, vectors)
	statsService = services.NewStatsService(store)

	stackClose = func() {
		if generator != nil {
			generator.Close()
		}
		vectors.Close()
		store.Close()
		embedder.Close()
	}
	return nil
}
