package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/citeseek/citeseek/internal/adapters/driven/ai"
	"github.com/citeseek/citeseek/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage citeseek configuration",
	Long: `Manage the citeseek configuration file.

Settings live in ~/.citeseek/config.toml. API keys are read from the
environment (OPENAI_API_KEY, ANTHROPIC_API_KEY) or a .env file, never
from the config file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a documented configuration file",
	Long:  `Creates ~/.citeseek/config.toml with every setting listed and commented out, so defaults keep applying until a line is uncommented.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a configuration value by its dotted key, e.g.

  citeseek config set llm.provider openai
  citeseek config set ask.context_budget 6000

Values parse as integer, float or boolean where possible and fall back
to strings.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate provider connectivity",
	Long:  `Builds the configured embedding and generation providers and pings each one.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate documents every setting with its default. All values
// are commented out so creating the file changes nothing.
const configTemplate = `# citeseek configuration.
#
# Uncomment a line to override the default. API keys are never read
# from this file; set OPENAI_API_KEY or ANTHROPIC_API_KEY in the
# environment or a .env file.

[storage]
# Directory holding the chunk database.
# data_dir = "~/.citeseek/data"

[embedding]
# Embedding provider: ollama or openai.
# provider = "ollama"
# model = "nomic-embed-text"
# base_url = "http://localhost:11434"
# dimensions = 768
# Chunks embedded per provider request.
# batch_size = 32

[llm]
# Generation provider: ollama, openai or anthropic.
# provider = "ollama"
# model = "llama3.2"
# base_url = "http://localhost:11434"
# max_tokens = 512
# temperature = 0.7
# timeout_seconds = 60

[ingest]
# Documents ingested in parallel.
# workers = 4
# Maximum chunk size in runes.
# max_chunk_size = 1500

[ask]
# Context budget in runes.
# context_budget = 4000
`

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	path := configStore.Path()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s\nEdit it in place, or delete it first to recreate", path)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	cmd.Printf("Created %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	if _, err := os.Stat(configStore.Path()); err == nil {
		cmd.Printf("Configuration file: %s\n", configStore.Path())
	} else {
		cmd.Printf("No configuration file at %s, using defaults.\n", configStore.Path())
	}

	embed := ai.EmbeddingSettingsFromConfig(configStore)
	gen := ai.GeneratorSettingsFromConfig(configStore)

	cmd.Println()
	cmd.Println("Embedding:")
	cmd.Printf("  provider    %s\n", embed.Provider)
	cmd.Printf("  model       %s\n", orDefault(embed.Model))
	cmd.Printf("  base_url    %s\n", orDefault(embed.BaseURL))
	cmd.Printf("  dimensions  %s\n", orDefaultInt(embed.Dimensions))
	cmd.Printf("  batch_size  %d\n", effectiveInt("embedding.batch_size", services.DefaultEmbedBatchSize))

	cmd.Println()
	cmd.Println("Generation:")
	cmd.Printf("  provider     %s\n", gen.Provider)
	cmd.Printf("  model        %s\n", orDefault(gen.Model))
	cmd.Printf("  base_url     %s\n", orDefault(gen.BaseURL))
	cmd.Printf("  max_tokens   %d\n", effectiveInt("llm.max_tokens", services.DefaultMaxAnswerTokens))
	temperature := services.DefaultTemperature
	if _, ok := configStore.Get("llm.temperature"); ok {
		temperature = configStore.GetFloat("llm.temperature")
	}
	cmd.Printf("  temperature  %.2f\n", temperature)
	timeout := services.DefaultGenerationTimeout
	if secs := configStore.GetInt("llm.timeout_seconds"); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	cmd.Printf("  timeout      %s\n", timeout)

	cmd.Println()
	cmd.Println("Ingest:")
	cmd.Printf("  workers         %d\n", effectiveInt("ingest.workers", services.DefaultIngestWorkers))
	cmd.Printf("  max_chunk_size  %d\n", effectiveInt("ingest.max_chunk_size", services.DefaultMaxChunkSize))

	cmd.Println()
	cmd.Println("Ask:")
	cmd.Printf("  context_budget  %d\n", effectiveInt("ask.context_budget", services.DefaultContextBudget))

	cmd.Println()
	cmd.Println("Storage:")
	cmd.Printf("  data_dir  %s\n", orDefault(configStore.GetString("storage.data_dir")))

	cmd.Println()
	cmd.Println("API keys (from the environment):")
	cmd.Printf("  OPENAI_API_KEY     %s\n", keyStatus("OPENAI_API_KEY"))
	cmd.Printf("  ANTHROPIC_API_KEY  %s\n", keyStatus("ANTHROPIC_API_KEY"))

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	key, value := args[0], parseConfigValue(args[1])
	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	cmd.Printf("Set %s = %v\n", key, value)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	failed := false

	cmd.Print("Validating embedding provider... ")
	if embedder, err := ai.NewValidatedEmbeddingService(cmd.Context(), ai.EmbeddingSettingsFromConfig(configStore)); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
		embedder.Close()
	}

	cmd.Print("Validating generation provider... ")
	if generator, err := ai.NewValidatedGenerator(cmd.Context(), ai.GeneratorSettingsFromConfig(configStore)); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
		generator.Close()
	}

	if failed {
		return errors.New("configuration check failed")
	}
	return nil
}

// parseConfigValue narrows a CLI string to the TOML type it reads as.
// Integers are tried before booleans so "0" and "1" stay numeric.
func parseConfigValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// orDefault renders an unset string setting. The concrete default
// belongs to the adapter that applies it.
func orDefault(v string) string {
	if v == "" {
		return "(default)"
	}
	return v
}

func orDefaultInt(v int) string {
	if v == 0 {
		return "(default)"
	}
	return strconv.Itoa(v)
}

// effectiveInt resolves a numeric setting the same way the service
// wiring does.
func effectiveInt(key string, def int) int {
	if n := configStore.GetInt(key); n > 0 {
		return n
	}
	return def
}

func keyStatus(name string) string {
	if os.Getenv(name) != "" {
		return "set"
	}
	return "not set"
}
