package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/perbu/leafrag/pkg/config"
	"github.com/perbu/leafrag/pkg/embedder"
	"github.com/perbu/leafrag/pkg/loader"
	"github.com/perbu/leafrag/pkg/pipeline"
	"github.com/perbu/leafrag/pkg/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Build a search index from a directory of markdown",
	Long: `Walks the directory, splits every markdown file into overlapping chunks,
embeds the chunks and writes the index file.

The embedding provider is taken from --model-dir, then the config file, then
$LEAF_MODEL_DIR, then the Hugging Face cache and finally
~/.deliverance/MongoDB_mdbr-leaf-ir. Locators other than a directory are
openai:<model>, ollama:<model> and hash:<dim>.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	addIndexFlags(indexCmd)
	rootCmd.AddCommand(indexCmd)
}

func addIndexFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model-dir", "m", "", "model directory or provider locator")
	cmd.Flags().StringP("output", "o", "", "index file to write (default leaf-index.json)")
	cmd.Flags().Int("chunk-size", loader.DefaultChunkSize, "maximum characters per chunk")
	cmd.Flags().Int("overlap", loader.DefaultOverlap, "characters shared by consecutive chunks")
	cmd.Flags().Int("workers", 1, "concurrent embedding calls")
	cmd.Flags().StringSlice("include", nil, "glob patterns of files to index (default **/*.md)")
	cmd.Flags().StringSlice("exclude", nil, "glob patterns of files to skip")
	cmd.Flags().Bool("merge", false, "update an existing index instead of replacing it")
}

// applyIndexFlags copies the flags the user set onto cfg. Flags left at their
// defaults never override the config file or environment.
func applyIndexFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Index, _ = flags.GetString("output")
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("overlap") {
		cfg.Overlap, _ = flags.GetInt("overlap")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("include") {
		cfg.Include, _ = flags.GetStringSlice("include")
	}
	if flags.Changed("exclude") {
		cfg.Exclude, _ = flags.GetStringSlice("exclude")
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	applyIndexFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	modelDir, _ := cmd.Flags().GetString("model-dir")
	merge, _ := cmd.Flags().GetBool("merge")

	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("no home directory, skipping cache lookups", "error", err)
	}
	resolver := embedder.DefaultResolver(modelDir, cfg.Model, os.Getenv, home)

	res, err := pipeline.Build(cmd.Context(), pipeline.BuildOptions{
		SourceDir: args[0],
		Output:    cfg.Index,
		Chunking: loader.Options{
			ChunkSize: cfg.ChunkSize,
			Overlap:   cfg.Overlap,
			Include:   cfg.Include,
			Exclude:   cfg.Exclude,
		},
		Resolve: func() (*embedder.Resolved, error) {
			locator, err := resolver.Resolve()
			if err != nil {
				return nil, err
			}
			slog.Debug("embedding provider resolved", "locator", locator)
			return embedder.Open(locator, providerOptions(cfg))
		},
		Workers:  cfg.Workers,
		Merge:    merge,
		Progress: progress.New(os.Stdout, "Embedding"),
		Out:      os.Stdout,
	})
	if err != nil {
		return err
	}

	slog.Debug("index built",
		"chunks", res.Chunks,
		"sources", res.Sources,
		"dimension", res.Dimension,
		"chunk_time", res.ChunkTime,
		"embed_time", res.EmbedTime)
	fmt.Printf("✓ Indexed %d chunks from %d files in %s\n", res.Chunks, res.Sources, (res.ChunkTime + res.EmbedTime).Round(time.Millisecond))
	return nil
}
