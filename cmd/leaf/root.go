package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/perbu/leafrag/pkg/config"
	"github.com/perbu/leafrag/pkg/embedder"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "leaf",
	Short: "Local semantic search over a directory of markdown",
	Long: `leaf chunks a directory of markdown documents, embeds every chunk and
stores the vectors in a JSON index. Questions are answered by ranking the
stored chunks by cosine similarity to the embedded question.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", cfgFile, "model", cfg.Model, "index", cfg.Index)
	return cfg, nil
}

func providerOptions(cfg *config.Config) embedder.Options {
	return embedder.Options{
		Getenv:        os.Getenv,
		OllamaURL:     cfg.OllamaURL,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}
}
