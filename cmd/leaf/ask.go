package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/perbu/leafrag/pkg/config"
	"github.com/perbu/leafrag/pkg/embedder"
	"github.com/perbu/leafrag/pkg/index"
	"github.com/perbu/leafrag/pkg/pipeline"
)

const previewLength = 300

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Search the index for chunks relevant to a question",
	Long: `Embeds the question with the provider recorded in the index and prints
the best matching chunks, highest score first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	addAskFlags(askCmd)
	rootCmd.AddCommand(askCmd)
}

func addAskFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("index", "i", "", "index file to search (default leaf-index.json)")
	cmd.Flags().IntP("top-k", "k", 3, "number of results to return")
	cmd.Flags().Float32("threshold", 0, "minimum similarity score")
	cmd.Flags().Int("context", 0, "number of surrounding chunks to show for context")
	cmd.Flags().Bool("full", false, "show full content instead of a preview")
	cmd.Flags().Bool("json", false, "output results as JSON")
}

func applyAskFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("index") {
		cfg.Index, _ = flags.GetString("index")
	}
	if flags.Changed("top-k") {
		cfg.TopK, _ = flags.GetInt("top-k")
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	applyAskFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	flags := cmd.Flags()
	threshold, _ := flags.GetFloat32("threshold")
	contextSize, _ := flags.GetInt("context")
	full, _ := flags.GetBool("full")
	jsonOutput, _ := flags.GetBool("json")

	// Step lines would corrupt JSON output.
	var out io.Writer = os.Stdout
	if jsonOutput {
		out = io.Discard
	}

	opts := pipeline.QueryOptions{
		IndexPath: cfg.Index,
		Query:     strings.Join(args, " "),
		TopK:      cfg.TopK,
		Threshold: threshold,
		Context:   contextSize,
		Open: func(locator string) (*embedder.Resolved, error) {
			slog.Debug("opening embedding provider", "locator", locator)
			return embedder.Open(locator, providerOptions(cfg))
		},
		Out: out,
	}

	res, err := pipeline.Query(cmd.Context(), opts)
	if err != nil {
		return err
	}
	slog.Debug("search finished",
		"documents", res.Documents,
		"results", len(res.Results),
		"load_time", res.LoadTime,
		"search_time", res.SearchTime)

	if jsonOutput {
		return printResultsJSON(res.Results)
	}
	printResults(os.Stdout, opts.Query, cfg.TopK, res, full)
	return nil
}

type resultJSON struct {
	Rank       int     `json:"rank"`
	Score      float32 `json:"score"`
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunkIndex"`
	Content    string  `json:"content"`
}

func printResultsJSON(results []index.Result) error {
	out := make([]resultJSON, 0, len(results))
	for i, r := range results {
		out = append(out, resultJSON{
			Rank:       i + 1,
			Score:      r.Score,
			ID:         r.Document.ID,
			Source:     r.Document.Source,
			ChunkIndex: r.Document.ChunkIndex,
			Content:    r.Document.Content,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printResults(w io.Writer, question string, topK int, res *pipeline.QueryResult, full bool) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Question: %q\n", question)
	fmt.Fprintf(w, "Top %d results:\n", topK)
	fmt.Fprintln(w, strings.Repeat("-", 60))

	if len(res.Results) == 0 {
		fmt.Fprintln(w, "\nNo results found")
		return
	}

	for i, r := range res.Results {
		fmt.Fprintf(w, "\n#%d  Score: %.4f  Source: %s\n", i+1, r.Score, r.Document.Source)

		switch {
		case res.Context != nil:
			for _, doc := range res.Context[i] {
				if doc.ID == r.Document.ID {
					fmt.Fprintln(w, ">>> MATCHED CHUNK <<<")
				}
				fmt.Fprintln(w, doc.Content)
			}
		case full:
			fmt.Fprintln(w, r.Document.Content)
		default:
			fmt.Fprintln(w, pipeline.Preview(r.Document.Content, previewLength))
		}
	}
}
