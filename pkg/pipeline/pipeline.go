package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/perbu/leafrag/pkg/embedder"
	"github.com/perbu/leafrag/pkg/index"
	"github.com/perbu/leafrag/pkg/loader"
	"github.com/perbu/leafrag/pkg/progress"
)

// BuildOptions configures an index build.
type BuildOptions struct {
	SourceDir string
	Output    string
	Chunking  loader.Options

	// Resolve yields the embedding provider. It is called after chunking so
	// that corpus errors surface before any model is loaded.
	Resolve func() (*embedder.Resolved, error)

	Workers  int  // Concurrent embedding calls, 1 when zero
	Merge    bool // Upsert into an existing index at Output instead of replacing it
	Progress progress.Reporter
	Out      io.Writer // Step messages, discarded when nil
}

// BuildResult summarizes a finished build.
type BuildResult struct {
	Chunks    int
	Sources   int
	Documents int // Documents in the saved index, including merged ones
	Locator   string
	Dimension int
	ChunkTime time.Duration
	EmbedTime time.Duration
}

// Build chunks every document under SourceDir, embeds the chunks in source
// then chunk order and saves the index to Output.
func Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	rep := opts.Progress
	if rep == nil {
		rep = progress.Nop{}
	}

	fmt.Fprintf(out, "Chunking documents in %s... ", opts.SourceDir)
	start := time.Now()
	chunks, err := loader.ChunkDirectory(opts.SourceDir, opts.Chunking)
	if err != nil {
		fmt.Fprintln(out)
		return nil, err
	}
	res := &BuildResult{
		Chunks:    len(chunks),
		Sources:   len(loader.Sources(chunks)),
		ChunkTime: time.Since(start),
	}
	fmt.Fprintf(out, "%d chunks from %d files\n", res.Chunks, res.Sources)

	resolved, err := opts.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolving embedding provider: %w", err)
	}
	res.Locator = resolved.Locator
	fmt.Fprintf(out, "Model: %s (%s, dim=%s)\n", resolved.Locator, resolved.Embedder.ModelInfo(), dimString(resolved.Dimension))

	store := index.NewStore()
	if opts.Merge {
		store, err = openForMerge(opts.Output, resolved.Locator)
		if err != nil {
			return nil, err
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	fmt.Fprintln(out, "Generating embeddings...")
	start = time.Now()
	vectors, err := embedAll(ctx, resolved.Embedder, texts, max(opts.Workers, 1), rep)
	if err != nil {
		var embedErr *EmbedError
		if errors.As(err, &embedErr) {
			c := chunks[embedErr.Position]
			embedErr.ID = index.DocumentID(c.Source, c.ChunkIndex)
		}
		return nil, err
	}
	res.EmbedTime = time.Since(start)
	fmt.Fprintf(out, "  %d/%d chunks embedded (%s)\n", len(chunks), len(chunks), res.EmbedTime.Round(time.Millisecond))

	dim := resolved.Dimension
	if dim == 0 {
		dim = store.Dimension()
	}
	for i, c := range chunks {
		doc := index.Document{
			ID:         index.DocumentID(c.Source, c.ChunkIndex),
			Content:    c.Content,
			Source:     c.Source,
			ChunkIndex: c.ChunkIndex,
			Embedding:  vectors[i],
		}
		if dim == 0 {
			dim = len(doc.Embedding)
		}
		if len(doc.Embedding) != dim {
			return nil, &index.DimensionError{ID: doc.ID, Expected: dim, Actual: len(doc.Embedding)}
		}
		if opts.Merge {
			store.Upsert(doc)
		} else {
			store.Add(doc)
		}
	}
	res.Dimension = dim

	if err := store.Validate(); err != nil {
		return nil, err
	}
	if err := store.SaveTo(opts.Output, resolved.Locator); err != nil {
		return nil, err
	}
	res.Documents = store.Len()
	fmt.Fprintf(out, "Index saved to %s (%d documents)\n", opts.Output, res.Documents)

	return res, nil
}

// openForMerge loads the index at path for upserting. A missing file yields
// an empty store.
func openForMerge(path, locator string) (*index.Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return index.NewStore(), nil
	}
	store, modelDir, err := index.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if modelDir != locator {
		return nil, fmt.Errorf("%w: %s has %q, resolved %q", ErrModelMismatch, path, modelDir, locator)
	}
	return store, nil
}

// QueryOptions configures a search against a saved index.
type QueryOptions struct {
	IndexPath string
	Query     string
	TopK      int
	Threshold float32 // Results scoring below are dropped after ranking
	Context   int     // Neighboring chunks to collect around each result

	// Open builds the provider named by the index's modelDir.
	Open func(locator string) (*embedder.Resolved, error)
	Out  io.Writer
}

// QueryResult holds ranked results and timing.
type QueryResult struct {
	Results    []index.Result
	Context    [][]index.Document // Per result, when QueryOptions.Context > 0
	Documents  int
	Locator    string
	LoadTime   time.Duration
	SearchTime time.Duration // Query embedding plus ranking
}

// Query loads the index, embeds the query with the provider that built the
// index and returns the best matching chunks.
func Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	if strings.TrimSpace(opts.Query) == "" {
		return nil, ErrEmptyQuery
	}

	fmt.Fprint(out, "Loading index... ")
	start := time.Now()
	store, locator, err := index.LoadFrom(opts.IndexPath)
	if err != nil {
		fmt.Fprintln(out)
		return nil, err
	}
	res := &QueryResult{
		Documents: store.Len(),
		Locator:   locator,
		LoadTime:  time.Since(start),
	}
	fmt.Fprintf(out, "done (%d documents)\n", res.Documents)

	resolved, err := opts.Open(locator)
	if err != nil {
		return nil, fmt.Errorf("opening embedding provider %q: %w", locator, err)
	}

	fmt.Fprint(out, "Searching... ")
	start = time.Now()
	vec, err := resolved.Embedder.Embed(ctx, opts.Query)
	if err != nil {
		fmt.Fprintln(out)
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := store.Search(vec, opts.TopK)
	if err != nil {
		fmt.Fprintln(out)
		return nil, err
	}
	res.SearchTime = time.Since(start)
	fmt.Fprintf(out, "done (%s)\n", res.SearchTime.Round(time.Millisecond))

	if opts.Threshold > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= opts.Threshold {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	res.Results = results

	if opts.Context > 0 {
		res.Context = make([][]index.Document, len(results))
		for i, r := range results {
			res.Context[i] = store.Surrounding(r.Document, opts.Context)
		}
	}

	return res, nil
}

// Preview returns the first n characters of content on a single line.
func Preview(content string, n int) string {
	runes := []rune(content)
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.ReplaceAll(string(runes), "\n", " ")
}

func dimString(dim int) string {
	if dim == 0 {
		return "auto"
	}
	return fmt.Sprint(dim)
}
