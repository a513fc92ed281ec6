package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrNotDirectory is returned when the corpus root is missing or is not a directory.
	ErrNotDirectory = errors.New("not a directory")
	// ErrInvalidChunking is returned for chunk size / overlap combinations
	// that cannot make forward progress.
	ErrInvalidChunking = errors.New("invalid chunking parameters")
)

// Default chunking parameters.
const (
	DefaultChunkSize = 600
	DefaultOverlap   = 100
)

// DefaultInclude matches the recognized document extension.
var DefaultInclude = []string{"**/*.md"}

// DefaultExclude skips VCS metadata and dependency trees.
var DefaultExclude = []string{".git/**", "node_modules/**", "vendor/**"}

// Chunk is a piece of a source document.
type Chunk struct {
	Content    string // Trimmed chunk text
	Source     string // Slash-separated path relative to the corpus root
	ChunkIndex int    // Position within Source, starting at 0
}

// Options controls directory chunking. Zero values fall back to the defaults.
type Options struct {
	ChunkSize int
	Overlap   int
	Include   []string
	Exclude   []string
}

func (o Options) withDefaults() Options {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if len(o.Include) == 0 {
		o.Include = DefaultInclude
	}
	if o.Exclude == nil {
		o.Exclude = DefaultExclude
	}
	return o
}

// Document is a raw file read from the corpus.
type Document struct {
	Path    string
	Content string
}

// LoadDocuments reads every file under root in fsys that matches include and
// none of exclude. Documents are returned sorted by path.
func LoadDocuments(fsys fs.FS, root string, include, exclude []string) ([]Document, error) {
	var docs []Document

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		relPath := p
		if root != "." {
			relPath = strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		}
		if !matchesAny(relPath, include) || matchesAny(relPath, exclude) {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		docs = append(docs, Document{Path: relPath, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(docs, func(a, b Document) int {
		return strings.Compare(a.Path, b.Path)
	})
	return docs, nil
}

// ChunkDirectory chunks every recognized document below root. Chunks are
// ordered by source path, then by chunk index.
func ChunkDirectory(root string, opts Options) ([]Chunk, error) {
	opts = opts.withDefaults()
	if err := validate(opts.ChunkSize, opts.Overlap); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	docs, err := LoadDocuments(os.DirFS(root), ".", opts.Include, opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("loading documents from %s: %w", root, err)
	}

	var chunks []Chunk
	for _, doc := range docs {
		texts, err := ChunkText(doc.Content, opts.ChunkSize, opts.Overlap)
		if err != nil {
			return nil, err
		}
		for i, text := range texts {
			chunks = append(chunks, Chunk{
				Content:    text,
				Source:     doc.Path,
				ChunkIndex: i,
			})
		}
	}

	return chunks, nil
}

// Sources returns the distinct sources of chunks in first-seen order.
func Sources(chunks []Chunk) []string {
	var sources []string
	seen := make(map[string]bool)
	for _, c := range chunks {
		if !seen[c.Source] {
			seen[c.Source] = true
			sources = append(sources, c.Source)
		}
	}
	return sources
}

// matchesAny reports whether relPath or its base name matches one of the
// doublestar patterns.
func matchesAny(relPath string, patterns []string) bool {
	base := path.Base(relPath)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
