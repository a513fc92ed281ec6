package embedder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Locator schemes. Anything else is treated as a model directory path.
const (
	SchemeOpenAI = "openai"
	SchemeOllama = "ollama"
	SchemeHash   = "hash"
)

// Options configures how locators are turned into providers.
type Options struct {
	Getenv        func(string) string // defaults to os.Getenv
	OllamaURL     string
	OpenAIBaseURL string
}

// Resolved is a ready provider together with the locator persisted in the
// index and the expected vector length (0 if learned from the first vector).
type Resolved struct {
	Locator   string
	Embedder  Embedder
	Dimension int
}

// Open builds the provider identified by locator.
func Open(locator string, opts Options) (*Resolved, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	if scheme, arg, ok := parseScheme(locator); ok {
		var emb Embedder
		switch scheme {
		case SchemeOpenAI:
			e, err := NewOpenAIEmbedder(getenv("OPENAI_API_KEY"), arg, opts.OpenAIBaseURL)
			if err != nil {
				return nil, err
			}
			emb = e
		case SchemeOllama:
			if arg == "" {
				return nil, errors.New("ollama locator needs a model name, e.g. ollama:nomic-embed-text")
			}
			emb = NewOllamaEmbedder(arg, opts.OllamaURL)
		case SchemeHash:
			dim, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid hash dimension %q: %w", arg, err)
			}
			e, err := NewHashEmbedder(dim)
			if err != nil {
				return nil, err
			}
			emb = e
		}
		return &Resolved{Locator: locator, Embedder: emb, Dimension: emb.Dimension()}, nil
	}

	return openModelDir(locator)
}

// openModelDir serves a local model directory. Neural inference is not
// built in; the directory only determines the vector size, and vectors come
// from the hashing embedder.
func openModelDir(dir string) (*Resolved, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving model directory %s: %w", dir, err)
	}
	if !isDir(abs) {
		return nil, fmt.Errorf("model directory not found: %s", abs)
	}
	if _, err := os.Stat(filepath.Join(abs, "vocab.txt")); err != nil {
		return nil, fmt.Errorf("vocab.txt not found in %s", abs)
	}

	cfg, err := DetectModelConfig(abs)
	if err != nil {
		return nil, err
	}

	dim := cfg.Dimension()
	emb, err := newHashEmbedder(dim, fmt.Sprintf("leaf-%s (hashed, dim=%d)", filepath.Base(abs), dim))
	if err != nil {
		return nil, err
	}
	return &Resolved{Locator: abs, Embedder: emb, Dimension: dim}, nil
}

func parseScheme(locator string) (scheme, arg string, ok bool) {
	scheme, arg, found := strings.Cut(locator, ":")
	if !found {
		return "", "", false
	}
	switch scheme {
	case SchemeOpenAI, SchemeOllama, SchemeHash:
		return scheme, arg, true
	}
	return "", "", false
}
