package embedder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ModelDirEnv names the environment variable pointing at a model directory.
const ModelDirEnv = "LEAF_MODEL_DIR"

var (
	// ErrNotFound is returned by a Strategy that has nothing to offer; the
	// Resolver moves on to the next one.
	ErrNotFound = errors.New("provider not found")
	// ErrNoProvider is returned when every strategy came up empty.
	ErrNoProvider = errors.New("no embedding provider found")
)

// Strategy locates a provider. It returns ErrNotFound to let the next
// strategy try; any other error stops resolution.
type Strategy interface {
	Name() string
	Locate() (string, error)
}

// Resolver tries strategies in order; the first locator found wins.
type Resolver struct {
	Strategies []Strategy
}

// Resolve returns the first locator produced by a strategy.
func (r *Resolver) Resolve() (string, error) {
	tried := make([]string, 0, len(r.Strategies))
	for _, s := range r.Strategies {
		locator, err := s.Locate()
		if err == nil {
			return locator, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s: %w", s.Name(), err)
		}
		tried = append(tried, s.Name())
	}
	return "", fmt.Errorf("%w (tried %s); pass --model-dir, set %s, or place the model in ~/.cache/huggingface/hub/%s or ~/.deliverance/%s",
		ErrNoProvider, strings.Join(tried, ", "), ModelDirEnv, hfRepoDir, deliveranceDir)
}

// DefaultResolver returns the standard chain: the explicit locator, the
// configured locator, $LEAF_MODEL_DIR, the Hugging Face cache and the
// deliverance cache. getenv and home are injected for testing.
func DefaultResolver(explicit, configured string, getenv func(string) string, home string) *Resolver {
	return &Resolver{Strategies: []Strategy{
		Explicit{Label: "--model-dir", Locator: explicit},
		Explicit{Label: "config", Locator: configured},
		EnvDir{Var: ModelDirEnv, Getenv: getenv},
		HuggingFaceCache{Home: home},
		DeliveranceCache{Home: home},
	}}
}

// Explicit is a locator given by the user. An invalid explicit model
// directory is an error rather than a fall-through.
type Explicit struct {
	Label   string
	Locator string
}

func (s Explicit) Name() string { return s.Label }

func (s Explicit) Locate() (string, error) {
	if s.Locator == "" {
		return "", ErrNotFound
	}
	if _, _, ok := parseScheme(s.Locator); ok {
		return s.Locator, nil
	}
	if !isDir(s.Locator) {
		return "", fmt.Errorf("model directory not found: %s", s.Locator)
	}
	return s.Locator, nil
}

// EnvDir reads a model directory from an environment variable.
type EnvDir struct {
	Var    string
	Getenv func(string) string
}

func (s EnvDir) Name() string { return "$" + s.Var }

func (s EnvDir) Locate() (string, error) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	dir := getenv(s.Var)
	if dir == "" || !isDir(dir) {
		return "", ErrNotFound
	}
	return dir, nil
}

const (
	hfRepoDir      = "models--MongoDB--mdbr-leaf-ir"
	deliveranceDir = "MongoDB_mdbr-leaf-ir"
)

// HuggingFaceCache picks the most recently modified snapshot of the model in
// the Hugging Face hub cache.
type HuggingFaceCache struct {
	Home string
}

func (s HuggingFaceCache) Name() string { return "huggingface cache" }

func (s HuggingFaceCache) Locate() (string, error) {
	if s.Home == "" {
		return "", ErrNotFound
	}
	snapshots := filepath.Join(s.Home, ".cache", "huggingface", "hub", hfRepoDir, "snapshots")
	entries, err := os.ReadDir(snapshots)
	if err != nil {
		return "", ErrNotFound
	}

	var newest string
	var newestTime time.Time
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(snapshots, e.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", ErrNotFound
	}
	return newest, nil
}

// DeliveranceCache is the model directory used by the deliverance tool.
type DeliveranceCache struct {
	Home string
}

func (s DeliveranceCache) Name() string { return "deliverance cache" }

func (s DeliveranceCache) Locate() (string, error) {
	if s.Home == "" {
		return "", ErrNotFound
	}
	dir := filepath.Join(s.Home, ".deliverance", deliveranceDir)
	if !isDir(dir) {
		return "", ErrNotFound
	}
	return dir, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
