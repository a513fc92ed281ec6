package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/perbu/leafrag/pkg/loader"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "leaf.yml"

// EnvPrefix prefixes environment overrides, e.g. LEAF_CHUNK_SIZE.
const EnvPrefix = "LEAF_"

// DefaultIndexPath is where the index is written and read by default.
const DefaultIndexPath = "leaf-index.json"

// Config holds the settings shared by the index and ask commands.
type Config struct {
	Model         string   `yaml:"model" koanf:"model"` // Provider locator, empty for discovery
	Index         string   `yaml:"index" koanf:"index"`
	ChunkSize     int      `yaml:"chunk_size" koanf:"chunk_size"`
	Overlap       int      `yaml:"overlap" koanf:"overlap"`
	TopK          int      `yaml:"top_k" koanf:"top_k"`
	Workers       int      `yaml:"workers" koanf:"workers"`
	Include       []string `yaml:"include" koanf:"include"`
	Exclude       []string `yaml:"exclude" koanf:"exclude"`
	OllamaURL     string   `yaml:"ollama_url" koanf:"ollama_url"`
	OpenAIBaseURL string   `yaml:"openai_base_url" koanf:"openai_base_url"`
}

// DefaultConfig returns a Config with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Index:     DefaultIndexPath,
		ChunkSize: loader.DefaultChunkSize,
		Overlap:   loader.DefaultOverlap,
		TopK:      3,
		Workers:   1,
		Include:   slices.Clone(loader.DefaultInclude),
		Exclude:   slices.Clone(loader.DefaultExclude),
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (LEAF_*). A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	// Decoding into a non-empty slice overwrites element by element and keeps
	// the tail, so lists set by the file or env replace the defaults wholesale.
	if k.Exists("include") {
		cfg.Include = nil
	}
	if k.Exists("exclude") {
		cfg.Exclude = nil
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshalling config: %w", err)
	}
	return data, nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: chunk_size must be positive, got %d", loader.ErrInvalidChunking, c.ChunkSize))
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("%w: overlap must be in [0, chunk_size), got %d", loader.ErrInvalidChunking, c.Overlap))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.TopK))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Index == "" {
		errs = append(errs, errors.New("index path is required"))
	}
	return errors.Join(errs...)
}
