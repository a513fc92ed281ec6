package embedder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ModelConfig is the subset of a BERT-style config.json needed to size
// embeddings.
type ModelConfig struct {
	VocabSize             int     `json:"vocab_size"`
	HiddenSize            int     `json:"hidden_size"`
	NumHiddenLayers       int     `json:"num_hidden_layers"`
	NumAttentionHeads     int     `json:"num_attention_heads"`
	IntermediateSize      int     `json:"intermediate_size"`
	MaxPositionEmbeddings int     `json:"max_position_embeddings"`
	TypeVocabSize         int     `json:"type_vocab_size"`
	LayerNormEps          float64 `json:"layer_norm_eps"`

	// ProjectionDim is the output size of the optional 2_Dense layer, 0 if absent.
	ProjectionDim int `json:"-"`
}

// DefaultModelConfig matches the mdbr-leaf-ir model.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		VocabSize:             30522,
		HiddenSize:            384,
		NumHiddenLayers:       6,
		NumAttentionHeads:     12,
		IntermediateSize:      1536,
		MaxPositionEmbeddings: 512,
		TypeVocabSize:         2,
		LayerNormEps:          1e-12,
	}
}

// Dimension is the length of the vectors the model produces.
func (c ModelConfig) Dimension() int {
	if c.ProjectionDim > 0 {
		return c.ProjectionDim
	}
	return c.HiddenSize
}

// DetectModelConfig reads config.json and 2_Dense/config.json from dir.
// A missing config.json yields the defaults; fields absent from the file keep
// their default values.
func DetectModelConfig(dir string) (ModelConfig, error) {
	cfg := DefaultModelConfig()

	if err := readJSON(filepath.Join(dir, "config.json"), &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	var dense struct {
		OutFeatures int `json:"out_features"`
	}
	if err := readJSON(filepath.Join(dir, "2_Dense", "config.json"), &dense); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	if dense.OutFeatures > 0 {
		cfg.ProjectionDim = dense.OutFeatures
	}

	if cfg.Dimension() <= 0 {
		return cfg, fmt.Errorf("model config in %s has no usable output dimension", dir)
	}
	return cfg, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
