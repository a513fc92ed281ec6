package embedder

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the vector length, or 0 when the provider only learns
	// it from the first response.
	Dimension() int
	ModelInfo() string
}

var errEmptyText = errors.New("cannot embed empty text")

// HashEmbedder is an offline embedder based on feature hashing of words and
// word pairs. Vectors are deterministic and L2 normalized.
type HashEmbedder struct {
	dim  int
	info string
}

// NewHashEmbedder creates a hashing embedder with the given dimension.
func NewHashEmbedder(dimension int) (*HashEmbedder, error) {
	return newHashEmbedder(dimension, fmt.Sprintf("hash-%d", dimension))
}

func newHashEmbedder(dimension int, info string) (*HashEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hash embedder dimension must be positive, got %d", dimension)
	}
	return &HashEmbedder{dim: dimension, info: info}, nil
}

// Embed generates the hashed feature vector for text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	vec := make([]float32, e.dim)
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	l2normalize(vec)
	return vec, nil
}

// add accumulates one feature. A second hash bit picks the sign so that
// collisions cancel out on average.
func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Dimension returns the embedding dimension
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *HashEmbedder) ModelInfo() string {
	return e.info
}

// l2normalize normalizes a vector to unit length
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
