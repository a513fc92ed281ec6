package index

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrDimensionMismatch is returned when two vectors of different length are compared.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// DimensionError describes a dimension mismatch against a stored document.
type DimensionError struct {
	ID       string // Offending document, empty for bare vector comparisons
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("embedding dimension mismatch for %s: expected %d, got %d", e.ID, e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Sums are accumulated left to right in float64 so the result is reproducible.
// A zero vector has similarity 0 with anything.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, &DimensionError{Expected: len(a), Actual: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom <= 0 {
		return 0, nil
	}
	return float32(dot / denom), nil
}

// Search ranks every stored document against query and returns the topK best,
// highest score first. Equal scores keep insertion order.
func (s *Store) Search(query []float32, topK int) ([]Result, error) {
	if topK <= 0 || len(s.documents) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(s.documents))
	for _, doc := range s.documents {
		if len(doc.Embedding) != len(query) {
			return nil, &DimensionError{ID: doc.ID, Expected: len(doc.Embedding), Actual: len(query)}
		}
		score, err := CosineSimilarity(query, doc.Embedding)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Document: doc, Score: score})
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}
