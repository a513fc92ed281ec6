package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

var (
	// ErrIndexNotFound is returned when the index file does not exist.
	ErrIndexNotFound = errors.New("index file not found")
	// ErrMalformedIndex is returned when the index file cannot be parsed.
	ErrMalformedIndex = errors.New("malformed index file")
)

// Store holds indexed documents in insertion order. It is not safe for
// concurrent mutation.
type Store struct {
	documents []Document
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends doc. Duplicate ids are kept.
func (s *Store) Add(doc Document) {
	s.documents = append(s.documents, doc)
}

// Upsert replaces the document with the same key in place, or appends doc
// when no such document exists.
func (s *Store) Upsert(doc Document) {
	i := slices.IndexFunc(s.documents, func(d Document) bool {
		return d.Key() == doc.Key()
	})
	if i < 0 {
		s.documents = append(s.documents, doc)
		return
	}
	s.documents[i] = doc
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	return len(s.documents)
}

// Documents returns a copy of the stored documents in insertion order.
func (s *Store) Documents() []Document {
	return slices.Clone(s.documents)
}

// Dimension returns the embedding length of the first document, or 0 for an
// empty store.
func (s *Store) Dimension() int {
	if len(s.documents) == 0 {
		return 0
	}
	return len(s.documents[0].Embedding)
}

// Surrounding returns the documents from the same source as doc whose chunk
// index lies within n of doc's, ordered by chunk index.
func (s *Store) Surrounding(doc Document, n int) []Document {
	var out []Document
	for _, d := range s.documents {
		if d.Source != doc.Source {
			continue
		}
		if d.ChunkIndex >= doc.ChunkIndex-n && d.ChunkIndex <= doc.ChunkIndex+n {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b Document) int {
		return a.ChunkIndex - b.ChunkIndex
	})
	return out
}

// Validate checks that every embedding has the same length.
func (s *Store) Validate() error {
	dim := s.Dimension()
	for _, doc := range s.documents {
		if len(doc.Embedding) != dim {
			return &DimensionError{ID: doc.ID, Expected: dim, Actual: len(doc.Embedding)}
		}
	}
	return nil
}

// SaveTo writes the store and the provider locator to path as indented JSON,
// replacing any existing file.
func (s *Store) SaveTo(path, modelDir string) error {
	idx := Index{
		ModelDir:  modelDir,
		Documents: s.documents,
	}
	if idx.Documents == nil {
		idx.Documents = []Document{}
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating index directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing index %s: %w", path, err)
	}
	return nil
}

// LoadFrom reads an index written by SaveTo. Unknown fields are ignored.
// It returns the store and the locator of the provider that built it.
func LoadFrom(path string) (*Store, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, "", fmt.Errorf("reading index %s: %w", path, err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrMalformedIndex, path, err)
	}

	return &Store{documents: idx.Documents}, idx.ModelDir, nil
}
