package index

import "strconv"

// Document is one indexed chunk with its embedding.
type Document struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`     // Path relative to the indexed directory
	ChunkIndex int       `json:"chunkIndex"` // Position within Source
	Embedding  []float32 `json:"embedding"`
}

// DocumentID builds the identifier "{source}#{chunkIndex}".
func DocumentID(source string, chunkIndex int) string {
	return source + "#" + strconv.Itoa(chunkIndex)
}

// Key returns the identity of the document. Two documents with the same key
// are the same entity regardless of their content or embedding.
func (d Document) Key() string {
	return d.ID
}

// Index is the persisted form of a Store.
type Index struct {
	ModelDir  string     `json:"modelDir"`  // Locator of the provider that produced the embeddings
	Documents []Document `json:"documents"` // Insertion order, significant for ranking ties
}

// Result is a single search hit.
type Result struct {
	Document Document
	Score    float32
}
