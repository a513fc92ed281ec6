package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned when the query has no content.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrModelMismatch is returned when merging into an index built by a
	// different provider.
	ErrModelMismatch = errors.New("index was built with a different embedding provider")
)

// EmbedError reports a provider failure for one chunk.
type EmbedError struct {
	Position int    // Index into the chunk list
	ID       string // Document id, filled in by Build
	Err      error
}

func (e *EmbedError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("embedding %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("embedding chunk %d: %v", e.Position, e.Err)
}

func (e *EmbedError) Unwrap() error {
	return e.Err
}
