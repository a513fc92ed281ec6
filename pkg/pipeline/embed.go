package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/perbu/leafrag/pkg/embedder"
	"github.com/perbu/leafrag/pkg/progress"
)

// embedAll embeds texts with up to workers concurrent calls. Vectors are
// stored by position so the output order never depends on scheduling. The
// first failure cancels outstanding work and is returned.
func embedAll(ctx context.Context, emb embedder.Embedder, texts []string, workers int, rep progress.Reporter) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	rep.Start(len(texts))
	defer rep.Finish()

	if workers <= 1 {
		for i, text := range texts {
			vec, err := emb.Embed(ctx, text)
			if err != nil {
				return nil, &EmbedError{Position: i, Err: err}
			}
			vectors[i] = vec
			rep.Increment()
		}
		return vectors, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr *EmbedError
	)
	sem := make(chan struct{}, workers)

loop:
	for i := range texts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			vec, err := emb.Embed(ctx, texts[idx])

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Keep the failure with the lowest position so reports are
				// stable, ignoring calls aborted by our own cancel.
				if firstErr == nil || (idx < firstErr.Position && !errors.Is(err, context.Canceled)) {
					firstErr = &EmbedError{Position: idx, Err: err}
				}
				cancel()
				return
			}
			vectors[idx] = vec
			rep.Increment()
		}(i)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}
