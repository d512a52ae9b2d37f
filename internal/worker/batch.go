package worker

import (
	"context"
	"fmt"
	"sort"
)

// Chunk splits items into consecutive slices of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	if len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// ChunkFunc processes one chunk
type ChunkFunc[T any] func(ctx context.Context, index int, items []T) error

// ChunkResult is the outcome of one chunk
type ChunkResult struct {
	Index int
	Size  int
	Error error
}

// Err returns the error from the chunk
func (r *ChunkResult) Err() error {
	return r.Error
}

type chunkTask[T any] struct {
	index int
	items []T
	fn    ChunkFunc[T]
}

// Run processes the chunk; a panic is reported as the chunk's error
func (t *chunkTask[T]) Run(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &ChunkResult{Index: t.index, Size: len(t.items), Error: fmt.Errorf("chunk %d panicked: %v", t.index, r)}
		}
	}()
	return &ChunkResult{Index: t.index, Size: len(t.items), Error: t.fn(ctx, t.index, t.items)}
}

// BatchProcessor splits work into chunks and runs them concurrently.
// A failing chunk never stops the others.
type BatchProcessor[T any] struct {
	size        int
	concurrency int
	fn          ChunkFunc[T]
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor[T any](size, concurrency int, fn ChunkFunc[T]) *BatchProcessor[T] {
	return &BatchProcessor[T]{
		size:        size,
		concurrency: concurrency,
		fn:          fn,
	}
}

// Process runs every chunk of items and returns results ordered by chunk index
func (b *BatchProcessor[T]) Process(ctx context.Context, items []T) []*ChunkResult {
	chunks := Chunk(items, b.size)
	if len(chunks) == 0 {
		return []*ChunkResult{}
	}

	concurrency := b.concurrency
	if concurrency > len(chunks) {
		concurrency = len(chunks)
	}

	pool := NewPool(ctx, concurrency)
	pool.Start()

	go func() {
		for i, chunk := range chunks {
			if !pool.Submit(&chunkTask[T]{index: i, items: chunk, fn: b.fn}) {
				return
			}
		}
	}()

	results := make([]*ChunkResult, 0, len(chunks))
	done := make([]bool, len(chunks))
collect:
	for len(results) < len(chunks) {
		select {
		case result := <-pool.Results():
			cr := result.(*ChunkResult)
			done[cr.Index] = true
			results = append(results, cr)
		case <-ctx.Done():
			break collect
		}
	}
	pool.Shutdown()

	// chunks never started because ctx ended
	for i, ok := range done {
		if !ok {
			results = append(results, &ChunkResult{Index: i, Size: len(chunks[i]), Error: ctx.Err()})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}
