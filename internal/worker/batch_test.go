package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		size      int
		wantSizes []int
	}{
		{"empty", 0, 500, nil},
		{"one partial", 3, 500, []int{3}},
		{"exact", 1000, 500, []int{500, 500}},
		{"remainder", 1201, 500, []int{500, 500, 201}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"zero size means one chunk", 7, 0, []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.n)
			for i := range items {
				items[i] = i
			}

			chunks := Chunk(items, tt.size)
			if len(chunks) != len(tt.wantSizes) {
				t.Fatalf("expected %d chunks, got %d", len(tt.wantSizes), len(chunks))
			}

			next := 0
			for i, c := range chunks {
				if len(c) != tt.wantSizes[i] {
					t.Errorf("chunk %d: expected size %d, got %d", i, tt.wantSizes[i], len(c))
				}
				for _, v := range c {
					if v != next {
						t.Fatalf("chunk %d: expected item %d, got %d", i, next, v)
					}
					next++
				}
			}
		})
	}
}

func TestChunk_NoAliasingOnAppend(t *testing.T) {
	items := []int{1, 2, 3, 4}
	chunks := Chunk(items, 2)

	_ = append(chunks[0], 99)
	if items[2] != 3 {
		t.Error("appending to a chunk must not overwrite the next chunk")
	}
}

func TestBatchProcessor_Process(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]int)

	processor := NewBatchProcessor(500, 3, func(ctx context.Context, index int, items []string) error {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = len(items)
		return nil
	})

	items := make([]string, 1201)
	results := processor.Process(context.Background(), items)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("results not ordered: position %d has index %d", i, r.Index)
		}
		if r.Error != nil {
			t.Errorf("unexpected error in chunk %d: %v", i, r.Error)
		}
	}
	if seen[0] != 500 || seen[1] != 500 || seen[2] != 201 {
		t.Errorf("unexpected chunk sizes: %v", seen)
	}
}

func TestBatchProcessor_FailureIsIsolated(t *testing.T) {
	var calls atomic.Int32
	processor := NewBatchProcessor(2, 2, func(ctx context.Context, index int, items []int) error {
		calls.Add(1)
		if index == 0 {
			return errors.New("push provider unavailable")
		}
		if index == 1 {
			panic("unexpected nil token")
		}
		return nil
	})

	results := processor.Process(context.Background(), []int{1, 2, 3, 4, 5, 6})

	if calls.Load() != 3 {
		t.Fatalf("expected every chunk to run, got %d calls", calls.Load())
	}
	if results[0].Error == nil || results[1].Error == nil {
		t.Error("expected the first two chunks to fail")
	}
	if results[2].Error != nil {
		t.Errorf("expected chunk 2 to succeed, got %v", results[2].Error)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(500, 2, func(ctx context.Context, index int, items []int) error {
		t.Fatal("no chunk expected")
		return nil
	})

	if results := processor.Process(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(1, 1, func(ctx context.Context, index int, items []int) error {
		return nil
	})

	results := processor.Process(ctx, []int{1, 2, 3})
	if len(results) != 3 {
		t.Fatalf("expected a result per chunk, got %d", len(results))
	}
}
