package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestEffectQueuePreservesOrder(t *testing.T) {
	q := NewEffectQueue(nil, 8)
	var mu sync.Mutex
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(Effect{
			Name: "record",
			Run: func(ctx context.Context) error {
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
				return nil
			},
		})
	}
	q.Close()
	if len(got) != 5 {
		t.Fatalf("expected 5 effects, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("order broken at %d: %v", i, got)
		}
	}
}

func TestEffectQueueIsolatesFailures(t *testing.T) {
	q := NewEffectQueue(nil, 8)
	var mu sync.Mutex
	ran := false
	q.Enqueue(Effect{Name: "boom", Run: func(ctx context.Context) error {
		return errors.New("relay down")
	}})
	q.Enqueue(Effect{Name: "after", Run: func(ctx context.Context) error {
		mu.Lock()
		ran = true
		mu.Unlock()
		return nil
	}})
	q.Close()
	if !ran {
		t.Fatalf("effect after a failure did not run")
	}
}

func TestEffectQueueFullRunsInline(t *testing.T) {
	// buffer 1 with a worker blocked on the first effect forces the third
	// enqueue onto the caller.
	started := make(chan struct{})
	block := make(chan struct{})
	q := NewEffectQueue(nil, 1)
	q.Enqueue(Effect{Name: "blocker", Run: func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}})
	<-started
	q.Enqueue(Effect{Name: "buffered", Run: func(ctx context.Context) error { return nil }})

	inline := false
	q.Enqueue(Effect{Name: "overflow", Run: func(ctx context.Context) error {
		inline = true
		return nil
	}})
	if !inline {
		t.Fatalf("overflow effect should have run inline")
	}
	close(block)
	q.Close()
}
