package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedWork(t *testing.T) {
	p := NewPool(4, 16)
	var count atomic.Int32
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := p.Submit(ctx, func() { count.Add(1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Wait()
	if count.Load() != 10 {
		t.Fatalf("count = %d, want 10", count.Load())
	}
}

func TestPoolSubmitBlocksWhenQueueSaturated(t *testing.T) {
	p := NewPool(1, 1)
	release := make(chan struct{})
	started := make(chan struct{})
	ctx := context.Background()

	if err := p.Submit(ctx, func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Submit first: %v", err)
	}
	<-started

	if err := p.Submit(ctx, func() {}); err != nil {
		t.Fatalf("Submit second: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Submit(shortCtx, func() {}); err == nil {
		t.Fatal("expected third Submit to block until a slot frees up")
	}

	close(release)
	p.Wait()
}
