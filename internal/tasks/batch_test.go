package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/cadence/internal/services"
)

func collectUpdates(progress chan ProgressUpdate) []ProgressUpdate {
	var updates []ProgressUpdate
	for {
		select {
		case update := <-progress:
			updates = append(updates, update)
		default:
			return updates
		}
	}
}

func countPhase(updates []ProgressUpdate, phase Phase) int {
	n := 0
	for _, u := range updates {
		if u.Phase == phase {
			n++
		}
	}
	return n
}

func fastOpts(concurrency int) BatchOpts {
	return BatchOpts{
		MaxConcurrency: concurrency,
		BatchDelay:     time.Millisecond,
		RateLimit:      1000,
	}
}

func TestRunBatch(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(nil)

	t.Run("All Items Succeed", func(t *testing.T) {
		items := []string{"a", "b", "c", "d", "e"}
		var calls atomic.Int64

		results := engine.RunBatch(ctx, nil, items, func(ctx context.Context, itemID string) error {
			calls.Add(1)
			return nil
		}, fastOpts(2))

		if len(results) != len(items) {
			t.Fatalf("expected %d results, got %d", len(items), len(results))
		}
		if calls.Load() != int64(len(items)) {
			t.Errorf("expected %d operations, got %d", len(items), calls.Load())
		}
		if Succeeded(results) != 5 || Failed(results) != 0 {
			t.Errorf("expected 5 succeeded, got %d/%d", Succeeded(results), Failed(results))
		}
	})

	t.Run("Failures Preserve Order And Continue", func(t *testing.T) {
		items := []string{"a", "b", "c"}
		opErr := errors.New("gone")

		results := engine.RunBatch(ctx, nil, items, func(ctx context.Context, itemID string) error {
			if itemID == "b" {
				return opErr
			}
			return nil
		}, fastOpts(3))

		for i, want := range items {
			if results[i].ItemID != want {
				t.Errorf("result %d: expected item %s, got %s", i, want, results[i].ItemID)
			}
		}
		if !results[0].Succeeded || results[1].Succeeded || !results[2].Succeeded {
			t.Errorf("unexpected outcomes: %+v", results)
		}
		if !errors.Is(results[1].Err, opErr) {
			t.Errorf("expected operation error preserved, got %v", results[1].Err)
		}
	})

	t.Run("Concurrency Cap Respected", func(t *testing.T) {
		items := make([]string, 12)
		for i := range items {
			items[i] = fmt.Sprintf("item%d", i)
		}

		var mu sync.Mutex
		inFlight := 0
		peak := 0

		results := engine.RunBatch(ctx, nil, items, func(ctx context.Context, itemID string) error {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return nil
		}, fastOpts(4))

		if Succeeded(results) != 12 {
			t.Errorf("expected all to succeed, got %d", Succeeded(results))
		}
		if peak > 4 {
			t.Errorf("expected at most 4 concurrent operations, observed %d", peak)
		}
	})

	t.Run("Sustained Throttling Halves Concurrency", func(t *testing.T) {
		items := make([]string, 8)
		for i := range items {
			items[i] = fmt.Sprintf("item%d", i)
		}

		progress := make(chan ProgressUpdate, 64)
		results := engine.RunBatch(ctx, progress, items, func(ctx context.Context, itemID string) error {
			return &services.RateLimitError{RetryAfter: time.Second}
		}, fastOpts(2))

		if Failed(results) != 8 {
			t.Errorf("expected all to fail, got %d failures", Failed(results))
		}

		updates := collectUpdates(progress)
		if got := countPhase(updates, Throttled); got < 1 {
			t.Fatalf("expected at least one throttle adaptation, got %d", got)
		}
		for _, update := range updates {
			if update.Phase == Throttled && !strings.Contains(update.Message, "concurrency 1") {
				t.Errorf("expected concurrency halved to 1, got %q", update.Message)
			}
		}
		// Chunks of 2 until the third consecutive throttled chunk trips the
		// adaptation, then chunks of 1: 2+2+2+1+1 covers all 8 items.
		if got := countPhase(updates, ChunkStart); got != 5 {
			t.Errorf("expected 5 chunks after halving, got %d", got)
		}
		if got := countPhase(updates, ItemFailed); got != 8 {
			t.Errorf("expected 8 item failures reported, got %d", got)
		}
	})

	t.Run("Non Throttled Failures Do Not Adapt", func(t *testing.T) {
		items := make([]string, 8)
		for i := range items {
			items[i] = fmt.Sprintf("item%d", i)
		}

		progress := make(chan ProgressUpdate, 64)
		engine.RunBatch(ctx, progress, items, func(ctx context.Context, itemID string) error {
			return errors.New("not found")
		}, fastOpts(2))

		updates := collectUpdates(progress)
		if got := countPhase(updates, Throttled); got != 0 {
			t.Errorf("plain failures must not adapt the batch shape, got %d adaptations", got)
		}
		if got := countPhase(updates, ChunkStart); got != 4 {
			t.Errorf("expected 4 full-width chunks, got %d", got)
		}
	})

	t.Run("Cancellation Marks Remaining Items", func(t *testing.T) {
		items := []string{"a", "b", "c", "d"}
		runCtx, cancel := context.WithCancel(ctx)

		results := engine.RunBatch(runCtx, nil, items, func(ctx context.Context, itemID string) error {
			if itemID == "b" {
				cancel()
			}
			return nil
		}, BatchOpts{MaxConcurrency: 2, BatchDelay: time.Millisecond, RateLimit: 1000})

		if len(results) != 4 {
			t.Fatalf("expected 4 results, got %d", len(results))
		}
		for i := 2; i < 4; i++ {
			if results[i].Succeeded {
				t.Errorf("item %s should not have run after cancellation", results[i].ItemID)
			}
			if !errors.Is(results[i].Err, context.Canceled) {
				t.Errorf("item %s: expected context error, got %v", results[i].ItemID, results[i].Err)
			}
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 4)
		results := engine.RunBatch(ctx, progress, nil, func(ctx context.Context, itemID string) error {
			t.Error("operation must not run for empty input")
			return nil
		}, BatchOpts{})

		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}

		updates := collectUpdates(progress)
		if got := countPhase(updates, BatchDone); got != 1 {
			t.Errorf("expected a completion update, got %d", got)
		}
	})

	t.Run("Full Progress Channel Never Blocks", func(t *testing.T) {
		progress := make(chan ProgressUpdate) // unbuffered, never read
		done := make(chan struct{})

		go func() {
			engine.RunBatch(ctx, progress, []string{"a", "b"}, func(ctx context.Context, itemID string) error {
				return nil
			}, fastOpts(2))
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("batch blocked on an unread progress channel")
		}
	})
}

func TestResultHelpers(t *testing.T) {
	results := []ItemResult{
		{ItemID: "a", Succeeded: true},
		{ItemID: "b", Err: errors.New("failed")},
		{ItemID: "c", Succeeded: true},
	}

	if got := Succeeded(results); got != 2 {
		t.Errorf("expected 2 succeeded, got %d", got)
	}
	if got := Failed(results); got != 1 {
		t.Errorf("expected 1 failed, got %d", got)
	}
}
