package message

import (
	"testing"
	"time"
)

func TestQueueOrdersByPriorityThenSeq(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	now := time.Now()

	q.Enqueue(&Message{Name: "low-first", Priority: 3, ScheduledAt: now, Timeout: time.Minute})
	q.Enqueue(&Message{Name: "high", Priority: 9, ScheduledAt: now, Timeout: time.Minute})
	q.Enqueue(&Message{Name: "low-second", Priority: 3, ScheduledAt: now, Timeout: time.Minute})

	got := q.PopValid(nil)
	if got == nil || got.Name != "high" {
		t.Fatalf("expected high to pop first, got %+v", got)
	}

	got = q.PopValid(nil)
	if got == nil || got.Name != "low-first" {
		t.Fatalf("expected low-first (earlier seq) to pop before low-second, got %+v", got)
	}

	got = q.PopValid(nil)
	if got == nil || got.Name != "low-second" {
		t.Fatalf("expected low-second last, got %+v", got)
	}
}

func TestEnqueueSupersedesSameTag(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	now := time.Now()

	q.Enqueue(&Message{Name: "stale", Priority: 5, ScheduledAt: now, Timeout: time.Minute, SupersedeTag: "slot-a"})
	q.Enqueue(&Message{Name: "other", Priority: 5, ScheduledAt: now, Timeout: time.Minute})
	q.Enqueue(&Message{Name: "fresh", Priority: 5, ScheduledAt: now, Timeout: time.Minute, SupersedeTag: "slot-a"})

	if q.Len() != 2 {
		t.Fatalf("expected stale message to be superseded, queue len = %d", q.Len())
	}

	names := map[string]bool{}
	for _, m := range q.Snapshot() {
		names[m.Name] = true
	}
	if names["stale"] {
		t.Fatal("stale message should have been removed by supersede tag")
	}
	if !names["fresh"] || !names["other"] {
		t.Fatalf("expected fresh and other to remain, got %v", names)
	}
}

func TestPopValidDiscardsExpiredMessages(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	expired := &Message{
		Name:        "expired",
		Priority:    10,
		ScheduledAt: time.Now().Add(-time.Hour),
		Timeout:     time.Second,
	}
	fresh := &Message{
		Name:        "fresh",
		Priority:    1,
		ScheduledAt: time.Now(),
		Timeout:     time.Minute,
	}
	q.Enqueue(expired)
	q.Enqueue(fresh)

	got := q.PopValid(nil)
	if got == nil || got.Name != "fresh" {
		t.Fatalf("expected expired message discarded and fresh returned, got %+v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue drained, len = %d", q.Len())
	}
}

func TestPopValidReturnsNilWhenEmpty(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	// Nothing is ever enqueued, so waitForFirst blocks for the full
	// popWaitTimeout. This test intentionally eats the ~1s timeout to
	// exercise the real blocking path once.
	start := time.Now()
	got := q.PopValid(nil)
	if got != nil {
		t.Fatalf("expected nil from empty queue, got %+v", got)
	}
	if elapsed := time.Since(start); elapsed < popWaitTimeout {
		t.Fatalf("expected PopValid to block for the full wait timeout, elapsed %v", elapsed)
	}
}

func TestPopValidCoalescesConcurrentEnqueues(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	now := time.Now()

	go func() {
		q.Enqueue(&Message{Name: "first", Priority: 1, ScheduledAt: now, Timeout: time.Minute})
	}()

	// Give the first enqueue a head start so PopValid's coalesce window is
	// the thing that picks up the second, higher-priority arrival.
	time.Sleep(10 * time.Millisecond)
	go func() {
		q.Enqueue(&Message{Name: "second", Priority: 9, ScheduledAt: now, Timeout: time.Minute})
	}()

	got := q.PopValid(nil)
	if got == nil || got.Name != "second" {
		t.Fatalf("expected coalescing window to surface higher-priority second message, got %+v", got)
	}
}
