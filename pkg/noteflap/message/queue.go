package message

import (
	"container/heap"
	"sync"
)

// heapSlice is the container/heap.Interface backing Queue. All access goes
// through Queue's mutex; heapSlice itself is not safe for concurrent use.
type heapSlice []*Message

func (h heapSlice) Len() int            { return len(h) }
func (h heapSlice) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h heapSlice) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *heapSlice) Push(x any)         { *h = append(*h, x.(*Message)) }
func (h *heapSlice) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return m
}

// Queue is the single shared priority queue consumed by the worker. Messages
// are pushed here by cron triggers (content package) and webhook handlers
// (webhook package). It is safe for concurrent use.
type Queue struct {
	mu   sync.Mutex
	heap heapSlice

	seqMu sync.Mutex
	seq   uint64

	// notify is signalled (non-blocking, best effort) whenever a message is
	// pushed, so PopValid's blocking wait can wake up without polling.
	notify chan struct{}
}

// NewQueue returns an empty Queue ready to use.
func NewQueue() *Queue {
	q := &Queue{notify: make(chan struct{}, 1)}
	heap.Init(&q.heap)
	return q
}

// wake signals notify without blocking if nobody is currently listening.
func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// nextSeq returns the next monotonically increasing sequence number,
// guarded by its own mutex so it never blocks on heap operations.
func (q *Queue) nextSeq() uint64 {
	q.seqMu.Lock()
	defer q.seqMu.Unlock()
	s := q.seq
	q.seq++
	return s
}

// Enqueue assigns m a sequence number and inserts it into the queue. If
// m.SupersedeTag is non-empty, any earlier-queued message with the same tag
// is removed first, so a newer update to the same slot never piles up behind
// a stale one.
func (q *Queue) Enqueue(m *Message) {
	m.Seq = q.nextSeq()

	q.mu.Lock()
	defer q.mu.Unlock()

	if m.SupersedeTag != "" {
		q.removeBySupersedeTagLocked(m.SupersedeTag)
	}
	heap.Push(&q.heap, m)
	q.wake()
}

// removeBySupersedeTagLocked drops every queued message whose SupersedeTag
// equals tag. Caller must hold q.mu.
func (q *Queue) removeBySupersedeTagLocked(tag string) {
	kept := q.heap[:0]
	for _, m := range q.heap {
		if m.SupersedeTag != tag {
			kept = append(kept, m)
		}
	}
	q.heap = kept
	heap.Init(&q.heap)
}

// popNowaitLocked removes and returns the highest-priority message, or nil if the
// queue is empty. Caller must hold q.mu.
func (q *Queue) popNowaitLocked() *Message {
	if q.heap.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*Message)
}

// pushLocked re-inserts m. Caller must hold q.mu.
func (q *Queue) pushLocked(m *Message) {
	heap.Push(&q.heap, m)
}

// lenLocked reports the queue depth. Caller must hold q.mu.
func (q *Queue) lenLocked() int {
	return q.heap.Len()
}

// peekLocked returns the highest-priority message without removing it, or
// nil if empty. Caller must hold q.mu.
func (q *Queue) peekLocked() *Message {
	if q.heap.Len() == 0 {
		return nil
	}
	return q.heap[0]
}

// PeekPriority returns the priority of the highest-priority queued message
// and true, or (0, false) if the queue is empty. Used by the hold controller
// to test the pre-emption gate without popping.
func (q *Queue) PeekPriority() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	m := q.peekLocked()
	if m == nil {
		return 0, false
	}
	return m.Priority, true
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Snapshot returns a shallow copy of the queued messages in arbitrary order,
// for diagnostics (GET /status). Callers must not mutate the returned
// messages.
func (q *Queue) Snapshot() []*Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Message, len(q.heap))
	copy(out, q.heap)
	return out
}
