package message

import (
	"log/slog"
	"time"
)

// CoalesceWindow is the delay after the first message arrives during which
// co-scheduled jobs (cron triggers firing within milliseconds of each other)
// get a chance to enqueue before PopValid commits to a winner.
const CoalesceWindow = 100 * time.Millisecond

// popWaitTimeout bounds how long PopValid blocks for a first message before
// returning nil, so callers (the worker loop) can still observe shutdown
// signals and service idle-refresh on a reasonable cadence.
const popWaitTimeout = time.Second

// PopValid returns the highest-priority non-expired message, or nil if
// nothing is available within popWaitTimeout.
//
// After the first message arrives, it waits CoalesceWindow so that any
// co-scheduled jobs have time to enqueue before a winner is committed. All
// candidates collected during that window are compared; expired ones are
// discarded (and logged), and the highest-priority valid message is
// returned. The rest are re-enqueued for the next cycle.
func (q *Queue) PopValid(log *slog.Logger) *Message {
	first := q.waitForFirst(popWaitTimeout)
	if first == nil {
		return nil
	}

	time.Sleep(CoalesceWindow)

	candidates := []*Message{first}
	q.mu.Lock()
	for {
		m := q.popNowaitLocked()
		if m == nil {
			break
		}
		candidates = append(candidates, m)
	}
	q.mu.Unlock()

	now := time.Now()
	valid := candidates[:0]
	for _, m := range candidates {
		if m.Valid(now) {
			valid = append(valid, m)
		} else if log != nil {
			log.Info("discarding expired message",
				"name", m.Name,
				"waited", now.Sub(m.ScheduledAt),
				"timeout", m.Timeout,
			)
		}
	}

	if len(valid) == 0 {
		return nil
	}

	best := valid[0]
	for _, m := range valid[1:] {
		if m.Less(best) {
			best = m
		}
	}

	q.mu.Lock()
	for _, m := range valid {
		if m != best {
			q.pushLocked(m)
		}
	}
	q.mu.Unlock()

	return best
}

// waitForFirst blocks until a message is available or timeout elapses,
// returning it popped from the queue, or nil on timeout.
func (q *Queue) waitForFirst(timeout time.Duration) *Message {
	deadline := time.Now().Add(timeout)

	for {
		q.mu.Lock()
		m := q.popNowaitLocked()
		q.mu.Unlock()
		if m != nil {
			return m
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
			return nil
		}
	}
}
