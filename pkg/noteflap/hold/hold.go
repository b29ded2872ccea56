// Package hold implements the worker's hold controller: once a message has
// been sent to the display, the worker sleeps for its hold duration before
// pulling the next one, subject to early-exit conditions that let a webhook
// interrupt or a higher-priority arrival cut the hold short.
package hold

import (
	"log/slog"
	"time"

	"github.com/duskline/noteflap/pkg/noteflap/boardstate"
	"github.com/duskline/noteflap/pkg/noteflap/message"
)

// pollInterval bounds how long a single wait iteration blocks, so an
// indefinite hold and the priority pre-emption check both get re-evaluated
// at a steady cadence instead of sleeping for the message's entire hold in
// one shot.
const pollInterval = time.Second

// PeekPrioritizer is the minimal view of the queue the hold controller needs
// to test the pre-emption gate without popping anything. *message.Queue
// satisfies this.
type PeekPrioritizer interface {
	PeekPriority() (priority int, ok bool)
}

// RefreshFunc re-renders a held message's content (used by integration
// refresh intervals). Errors are logged and the hold continues; the display
// keeps showing the last good content.
type RefreshFunc func() error

// Do blocks for up to msg.Hold (or indefinitely if msg.Indefinite), subject
// to three early-exit conditions:
//
//  1. interrupt.Set() was called — exits immediately at any point,
//     regardless of minHold.
//  2. msg.Indefinite is true and the hold has no natural expiry — only
//     conditions 1 and 3 can end it.
//  3. Priority pre-emption — once minHold has elapsed, if msg.Priority is
//     below interruptThreshold and the highest-priority queued item is at or
//     above it, the hold ends early.
//
// Messages at or above interruptThreshold always run their full hold and are
// never pre-empted by condition 3.
//
// If refresh is non-nil and refreshInterval is non-zero, refresh is called
// every refreshInterval during the hold.
func Do(
	msg *message.Message,
	queue PeekPrioritizer,
	interrupt *boardstate.Interrupt,
	minHold time.Duration,
	interruptThreshold int,
	refresh RefreshFunc,
	refreshInterval time.Duration,
	log *slog.Logger,
) {
	start := time.Now()
	lastRefresh := start

	for {
		elapsed := time.Since(start)
		remaining := msg.Hold - elapsed
		if remaining <= 0 && !msg.Indefinite {
			return
		}

		nextWake := pollInterval
		if !msg.Indefinite && remaining < nextWake {
			nextWake = remaining
		}
		if refresh != nil && refreshInterval > 0 {
			untilRefresh := refreshInterval - time.Since(lastRefresh)
			if untilRefresh < 0 {
				untilRefresh = 0
			}
			if untilRefresh < nextWake {
				nextWake = untilRefresh
			}
		}

		if interrupt.Wait(nextWake) {
			return
		}

		if msg.Priority < interruptThreshold && time.Since(start) >= minHold {
			if topPriority, ok := queue.PeekPriority(); ok && topPriority >= interruptThreshold {
				return
			}
		}

		if refresh != nil && refreshInterval > 0 && time.Since(lastRefresh) >= refreshInterval {
			lastRefresh = time.Now()
			if err := refresh(); err != nil && log != nil {
				log.Warn("hold refresh failed", "name", msg.Name, "error", err)
			}
		}
	}
}
