// Package message defines the display message type and the priority queue
// that feeds the worker. Messages are produced by cron triggers (content
// package) and webhook handlers (webhook package) and consumed by exactly
// one worker.
package message

import "time"

// Data is the opaque payload carried by a Message. Its shape is dictated by
// the content descriptor format (content package) but the queue never looks
// inside it — only Priority, Hold, Timeout, Indefinite, and SupersedeTag
// drive scheduling decisions.
type Data struct {
	// Templates is the list of display templates to render, in the format
	// the Display API expects ({field: [format lines]}). Empty when an
	// integration-backed message is fully driven by the integration.
	Templates []map[string]any

	// Variables is used verbatim when Integration is empty.
	Variables map[string][][]string

	// Truncation is one of "hard", "word", "ellipsis".
	Truncation string

	// Integration, if set, names an entry in the integration registry whose
	// VariablesProvider supplies Variables at dispatch time instead of the
	// static Variables field above.
	Integration string

	// IntegrationFn names the provider function to call, default
	// "GetVariables" when empty.
	IntegrationFn string

	// RefreshInterval, if non-zero, arms a refresh closure during the hold
	// (and afterwards as the idle refresh) that re-fetches variables from
	// Integration and re-renders. Only meaningful when Integration is set.
	RefreshInterval time.Duration
}

// Message is a pending display message waiting in the priority queue.
//
// Seq is a monotonically increasing counter assigned at enqueue time, used
// to break priority ties in favour of whichever message was scheduled
// earlier.
type Message struct {
	Priority     int // 0..10, higher pops first
	Seq          uint64
	Name         string
	ScheduledAt  time.Time // monotonic-safe: only ever compared against later time.Now() readings
	Data         Data
	Hold         time.Duration
	Timeout      time.Duration
	Indefinite   bool
	SupersedeTag string
}

// Valid reports whether m has not exceeded its timeout as of now.
func (m *Message) Valid(now time.Time) bool {
	return now.Sub(m.ScheduledAt) <= m.Timeout
}

// Less implements the queue ordering from spec.md §3: higher priority first,
// ties broken by earlier Seq.
func (m *Message) Less(other *Message) bool {
	if m.Priority != other.Priority {
		return m.Priority > other.Priority
	}
	return m.Seq < other.Seq
}

// WebhookMessage is returned by an integration's WebhookHandler to enqueue a
// display message triggered by an external HTTP POST.
type WebhookMessage struct {
	Data         Data
	Priority     int
	Hold         time.Duration
	Timeout      time.Duration
	Name         string
	Indefinite   bool
	SupersedeTag string

	// Interrupt cuts the current hold short after enqueueing, subject to the
	// priority gate in spec.md §4.F.
	Interrupt bool

	// InterruptOnly sets the interrupt signal (subject to the same gate) but
	// does not enqueue anything — used by stop/clear webhook events.
	InterruptOnly bool
}
