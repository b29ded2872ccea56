// Package display defines the Display abstraction the worker sends rendered
// content to. The wire protocol of any concrete display (HTTP calls,
// character encoding, rate limiting) is an external collaborator spec.md
// keeps out of core scope; this package only defines the interface and the
// distinguished error outcomes the worker must branch on.
package display

import "errors"

// ErrDuplicate is returned by Set when the requested content is already
// showing on the board. The worker treats this as success for hold purposes
// — content is already on screen, so the hold still runs to keep
// lower-priority messages from pre-empting it.
var ErrDuplicate = errors.New("display: duplicate content")

// ErrBoardLocked is returned by Set when the board is rate-limited or in a
// quiet-hours window. The worker retries after a fixed backoff and
// re-enqueues the message if it has not exceeded its timeout.
var ErrBoardLocked = errors.New("display: board locked")

// Template is one named region of the display and its format lines, in the
// shape the concrete Display implementation expects.
type Template = map[string]any

// Variables maps a template field name to the lines of text to render into
// it.
type Variables = map[string][][]string

// Display is the interface the worker depends on. A concrete implementation
// (an HTTP client against a real split-flap display API, for example) lives
// outside this package.
type Display interface {
	// Set renders templates with variables (truncating per truncation, one
	// of "hard", "word", "ellipsis") and pushes the result to the board. It
	// returns ErrDuplicate or ErrBoardLocked for those distinguished
	// outcomes, or any other error for a genuine send failure.
	Set(templates []Template, variables Variables, truncation string) error

	// Get returns the board's current state. The scheduler and the serve
	// command's startup banner do not call it.
	Get() (Variables, error)
}
