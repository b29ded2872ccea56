// Package worker implements the single-writer dispatch loop: it pops the
// highest-priority valid message, sends it to the display, and holds it
// there before pulling the next one, ensuring the physical display is never
// driven concurrently.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/duskline/noteflap/pkg/noteflap/boardstate"
	"github.com/duskline/noteflap/pkg/noteflap/display"
	"github.com/duskline/noteflap/pkg/noteflap/hold"
	"github.com/duskline/noteflap/pkg/noteflap/integration"
	"github.com/duskline/noteflap/pkg/noteflap/message"
)

// lockRetryDelay is how long the worker waits before retrying a
// board-locked send.
const lockRetryDelay = 60 * time.Second

// minRefreshInterval is the smallest refresh_interval a content descriptor
// may request, preventing an integration from being hammered.
const minRefreshInterval = 30 * time.Second

// interruptPriorityThreshold is the priority at and above which a queued
// item is allowed to pre-empt a running hold. Messages at or above this
// priority are themselves never pre-empted.
const interruptPriorityThreshold = 8

// Config carries the worker's external dependencies.
type Config struct {
	Queue        *message.Queue
	State        *boardstate.State
	Display      display.Display
	Integrations *integration.Registry
	MinHold      time.Duration
	Logger       *slog.Logger
}

// Worker is the single consumer of the message queue.
type Worker struct {
	cfg Config

	// idleRefresh is the refresh closure transferred from the last held
	// message once its hold expires, so the display keeps updating while
	// the queue is empty. Cleared the instant any new message is
	// successfully dispatched (the new message's own refresh, if any,
	// replaces it) — no stack, per SPEC_FULL.md's Open Question decision.
	idleRefresh         hold.RefreshFunc
	idleRefreshInterval time.Duration
	idleLastRefresh     time.Time
}

// New returns a Worker ready to Run.
func New(cfg Config) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Worker{cfg: cfg}
}

// Run drives the dispatch loop until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log := w.cfg.Logger.With("component", "worker")
	for {
		if ctx.Err() != nil {
			return
		}
		w.serviceIdleRefresh(log)

		msg := w.cfg.Queue.PopValid(log)
		if msg == nil {
			continue
		}

		if !w.dispatch(ctx, msg, log) {
			continue
		}

		w.idleRefresh = nil
		w.idleRefreshInterval = 0

		refresh, refreshInterval := w.refreshFor(msg)

		w.cfg.State.SetHold(msg.SupersedeTag, msg.Priority)
		hold.Do(msg, w.cfg.Queue, w.cfg.State.Interrupt(), w.cfg.MinHold, interruptPriorityThreshold, refresh, refreshInterval, log)
		w.cfg.State.ClearHold()

		if refresh != nil && refreshInterval > 0 {
			w.idleRefresh = refresh
			w.idleRefreshInterval = refreshInterval
			w.idleLastRefresh = time.Time{}
		}
	}
}

// serviceIdleRefresh re-fetches and re-renders the last integration
// message's content while the queue is empty, at idleRefreshInterval.
func (w *Worker) serviceIdleRefresh(log *slog.Logger) {
	if w.idleRefresh == nil || w.idleRefreshInterval <= 0 {
		return
	}
	if !w.idleLastRefresh.IsZero() && time.Since(w.idleLastRefresh) < w.idleRefreshInterval {
		return
	}
	w.idleLastRefresh = time.Now()
	if err := w.idleRefresh(); err != nil {
		log.Warn("idle refresh failed", "error", err)
	}
}

// dispatch sends msg to the display, handling the distinguished outcomes.
// Returns true if the message was (or is already) showing and a hold should
// follow; false if the worker should move straight on to the next message.
func (w *Worker) dispatch(ctx context.Context, msg *message.Message, log *slog.Logger) bool {
	variables, templates, truncation, err := w.resolveContent(msg)
	if err != nil {
		if errors.Is(err, integration.ErrDataUnavailable) {
			w.cfg.State.RecordDispatch(msg.Name, "dropped")
			return false // expected empty state, skip silently
		}
		log.Error("resolving content failed", "name", msg.Name, "error", err)
		w.cfg.State.RecordDispatch(msg.Name, "dropped")
		return false
	}

	correlationID := w.cfg.State.RecordDispatch(msg.Name, "sent")
	log.Info("dispatching message",
		"name", msg.Name,
		"priority", msg.Priority,
		"scheduled_at", msg.ScheduledAt,
		"correlation_id", correlationID,
	)

	err = w.cfg.Display.Set(templates, variables, truncation)
	switch {
	case err == nil:
		return true
	case errors.Is(err, display.ErrDuplicate):
		log.Info("duplicate content, already on display", "name", msg.Name, "correlation_id", correlationID)
		w.cfg.State.UpdateDispatchOutcome(correlationID, "duplicate")
		return true // still hold: content is showing, must not be pre-empted
	case errors.Is(err, display.ErrBoardLocked):
		log.Warn("board locked, retrying", "name", msg.Name, "retry_in", lockRetryDelay, "correlation_id", correlationID)
		w.cfg.State.UpdateDispatchOutcome(correlationID, "board_locked")
		select {
		case <-time.After(lockRetryDelay):
		case <-ctx.Done():
			return false
		}
		if msg.Valid(time.Now()) {
			w.cfg.Queue.Enqueue(msg)
		}
		return false
	default:
		log.Error("sending to display failed", "name", msg.Name, "error", err, "correlation_id", correlationID)
		w.cfg.State.UpdateDispatchOutcome(correlationID, "dropped")
		return false
	}
}

// resolveContent resolves msg's variables, fetching them from an
// integration's VariablesProvider when one is configured.
func (w *Worker) resolveContent(msg *message.Message) (display.Variables, []display.Template, string, error) {
	truncation := msg.Data.Truncation
	if truncation == "" {
		truncation = "hard"
	}

	if msg.Data.Integration == "" {
		return msg.Data.Variables, msg.Data.Templates, truncation, nil
	}

	vars, err := w.fetchVariables(msg.Data.Integration, msg.Data.IntegrationFn)
	if err != nil {
		return nil, nil, "", err
	}
	return vars, msg.Data.Templates, truncation, nil
}

func (w *Worker) fetchVariables(name, fn string) (display.Variables, error) {
	inst, err := w.cfg.Integrations.Get(name)
	if err != nil {
		return nil, err
	}
	provider, ok := inst.(integration.VariablesProvider)
	if !ok {
		return nil, errors.New("integration " + name + " does not provide variables")
	}
	if fn == "" {
		fn = "GetVariables"
	}
	return provider.GetVariables(fn)
}

// refreshFor builds the refresh closure for msg, if it is integration-backed
// and requests a positive refresh interval. An interval below
// minRefreshInterval is raised to minRefreshInterval.
func (w *Worker) refreshFor(msg *message.Message) (hold.RefreshFunc, time.Duration) {
	interval := msg.Data.RefreshInterval
	if interval <= 0 || msg.Data.Integration == "" {
		return nil, 0
	}
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}

	integrationName := msg.Data.Integration
	fn := msg.Data.IntegrationFn
	templates := msg.Data.Templates
	truncation := msg.Data.Truncation
	if truncation == "" {
		truncation = "hard"
	}

	return func() error {
		vars, err := w.fetchVariables(integrationName, fn)
		if err != nil {
			if errors.Is(err, integration.ErrDataUnavailable) {
				return nil // no data — keep showing current content
			}
			return err
		}
		err = w.cfg.Display.Set(templates, vars, truncation)
		if err != nil && errors.Is(err, display.ErrDuplicate) {
			return nil // content unchanged — keep showing current
		}
		return err
	}, interval
}
