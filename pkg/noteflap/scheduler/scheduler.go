// Package scheduler wires the priority queue, hold controller, worker,
// cron registrar, webhook server, and shared board state into the single
// long-running daemon. Nothing here is a package-level global: every piece
// of shared state is an explicit field of a Scheduler value passed by
// reference, per spec.md's Design Note 9.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/duskline/noteflap/pkg/noteflap/boardstate"
	"github.com/duskline/noteflap/pkg/noteflap/content"
	"github.com/duskline/noteflap/pkg/noteflap/display"
	"github.com/duskline/noteflap/pkg/noteflap/integration"
	"github.com/duskline/noteflap/pkg/noteflap/message"
	"github.com/duskline/noteflap/pkg/noteflap/webhook"
	"github.com/duskline/noteflap/pkg/noteflap/worker"
)

// shutdownGrace bounds how long Stop waits for the cron engine's running
// jobs and the webhook server's in-flight requests to finish.
const shutdownGrace = 10 * time.Second

// Config carries everything needed to build a Scheduler.
type Config struct {
	Display      display.Display
	Integrations map[string]integration.Factory

	// MinHold is the floor every hold respects before priority pre-emption
	// is considered, regardless of the message's own Hold duration.
	MinHold time.Duration

	UserContentDir    string
	ContribContentDir string
	PublicMode        bool
	ContribEnabled    map[string]bool
	ScheduleOverride  content.OverrideLookup

	WebhookBind   string
	WebhookPort   int
	WebhookSecret string

	Logger *slog.Logger
}

// Scheduler is the assembled daemon: every component from spec.md's
// [MODULE A]-[MODULE H] plus the webhook server, composed by reference.
type Scheduler struct {
	cfg Config
	log *slog.Logger

	queue        *message.Queue
	state        *boardstate.State
	integrations *integration.Registry

	cron      *cron.Cron
	registrar *content.Registrar

	worker *worker.Worker
	webhk  *webhook.Server

	cancel context.CancelFunc
}

// New assembles a Scheduler from cfg. It does not start anything.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	queue := message.NewQueue()
	state := boardstate.New()
	integrations := integration.NewRegistry(cfg.Integrations)

	cronEngine := cron.New()
	registrar := content.New(cronEngine, queue, cfg.ScheduleOverride, cfg.Logger)

	w := worker.New(worker.Config{
		Queue:        queue,
		State:        state,
		Display:      cfg.Display,
		Integrations: integrations,
		MinHold:      cfg.MinHold,
		Logger:       cfg.Logger,
	})

	webhk := webhook.New(webhook.Config{
		Queue:        queue,
		State:        state,
		Integrations: integrations,
		Secret:       cfg.WebhookSecret,
		Bind:         cfg.WebhookBind,
		Port:         cfg.WebhookPort,
		Logger:       cfg.Logger,
	})

	return &Scheduler{
		cfg:          cfg,
		log:          cfg.Logger.With("component", "scheduler"),
		queue:        queue,
		state:        state,
		integrations: integrations,
		cron:         cronEngine,
		registrar:    registrar,
		worker:       w,
		webhk:        webhk,
	}
}

// Queue, State, Integrations, and Registrar expose the assembled
// dependencies for callers that inspect them outside the normal request
// path, such as tests.
func (s *Scheduler) Queue() *message.Queue              { return s.queue }
func (s *Scheduler) State() *boardstate.State           { return s.state }
func (s *Scheduler) Integrations() *integration.Registry { return s.integrations }
func (s *Scheduler) Registrar() *content.Registrar       { return s.registrar }

// LoadContent loads and registers every content descriptor file under the
// configured content directories, per spec.md §4.E. Call this before Start,
// and again on a SIGHUP-style reload if the daemon grows one.
func (s *Scheduler) LoadContent() error {
	if err := s.registrar.LoadAll(s.cfg.UserContentDir, s.cfg.ContribContentDir, s.cfg.PublicMode, s.cfg.ContribEnabled); err != nil {
		return fmt.Errorf("loading content descriptors: %w", err)
	}
	return nil
}

// Start runs the cron engine, the single worker goroutine, and the webhook
// server, returning immediately once each is launched; the worker and
// webhook listener run in their own goroutines until ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.cron.Start()
	go s.worker.Run(runCtx)

	if err := s.webhk.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("starting webhook server: %w", err)
	}

	s.log.Info("scheduler started", "cron_entries", len(s.cron.Entries()))
	return nil
}

// Stop shuts every component down, waiting up to shutdownGrace for the
// cron engine's running jobs and the webhook server's in-flight requests.
// Messages still queued or mid-hold are not recovered, per spec.md §5's
// cancellation model.
func (s *Scheduler) Stop() {
	s.log.Info("scheduler stopping")

	cronDone := s.cron.Stop()

	shutdownCtx, release := context.WithTimeout(context.Background(), shutdownGrace)
	defer release()
	if err := s.webhk.Stop(shutdownCtx); err != nil {
		s.log.Warn("webhook server shutdown error", "error", err)
	}

	select {
	case <-cronDone.Done():
	case <-time.After(shutdownGrace):
		s.log.Warn("cron engine stop timed out")
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("scheduler stopped")
}
