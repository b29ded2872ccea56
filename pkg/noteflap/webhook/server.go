// Package webhook implements the HTTP surface: POST /webhook/<integration>
// lets external systems inject a display message or cut a hold short, and
// GET /status exposes read-only diagnostics built from state the rest of
// the scheduler already tracks.
package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/duskline/noteflap/pkg/noteflap/boardstate"
	"github.com/duskline/noteflap/pkg/noteflap/integration"
	"github.com/duskline/noteflap/pkg/noteflap/message"
)

// interruptPriorityThreshold mirrors the worker's pre-emption gate: a
// webhook-triggered interrupt is only honoured against a hold below this
// priority, or no hold at all.
const interruptPriorityThreshold = 8

// maxBodyBytes caps the size of an inbound webhook body.
const maxBodyBytes = 64 * 1024

// Config carries the webhook server's external dependencies.
type Config struct {
	Queue        *message.Queue
	State        *boardstate.State
	Integrations *integration.Registry
	Secret       string
	Bind         string
	Port         int
	Logger       *slog.Logger
}

// Server is the scheduler's HTTP surface.
type Server struct {
	cfg    Config
	log    *slog.Logger
	server *http.Server
}

// New returns a Server ready to Start.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg, log: cfg.Logger.With("component", "webhook")}
}

// Start begins serving in a background goroutine and returns immediately;
// a failure to bind the listener is logged asynchronously rather than
// returned, matching the teacher's webui.Server.Start.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/", s.recoverPanic(s.requireSecret(s.handleWebhook)))
	mux.HandleFunc("/status", s.recoverPanic(s.handleStatus))

	addr := bindAddr(s.cfg.Bind, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info("webhook server starting", "addr", addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("webhook server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down, waiting at most the context's
// deadline for in-flight requests to finish.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.log.Info("webhook server stopping")
	return s.server.Shutdown(ctx)
}

func bindAddr(bind string, port int) string {
	if bind == "" {
		bind = "0.0.0.0"
	}
	return bind + ":" + strconv.Itoa(port)
}
