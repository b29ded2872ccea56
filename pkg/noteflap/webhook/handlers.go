package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/duskline/noteflap/pkg/noteflap/integration"
	"github.com/duskline/noteflap/pkg/noteflap/message"
)

// handleWebhook implements POST /webhook/<integration>.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	name, ok := integrationName(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if !s.cfg.Integrations.Known(name) {
		writeError(w, http.StatusNotFound, "unknown integration: "+name)
		return
	}

	payload, contentType, err := readPayload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := s.cfg.Integrations.Get(name)
	if err != nil {
		s.log.Error("integration unavailable", "integration", name, "error", err)
		writeError(w, http.StatusInternalServerError, "integration unavailable")
		return
	}
	handler, ok := inst.(integration.WebhookHandler)
	if !ok {
		writeError(w, http.StatusNotFound, "integration does not accept webhooks: "+name)
		return
	}

	wm, err := handler.HandleWebhook(payload, contentType)
	if err != nil {
		s.log.Error("webhook handler failed", "integration", name, "error", err)
		writeError(w, http.StatusInternalServerError, "webhook handler failed")
		return
	}
	if wm == nil {
		writeText(w, http.StatusOK, "Discarded")
		return
	}

	if wm.InterruptOnly {
		s.applyInterruptGate()
		writeText(w, http.StatusOK, "Interrupted")
		return
	}

	s.cfg.Queue.Enqueue(&message.Message{
		Priority:     wm.Priority,
		Name:         wm.Name,
		ScheduledAt:  time.Now(),
		Data:         wm.Data,
		Hold:         wm.Hold,
		Timeout:      wm.Timeout,
		Indefinite:   wm.Indefinite,
		SupersedeTag: wm.SupersedeTag,
	})
	if wm.Interrupt {
		s.applyInterruptGate()
	}
	writeText(w, http.StatusOK, "Enqueued")
}

// applyInterruptGate sets the interrupt signal only if the current hold is
// idle or below the pre-emption threshold, matching the worker's own gate
// so a webhook can never cut short a high-priority hold.
func (s *Server) applyInterruptGate() {
	hold := s.cfg.State.CurrentHold()
	if !hold.Active || hold.Priority < interruptPriorityThreshold {
		s.cfg.State.Interrupt().Set()
	}
}

// integrationName validates the path shape (exactly two segments after
// stripping slashes, first "webhook") and returns the second segment.
func integrationName(path string) (string, bool) {
	trimmed := strings.Trim(path, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] != "webhook" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// readPayload extracts the JSON body from a request, unwrapping a
// multipart/form-data "payload" field when present, capped at
// maxBodyBytes.
func readPayload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", errors.New("missing or invalid Content-Type")
	}

	switch mediaType {
	case "application/json":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", errors.New("body too large or unreadable")
		}
		return body, "application/json", nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, "", errors.New("malformed multipart body")
		}
		payload := r.FormValue("payload")
		if payload == "" {
			return nil, "", errors.New("missing payload field")
		}
		return []byte(payload), "application/json", nil
	default:
		return nil, "", errors.New("unsupported content type: " + mediaType)
	}
}

// statusResponse is the GET /status diagnostics payload.
type statusResponse struct {
	Hold    holdStatus       `json:"hold"`
	Queue   []queuedMessage  `json:"queue"`
	History []dispatchRecord `json:"dispatchHistory"`
}

type holdStatus struct {
	Active   bool   `json:"active"`
	Tag      string `json:"tag,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

type queuedMessage struct {
	Name        string    `json:"name"`
	Priority    int       `json:"priority"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

type dispatchRecord struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Outcome string    `json:"outcome"`
	At      time.Time `json:"at"`
}

// handleStatus implements GET /status: read-only diagnostics, no secret
// required since nothing here actuates the board.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	hold := s.cfg.State.CurrentHold()
	snapshot := s.cfg.Queue.Snapshot()
	queue := make([]queuedMessage, len(snapshot))
	for i, m := range snapshot {
		queue[i] = queuedMessage{Name: m.Name, Priority: m.Priority, ScheduledAt: m.ScheduledAt}
	}

	history := s.cfg.State.DispatchHistory()
	records := make([]dispatchRecord, len(history))
	for i, h := range history {
		records[i] = dispatchRecord{ID: h.ID, Name: h.Name, Outcome: h.Outcome, At: h.At}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Hold:    holdStatus{Active: hold.Active, Tag: hold.Tag, Priority: hold.Priority},
		Queue:   queue,
		History: records,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}
