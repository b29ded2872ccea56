package boardstate

import (
	"time"

	"github.com/google/uuid"
)

// historyCapacity bounds the dispatch-history ring buffer exposed at
// GET /status.
const historyCapacity = 50

// DispatchRecord is one worker dispatch outcome, correlated with a
// generated ID so a dispatch and any webhook-triggered interrupt around the
// same time can be matched up in the logs.
type DispatchRecord struct {
	ID      string
	Name    string
	Outcome string // "sent", "duplicate", "board_locked", "dropped"
	At      time.Time
}

// RecordDispatch appends a new dispatch outcome to the ring buffer and
// returns its correlation ID.
func (s *State) RecordDispatch(name, outcome string) string {
	id := uuid.NewString()
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append(s.history, DispatchRecord{ID: id, Name: name, Outcome: outcome, At: time.Now()})
	if len(s.history) > historyCapacity {
		s.history = s.history[len(s.history)-historyCapacity:]
	}
	return id
}

// UpdateDispatchOutcome rewrites the outcome of the record identified by id,
// keeping a single entry per dispatch attempt instead of appending a second,
// disjoint-looking record once the display call resolves. A no-op if id has
// already aged out of the ring buffer.
func (s *State) UpdateDispatchOutcome(id, outcome string) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	for i := range s.history {
		if s.history[i].ID == id {
			s.history[i].Outcome = outcome
			return
		}
	}
}

// DispatchHistory returns a copy of the recorded dispatch outcomes, oldest
// first.
func (s *State) DispatchHistory() []DispatchRecord {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	out := make([]DispatchRecord, len(s.history))
	copy(out, s.history)
	return out
}
