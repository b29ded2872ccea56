package boardstate

import "testing"

func TestRecordDispatchReturnsUniqueCorrelationIDs(t *testing.T) {
	t.Parallel()

	s := New()
	a := s.RecordDispatch("greeting", "sent")
	b := s.RecordDispatch("greeting", "sent")
	if a == "" || b == "" || a == b {
		t.Fatalf("expected distinct non-empty correlation IDs, got %q and %q", a, b)
	}

	hist := s.DispatchHistory()
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
}

func TestUpdateDispatchOutcomeRewritesExistingRecord(t *testing.T) {
	t.Parallel()

	s := New()
	id := s.RecordDispatch("greeting", "sent")
	s.UpdateDispatchOutcome(id, "duplicate")

	hist := s.DispatchHistory()
	if len(hist) != 1 {
		t.Fatalf("expected a single record, got %d", len(hist))
	}
	if hist[0].Outcome != "duplicate" {
		t.Fatalf("expected outcome rewritten to duplicate, got %q", hist[0].Outcome)
	}
}

func TestUpdateDispatchOutcomeIgnoresUnknownID(t *testing.T) {
	t.Parallel()

	s := New()
	s.RecordDispatch("greeting", "sent")
	s.UpdateDispatchOutcome("not-a-real-id", "dropped")

	hist := s.DispatchHistory()
	if len(hist) != 1 || hist[0].Outcome != "sent" {
		t.Fatalf("expected the original record untouched, got %+v", hist)
	}
}

func TestDispatchHistoryCapsAtCapacity(t *testing.T) {
	t.Parallel()

	s := New()
	for i := 0; i < historyCapacity+10; i++ {
		s.RecordDispatch("m", "sent")
	}
	hist := s.DispatchHistory()
	if len(hist) != historyCapacity {
		t.Fatalf("expected history capped at %d, got %d", historyCapacity, len(hist))
	}
}
