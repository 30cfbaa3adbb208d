package flow

import "testing"

func TestIssueMonotonic(t *testing.T) {
	var s Sequencer
	prev := s.Active()
	for i := 0; i < 100; i++ {
		id := s.Issue()
		if id <= prev {
			t.Fatalf("Issue returned %d after %d; ids must strictly increase", id, prev)
		}
		prev = id
	}
}

func TestCurrent(t *testing.T) {
	var s Sequencer
	first := s.Issue()
	if !s.Current(first) {
		t.Error("freshly issued id should be current")
	}

	second := s.Issue()
	if s.Current(first) {
		t.Error("superseded id must not be current")
	}
	if !s.Current(second) {
		t.Error("latest id should be current")
	}
	if s.Active() != second {
		t.Errorf("Active = %d, want %d", s.Active(), second)
	}
}
