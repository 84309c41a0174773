package core

import (
	"testing"
	"time"
)

func TestResultSet_InsertionOrder(t *testing.T) {
	s := NewResultSet()
	s.Put(TestResult{Name: "b", Status: StatusPassed})
	s.Put(TestResult{Name: "a", Status: StatusPassed})
	s.Put(TestResult{Name: "c", Status: StatusFailed})

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, want := range []string{"b", "a", "c"} {
		if all[i].Name != want {
			t.Errorf("All()[%d] = %q, want %q", i, all[i].Name, want)
		}
	}
}

func TestResultSet_LastWriteWins(t *testing.T) {
	s := NewResultSet()
	s.Put(TestResult{Name: "first", Status: StatusPassed})
	s.Put(TestResult{Name: "T1", Status: StatusFailed, Error: "boom"})
	s.Put(TestResult{Name: "T1", Status: StatusPassed, Duration: 42, Timestamp: time.Now()})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	got, ok := s.Get("T1")
	if !ok {
		t.Fatal("T1 missing")
	}
	if got.Status != StatusPassed || got.Duration != 42 || got.Error != "" {
		t.Errorf("T1 = %+v, want latest write", got)
	}
	if s.All()[1].Name != "T1" {
		t.Error("overwrite should keep original position")
	}
}

func TestResultSet_HasFailures(t *testing.T) {
	s := NewResultSet()
	if s.HasFailures() {
		t.Error("empty set has no failures")
	}
	s.Put(TestResult{Name: "ok", Status: StatusPassed})
	if s.HasFailures() {
		t.Error("all passed should have no failures")
	}
	s.Put(TestResult{Name: "bad", Status: StatusFailed})
	if !s.HasFailures() {
		t.Error("expected failures")
	}
}

func TestResultSet_Nil(t *testing.T) {
	var s *ResultSet
	if s.Len() != 0 || s.All() != nil {
		t.Error("nil ResultSet should behave as empty")
	}
}
