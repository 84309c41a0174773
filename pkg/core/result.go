package core

import (
	"time"
)

// TestResult captures the outcome of one test case
type TestResult struct {
	Name      string     `json:"name"`
	Status    TestStatus `json:"status"`
	Duration  int64      `json:"duration"` // milliseconds
	Error     string     `json:"error,omitempty"`
	Category  string     `json:"errorCategory,omitempty"`
	Timestamp time.Time  `json:"timestamp"`

	// Debug Artifacts
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ResultSet is an insertion-ordered mapping of test name to result.
// Putting an existing name replaces the result in place (last write wins,
// original position kept).
type ResultSet struct {
	order  []string
	byName map[string]TestResult
}

// NewResultSet creates an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{byName: make(map[string]TestResult)}
}

// Put stores r under r.Name.
func (s *ResultSet) Put(r TestResult) {
	if _, exists := s.byName[r.Name]; !exists {
		s.order = append(s.order, r.Name)
	}
	s.byName[r.Name] = r
}

// Get returns the result for name.
func (s *ResultSet) Get(name string) (TestResult, bool) {
	r, ok := s.byName[name]
	return r, ok
}

// Len returns the number of distinct test names.
func (s *ResultSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// All returns results in insertion order.
func (s *ResultSet) All() []TestResult {
	if s == nil {
		return nil
	}
	out := make([]TestResult, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// HasFailures returns true if any result is FAILED.
func (s *ResultSet) HasFailures() bool {
	for _, r := range s.All() {
		if !r.Status.IsSuccess() {
			return true
		}
	}
	return false
}
