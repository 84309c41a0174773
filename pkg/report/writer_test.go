package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/config"
	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/perf"
)

func TestRenderName(t *testing.T) {
	tags := Tags{
		Date:  time.Date(2024, 7, 9, 23, 59, 0, 0, time.UTC),
		RunID: "r1",
		Suite: "integration",
	}
	tests := []struct {
		tmpl string
		want string
	}{
		{"integration-test-report-{date}.json", "integration-test-report-2024-07-09.json"},
		{"{suite}-{run}.json", "integration-r1.json"},
		{"plain.json", "plain.json"},
		{"{unknown}-{date}.json", "{unknown}-2024-07-09.json"},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			got, err := RenderName(tt.tmpl, tags)
			if err != nil {
				t.Fatalf("RenderName: %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderName(%q) = %q, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestRenderName_Unclosed(t *testing.T) {
	if _, err := RenderName("report-{date.json", Tags{}); err == nil {
		t.Error("expected error for an unclosed tag")
	}
}

func testOutput(t *testing.T) config.Output {
	out := config.Default().Output
	out.Dir = t.TempDir()
	return out
}

func TestWriter_WriteReport(t *testing.T) {
	out := testOutput(t)
	w := NewWriter(out, "integration", nil)

	set := core.NewResultSet()
	set.Put(core.TestResult{Name: "T1", Status: core.StatusPassed, Duration: 10})
	r := Build(set, BuilderConfig{RunID: "run-1", Now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})

	rel, err := w.WriteReport(r)
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if rel != "reports/integration-test-report-2024-01-02.json" {
		t.Errorf("rel = %q", rel)
	}

	data, err := os.ReadFile(filepath.Join(out.Dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded struct {
		RunID   string  `json:"runId"`
		Summary Summary `json:"summary"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.Summary.Passed != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("report should be indented")
	}
}

func TestWriter_WritePerformance(t *testing.T) {
	out := testOutput(t)
	w := NewWriter(out, "perf", nil)

	m := perf.NewMonitor()
	fr := perf.NewFileReport("run-2", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), nil, m)
	rel, err := w.WritePerformance(fr)
	if err != nil {
		t.Fatalf("WritePerformance: %v", err)
	}
	if rel != "reports/performance-report-2024-02-03.json" {
		t.Errorf("rel = %q", rel)
	}
	if _, err := os.Stat(filepath.Join(out.Dir, filepath.FromSlash(rel))); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestWriter_Store(t *testing.T) {
	out := testOutput(t)
	w := NewWriter(out, "", nil)
	if w.Store().Root() != out.Dir {
		t.Errorf("Root() = %q, want %q", w.Store().Root(), out.Dir)
	}
}
