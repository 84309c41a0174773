package perf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// stepClock advances by step on every call.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

// fixedDurations returns a clock where each MeasureActionTime call sees the
// next duration from ds. Each measurement reads the clock three times.
func fixedDurations(ds ...time.Duration) func() time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var calls int
	return func() time.Time {
		i := calls / 3
		phase := calls % 3
		calls++
		start := base.Add(time.Duration(i) * time.Hour)
		if phase == 0 || i >= len(ds) {
			return start
		}
		return start.Add(ds[i])
	}
}

func TestMeasureActionTime_Success(t *testing.T) {
	m := NewMonitor(WithClock(fixedDurations(100 * time.Millisecond)))

	d := m.MeasureActionTime(context.Background(), "tap", func(context.Context) error { return nil })
	if d != 100*time.Millisecond {
		t.Errorf("duration = %v, want 100ms", d)
	}
	rec, ok := m.Record("tap")
	if !ok {
		t.Fatal("expected record for tap")
	}
	if !rec.Success || rec.Error != "" || rec.DurationMs != 100 {
		t.Errorf("record = %+v", rec)
	}
}

func TestMeasureActionTime_FailureIsRecorded(t *testing.T) {
	m := NewMonitor(WithClock(fixedDurations(30 * time.Millisecond)))

	d := m.MeasureActionTime(context.Background(), "launch", func(context.Context) error {
		return errors.New("app crashed")
	})
	if d != 30*time.Millisecond {
		t.Errorf("duration = %v, want 30ms", d)
	}
	rec, _ := m.Record("launch")
	if rec.Success {
		t.Error("expected failed record")
	}
	if rec.Error != "app crashed" {
		t.Errorf("Error = %q, want %q", rec.Error, "app crashed")
	}
}

func TestMeasureActionTime_PanicIsRecorded(t *testing.T) {
	m := NewMonitor()

	m.MeasureActionTime(context.Background(), "explode", func(context.Context) error {
		panic("kaboom")
	})
	rec, ok := m.Record("explode")
	if !ok {
		t.Fatal("expected record after panic")
	}
	if rec.Success || !strings.Contains(rec.Error, "kaboom") {
		t.Errorf("record = %+v", rec)
	}
	if rec.DurationMs < 0 {
		t.Errorf("DurationMs = %d, want >= 0", rec.DurationMs)
	}
}

func TestMeasureActionTime_NonMonotonicClock(t *testing.T) {
	clock := &stepClock{t: time.Now(), step: -time.Second}
	m := NewMonitor(WithClock(clock.now))

	d := m.MeasureActionTime(context.Background(), "x", func(context.Context) error { return nil })
	if d != 0 {
		t.Errorf("duration = %v, want 0 for a clock going backwards", d)
	}
	rec, _ := m.Record("x")
	if rec.DurationMs != 0 {
		t.Errorf("DurationMs = %d, want 0", rec.DurationMs)
	}
}

func TestMeasureActionTime_LastWriteWins(t *testing.T) {
	m := NewMonitor(WithClock(fixedDurations(10*time.Millisecond, 20*time.Millisecond, 30*time.Millisecond)))
	ctx := context.Background()

	m.MeasureActionTime(ctx, "a", func(context.Context) error { return nil })
	m.MeasureActionTime(ctx, "b", func(context.Context) error { return nil })
	m.MeasureActionTime(ctx, "a", func(context.Context) error { return errors.New("second run") })

	records := m.Records()
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Name != "a" || records[1].Name != "b" {
		t.Errorf("order = [%s %s], want [a b]", records[0].Name, records[1].Name)
	}
	if records[0].DurationMs != 30 || records[0].Success {
		t.Errorf("a = %+v, want the latest (30ms, failed)", records[0])
	}
}

func TestReport_EmptyThenOne(t *testing.T) {
	m := NewMonitor(WithClock(fixedDurations(100 * time.Millisecond)))

	empty := m.Report()
	if empty.Stats != (Stats{}) {
		t.Errorf("empty stats = %+v, want zero", empty.Stats)
	}

	m.MeasureActionTime(context.Background(), "one", func(context.Context) error { return nil })
	r := m.Report()
	if r.Stats.SuccessRate != 100 {
		t.Errorf("SuccessRate = %d, want 100", r.Stats.SuccessRate)
	}
	if r.Stats.AverageMs != 100 {
		t.Errorf("AverageMs = %d, want 100", r.Stats.AverageMs)
	}
	if r.Stats.Count != 1 || r.Stats.MinMs != 100 || r.Stats.MaxMs != 100 {
		t.Errorf("stats = %+v", r.Stats)
	}
}

func TestReport_Idempotent(t *testing.T) {
	m := NewMonitor(WithClock(fixedDurations(10*time.Millisecond, 40*time.Millisecond)))
	ctx := context.Background()
	m.MeasureActionTime(ctx, "a", func(context.Context) error { return nil })
	m.MeasureActionTime(ctx, "b", func(context.Context) error { return errors.New("x") })

	first := m.Report()
	second := m.Report()
	if first.Stats != second.Stats {
		t.Errorf("reports differ: %+v vs %+v", first.Stats, second.Stats)
	}
	if len(m.Records()) != 2 {
		t.Errorf("Report mutated records")
	}
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name    string
		records []MetricRecord
		want    Stats
	}{
		{"empty", nil, Stats{}},
		{
			"mixed",
			[]MetricRecord{
				{Name: "a", DurationMs: 100, Success: true},
				{Name: "b", DurationMs: 300, Success: false},
				{Name: "c", DurationMs: 201, Success: true},
			},
			Stats{Count: 3, Successful: 2, AverageMs: 200, MinMs: 100, MaxMs: 300, SuccessRate: 67},
		},
		{
			"all failed",
			[]MetricRecord{{Name: "a", DurationMs: 5}},
			Stats{Count: 1, AverageMs: 5, MinMs: 5, MaxMs: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStats(tt.records); got != tt.want {
				t.Errorf("ComputeStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	r := Report{
		Metrics: []MetricRecord{
			{Name: "Home", DurationMs: 120, Success: true},
			{Name: "Launch", DurationMs: 900, Error: "timeout"},
		},
	}
	r.Stats = ComputeStats(r.Metrics)

	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"✓ Home: 120ms",
		"✗ Launch: 900ms (timeout)",
		"Average:      510ms",
		"Fastest:      120ms",
		"Slowest:      900ms",
		"Success rate: 50%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Report{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "No metrics recorded") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestReport_MarshalJSON_KeepsOrder(t *testing.T) {
	r := Report{Metrics: []MetricRecord{
		{Name: "zeta", DurationMs: 1, Success: true},
		{Name: "alpha", DurationMs: 2, Success: true},
	}}
	r.Stats = ComputeStats(r.Metrics)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	raw := string(data)
	if strings.Index(raw, `"zeta"`) > strings.Index(raw, `"alpha"`) {
		t.Errorf("metrics out of order: %s", raw)
	}

	var decoded struct {
		Metrics map[string]MetricRecord `json:"metrics"`
		Stats   Stats                   `json:"stats"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Metrics["alpha"].DurationMs != 2 || decoded.Stats.Count != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestMonitor_Histogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMonitor(WithRegistry(reg))
	ctx := context.Background()
	m.MeasureActionTime(ctx, "ok", func(context.Context) error { return nil })
	m.MeasureActionTime(ctx, "bad", func(context.Context) error { return errors.New("x") })

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() != "droid_harness_action_duration_seconds" {
			continue
		}
		found = true
		if n := len(mf.GetMetric()); n != 2 {
			t.Errorf("series = %d, want 2", n)
		}
	}
	if !found {
		t.Error("histogram not registered")
	}
}

func TestMonitor_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewMonitor(WithRegistry(reg))
	b := NewMonitor(WithRegistry(reg))
	if a.durations != b.durations {
		t.Error("second monitor should reuse the registered histogram")
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewMonitor()
	m.MeasureActionTime(context.Background(), "tap", func(context.Context) error { return nil })

	path := filepath.Join(t.TempDir(), "harness.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `droid_harness_action_duration_seconds_count{action="tap",status="success"} 1`) {
		t.Errorf("textfile missing series:\n%s", data)
	}
}
