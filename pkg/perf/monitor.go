// Package perf times device actions and aggregates the results.
//
// A Monitor keeps one MetricRecord per action name (a repeated name
// overwrites the earlier record in place) and derives statistics on demand.
// Durations are also observed into a Prometheus histogram so a run can be
// exported as a node-exporter textfile.
package perf

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

// MetricRecord is the outcome of one timed action.
type MetricRecord struct {
	Name       string    `json:"name"`
	DurationMs int64     `json:"duration"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stats summarizes every recorded metric. All fields are zero when
// nothing has been recorded.
type Stats struct {
	Count       int   `json:"count"`
	Successful  int   `json:"successful"`
	AverageMs   int64 `json:"averageDuration"`
	MinMs       int64 `json:"minDuration"`
	MaxMs       int64 `json:"maxDuration"`
	SuccessRate int   `json:"successRate"`
}

// Report is a point-in-time view of the monitor.
type Report struct {
	Metrics []MetricRecord `json:"-"`
	Stats   Stats          `json:"stats"`
}

// MarshalJSON encodes metrics as an object keyed by action name, in record order.
func (r Report) MarshalJSON() ([]byte, error) {
	metrics, err := marshalMetrics(r.Metrics)
	if err != nil {
		return nil, err
	}
	return core.MarshalOrdered(
		[]string{"metrics", "stats"},
		[]interface{}{rawJSON(metrics), r.Stats},
	)
}

// Monitor records action timings. Safe for concurrent use, although the
// harness drives it from a single goroutine.
type Monitor struct {
	mu      sync.Mutex
	order   []string
	records map[string]MetricRecord

	log       *logger.Logger
	registry  *prometheus.Registry
	durations *prometheus.HistogramVec
	now       func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the monitor's logger.
func WithLogger(log *logger.Logger) Option {
	return func(m *Monitor) { m.log = log }
}

// WithRegistry registers the duration histogram on reg instead of a
// private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Monitor) { m.registry = reg }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates an empty Monitor.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		records: make(map[string]MetricRecord),
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.durations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "droid_harness",
		Name:      "action_duration_seconds",
		Help:      "Wall-clock duration of measured device actions.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"action", "status"})
	if err := m.registry.Register(m.durations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.durations = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			m.log.Warn("Failed to register action histogram", logger.Fields{"error": err.Error()})
		}
	}
	return m
}

// Registry returns the registry holding the monitor's collectors.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// MeasureActionTime runs action and records how long it took. Failures
// (including panics) are captured in the record, never returned.
func (m *Monitor) MeasureActionTime(ctx context.Context, name string, action func(context.Context) error) time.Duration {
	start := m.now()
	err := runAction(ctx, action)
	elapsed := m.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	rec := MetricRecord{
		Name:       name,
		DurationMs: elapsed.Milliseconds(),
		Success:    err == nil,
		Timestamp:  m.now(),
	}
	status := "success"
	if err != nil {
		rec.Error = err.Error()
		status = "failure"
		m.log.Warn("Action failed", logger.Fields{"action": name, "duration": rec.DurationMs, "error": rec.Error})
	} else {
		m.log.Info("Action completed", logger.Fields{"action": name, "duration": rec.DurationMs})
	}
	m.durations.WithLabelValues(name, status).Observe(elapsed.Seconds())
	m.put(rec)
	return elapsed
}

func runAction(ctx context.Context, action func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return action(ctx)
}

func (m *Monitor) put(rec MetricRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.Name]; !exists {
		m.order = append(m.order, rec.Name)
	}
	m.records[rec.Name] = rec
}

// Records returns a copy of the recorded metrics in first-record order.
func (m *Monitor) Records() []MetricRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(m.order, func(name string, _ int) MetricRecord {
		return m.records[name]
	})
}

// Record returns the metric recorded under name.
func (m *Monitor) Record(name string) (MetricRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[name]
	return rec, ok
}

// Report derives statistics over all recorded metrics. It does not
// modify the monitor and may be called any number of times.
func (m *Monitor) Report() Report {
	records := m.Records()
	return Report{Metrics: records, Stats: ComputeStats(records)}
}

// ComputeStats aggregates records. An empty slice yields zero Stats.
func ComputeStats(records []MetricRecord) Stats {
	if len(records) == 0 {
		return Stats{}
	}
	durations := lo.Map(records, func(r MetricRecord, _ int) int64 { return r.DurationMs })
	successful := lo.CountBy(records, func(r MetricRecord) bool { return r.Success })
	total := lo.Sum(durations)
	return Stats{
		Count:       len(records),
		Successful:  successful,
		AverageMs:   int64(math.Round(float64(total) / float64(len(records)))),
		MinMs:       lo.Min(durations),
		MaxMs:       lo.Max(durations),
		SuccessRate: int(math.Round(float64(successful) / float64(len(records)) * 100)),
	}
}

// Render writes a human-readable summary of r.
func Render(w io.Writer, r Report) error {
	var err error
	printf := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	printf("Performance Report\n")
	printf("==================\n")
	if len(r.Metrics) == 0 {
		printf("No metrics recorded\n")
		return err
	}
	for _, rec := range r.Metrics {
		mark := "✓"
		if !rec.Success {
			mark = "✗"
		}
		printf("%s %s: %dms", mark, rec.Name, rec.DurationMs)
		if rec.Error != "" {
			printf(" (%s)", rec.Error)
		}
		printf("\n")
	}
	printf("\n")
	printf("Actions:      %d\n", r.Stats.Count)
	printf("Average:      %dms\n", r.Stats.AverageMs)
	printf("Fastest:      %dms\n", r.Stats.MinMs)
	printf("Slowest:      %dms\n", r.Stats.MaxMs)
	printf("Success rate: %d%%\n", r.Stats.SuccessRate)
	return err
}
