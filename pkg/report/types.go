// Package report builds and persists integration run reports.
//
// Layout under the output directory:
//   - reports/integration-test-report-<date>.json: run summary (stable schema)
//   - reports/performance-report-<date>.json: action timings, when measured
//   - screenshots/<name>.png: captured by the device layer
//
// Reports are derived once from the run's results; nothing is updated
// incrementally. Files are written atomically so a consumer never reads a
// half-written report.
package report

import (
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/device"
)

// Report is the integration run report.
type Report struct {
	RunID         string          `json:"runId"`
	Partial       bool            `json:"partial"`
	Summary       Summary         `json:"summary"`
	ExecutionTime ExecutionTime   `json:"executionTime"`
	TestDetails   *core.ResultSet `json:"testDetails"`
	DeviceInfo    device.Snapshot `json:"deviceInfo"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Summary contains pass/fail counts.
type Summary struct {
	TotalTests  int `json:"totalTests"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	SuccessRate int `json:"successRate"` // percent, rounded
}

// ExecutionTime contains total and average test duration in milliseconds.
type ExecutionTime struct {
	Total   int64 `json:"total"`
	Average int64 `json:"average"`
}
