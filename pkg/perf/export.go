package perf

import (
	"fmt"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/devicelab-dev/droid-harness/pkg/core"
)

// FileReport is the persisted performance report.
type FileReport struct {
	RunID      string
	Timestamp  time.Time
	DeviceInfo *DevicePerformance
	Report     Report
}

// NewFileReport snapshots m for persisting.
func NewFileReport(runID string, now time.Time, device *DevicePerformance, m *Monitor) FileReport {
	return FileReport{
		RunID:      runID,
		Timestamp:  now,
		DeviceInfo: device,
		Report:     m.Report(),
	}
}

// MarshalJSON encodes {timestamp, runId, deviceInfo, metrics, stats}.
func (f FileReport) MarshalJSON() ([]byte, error) {
	metrics, err := marshalMetrics(f.Report.Metrics)
	if err != nil {
		return nil, err
	}
	return core.MarshalOrdered(
		[]string{"timestamp", "runId", "deviceInfo", "metrics", "stats"},
		[]interface{}{f.Timestamp.Format(time.RFC3339), f.RunID, f.DeviceInfo, rawJSON(metrics), f.Report.Stats},
	)
}

func marshalMetrics(records []MetricRecord) ([]byte, error) {
	keys := make([]string, len(records))
	values := make([]interface{}, len(records))
	for i, rec := range records {
		keys[i] = rec.Name
		values[i] = rec
	}
	return core.MarshalOrdered(keys, values)
}

// rawJSON is an already-encoded JSON value.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	return r, nil
}

// WriteTextfile exports the monitor's registry in the node-exporter
// textfile format.
func (m *Monitor) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// String renders the record as JSON, for logs.
func (r MetricRecord) String() string {
	data, err := json.MarshalString(r)
	if err != nil {
		return r.Name
	}
	return data
}
