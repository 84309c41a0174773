package report

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/device"
)

// BuilderConfig contains the inputs that do not come from the results.
type BuilderConfig struct {
	RunID   string          // Generated when empty
	Partial bool            // Run aborted before every case ran
	Device  device.Snapshot // Fresh snapshot taken at report time
	Now     time.Time       // Report timestamp; time.Now() when zero
}

// Build derives a Report from the accumulated results.
// An empty result set yields zero counts and a zero success rate.
func Build(results *core.ResultSet, cfg BuilderConfig) *Report {
	if results == nil {
		results = core.NewResultSet()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}

	all := results.All()
	passed := lo.CountBy(all, func(r core.TestResult) bool { return r.Status.IsSuccess() })
	total := lo.SumBy(all, func(r core.TestResult) int64 { return r.Duration })

	return &Report{
		RunID:   cfg.RunID,
		Partial: cfg.Partial,
		Summary: Summary{
			TotalTests:  len(all),
			Passed:      passed,
			Failed:      len(all) - passed,
			SuccessRate: percent(passed, len(all)),
		},
		ExecutionTime: ExecutionTime{
			Total:   total,
			Average: average(total, len(all)),
		},
		TestDetails: results,
		DeviceInfo:  cfg.Device,
		Timestamp:   cfg.Now,
	}
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}

func average(sum int64, n int) int64 {
	if n == 0 {
		return 0
	}
	return int64(math.Round(float64(sum) / float64(n)))
}

// FailedTests returns the names of failed tests in run order.
func (r *Report) FailedTests() []string {
	failed := lo.Filter(r.TestDetails.All(), func(t core.TestResult, _ int) bool {
		return !t.Status.IsSuccess()
	})
	return lo.Map(failed, func(t core.TestResult, _ int) string { return t.Name })
}
