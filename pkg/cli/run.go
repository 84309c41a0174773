package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/executor"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run the device integration suite",
	Description: `Run the integration suite on one device, or on several devices in
parallel when --device lists more than one UDID. Each device gets its own
report under <output>/reports.

Exits with status 1 when any test failed or the run was aborted.

Examples:
  droid-harness run
  droid-harness --device emulator-5554,emulator-5556 run
  droid-harness --driver mock run --seed 42`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "suite",
			Usage: "Suite name, available as {suite} in report names",
			Value: "integration",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "Seed for generated test data (0 = random)",
		},
	},
	Action: runSuite,
}

func runSuite(c *cli.Context) error {
	h, err := loadHarness(c)
	if err != nil {
		return err
	}
	defer h.close()

	ctx, stop := runContext(c)
	defer stop()

	cfg := h.suiteConfig(c.String("suite"))
	cfg.Seed = c.Int64("seed")
	cases := executor.IntegrationCases()
	out := c.App.Writer

	if len(h.devices) > 1 {
		workers := lo.Map(h.devices, func(id string, _ int) executor.DeviceWorker {
			return executor.DeviceWorker{Name: id, Open: h.opener(id)}
		})
		result, err := executor.NewParallelRunner(workers, cfg).Run(ctx, cases)
		if result != nil {
			for _, d := range result.Devices {
				fmt.Fprintf(out, "\n  Device %s\n", d.Worker)
				printSummary(out, d.Result)
			}
			if len(result.Unrun) > 0 {
				fmt.Fprintf(out, "\n  Not run: %s\n", strings.Join(result.Unrun, ", "))
			}
		}
		if err != nil {
			return err
		}
		if result.Failed() {
			return ErrTestsFailed
		}
		return nil
	}

	cfg.Open = h.opener(h.firstDevice())
	result, err := executor.New(cfg).Run(ctx, cases)
	printSummary(out, result)
	if err != nil {
		return err
	}
	if result.Failed() {
		return ErrTestsFailed
	}
	return nil
}

// printSummary prints one line per test and the totals.
func printSummary(w io.Writer, result *executor.RunResult) {
	if result == nil || result.Report == nil {
		return
	}
	r := result.Report
	tableWidth := 72

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	fmt.Fprintf(w, "  %-52s %6s %10s\n", "Test", "Status", "Duration")
	fmt.Fprintln(w, strings.Repeat("─", tableWidth))
	for _, t := range r.TestDetails.All() {
		status := "✓ PASS"
		if t.Status == core.StatusFailed {
			status = "✗ FAIL"
		}
		name := t.Name
		if len(name) > 52 {
			name = name[:49] + "..."
		}
		fmt.Fprintf(w, "  %-52s %6s %10s\n", name, status, formatDuration(t.Duration))
		if t.Error != "" {
			fmt.Fprintf(w, "    ╰─ %s\n", t.Error)
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", tableWidth))
	fmt.Fprintf(w, "  %-52s %6s %10s\n", "TOTAL",
		fmt.Sprintf("%d/%d", r.Summary.Passed, r.Summary.TotalTests),
		formatDuration(r.ExecutionTime.Total))
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	fmt.Fprintf(w, "  Success rate: %d%%   Average: %s\n", r.Summary.SuccessRate, formatDuration(r.ExecutionTime.Average))
	if r.Partial {
		fmt.Fprintln(w, "  Run aborted; report is partial")
	}
	if result.ReportPath != "" {
		fmt.Fprintf(w, "  Report: %s\n", result.ReportPath)
	}
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}

// runContext is c.Context with interrupt handling.
func runContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}
