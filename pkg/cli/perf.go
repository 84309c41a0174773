package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droid-harness/pkg/executor"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
	"github.com/devicelab-dev/droid-harness/pkg/perf"
	"github.com/devicelab-dev/droid-harness/pkg/report"
)

var perfCommand = &cli.Command{
	Name:  "perf",
	Usage: "Time common device actions and write a performance report",
	Description: `Sample CPU, memory, battery and storage, time ten common actions
(home press, screenshot, element search, app launch, ...), then sample
again. The report is printed and written as JSON under <output>/reports.

With --metrics the action histogram is also written in the Prometheus
text exposition format, for node_exporter's textfile collector.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "metrics",
			Usage: "Write Prometheus textfile metrics to this path",
		},
	},
	Action: runPerf,
}

func runPerf(c *cli.Context) error {
	h, err := loadHarness(c)
	if err != nil {
		return err
	}
	defer h.close()

	ctx, stop := runContext(c)
	defer stop()

	monitor := perf.NewMonitor(perf.WithLogger(h.log))
	var run executor.PerfRun
	err = h.withSuite(ctx, "performance", func(ctx context.Context, env *executor.Env) error {
		run = executor.PerformanceDemo(ctx, env, monitor, executor.PerformanceActions(env))
		return nil
	})
	if err != nil {
		return err
	}

	out := c.App.Writer
	if err := perf.Render(out, run.Report); err != nil {
		return err
	}
	if delta, ok := run.MemoryDeltaKB(); ok {
		fmt.Fprintf(out, "Memory change: %+d KB\n", delta)
	}

	writer := report.NewWriter(h.cfg.Output, "performance", h.log)
	rel, err := writer.WritePerformance(perf.NewFileReport(uuid.NewString(), time.Now(), &run.After, monitor))
	if err != nil {
		return fmt.Errorf("write performance report: %w", err)
	}
	fmt.Fprintf(out, "Report: %s\n", rel)

	if path := c.String("metrics"); path != "" {
		if err := monitor.WriteTextfile(path); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		h.log.Info("Metrics written", logger.Fields{"path": path})
	}
	return nil
}
