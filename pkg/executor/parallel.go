package executor

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

// DeviceWorker is one device taking cases from the shared queue.
type DeviceWorker struct {
	Name string      // Used for log fields and the worker's output subdirectory
	Open core.Opener // Opens this device's session
}

// DeviceRun is one worker's share of a parallel run.
type DeviceRun struct {
	Worker string
	Result *RunResult
	Err    error
}

// ParallelResult aggregates a parallel run.
type ParallelResult struct {
	Devices  []DeviceRun
	Duration int64 // Wall clock, milliseconds
	Unrun    []string
}

// Failed reports whether any device failed a test or aborted, or a case
// never ran.
func (r *ParallelResult) Failed() bool {
	if len(r.Unrun) > 0 {
		return true
	}
	for _, d := range r.Devices {
		if d.Err != nil || d.Result.Failed() {
			return true
		}
	}
	return false
}

// ParallelRunner spreads cases over several devices. Each device gets its
// own Suite, session and report; cases are pulled from one queue, so a
// case runs exactly once on whichever device is free.
type ParallelRunner struct {
	workers []DeviceWorker
	config  Config
}

// NewParallelRunner creates a runner. cfg.Open is ignored; each worker
// brings its own opener.
func NewParallelRunner(workers []DeviceWorker, cfg Config) *ParallelRunner {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	return &ParallelRunner{workers: workers, config: cfg}
}

// Run executes cases across all workers and waits for them to finish.
func (pr *ParallelRunner) Run(ctx context.Context, cases []Case) (*ParallelResult, error) {
	if len(pr.workers) == 0 {
		return nil, fmt.Errorf("no workers available")
	}
	startTime := time.Now()

	queue := make(chan Case, len(cases))
	for _, c := range cases {
		queue <- c
	}
	close(queue)

	runs := make([]DeviceRun, len(pr.workers))
	var wg sync.WaitGroup
	for i := range pr.workers {
		wg.Add(1)
		go func(idx int, w DeviceWorker) {
			defer wg.Done()
			runs[idx] = pr.runWorker(ctx, w, queue)
		}(i, pr.workers[i])
	}
	wg.Wait()

	result := &ParallelResult{
		Devices:  runs,
		Duration: time.Since(startTime).Milliseconds(),
	}
	for c := range queue {
		result.Unrun = append(result.Unrun, c.Name)
	}
	if len(result.Unrun) > 0 {
		return result, fmt.Errorf("%d cases never ran", len(result.Unrun))
	}
	return result, nil
}

// runWorker sets up one device and drains the queue until it is empty or
// ctx is done. A worker whose setup fails takes no cases.
func (pr *ParallelRunner) runWorker(ctx context.Context, w DeviceWorker, queue <-chan Case) DeviceRun {
	cfg := pr.config
	cfg.Open = w.Open
	cfg.Name = pr.config.Name + "-" + w.Name
	cfg.Log = pr.config.Log.With("device", w.Name)
	cfg.Output.ReportsDir = path.Join(cfg.Output.ReportsDir, w.Name)
	cfg.Output.ScreenshotsDir = path.Join(cfg.Output.ScreenshotsDir, w.Name)
	cfg.Writer = nil

	suite := New(cfg)
	out := &RunResult{Results: core.NewResultSet()}
	defer suite.Teardown(context.WithoutCancel(ctx))

	if !suite.Setup(ctx) {
		out.Aborted = true
		return DeviceRun{Worker: w.Name, Result: out, Err: core.ErrConnection.WithDetails(map[string]interface{}{"device": w.Name})}
	}

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		c, ok := <-queue
		if !ok {
			break
		}
		suite.RunTest(ctx, out.Results, c.Name, c.Fn)
	}
	if runErr != nil {
		suite.partial = true
		out.Aborted = true
	}

	r, p, err := suite.GenerateReport(context.WithoutCancel(ctx), out.Results)
	out.Report, out.ReportPath = r, p
	if err != nil {
		cfg.Log.Error("Could not generate test report", logger.Fields{"error": err.Error()})
	}
	return DeviceRun{Worker: w.Name, Result: out, Err: runErr}
}
