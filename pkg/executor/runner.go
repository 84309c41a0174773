// Package executor runs test cases against one device session and reports
// the results.
//
// A Suite owns the session for its lifetime:
//
//	Idle -> SettingUp -> Running -> Reporting -> TearingDown -> Done
//
// Test failures become results; they never abort the run. Only a failed
// setup or a cancelled context stops a run early, and even then a partial
// report is written and the session is closed.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/config"
	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/device"
	"github.com/devicelab-dev/droid-harness/pkg/fakedata"
	"github.com/devicelab-dev/droid-harness/pkg/gesture"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
	"github.com/devicelab-dev/droid-harness/pkg/report"
)

// State is the suite lifecycle position.
type State int

// Suite states.
const (
	StateIdle State = iota
	StateSettingUp
	StateRunning
	StateReporting
	StateTearingDown
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSettingUp:
		return "setting_up"
	case StateRunning:
		return "running"
	case StateReporting:
		return "reporting"
	case StateTearingDown:
		return "tearing_down"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// TestFunc is one test case body.
type TestFunc func(ctx context.Context, env *Env) error

// Case is a named test case.
type Case struct {
	Name string
	Fn   TestFunc
}

// Env is what a test case works with. Everything in it borrows the
// suite's session.
type Env struct {
	Session  core.Session
	Device   *device.Utils
	Info     *device.Info
	Gestures *gesture.Player
	Data     *fakedata.Generator
	Settle   config.Settle
	Log      *logger.Logger
}

// Config configures a Suite.
type Config struct {
	Name     string      // Suite name, used for {suite} in report names
	Open     core.Opener // Opens the device session
	Settle   config.Settle
	Timeouts config.Timeouts
	Output   config.Output
	Seed     int64          // Test data seed; 0 seeds from the clock
	Log      *logger.Logger // nil discards
	Writer   *report.Writer // nil builds one from Output
}

// RunResult is the outcome of Suite.Run.
type RunResult struct {
	Results    *core.ResultSet
	Report     *report.Report
	ReportPath string // store-relative; empty if the write failed
	Aborted    bool   // setup failed or the run was cancelled
}

// Failed reports whether the run should exit non-zero.
func (r *RunResult) Failed() bool {
	return r.Aborted || r.Results.HasFailures()
}

// Suite runs test cases sequentially on one session.
// Not safe for concurrent use.
type Suite struct {
	cfg    Config
	log    *logger.Logger
	writer *report.Writer
	now    func() time.Time

	state   State
	session core.Session
	env     *Env
	closed  bool
	partial bool
}

// New creates an idle Suite.
func New(cfg Config) *Suite {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.Name == "" {
		cfg.Name = "integration"
	}
	w := cfg.Writer
	if w == nil {
		w = report.NewWriter(cfg.Output, cfg.Name, cfg.Log)
	}
	return &Suite{
		cfg:    cfg,
		log:    cfg.Log.With("suite", cfg.Name),
		writer: w,
		now:    time.Now,
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Suite) State() State {
	return s.state
}

// Env returns the test environment, or nil before a successful Setup.
func (s *Suite) Env() *Env {
	return s.env
}

// Setup opens the session and builds the environment around it. A false
// return is recoverable; the suite goes back to Idle. A torn down suite
// cannot be set up again.
func (s *Suite) Setup(ctx context.Context) bool {
	if s.closed {
		s.log.Error("Setup failed", logger.Fields{"error": "suite already torn down"})
		return false
	}
	if s.session != nil {
		return true
	}
	s.state = StateSettingUp
	s.log.Info("Setting up test suite")

	if s.cfg.Open == nil {
		s.log.Error("Setup failed", logger.Fields{"error": "no session opener configured"})
		s.state = StateIdle
		return false
	}
	session, err := s.cfg.Open(ctx)
	if err != nil {
		s.log.Error("Setup failed", logger.Fields{"error": err.Error()})
		s.state = StateIdle
		return false
	}

	s.session = session
	s.env = s.buildEnv(session)
	s.state = StateRunning
	s.log.Info("Test suite setup completed")
	return true
}

func (s *Suite) buildEnv(session core.Session) *Env {
	utils := device.New(session, device.Options{
		Log:            s.log,
		Store:          s.writer.Store(),
		ScreenshotsDir: s.cfg.Output.ScreenshotsDir,
		Settle:         s.cfg.Settle,
		Timeouts:       s.cfg.Timeouts,
	})
	data := fakedata.NewRandom(s.log)
	if s.cfg.Seed != 0 {
		data = fakedata.New(s.cfg.Seed, s.log)
	}
	return &Env{
		Session:  session,
		Device:   utils,
		Info:     device.NewInfo(utils),
		Gestures: gesture.NewPlayer(session, s.cfg.Settle.Gesture, s.log),
		Data:     data,
		Settle:   s.cfg.Settle,
		Log:      s.log,
	}
}

// RunTest runs fn under timing and stores the result in results. Errors
// and panics from fn are recorded, never propagated. A failed test gets a
// best-effort "failed-<name>" screenshot.
func (s *Suite) RunTest(ctx context.Context, results *core.ResultSet, name string, fn TestFunc) core.TestResult {
	log := s.log.With("test", name)
	log.Info("Running test")

	start := s.now()
	var err error
	switch {
	case s.closed:
		err = core.ErrSessionClosed.WithMessage("device session is closed")
	case s.env == nil:
		err = core.ErrSessionClosed.WithMessage("device session is not open")
	default:
		err = invoke(ctx, fn, s.env)
	}
	elapsed := s.now().Sub(start)

	res := core.TestResult{
		Name:      name,
		Status:    core.StatusPassed,
		Duration:  elapsed.Milliseconds(),
		Timestamp: s.now(),
	}
	if err != nil {
		res.Status = core.StatusFailed
		res.Error = err.Error()
		var execErr *core.ExecutionError
		if errors.As(err, &execErr) {
			res.Category = execErr.Category.String()
		}
		log.Error("Test failed", logger.Fields{"duration": res.Duration, "error": res.Error})

		if s.env != nil && !s.closed {
			if shot := s.env.Device.TakeTimestampedScreenshot(ctx, "failed-"+name); shot != nil {
				res.Attachments = append(res.Attachments,
					core.NewScreenshotAttachment(s.env.Device.ScreenshotPath("failed-"+name), shot))
			}
		}
	} else {
		log.Info("Test passed", logger.Fields{"duration": res.Duration})
	}

	results.Put(res)
	return res
}

func invoke(ctx context.Context, fn TestFunc, env *Env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, env)
}

// GenerateReport builds the report from results and a fresh device
// snapshot, then writes it. It may be called again after an abort.
func (s *Suite) GenerateReport(ctx context.Context, results *core.ResultSet) (*report.Report, string, error) {
	prev := s.state
	s.state = StateReporting
	defer func() {
		if s.state == StateReporting {
			s.state = prev
		}
	}()

	var snapshot device.Snapshot
	if s.env != nil && !s.closed {
		snapshot = s.env.Info.Snapshot(ctx)
	}
	r := report.Build(results, report.BuilderConfig{
		Partial: s.partial,
		Device:  snapshot,
		Now:     s.now(),
	})

	path, err := s.writer.WriteReport(r)
	if err != nil {
		return r, "", fmt.Errorf("write report: %w", err)
	}
	s.log.Info("Test report generated", logger.Fields{
		"totalTests":  r.Summary.TotalTests,
		"passed":      r.Summary.Passed,
		"failed":      r.Summary.Failed,
		"successRate": r.Summary.SuccessRate,
		"partial":     r.Partial,
	})
	return r, path, nil
}

// Cleanup returns the device to a known state: home screen, recents
// cleared, portrait. Failures are logged and skipped.
func (s *Suite) Cleanup(ctx context.Context) {
	if s.env == nil || s.closed {
		return
	}
	s.log.Info("Starting cleanup")
	u := s.env.Device

	steps := []struct {
		name string
		run  func() error
	}{
		{"home", func() error { return u.PressKey(ctx, core.KeyHome) }},
		{"recents", func() error { return u.PressKey(ctx, core.KeyAppSwitch) }},
		{"dismiss recents", func() error { return s.env.Gestures.DismissRecents(ctx) }},
		{"home", func() error { return u.PressKey(ctx, core.KeyHome) }},
		{"portrait", func() error {
			if !u.RotateDevice(ctx, core.OrientationPortrait) {
				return errors.New("rotation failed")
			}
			return nil
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			s.log.Warn("Cleanup step failed", logger.Fields{"step": step.name, "error": err.Error()})
			if errors.Is(err, core.ErrSessionClosed) || ctx.Err() != nil {
				return
			}
		}
	}
	s.log.Info("Cleanup completed")
}

// Teardown runs Cleanup and closes the session. Safe to call more than
// once and when Setup never succeeded.
func (s *Suite) Teardown(ctx context.Context) {
	if s.state == StateDone {
		return
	}
	s.state = StateTearingDown
	if s.session != nil && !s.closed {
		s.Cleanup(ctx)
		s.closed = true
		if err := s.session.Close(ctx); err != nil {
			s.log.Error("Failed to close session", logger.Fields{"error": err.Error()})
		} else {
			s.log.Info("Session closed")
		}
	}
	s.state = StateDone
}

// Run executes cases in order and always tears down. The error is non-nil
// when the run was aborted (setup failure or cancellation); the result is
// still populated with whatever ran.
func (s *Suite) Run(ctx context.Context, cases []Case) (*RunResult, error) {
	out := &RunResult{Results: core.NewResultSet()}
	// Teardown must still close the session after ctx is cancelled.
	defer s.Teardown(context.WithoutCancel(ctx))

	var abortErr error
	if !s.Setup(ctx) {
		abortErr = core.ErrConnection.WithMessage("setup failed, no tests were run")
	} else {
		s.log.Info("Running tests", logger.Fields{"count": len(cases)})
		for i, c := range cases {
			if err := ctx.Err(); err != nil {
				abortErr = fmt.Errorf("run cancelled after %d of %d tests: %w", i, len(cases), err)
				break
			}
			s.RunTest(ctx, out.Results, c.Name, c.Fn)
		}
	}

	if abortErr != nil {
		s.partial = true
		out.Aborted = true
		s.log.Error("Test run aborted", logger.Fields{"error": abortErr.Error()})
	}

	r, path, err := s.GenerateReport(context.WithoutCancel(ctx), out.Results)
	out.Report, out.ReportPath = r, path
	if err != nil {
		s.log.Error("Could not generate test report", logger.Fields{"error": err.Error()})
	}
	return out, abortErr
}
