package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/gesture"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
	"github.com/devicelab-dev/droid-harness/pkg/perf"
)

// SettingsIconSelector locates the Settings launcher icon.
const SettingsIconSelector = `//android.widget.TextView[@text="Settings"]`

// GestureDemo walks through every gesture on the home screen and app
// drawer, then scrolls the drawer looking for Settings. Not finding
// Settings is logged, not returned.
func GestureDemo(ctx context.Context, env *Env) error {
	u, g := env.Device, env.Gestures

	steps := []struct {
		name string
		run  func() error
	}{
		{"home", func() error { return u.PressKey(ctx, core.KeyHome) }},
		{"swipe up", func() error { return g.Swipe(ctx, gesture.Up) }},
		{"swipe down", func() error { return g.Swipe(ctx, gesture.Down) }},
		{"swipe left", func() error { return g.Swipe(ctx, gesture.Left) }},
		{"swipe right", func() error { return g.Swipe(ctx, gesture.Right) }},
		{"open app drawer", func() error { return g.OpenAppDrawer(ctx) }},
		{"long press", func() error { return g.LongPress(ctx) }},
		{"double tap", func() error { return g.DoubleTap(ctx) }},
		{"pinch", func() error { return g.Pinch(ctx, true) }},
	}
	for _, step := range steps {
		env.Log.Info("Performing gesture step", logger.Fields{"step": step.name})
		if err := step.run(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	if _, err := u.ScrollToElement(ctx, SettingsIconSelector, 5, gesture.Down); err != nil {
		if !errors.Is(err, core.ErrElementNotFound) {
			return fmt.Errorf("scroll to settings: %w", err)
		}
		env.Log.Info("Settings app not found after scrolling")
	} else if ok, err := u.SafeClick(ctx, SettingsIconSelector, 0); err != nil {
		return fmt.Errorf("open settings: %w", err)
	} else if ok {
		if err := u.Pause(ctx, env.Settle.AppLaunch); err != nil {
			return err
		}
		if err := u.PressKey(ctx, core.KeyBack); err != nil {
			return err
		}
	}

	return u.PressKey(ctx, core.KeyHome)
}

// Action is one measured step of the performance demo.
type Action struct {
	Name string
	Fn   func(ctx context.Context) error
}

// PerformanceActions returns the actions timed by the performance demo.
func PerformanceActions(env *Env) []Action {
	s, u := env.Session, env.Device
	return []Action{
		{"Home Button Press", func(ctx context.Context) error {
			return u.PressKey(ctx, core.KeyHome)
		}},
		{"Screenshot Capture", func(ctx context.Context) error {
			_, err := s.Screenshot(ctx)
			return err
		}},
		{"Get Window Size", func(ctx context.Context) error {
			_, err := s.WindowSize(ctx)
			return err
		}},
		{"Get Device Info", func(ctx context.Context) error {
			_, err := s.Execute(ctx, "mobile: deviceInfo", nil)
			return err
		}},
		{"Open App Drawer", func(ctx context.Context) error {
			return env.Gestures.OpenAppDrawer(ctx)
		}},
		{"Find Element by XPath", func(ctx context.Context) error {
			ids, err := s.FindElements(ctx, "//android.widget.TextView")
			if err != nil || len(ids) == 0 {
				return err
			}
			_, err = s.ElementDisplayed(ctx, ids[0])
			return err
		}},
		{"Multiple Element Search", func(ctx context.Context) error {
			_, err := s.FindElements(ctx, "//android.widget.TextView")
			return err
		}},
		{"Swipe Gesture", func(ctx context.Context) error {
			return env.Gestures.Scroll(ctx, gesture.Down)
		}},
		{"Open Calculator App", func(ctx context.Context) error {
			if !u.LaunchApp(ctx, "com.android.calculator2", ".Calculator") {
				return errors.New("calculator did not launch")
			}
			return nil
		}},
		{"Calculator Button Press", func(ctx context.Context) error {
			ids, err := s.FindElements(ctx, `//android.widget.Button[@text="1"]`)
			if err != nil || len(ids) == 0 {
				return err
			}
			return s.ClickElement(ctx, ids[0])
		}},
	}
}

// PerfRun is the outcome of the performance demo.
type PerfRun struct {
	Before perf.DevicePerformance
	After  perf.DevicePerformance
	Report perf.Report
}

// MemoryDeltaKB returns the used-memory change over the run.
func (r PerfRun) MemoryDeltaKB() (int64, bool) {
	return r.Before.MemoryDeltaKB(r.After)
}

// PerformanceDemo samples device resources, times every action with m,
// returns home and samples again.
func PerformanceDemo(ctx context.Context, env *Env, m *perf.Monitor, actions []Action) PerfRun {
	run := PerfRun{Before: perf.CollectDevicePerformance(ctx, env.Session, env.Log)}
	for _, a := range actions {
		m.MeasureActionTime(ctx, a.Name, a.Fn)
	}
	if err := env.Device.PressKey(ctx, core.KeyHome); err != nil {
		env.Log.Warn("Could not return home", logger.Fields{"error": err.Error()})
	}
	run.After = perf.CollectDevicePerformance(ctx, env.Session, env.Log)
	run.Report = m.Report()
	if delta, ok := run.MemoryDeltaKB(); ok {
		env.Log.Info("Memory usage change", logger.Fields{"deltaKB": delta})
	}
	return run
}
