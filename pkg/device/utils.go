// Package device provides the utility layer over a borrowed core.Session:
// element waits, safe element actions, scrolling, screenshots, app lifecycle,
// network helpers and device info aggregation.
//
// Operations come in two tiers. WaitForElement and ScrollToElement signal
// core.ErrElementNotFound. The Safe* wrappers convert exactly that error into
// false or a default value and return every other error. Device-command
// wrappers (orientation, app lifecycle, network, shell) report failure with a
// sentinel result and a log entry.
package device

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/devicelab-dev/droid-harness/pkg/config"
	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/gesture"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
	"github.com/devicelab-dev/droid-harness/pkg/wait"
)

// InteractiveSelector matches any element a loaded screen is expected to show.
const InteractiveSelector = "//android.widget.Button | //android.widget.TextView | //android.widget.ImageView"

// Options configures Utils.
type Options struct {
	Log            *logger.Logger
	Store          core.BlobWriter // screenshot sink; nil discards
	ScreenshotsDir string          // slash-separated, relative to Store
	Settle         config.Settle
	Timeouts       config.Timeouts
}

// Utils wraps a borrowed session. It never closes the session.
type Utils struct {
	session        core.Session
	log            *logger.Logger
	store          core.BlobWriter
	screenshotsDir string
	settle         config.Settle
	timeouts       config.Timeouts
}

// New creates Utils bound to session.
func New(session core.Session, opts Options) *Utils {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Store == nil {
		opts.Store = core.NullBlobWriter{}
	}
	if opts.ScreenshotsDir == "" {
		opts.ScreenshotsDir = "screenshots"
	}
	return &Utils{
		session:        session,
		log:            opts.Log,
		store:          opts.Store,
		screenshotsDir: opts.ScreenshotsDir,
		settle:         opts.Settle,
		timeouts:       opts.Timeouts,
	}
}

// Session returns the borrowed session.
func (u *Utils) Session() core.Session {
	return u.session
}

// Settle returns the configured settle delays.
func (u *Utils) Settle() config.Settle {
	return u.settle
}

// Pause waits for d unless ctx is done first.
func (u *Utils) Pause(ctx context.Context, d time.Duration) error {
	return wait.Sleep(ctx, d)
}

// findDisplayed returns the first displayed element matching selector.
func (u *Utils) findDisplayed(ctx context.Context, selector string) (core.Element, bool, error) {
	ids, err := u.session.FindElements(ctx, selector)
	if err != nil {
		return core.Element{}, false, err
	}
	for _, id := range ids {
		displayed, err := u.session.ElementDisplayed(ctx, id)
		if err != nil {
			return core.Element{}, false, err
		}
		if displayed {
			return core.Element{ID: id, Selector: selector}, true, nil
		}
	}
	return core.Element{}, false, nil
}

// fatal reports errors that must stop polling instead of reading as "not yet".
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, core.ErrSessionClosed) || ctx.Err() != nil
}

// WaitForElement resolves once an element matching selector is displayed.
// A zero timeout uses the configured element timeout.
// It returns core.ErrElementNotFound when the timeout elapses.
func (u *Utils) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (core.Element, error) {
	if timeout <= 0 {
		timeout = u.timeouts.Element
	}

	var found core.Element
	err := wait.Until(ctx, func(ctx context.Context) (bool, error) {
		el, ok, err := u.findDisplayed(ctx, selector)
		if err != nil {
			if fatal(ctx, err) {
				return false, wait.Permanent(err)
			}
			return false, err
		}
		found = el
		return ok, nil
	}, wait.Config{Timeout: timeout, Interval: u.timeouts.Interval})

	if err == nil {
		return found, nil
	}
	if errors.Is(err, core.ErrWaitTimeout) {
		u.log.Debug("Element not found", logger.Fields{"selector": selector, "timeoutMs": timeout.Milliseconds()})
		return core.Element{}, core.ErrElementNotFound.
			WithMessage("element not found: " + selector).
			WithDetails(map[string]interface{}{"selector": selector, "timeoutMs": timeout.Milliseconds()}).
			WithCause(err)
	}
	return core.Element{}, err
}

func (u *Utils) actionTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return u.timeouts.Action
	}
	return timeout
}

// SafeClick waits for selector and clicks it. Absence yields (false, nil).
func (u *Utils) SafeClick(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	el, err := u.WaitForElement(ctx, selector, u.actionTimeout(timeout))
	if errors.Is(err, core.ErrElementNotFound) {
		u.log.Info("Safe click failed", logger.Fields{"selector": selector, "error": err.Error()})
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := u.session.ClickElement(ctx, el.ID); err != nil {
		u.log.Warn("Click failed", logger.Fields{"selector": selector, "error": err.Error()})
		return false, err
	}
	u.log.Info("Successfully clicked", logger.Fields{"selector": selector})
	return true, nil
}

// SafeSetValue waits for selector, clears it and types text.
// Absence yields (false, nil).
func (u *Utils) SafeSetValue(ctx context.Context, selector, text string, timeout time.Duration) (bool, error) {
	el, err := u.WaitForElement(ctx, selector, u.actionTimeout(timeout))
	if errors.Is(err, core.ErrElementNotFound) {
		u.log.Info("Safe set value failed", logger.Fields{"selector": selector, "error": err.Error()})
		return false, nil
	}
	if err != nil {
		u.log.Error("Safe set value failed", logger.Fields{"selector": selector, "error": err.Error()})
		return false, err
	}
	if err := u.session.ClearElement(ctx, el.ID); err != nil {
		u.log.Error("Safe set value failed", logger.Fields{"selector": selector, "step": "clear", "error": err.Error()})
		return false, err
	}
	if err := u.session.SetElementValue(ctx, el.ID, text); err != nil {
		u.log.Error("Safe set value failed", logger.Fields{"selector": selector, "step": "set", "error": err.Error()})
		return false, err
	}
	u.log.Info("Successfully set value", logger.Fields{"selector": selector, "text": text})
	return true, nil
}

// SafeGetText waits for selector and returns its text, or defaultText when
// the element is absent or its text is empty.
func (u *Utils) SafeGetText(ctx context.Context, selector, defaultText string, timeout time.Duration) (string, error) {
	el, err := u.WaitForElement(ctx, selector, u.actionTimeout(timeout))
	if errors.Is(err, core.ErrElementNotFound) {
		u.log.Info("Get text failed", logger.Fields{"selector": selector, "error": err.Error()})
		return defaultText, nil
	}
	if err != nil {
		u.log.Error("Get text failed", logger.Fields{"selector": selector, "error": err.Error()})
		return defaultText, err
	}
	text, err := u.session.ElementText(ctx, el.ID)
	if err != nil {
		u.log.Error("Get text failed", logger.Fields{"selector": selector, "error": err.Error()})
		return defaultText, err
	}
	if text == "" {
		u.log.Info("Element text empty, using default", logger.Fields{"selector": selector, "default": defaultText})
		return defaultText, nil
	}
	u.log.Info("Got element text", logger.Fields{"selector": selector, "text": text})
	return text, nil
}

// ScrollToElement checks for selector and scrolls in dir between checks,
// up to maxScrolls scrolls. The check precedes every scroll, so maxScrolls=0
// checks exactly once. It returns core.ErrElementNotFound when exhausted.
func (u *Utils) ScrollToElement(ctx context.Context, selector string, maxScrolls int, dir gesture.Direction) (core.Element, error) {
	for scrolls := 0; ; scrolls++ {
		el, ok, err := u.findDisplayed(ctx, selector)
		if err != nil && fatal(ctx, err) {
			return core.Element{}, err
		}
		if ok {
			u.log.Info("Found element after scrolling", logger.Fields{"selector": selector, "scrolls": scrolls})
			return el, nil
		}
		if scrolls >= maxScrolls {
			break
		}

		if err := u.Scroll(ctx, dir); err != nil {
			return core.Element{}, err
		}
		if err := wait.Sleep(ctx, u.settle.Scroll); err != nil {
			return core.Element{}, err
		}
	}

	return core.Element{}, core.ErrElementNotFound.
		WithMessage("element not found after scrolling: " + selector).
		WithDetails(map[string]interface{}{"selector": selector, "maxScrolls": maxScrolls})
}

// Scroll performs one scroll gesture in dir (up or down).
func (u *Utils) Scroll(ctx context.Context, dir gesture.Direction) error {
	size, err := u.session.WindowSize(ctx)
	if err != nil {
		return err
	}
	path, err := gesture.Scroll(size, dir)
	if err != nil {
		return err
	}
	return u.session.Gesture(ctx, path)
}

// ScrollDown drags from 80% to 20% of the window height.
func (u *Utils) ScrollDown(ctx context.Context) error {
	return u.Scroll(ctx, gesture.Down)
}

// ScrollUp drags from 20% to 80% of the window height.
func (u *Utils) ScrollUp(ctx context.Context) error {
	return u.Scroll(ctx, gesture.Up)
}

// TakeTimestampedScreenshot captures the screen. With a name, the PNG is also
// written to <screenshots>/<name>.png. It returns nil when capture fails; a
// failed write is logged and the bytes are still returned.
func (u *Utils) TakeTimestampedScreenshot(ctx context.Context, name string) []byte {
	data, err := u.session.Screenshot(ctx)
	if err != nil {
		u.log.Warn("Screenshot failed", logger.Fields{"error": err.Error()})
		return nil
	}
	if name == "" {
		return data
	}

	p := u.ScreenshotPath(name)
	if err := u.store.EnsureDir(u.screenshotsDir); err != nil {
		u.log.Warn("Screenshot not saved", logger.Fields{"path": p, "error": err.Error()})
		return data
	}
	if err := u.store.WriteFile(p, data); err != nil {
		u.log.Warn("Screenshot not saved", logger.Fields{"path": p, "error": err.Error()})
		return data
	}
	u.log.Info("Screenshot saved", logger.Fields{"path": p})
	return data
}

// ScreenshotPath returns where a named screenshot is written.
func (u *Utils) ScreenshotPath(name string) string {
	return path.Join(u.screenshotsDir, sanitizeName(name)+".png")
}

// sanitizeName keeps screenshot names inside the screenshots directory.
func sanitizeName(name string) string {
	return strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(name)
}

// WaitForPageLoad polls for any interactive element. It never signals.
func (u *Utils) WaitForPageLoad(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = u.timeouts.PageLoad
	}
	err := wait.Until(ctx, func(ctx context.Context) (bool, error) {
		ids, err := u.session.FindElements(ctx, InteractiveSelector)
		if err != nil {
			if fatal(ctx, err) {
				return false, wait.Permanent(err)
			}
			return false, err
		}
		return len(ids) > 0, nil
	}, wait.Config{Timeout: timeout, Interval: u.settle.Poll})

	if err != nil {
		u.log.Info("Page load timeout reached", logger.Fields{"timeoutMs": timeout.Milliseconds()})
		return false
	}
	u.log.Info("Page loaded successfully")
	return true
}

// Orientation returns the current orientation, or "" on failure.
func (u *Utils) Orientation(ctx context.Context) string {
	orientation, err := u.session.Orientation(ctx)
	if err != nil {
		u.log.Warn("Get orientation failed", logger.Fields{"error": err.Error()})
		return ""
	}
	u.log.Debug("Current orientation", logger.Fields{"orientation": orientation})
	return orientation
}

// RotateDevice sets the orientation and waits the rotation settle delay.
// It does not verify the rotation took effect.
func (u *Utils) RotateDevice(ctx context.Context, orientation string) bool {
	if err := u.session.SetOrientation(ctx, orientation); err != nil {
		u.log.Warn("Rotation failed", logger.Fields{"orientation": orientation, "error": err.Error()})
		return false
	}
	if err := wait.Sleep(ctx, u.settle.Rotation); err != nil {
		return false
	}
	u.log.Info("Device rotated", logger.Fields{"orientation": orientation})
	return true
}

// PressKey presses an Android keycode and waits the keypress settle delay.
func (u *Utils) PressKey(ctx context.Context, code int) error {
	if err := u.session.PressKey(ctx, code); err != nil {
		return err
	}
	return wait.Sleep(ctx, u.settle.Keypress)
}

// shell runs a command and logs failures.
func (u *Utils) shell(ctx context.Context, command string, args ...string) (string, error) {
	out, err := u.session.Shell(ctx, command, args...)
	if err != nil {
		u.log.Warn("Shell command failed", logger.Fields{
			"command": strings.TrimSpace(command + " " + strings.Join(args, " ")),
			"error":   err.Error(),
		})
		return "", err
	}
	return out, nil
}

// IsAppInstalled reports whether packageName appears in `pm list packages`.
func (u *Utils) IsAppInstalled(ctx context.Context, packageName string) bool {
	out, err := u.shell(ctx, "pm", "list", "packages", packageName)
	if err != nil {
		return false
	}
	lines := lo.Map(strings.Split(out, "\n"), func(line string, _ int) string {
		return strings.TrimSpace(line)
	})
	installed := lo.Contains(lines, "package:"+packageName)
	u.log.Info("App installation check", logger.Fields{"package": packageName, "installed": installed})
	return installed
}

// LaunchApp starts packageName. With an activity it sends an explicit intent
// (am start -n); otherwise it fires the launcher intent through monkey.
// It waits the app-launch settle delay afterwards.
func (u *Utils) LaunchApp(ctx context.Context, packageName, activity string) bool {
	var err error
	if activity != "" {
		_, err = u.shell(ctx, "am", "start", "-n", packageName+"/"+activity)
	} else {
		_, err = u.shell(ctx, "monkey", "-p", packageName, "-c", "android.intent.category.LAUNCHER", "1")
	}
	if err != nil {
		return false
	}
	if err := wait.Sleep(ctx, u.settle.AppLaunch); err != nil {
		return false
	}
	u.log.Info("Launched app", logger.Fields{"package": packageName, "activity": activity})
	return true
}

// CloseApp force-stops packageName.
func (u *Utils) CloseApp(ctx context.Context, packageName string) bool {
	if _, err := u.shell(ctx, "am", "force-stop", packageName); err != nil {
		return false
	}
	u.log.Info("Closed app", logger.Fields{"package": packageName})
	return true
}

// ClearAppData wipes packageName's data.
func (u *Utils) ClearAppData(ctx context.Context, packageName string) bool {
	if _, err := u.shell(ctx, "pm", "clear", packageName); err != nil {
		return false
	}
	u.log.Info("Cleared data for app", logger.Fields{"package": packageName})
	return true
}

// ToggleWifi enables or disables wifi via svc. It needs shell privileges the
// device may not grant; callers treat false as non-fatal.
func (u *Utils) ToggleWifi(ctx context.Context, enable bool) bool {
	action := "disable"
	if enable {
		action = "enable"
	}
	if _, err := u.shell(ctx, "svc", "wifi", action); err != nil {
		return false
	}
	if err := wait.Sleep(ctx, u.settle.Wifi); err != nil {
		return false
	}
	u.log.Info("WiFi toggled", logger.Fields{"action": action})
	return true
}

// CurrentActivity returns the foreground activity, or "" on failure.
func (u *Utils) CurrentActivity(ctx context.Context) string {
	activity, err := u.session.CurrentActivity(ctx)
	if err != nil {
		u.log.Warn("Get current activity failed", logger.Fields{"error": err.Error()})
		return ""
	}
	u.log.Debug("Current activity", logger.Fields{"activity": activity})
	return activity
}

// ExecuteShell runs a shell command. ok is false when the command failed.
func (u *Utils) ExecuteShell(ctx context.Context, command string, args ...string) (out string, ok bool) {
	out, err := u.shell(ctx, command, args...)
	if err != nil {
		return "", false
	}
	u.log.Debug("Shell command executed", logger.Fields{"command": strings.TrimSpace(command + " " + strings.Join(args, " "))})
	return out, true
}
