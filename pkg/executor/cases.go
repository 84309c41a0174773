package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

// App is a system app the integration cases exercise.
type App struct {
	Package string
	Name    string
}

// SystemApps are launched by the app launch and multi-app cases.
var SystemApps = []App{
	{Package: "com.android.settings", Name: "Settings"},
	{Package: "com.android.calculator2", Name: "Calculator"},
}

// Text fields tried, in order, by the text input case.
var searchSelectors = []string{
	"//android.widget.EditText",
	"//android.widget.AutoCompleteTextView",
	`//*[@resource-id="android:id/search_src_text"]`,
}

const missingSelector = `//NonExistentElement[@id="fake"]`

// IntegrationCases returns the standard device integration suite, in run order.
func IntegrationCases() []Case {
	return []Case{
		{Name: "Device Connection Test", Fn: deviceConnection},
		{Name: "Basic UI Interaction Test", Fn: basicUIInteraction},
		{Name: "App Launch Test", Fn: appLaunch},
		{Name: "Text Input Test", Fn: textInput},
		{Name: "Orientation Test", Fn: orientation},
		{Name: "Network Connectivity Test", Fn: networkConnectivity},
		{Name: "Memory and Storage Test", Fn: memoryAndStorage},
		{Name: "Multi-App Workflow Test", Fn: multiAppWorkflow},
		{Name: "Error Recovery Test", Fn: errorRecovery},
	}
}

func deviceConnection(ctx context.Context, env *Env) error {
	snap := env.Info.Snapshot(ctx)
	if snap.AndroidVersion == "" {
		return errors.New("could not retrieve Android version")
	}
	if snap.ScreenResolution == "" {
		return errors.New("could not retrieve screen resolution")
	}
	env.Log.Info("Device connection verified", logger.Fields{
		"androidVersion":   snap.AndroidVersion,
		"screenResolution": snap.ScreenResolution,
	})
	return nil
}

func basicUIInteraction(ctx context.Context, env *Env) error {
	u := env.Device
	if err := u.PressKey(ctx, core.KeyHome); err != nil {
		return err
	}
	if shot := u.TakeTimestampedScreenshot(ctx, "ui-interaction-test"); shot == nil {
		return errors.New("failed to take screenshot")
	}
	if err := u.ScrollDown(ctx); err != nil {
		return err
	}
	return u.PressKey(ctx, core.KeyHome)
}

// launchAndVerify launches app and checks it reached the foreground.
// installed is false when the app is missing (not an error).
func launchAndVerify(ctx context.Context, env *Env, app App) (installed bool, err error) {
	u := env.Device
	if !u.IsAppInstalled(ctx, app.Package) {
		env.Log.Warn("App not installed", logger.Fields{"package": app.Package})
		return false, nil
	}
	if !u.LaunchApp(ctx, app.Package, "") {
		return true, fmt.Errorf("failed to launch %s", app.Name)
	}
	if activity := u.CurrentActivity(ctx); !strings.Contains(activity, app.Package) {
		return true, fmt.Errorf("%s did not launch properly (foreground: %q)", app.Name, activity)
	}
	return true, nil
}

func appLaunch(ctx context.Context, env *Env) error {
	for _, app := range SystemApps {
		installed, err := launchAndVerify(ctx, env, app)
		if err != nil {
			return err
		}
		if !installed {
			continue
		}
		env.Device.TakeTimestampedScreenshot(ctx, "app-"+strings.ToLower(app.Name))
		if err := env.Device.PressKey(ctx, core.KeyHome); err != nil {
			return err
		}
	}
	return nil
}

func textInput(ctx context.Context, env *Env) (err error) {
	u := env.Device
	defer func() {
		if homeErr := u.PressKey(ctx, core.KeyHome); err == nil {
			err = homeErr
		}
	}()

	u.LaunchApp(ctx, "com.android.settings", "")

	var field string
	for _, sel := range searchSelectors {
		_, err := u.WaitForElement(ctx, sel, 0)
		if err == nil {
			field = sel
			break
		}
		if !errors.Is(err, core.ErrElementNotFound) {
			return err
		}
	}
	if field == "" {
		env.Log.Warn("No text input field found for testing")
		return nil
	}

	text := env.Data.String(8)
	if ok, err := u.SafeClick(ctx, field, 0); err != nil || !ok {
		return errors.Join(errors.New("could not focus text field"), err)
	}
	if ok, err := u.SafeSetValue(ctx, field, text, 0); err != nil || !ok {
		return errors.Join(errors.New("could not enter text"), err)
	}
	entered, err := u.SafeGetText(ctx, field, "", 0)
	if err != nil {
		return err
	}
	if !strings.Contains(entered, text) {
		return fmt.Errorf("text input verification failed: entered %q, read back %q", text, entered)
	}
	env.Log.Info("Text input verified", logger.Fields{"text": text})
	return nil
}

func orientation(ctx context.Context, env *Env) error {
	u := env.Device
	if !u.RotateDevice(ctx, core.OrientationLandscape) {
		return errors.New("failed to rotate to landscape")
	}
	if got := u.Orientation(ctx); got != core.OrientationLandscape {
		return fmt.Errorf("expected LANDSCAPE orientation, got %q", got)
	}
	u.TakeTimestampedScreenshot(ctx, "landscape-orientation")

	u.RotateDevice(ctx, core.OrientationPortrait)
	if got := u.Orientation(ctx); got != core.OrientationPortrait {
		return fmt.Errorf("failed to return to PORTRAIT orientation, got %q", got)
	}
	return nil
}

func networkConnectivity(ctx context.Context, env *Env) error {
	u := env.Device
	if !u.NetworkInfo(ctx).Connected {
		return errors.New("device not connected to network initially")
	}

	// Toggling wifi needs privileges most devices withhold.
	if !u.ToggleWifi(ctx, false) {
		env.Log.Warn("WiFi toggle skipped (may require root)")
		return nil
	}
	env.Log.Info("WiFi disabled", logger.Fields{"connected": u.NetworkInfo(ctx).Connected})
	if !u.ToggleWifi(ctx, true) {
		env.Log.Warn("Could not re-enable WiFi")
	}
	return nil
}

func memoryAndStorage(ctx context.Context, env *Env) error {
	snap := env.Info.Snapshot(ctx)
	if snap.ScreenResolution == "" {
		return errors.New("could not retrieve device information")
	}
	out, ok := env.Device.ExecuteShell(ctx, "df", "/data")
	if !ok || strings.TrimSpace(out) == "" {
		return errors.New("could not retrieve storage information")
	}
	env.Log.Info("Memory and storage verified", logger.Fields{
		"resolution": snap.ScreenResolution,
		"android":    snap.AndroidVersion,
	})
	return nil
}

func multiAppWorkflow(ctx context.Context, env *Env) error {
	u := env.Device
	for i, app := range SystemApps {
		installed, err := launchAndVerify(ctx, env, app)
		if err != nil {
			return err
		}
		if !installed {
			continue
		}
		u.TakeTimestampedScreenshot(ctx, "multiapp-"+strings.ToLower(app.Name))
		if i < len(SystemApps)-1 {
			if err := u.PressKey(ctx, core.KeyAppSwitch); err != nil {
				return err
			}
		}
	}
	return u.PressKey(ctx, core.KeyHome)
}

func errorRecovery(ctx context.Context, env *Env) error {
	u := env.Device
	_, err := u.WaitForElement(ctx, missingSelector, 0)
	switch {
	case err == nil:
		return errors.New("element should not exist")
	case !errors.Is(err, core.ErrElementNotFound):
		return err
	}
	env.Log.Info("Expected absence detected", logger.Fields{"selector": missingSelector})

	u.TakeTimestampedScreenshot(ctx, "error-recovery-test")
	if err := u.PressKey(ctx, core.KeyHome); err != nil {
		return err
	}
	if !u.WaitForPageLoad(ctx, 0) {
		return errors.New("device became unresponsive during error recovery")
	}
	return nil
}
