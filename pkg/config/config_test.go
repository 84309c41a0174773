package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/core"
)

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "harness.yaml")

	content := `
profile: androidReal
server: remote
settle:
  rotation: 3s
  poll: 250ms
timeouts:
  element: 15s
output:
  dir: out
  reportName: "{suite}-{date}.json"
log:
  level: debug
  file: harness.log
servers:
  remote:
    hostname: grid.internal
    port: 4444
    path: /wd/hub
profiles:
  android:
    appium:deviceName: emulator-5554
  custom:
    platformName: Android
    appium:udid: R58M123
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Profile != "androidReal" || cfg.Server != "remote" {
		t.Errorf("expected androidReal/remote, got %s/%s", cfg.Profile, cfg.Server)
	}
	if cfg.Settle.Rotation != 3*time.Second {
		t.Errorf("expected rotation settle 3s, got %v", cfg.Settle.Rotation)
	}
	if cfg.Settle.AppLaunch != 3*time.Second {
		t.Errorf("unset settle should keep default, got %v", cfg.Settle.AppLaunch)
	}
	if cfg.Settle.Poll != 250*time.Millisecond {
		t.Errorf("expected poll 250ms, got %v", cfg.Settle.Poll)
	}
	if cfg.Timeouts.Element != 15*time.Second {
		t.Errorf("expected element timeout 15s, got %v", cfg.Timeouts.Element)
	}
	if cfg.Output.ReportsDir != "reports" || cfg.Output.Dir != "out" {
		t.Errorf("unexpected output: %+v", cfg.Output)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "harness.log" {
		t.Errorf("unexpected log: %+v", cfg.Log)
	}

	url, err := cfg.ServerURL("")
	if err != nil || url != "http://grid.internal:4444/wd/hub" {
		t.Errorf("ServerURL = %q, %v", url, err)
	}

	caps, err := cfg.Capabilities("android", nil)
	if err != nil {
		t.Fatal(err)
	}
	if caps["appium:deviceName"] != "emulator-5554" {
		t.Errorf("user profile key should override, got %v", caps["appium:deviceName"])
	}
	if caps["appium:automationName"] != "UiAutomator2" {
		t.Errorf("built-in profile keys should be kept, got %v", caps["appium:automationName"])
	}
	if _, err := cfg.Capabilities("custom", nil); err != nil {
		t.Errorf("user-defined profile should resolve: %v", err)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/harness.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("settle: [unclosed"))
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestParse_InvalidInterval(t *testing.T) {
	_, err := Parse([]byte("timeouts:\n  interval: 0s\n"))
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// isolateSearch points the home and user config dir at empty temp dirs.
func isolateSearch(t *testing.T) (home, userDir string) {
	t.Helper()
	home, userDir = t.TempDir(), t.TempDir()
	t.Setenv("DROID_HARNESS_HOME", home)
	t.Setenv("XDG_CONFIG_HOME", userDir)
	return home, userDir
}

func TestResolve_Search(t *testing.T) {
	t.Run("yaml in home", func(t *testing.T) {
		home, _ := isolateSearch(t)
		if err := os.WriteFile(filepath.Join(home, "harness.yaml"), []byte("profile: androidCI\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Resolve("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Profile != "androidCI" {
			t.Errorf("expected androidCI, got %s", cfg.Profile)
		}
	})

	t.Run("yml in user config dir", func(t *testing.T) {
		_, userDir := isolateSearch(t)
		dir := filepath.Join(userDir, "droid-harness")
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "harness.yml"), []byte("server: saucelabs\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Resolve("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Server != "saucelabs" {
			t.Errorf("expected saucelabs, got %s", cfg.Server)
		}
	})

	t.Run("home wins over user config dir", func(t *testing.T) {
		home, userDir := isolateSearch(t)
		dir := filepath.Join(userDir, "droid-harness")
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "harness.yaml"), []byte("profile: androidDebug\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(home, "harness.yml"), []byte("profile: androidTablet\n"), 0644); err != nil {
			t.Fatal(err)
		}
		path, ok := FindConfig()
		if !ok || path != filepath.Join(home, "harness.yml") {
			t.Errorf("FindConfig() = %q, %v", path, ok)
		}
	})

	t.Run("missing", func(t *testing.T) {
		isolateSearch(t)
		cfg, err := Resolve("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Profile != "android" || cfg.Server != "local" {
			t.Errorf("expected defaults, got %s/%s", cfg.Profile, cfg.Server)
		}
	})
}

func TestResolve_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("profile: androidDebug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Resolve(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Profile != "androidDebug" {
		t.Errorf("expected androidDebug, got %s", cfg.Profile)
	}
}

func TestCapabilities_Overrides(t *testing.T) {
	cfg := Default()
	caps, err := cfg.Capabilities("android", map[string]interface{}{
		"appium:noReset": true,
		"appium:udid":    "emulator-5556",
	})
	if err != nil {
		t.Fatal(err)
	}
	if caps["appium:noReset"] != true || caps["appium:udid"] != "emulator-5556" {
		t.Errorf("overrides not applied: %v", caps)
	}

	// The profile itself must stay untouched.
	again, _ := cfg.Capabilities("android", nil)
	if again["appium:noReset"] != false {
		t.Errorf("profile was mutated: %v", again["appium:noReset"])
	}
	if _, ok := again["appium:udid"]; ok {
		t.Error("override leaked into profile")
	}
}

func TestCapabilities_Unknown(t *testing.T) {
	cfg := Default()
	_, err := cfg.Capabilities("iphone", nil)
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "android, androidApp, androidCI") {
		t.Errorf("error should list sorted profiles: %v", err)
	}
}

func TestServerURL(t *testing.T) {
	cfg := Default()
	tests := []struct {
		name string
		want string
	}{
		{"local", "http://localhost:4723"},
		{"remote", "http://your-remote-server.com:4723/wd/hub"},
		{"browserstack", "https://hub-cloud.browserstack.com:443/wd/hub"},
		{"saucelabs", "https://ondemand.saucelabs.com:443/wd/hub"},
	}
	for _, tt := range tests {
		got, err := cfg.ServerURL(tt.name)
		if err != nil {
			t.Errorf("ServerURL(%q) error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ServerURL(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	if _, err := cfg.ServerURL("nowhere"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestProfileNames(t *testing.T) {
	names := Default().ProfileNames()
	if len(names) != 10 {
		t.Fatalf("expected 10 built-in profiles, got %d: %v", len(names), names)
	}
	if names[0] != "android" {
		t.Errorf("expected sorted names, got %v", names)
	}
}

func TestCapabilityBuilder(t *testing.T) {
	caps := NewCapabilityBuilder().
		SetDevice("Pixel 7").
		SetUDID("R58M123").
		SetPackage("com.example.app", ".MainActivity").
		SetOrientation("landscape").
		EnableAutoGrantPermissions().
		SetNoReset(true).
		SetFullReset(false).
		SetTimeout(180).
		Add("appium:language", "en").
		Build()

	want := map[string]interface{}{
		"platformName":                "Android",
		"appium:automationName":       "UiAutomator2",
		"appium:deviceName":           "Pixel 7",
		"appium:udid":                 "R58M123",
		"appium:appPackage":           "com.example.app",
		"appium:appActivity":          ".MainActivity",
		"appium:orientation":          "LANDSCAPE",
		"appium:autoGrantPermissions": true,
		"appium:noReset":              true,
		"appium:fullReset":            false,
		"appium:newCommandTimeout":    180,
		"appium:language":             "en",
	}
	for k, v := range want {
		if caps[k] != v {
			t.Errorf("caps[%q] = %v, want %v", k, caps[k], v)
		}
	}
}

func TestCapabilityBuilder_PackageWithoutActivity(t *testing.T) {
	caps := NewCapabilityBuilder().SetPackage("com.example.app", "").Build()
	if _, ok := caps["appium:appActivity"]; ok {
		t.Error("empty activity should not be set")
	}
}

func TestCapabilityBuilder_BuildCopies(t *testing.T) {
	b := NewCapabilityBuilder()
	first := b.Build()
	b.SetDevice("Other")
	if _, ok := first["appium:deviceName"]; ok {
		t.Error("Build should return an independent copy")
	}
}

func TestOutputPaths(t *testing.T) {
	o := Default().Output
	if o.ReportsPath() != "reports" {
		t.Errorf("ReportsPath = %q", o.ReportsPath())
	}
	if o.ScreenshotsPath() != "screenshots" {
		t.Errorf("ScreenshotsPath = %q", o.ScreenshotsPath())
	}
}
