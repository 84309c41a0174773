// Package config handles configuration for droid-harness.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/droid-harness/pkg/core"
)

// Config represents the harness configuration (harness.yaml).
type Config struct {
	// Selection
	Profile string `yaml:"profile"` // Capability profile name
	Server  string `yaml:"server"`  // Server profile name

	// Named dictionaries, merged over the built-in ones
	Profiles map[string]map[string]interface{} `yaml:"profiles"`
	Servers  map[string]Server                 `yaml:"servers"`

	Settle   Settle   `yaml:"settle"`
	Timeouts Timeouts `yaml:"timeouts"`
	Output   Output   `yaml:"output"`
	Log      Log      `yaml:"log"`
}

// Settle holds the pauses inserted after actions whose effect is asynchronous.
type Settle struct {
	Gesture   time.Duration `yaml:"gesture"`   // after swipes, pinches, taps
	Rotation  time.Duration `yaml:"rotation"`  // after setOrientation
	AppLaunch time.Duration `yaml:"appLaunch"` // after launching an app
	Scroll    time.Duration `yaml:"scroll"`    // between scrollToElement attempts
	Wifi      time.Duration `yaml:"wifi"`      // after toggling wifi
	Keypress  time.Duration `yaml:"keypress"`  // after home/back/recents
	Poll      time.Duration `yaml:"poll"`      // waitForPageLoad polling cadence
}

// Timeouts holds wait budgets.
type Timeouts struct {
	Element  time.Duration `yaml:"element"`  // waitForElement default
	Action   time.Duration `yaml:"action"`   // safeClick/safeSetValue/safeGetText default
	PageLoad time.Duration `yaml:"pageLoad"` // waitForPageLoad default
	Interval time.Duration `yaml:"interval"` // waitForElement polling cadence
}

// Output controls where artifacts are written.
type Output struct {
	Dir            string `yaml:"dir"`            // Root for reports and screenshots
	ReportsDir     string `yaml:"reportsDir"`     // Relative to Dir
	ScreenshotsDir string `yaml:"screenshotsDir"` // Relative to Dir
	ReportName     string `yaml:"reportName"`     // Template: {date} {run} {suite}
	PerfReportName string `yaml:"perfReportName"` // Template: {date} {run} {suite}
}

// Log configures the logger.
type Log struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Profile:  "android",
		Server:   "local",
		Profiles: builtinProfiles(),
		Servers:  builtinServers(),
		Settle: Settle{
			Gesture:   time.Second,
			Rotation:  2 * time.Second,
			AppLaunch: 3 * time.Second,
			Scroll:    time.Second,
			Wifi:      2 * time.Second,
			Keypress:  time.Second,
			Poll:      500 * time.Millisecond,
		},
		Timeouts: Timeouts{
			Element:  10 * time.Second,
			Action:   5 * time.Second,
			PageLoad: 10 * time.Second,
			Interval: 500 * time.Millisecond,
		},
		Output: Output{
			Dir:            ".",
			ReportsDir:     "reports",
			ScreenshotsDir: "screenshots",
			ReportName:     "integration-test-report-{date}.json",
			PerfReportName: "performance-report-{date}.json",
		},
		Log: Log{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads configuration from a file, layered over Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration layered over Default.
// Profiles with a built-in name are merged key by key.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	builtin := cfg.Profiles
	cfg.Profiles = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithCause(err)
	}

	merged := make(map[string]map[string]interface{}, len(builtin)+len(cfg.Profiles))
	for name, caps := range builtin {
		merged[name] = caps
	}
	for name, caps := range cfg.Profiles {
		if base, ok := merged[name]; ok {
			merged[name] = mergeCaps(base, caps)
			continue
		}
		merged[name] = caps
	}
	cfg.Profiles = merged

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the wait and settle budgets are usable.
func (c *Config) Validate() error {
	if c.Timeouts.Interval <= 0 {
		return core.ErrInvalidConfig.WithMessage("timeouts.interval must be positive")
	}
	if c.Settle.Poll <= 0 {
		return core.ErrInvalidConfig.WithMessage("settle.poll must be positive")
	}
	for name, d := range map[string]time.Duration{
		"settle.gesture":    c.Settle.Gesture,
		"settle.rotation":   c.Settle.Rotation,
		"settle.appLaunch":  c.Settle.AppLaunch,
		"settle.scroll":     c.Settle.Scroll,
		"settle.wifi":       c.Settle.Wifi,
		"settle.keypress":   c.Settle.Keypress,
		"timeouts.element":  c.Timeouts.Element,
		"timeouts.action":   c.Timeouts.Action,
		"timeouts.pageLoad": c.Timeouts.PageLoad,
	} {
		if d < 0 {
			return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("%s must not be negative", name))
		}
	}
	return nil
}

// ReportsPath returns the reports directory.
func (o Output) ReportsPath() string {
	return filepath.Join(o.Dir, o.ReportsDir)
}

// ScreenshotsPath returns the screenshots directory.
func (o Output) ScreenshotsPath() string {
	return filepath.Join(o.Dir, o.ScreenshotsDir)
}

// Resolve loads path when set; otherwise the first file FindConfig
// returns, falling back to the defaults.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if found, ok := FindConfig(); ok {
		return Load(found)
	}
	return Default(), nil
}
