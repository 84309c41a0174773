package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	json "github.com/bytedance/sonic"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droid-harness/pkg/config"
	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/device"
	"github.com/devicelab-dev/droid-harness/pkg/driver/appium"
	"github.com/devicelab-dev/droid-harness/pkg/driver/mock"
	"github.com/devicelab-dev/droid-harness/pkg/executor"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

// harness is the resolved global state shared by every command.
type harness struct {
	cfg       *config.Config
	log       *logger.Logger
	driver    string
	serverURL string
	overrides map[string]interface{}
	devices   []string
}

// loadHarness resolves config, flags and the logger. Callers must close it.
func loadHarness(c *cli.Context) (*harness, error) {
	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.IsSet("profile") {
		cfg.Profile = c.String("profile")
	}
	if c.IsSet("server") {
		cfg.Server = c.String("server")
	}
	if c.IsSet("output") {
		cfg.Output.Dir = c.String("output")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}

	driver := strings.ToLower(c.String("driver"))
	if driver != "appium" && driver != "mock" {
		return nil, core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown driver %q (want appium or mock)", driver))
	}

	h := &harness{
		cfg:     cfg,
		driver:  driver,
		devices: parseDevices(c.String("device")),
	}

	if capsFile := c.String("caps"); capsFile != "" {
		if h.overrides, err = loadCapabilities(capsFile); err != nil {
			return nil, err
		}
	}
	if driver == "appium" {
		if _, err := cfg.Capabilities("", nil); err != nil {
			return nil, err
		}
		if h.serverURL = c.String("appium-url"); h.serverURL == "" {
			if h.serverURL, err = cfg.ServerURL(""); err != nil {
				return nil, err
			}
		}
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, core.ErrInvalidConfig.WithCause(err)
	}
	opts := logger.Options{Level: level, File: cfg.Log.File}
	if cfg.Log.Console {
		opts.Console = os.Stderr
	}
	if h.log, err = logger.Open(opts); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *harness) close() {
	if err := h.log.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// opener returns how to open a session on deviceID ("" for whatever the
// profile selects).
func (h *harness) opener(deviceID string) core.Opener {
	if h.driver == "mock" {
		return demoDevice(deviceID).Opener()
	}
	log := h.log
	if deviceID != "" {
		log = log.With("device", deviceID)
	}
	return func(ctx context.Context) (core.Session, error) {
		caps, err := h.capabilities(deviceID)
		if err != nil {
			return nil, err
		}
		log.Info("Creating Appium session", logger.Fields{"server": h.serverURL, "profile": h.cfg.Profile})
		client, err := appium.Open(ctx, h.serverURL, caps, appium.WithLogger(log))
		if err != nil {
			return nil, err
		}
		log.Info("Appium session created", logger.Fields{"session": client.SessionID()})
		return client, nil
	}
}

// capabilities resolves the profile, the --caps overrides, then the device.
func (h *harness) capabilities(deviceID string) (map[string]interface{}, error) {
	caps, err := h.cfg.Capabilities("", h.overrides)
	if err != nil {
		return nil, err
	}
	if deviceID != "" {
		caps["appium:udid"] = deviceID
		caps["appium:deviceName"] = deviceID
	}
	return caps, nil
}

// suiteConfig is the executor configuration shared by every command.
func (h *harness) suiteConfig(name string) executor.Config {
	return executor.Config{
		Name:     name,
		Settle:   h.cfg.Settle,
		Timeouts: h.cfg.Timeouts,
		Output:   h.cfg.Output,
		Log:      h.log,
	}
}

// firstDevice returns the first --device entry, or "".
func (h *harness) firstDevice() string {
	if len(h.devices) == 0 {
		return ""
	}
	return h.devices[0]
}

// withSuite opens a session on the first device, runs fn against it, and
// always tears down.
func (h *harness) withSuite(ctx context.Context, name string, fn func(ctx context.Context, env *executor.Env) error) error {
	cfg := h.suiteConfig(name)
	cfg.Open = h.opener(h.firstDevice())
	suite := executor.New(cfg)
	defer suite.Teardown(context.WithoutCancel(ctx))

	if !suite.Setup(ctx) {
		return core.ErrConnection.WithMessage("could not open device session")
	}
	return fn(ctx, suite.Env())
}

// parseDevices parses the --device flag value into device UDIDs.
func parseDevices(deviceFlag string) []string {
	if strings.TrimSpace(deviceFlag) == "" {
		return nil
	}
	var devices []string
	for _, d := range strings.Split(deviceFlag, ",") {
		if d = strings.TrimSpace(d); d != "" {
			devices = append(devices, d)
		}
	}
	return devices
}

// loadCapabilities loads capability overrides from a JSON file.
func loadCapabilities(capsFile string) (map[string]interface{}, error) {
	data, err := os.ReadFile(capsFile) //#nosec G304 -- user-provided caps file
	if err != nil {
		return nil, fmt.Errorf("failed to read caps file: %w", err)
	}

	var caps map[string]interface{}
	if err := json.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("failed to parse caps JSON: %w", err)
	}
	return caps, nil
}

const demoDF = `Filesystem     1K-blocks    Used Available Use% Mounted on
/dev/block/dm-5  5160576 3004120   2140072  59% /data
`

// demoDevice is a scripted healthy emulator for --driver mock.
func demoDevice(deviceID string) *mock.Session {
	if deviceID == "" {
		deviceID = "emulator-5554"
	}
	s := mock.New(mock.Config{
		Shell: map[string]string{
			"getprop ro.build.version.release":      "14",
			"getprop ro.product.model":              "sdk_gphone64_x86_64 (" + deviceID + ")",
			"getprop ro.product.manufacturer":       "Google",
			"getprop ro.product.brand":              "google",
			"getprop ro.build.version.incremental":  "11228894",
			"getprop ro.build.version.sdk":          "34",
			"uname -r":                              "6.1.23-android14-4-00257-g7e35917775b8-ab9964412",
			"dumpsys connectivity":                  "NetworkAgentInfo{network{100} handle{432902426637} ni{NetworkInfo: type: WIFI[], state: CONNECTED/CONNECTED}}",
			"dumpsys battery":                       "Current Battery Service state:\n  level: 100\n  scale: 100\n",
			"cat /proc/cpuinfo":                     "processor\t: 0\nprocessor\t: 1\nprocessor\t: 2\nprocessor\t: 3\n",
			"cat /proc/meminfo":                     "MemTotal:        2038200 kB\nMemFree:          512000 kB\n",
			"pm list packages com.android.settings": "package:com.android.settings",
			"df /data":                              demoDF,
		},
		Elements: map[string][]mock.Element{
			"//android.widget.EditText":   {{ID: "search", Displayed: true}},
			"//android.widget.TextView":   {{ID: "label", Text: "Settings", Displayed: true}},
			device.InteractiveSelector:    {{ID: "icon", Displayed: true}},
			executor.SettingsIconSelector: {{ID: "settings", Displayed: true}},
		},
	})
	s.OnShell = func(s *mock.Session, command string, args []string) {
		if command == "monkey" && len(args) > 1 {
			s.SetActivity(args[1] + "/.MainActivity")
		}
	}
	return s
}
