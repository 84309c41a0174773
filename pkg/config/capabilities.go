package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/devicelab-dev/droid-harness/pkg/core"
)

// Server is a named Appium endpoint.
type Server struct {
	Protocol string `yaml:"protocol"`
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Path     string `yaml:"path"`
}

// URL returns the endpoint as a base URL. Port 443 implies https.
func (s Server) URL() string {
	protocol := s.Protocol
	if protocol == "" {
		protocol = "http"
		if s.Port == 443 {
			protocol = "https"
		}
	}
	path := s.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimSuffix(fmt.Sprintf("%s://%s:%d%s", protocol, s.Hostname, s.Port, path), "/")
}

// Capabilities resolves a profile name into a capability dictionary.
// overrides win over profile keys. The result is a fresh map.
func (c *Config) Capabilities(profile string, overrides map[string]interface{}) (map[string]interface{}, error) {
	if profile == "" {
		profile = c.Profile
	}
	base, ok := c.Profiles[profile]
	if !ok {
		return nil, core.ErrInvalidConfig.
			WithMessage(fmt.Sprintf("capability type '%s' not found. Available types: %s",
				profile, strings.Join(c.ProfileNames(), ", "))).
			WithDetails(map[string]interface{}{"profile": profile})
	}
	return mergeCaps(base, overrides), nil
}

// ProfileNames returns the capability profile names, sorted.
func (c *Config) ProfileNames() []string {
	names := lo.Keys(c.Profiles)
	sort.Strings(names)
	return names
}

// ServerURL resolves a server name into its base URL.
func (c *Config) ServerURL(name string) (string, error) {
	if name == "" {
		name = c.Server
	}
	srv, ok := c.Servers[name]
	if !ok {
		return "", core.ErrInvalidConfig.
			WithMessage(fmt.Sprintf("server config '%s' not found. Available configs: %s",
				name, strings.Join(c.ServerNames(), ", "))).
			WithDetails(map[string]interface{}{"server": name})
	}
	return srv.URL(), nil
}

// ServerNames returns the server profile names, sorted.
func (c *Config) ServerNames() []string {
	names := lo.Keys(c.Servers)
	sort.Strings(names)
	return names
}

func mergeCaps(base, overrides map[string]interface{}) map[string]interface{} {
	return lo.Assign(map[string]interface{}{}, base, overrides)
}

// CapabilityBuilder assembles a capability dictionary fluently.
type CapabilityBuilder struct {
	caps map[string]interface{}
}

// NewCapabilityBuilder starts from the Android/UiAutomator2 baseline.
func NewCapabilityBuilder() *CapabilityBuilder {
	return &CapabilityBuilder{caps: map[string]interface{}{
		"platformName":             "Android",
		"appium:automationName":    "UiAutomator2",
		"appium:newCommandTimeout": 120,
	}}
}

func (b *CapabilityBuilder) SetDevice(deviceName string) *CapabilityBuilder {
	b.caps["appium:deviceName"] = deviceName
	return b
}

func (b *CapabilityBuilder) SetUDID(udid string) *CapabilityBuilder {
	b.caps["appium:udid"] = udid
	return b
}

func (b *CapabilityBuilder) SetApp(appPath string) *CapabilityBuilder {
	b.caps["appium:app"] = appPath
	return b
}

// SetPackage sets the app package and, when non-empty, its launch activity.
func (b *CapabilityBuilder) SetPackage(packageName, activityName string) *CapabilityBuilder {
	b.caps["appium:appPackage"] = packageName
	if activityName != "" {
		b.caps["appium:appActivity"] = activityName
	}
	return b
}

func (b *CapabilityBuilder) SetBrowser(browserName string) *CapabilityBuilder {
	b.caps["appium:browserName"] = browserName
	return b
}

func (b *CapabilityBuilder) SetOrientation(orientation string) *CapabilityBuilder {
	b.caps["appium:orientation"] = strings.ToUpper(orientation)
	return b
}

func (b *CapabilityBuilder) EnableAutoGrantPermissions() *CapabilityBuilder {
	b.caps["appium:autoGrantPermissions"] = true
	return b
}

func (b *CapabilityBuilder) SetNoReset(noReset bool) *CapabilityBuilder {
	b.caps["appium:noReset"] = noReset
	return b
}

func (b *CapabilityBuilder) SetFullReset(fullReset bool) *CapabilityBuilder {
	b.caps["appium:fullReset"] = fullReset
	return b
}

// SetTimeout sets newCommandTimeout in seconds.
func (b *CapabilityBuilder) SetTimeout(seconds int) *CapabilityBuilder {
	b.caps["appium:newCommandTimeout"] = seconds
	return b
}

// Add sets an arbitrary capability.
func (b *CapabilityBuilder) Add(key string, value interface{}) *CapabilityBuilder {
	b.caps[key] = value
	return b
}

// Build returns a copy of the assembled capabilities.
func (b *CapabilityBuilder) Build() map[string]interface{} {
	return lo.Assign(map[string]interface{}{}, b.caps)
}

// ExampleCapabilities returns the builder example printed by `caps --example`.
func ExampleCapabilities() map[string]interface{} {
	return NewCapabilityBuilder().
		SetDevice("Pixel 7").
		SetPackage("com.example.app", ".MainActivity").
		EnableAutoGrantPermissions().
		SetNoReset(true).
		SetTimeout(180).
		Build()
}

func uiautomator2(deviceName string, extra map[string]interface{}) map[string]interface{} {
	return lo.Assign(map[string]interface{}{
		"platformName":             "Android",
		"appium:automationName":    "UiAutomator2",
		"appium:deviceName":        deviceName,
		"appium:newCommandTimeout": 120,
	}, extra)
}

func builtinProfiles() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"android": uiautomator2("Android Emulator", map[string]interface{}{
			"appium:autoGrantPermissions": true,
			"appium:noReset":              false,
			"appium:fullReset":            false,
		}),
		"androidReal": uiautomator2("Real Android Device", map[string]interface{}{
			"appium:udid":                 "auto",
			"appium:autoGrantPermissions": true,
			"appium:noReset":              true,
			"appium:fullReset":            false,
		}),
		"androidChrome": uiautomator2("Android Emulator", map[string]interface{}{
			"appium:browserName": "Chrome",
			"appium:chromeOptions": map[string]interface{}{
				"w3c":  false,
				"args": []string{"--disable-web-security", "--allow-running-insecure-content"},
			},
		}),
		"androidApp": uiautomator2("Android Emulator", map[string]interface{}{
			"appium:app":                  "/path/to/your/app.apk",
			"appium:autoGrantPermissions": true,
			"appium:noReset":              false,
			"appium:fullReset":            true,
		}),
		"androidPackage": uiautomator2("Android Emulator", map[string]interface{}{
			"appium:appPackage":           "com.example.app",
			"appium:appActivity":          ".MainActivity",
			"appium:autoGrantPermissions": true,
			"appium:noReset":              true,
		}),
		"androidPerformance": uiautomator2("Android Emulator", map[string]interface{}{
			"appium:newCommandTimeout":          180,
			"appium:autoGrantPermissions":       true,
			"appium:noReset":                    true,
			"appium:skipDeviceInitialization":   true,
			"appium:skipServerInstallation":     true,
			"appium:ignoreHiddenApiPolicyError": true,
		}),
		"androidDebug": uiautomator2("Android Emulator", map[string]interface{}{
			"appium:newCommandTimeout":               300,
			"appium:autoGrantPermissions":            true,
			"appium:noReset":                         true,
			"appium:systemPort":                      8201,
			"appium:uiautomator2ServerLaunchTimeout": 90000,
			"appium:adbExecTimeout":                  60000,
		}),
		"androidTablet": uiautomator2("Android Tablet", map[string]interface{}{
			"appium:autoGrantPermissions": true,
			"appium:orientation":          "LANDSCAPE",
			"appium:autoRotate":           true,
		}),
		"androidOld": uiautomator2("Android Emulator", map[string]interface{}{
			"appium:autoGrantPermissions":   true,
			"appium:noReset":                false,
			"appium:disableAndroidWatchers": true,
			"appium:skipLogcatCapture":      true,
		}),
		"androidCI": uiautomator2("Android Emulator", map[string]interface{}{
			"appium:newCommandTimeout":        180,
			"appium:autoGrantPermissions":     true,
			"appium:noReset":                  true,
			"appium:isHeadless":               true,
			"appium:skipDeviceInitialization": true,
			"appium:skipServerInstallation":   true,
		}),
	}
}

func builtinServers() map[string]Server {
	return map[string]Server{
		"local":        {Hostname: "localhost", Port: 4723, Path: "/"},
		"remote":       {Hostname: "your-remote-server.com", Port: 4723, Path: "/wd/hub"},
		"browserstack": {Hostname: "hub-cloud.browserstack.com", Port: 443, Path: "/wd/hub"},
		"saucelabs":    {Hostname: "ondemand.saucelabs.com", Port: 443, Path: "/wd/hub"},
	}
}
