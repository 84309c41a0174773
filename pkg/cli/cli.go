// Package cli provides the command-line interface for droid-harness.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// ErrTestsFailed is returned by commands whose run completed with failures.
// Execute maps it to exit status 1.
var ErrTestsFailed = errors.New("one or more tests failed")

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to harness.yaml (default: ./harness.yaml, then $DROID_HARNESS_HOME, then the user config dir)",
		EnvVars: []string{"DROID_HARNESS_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "Capability profile (see `caps --list`)",
		EnvVars: []string{"DROID_HARNESS_PROFILE"},
	},
	&cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Named Appium server (local, remote, browserstack, saucelabs)",
		EnvVars: []string{"DROID_HARNESS_SERVER"},
	},
	&cli.StringFlag{
		Name:    "appium-url",
		Usage:   "Appium server URL (overrides --server)",
		EnvVars: []string{"APPIUM_URL"},
	},
	&cli.StringFlag{
		Name:    "driver",
		Aliases: []string{"d"},
		Usage:   "Session driver (appium, mock)",
		Value:   "appium",
		EnvVars: []string{"DROID_HARNESS_DRIVER"},
	},
	&cli.StringFlag{
		Name:  "caps",
		Usage: "JSON file of capabilities merged over the profile",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"udid"},
		Usage:   "Device UDID to run on (comma-separated runs in parallel)",
		EnvVars: []string{"DROID_HARNESS_DEVICE"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (error, warn, info, debug)",
		EnvVars: []string{"DROID_HARNESS_LOG_LEVEL"},
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Append JSON log lines to this file",
	},
	&cli.StringFlag{
		Name:  "output",
		Usage: "Root directory for reports and screenshots",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "droid-harness",
		Usage:   "Android device test harness over Appium",
		Version: Version,
		Description: `droid-harness drives an Android device through an Appium session and
runs an integration suite, a gesture walkthrough and a performance
benchmark against it. Results are written as JSON reports.

Examples:
  droid-harness run
  droid-harness --profile androidReal --device emulator-5554 run
  droid-harness --device emulator-5554,emulator-5556 run
  droid-harness perf --metrics perf.prom
  droid-harness caps --list`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			runCommand,
			infoCommand,
			perfCommand,
			gesturesCommand,
			capsCommand,
		},
		// Exit codes are decided by Execute.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
