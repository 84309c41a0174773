package cli

import (
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droid-harness/pkg/config"
)

var capsCommand = &cli.Command{
	Name:      "caps",
	Usage:     "List or print capability profiles",
	ArgsUsage: "[profile]",
	Description: `Print the resolved capabilities for a profile (default: the configured
one), list every profile and server, or print a CapabilityBuilder example.

Examples:
  droid-harness caps --list
  droid-harness caps androidReal
  droid-harness --caps overrides.json caps android
  droid-harness caps --example`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "list",
			Usage: "List profile and server names",
		},
		&cli.BoolFlag{
			Name:  "example",
			Usage: "Print capabilities built with the capability builder",
		},
	},
	Action: runCaps,
}

func runCaps(c *cli.Context) error {
	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	out := c.App.Writer

	switch {
	case c.Bool("list"):
		fmt.Fprintln(out, "Profiles:")
		for _, name := range cfg.ProfileNames() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out, "Servers:")
		for _, name := range cfg.ServerNames() {
			url, _ := cfg.ServerURL(name)
			fmt.Fprintf(out, "  %-14s %s\n", name, url)
		}
		return nil

	case c.Bool("example"):
		return printJSON(c, config.ExampleCapabilities())
	}

	var overrides map[string]interface{}
	if capsFile := c.String("caps"); capsFile != "" {
		if overrides, err = loadCapabilities(capsFile); err != nil {
			return err
		}
	}
	profile := c.Args().First()
	if profile == "" {
		profile = c.String("profile")
	}
	caps, err := cfg.Capabilities(profile, overrides)
	if err != nil {
		return err
	}
	return printJSON(c, caps)
}

// printJSON prints v indented, with map keys sorted.
func printJSON(c *cli.Context, v interface{}) error {
	data, err := json.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
