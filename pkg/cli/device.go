package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/device"
	"github.com/devicelab-dev/droid-harness/pkg/executor"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

var infoCommand = &cli.Command{
	Name:  "info",
	Usage: "Print a device information snapshot as JSON",
	Description: `Open a session, collect the device snapshot (Android version, model,
screen resolution, orientation, API level, kernel, connectivity) and
print it. The device is left as it was.`,
	Action: runInfo,
}

var gesturesCommand = &cli.Command{
	Name:  "gestures",
	Usage: "Walk through every gesture on the home screen and app drawer",
	Description: `Swipe in four directions, open the app drawer, long press, double tap
and pinch, then scroll the drawer looking for Settings and open it.`,
	Action: runGestures,
}

func runInfo(c *cli.Context) error {
	h, err := loadHarness(c)
	if err != nil {
		return err
	}
	defer h.close()

	ctx, stop := runContext(c)
	defer stop()

	session, err := h.opener(h.firstDevice())(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			h.log.Warn("Failed to close session", logger.Fields{"error": err.Error()})
		}
	}()

	utils := device.New(session, device.Options{
		Log:      h.log,
		Store:    core.NullBlobWriter{},
		Settle:   h.cfg.Settle,
		Timeouts: h.cfg.Timeouts,
	})
	return printJSON(c, device.NewInfo(utils).Snapshot(ctx))
}

func runGestures(c *cli.Context) error {
	h, err := loadHarness(c)
	if err != nil {
		return err
	}
	defer h.close()

	ctx, stop := runContext(c)
	defer stop()

	return h.withSuite(ctx, "gestures", func(ctx context.Context, env *executor.Env) error {
		if err := executor.GestureDemo(ctx, env); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "Gesture walkthrough completed")
		return nil
	})
}
