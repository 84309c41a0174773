package device

import (
	"context"
	"strings"

	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

// Snapshot describes the device. Fields whose query failed are left empty
// and omitted from JSON.
type Snapshot struct {
	AndroidVersion   string `json:"androidVersion,omitempty"`
	DeviceModel      string `json:"deviceModel,omitempty"`
	Manufacturer     string `json:"manufacturer,omitempty"`
	Brand            string `json:"brand,omitempty"`
	BuildVersion     string `json:"buildVersion,omitempty"`
	ScreenResolution string `json:"screenResolution,omitempty"`
	Orientation      string `json:"orientation,omitempty"`
	APILevel         string `json:"apiLevel,omitempty"`
	KernelVersion    string `json:"kernelVersion,omitempty"`
	NetworkConnected *bool  `json:"networkConnected,omitempty"`
}

// Info aggregates device properties. Snapshots are built fresh on each call.
type Info struct {
	utils *Utils
	log   *logger.Logger
}

// NewInfo creates an aggregator over utils.
func NewInfo(utils *Utils) *Info {
	return &Info{utils: utils, log: utils.log}
}

// getprop reads one system property; "" when the query fails.
func (i *Info) getprop(ctx context.Context, name string) string {
	out, ok := i.utils.ExecuteShell(ctx, "getprop", name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(out)
}

// Snapshot issues every query independently; a failed query leaves its
// field empty and the rest of the snapshot intact.
func (i *Info) Snapshot(ctx context.Context) Snapshot {
	i.log.Info("Gathering complete device information")

	var s Snapshot
	s.AndroidVersion = i.getprop(ctx, "ro.build.version.release")
	s.DeviceModel = i.getprop(ctx, "ro.product.model")
	s.Manufacturer = i.getprop(ctx, "ro.product.manufacturer")
	s.Brand = i.getprop(ctx, "ro.product.brand")
	s.BuildVersion = i.getprop(ctx, "ro.build.version.incremental")

	if size, err := i.utils.session.WindowSize(ctx); err == nil {
		s.ScreenResolution = size.String()
	} else {
		i.log.Warn("Get window size failed", logger.Fields{"error": err.Error()})
	}
	s.Orientation = i.utils.Orientation(ctx)

	s.APILevel = i.getprop(ctx, "ro.build.version.sdk")
	if out, ok := i.utils.ExecuteShell(ctx, "uname", "-r"); ok {
		s.KernelVersion = strings.TrimSpace(out)
	}

	if network, err := i.utils.networkInfo(ctx); err == nil {
		connected := network.Connected
		s.NetworkConnected = &connected
	}

	i.log.Debug("Device info collected", logger.Fields{
		"androidVersion":   s.AndroidVersion,
		"deviceModel":      s.DeviceModel,
		"screenResolution": s.ScreenResolution,
	})
	return s
}
