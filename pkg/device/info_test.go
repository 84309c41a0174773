package device

import (
	"context"
	"errors"
	"testing"

	"github.com/devicelab-dev/droid-harness/pkg/driver/mock"
)

func deviceShell() map[string]string {
	return map[string]string{
		"getprop ro.build.version.release":     "14\n",
		"getprop ro.product.model":             "sdk_gphone64_x86_64\n",
		"getprop ro.product.manufacturer":      "Google\n",
		"getprop ro.product.brand":             "google\n",
		"getprop ro.build.version.incremental": "11228894\n",
		"getprop ro.build.version.sdk":         "34\n",
		"uname -r":                             "6.1.23-android14-4-00257\n",
		"dumpsys connectivity":                 "NetworkInfo: type: WIFI[], state: CONNECTED",
	}
}

func TestInfo_Snapshot(t *testing.T) {
	session := mock.New(mock.Config{Shell: deviceShell()})
	info := NewInfo(testUtils(session, nil))

	s := info.Snapshot(context.Background())

	if s.AndroidVersion != "14" || s.APILevel != "34" {
		t.Errorf("versions = %q/%q", s.AndroidVersion, s.APILevel)
	}
	if s.DeviceModel != "sdk_gphone64_x86_64" || s.Manufacturer != "Google" || s.Brand != "google" {
		t.Errorf("identity = %+v", s)
	}
	if s.BuildVersion != "11228894" || s.KernelVersion != "6.1.23-android14-4-00257" {
		t.Errorf("build/kernel = %q/%q", s.BuildVersion, s.KernelVersion)
	}
	if s.ScreenResolution != "1080x2400" || s.Orientation != "PORTRAIT" {
		t.Errorf("screen = %q %q", s.ScreenResolution, s.Orientation)
	}
	if s.NetworkConnected == nil || !*s.NetworkConnected {
		t.Errorf("NetworkConnected = %v", s.NetworkConnected)
	}
}

func TestInfo_SnapshotPartial(t *testing.T) {
	shell := deviceShell()
	session := mock.New(mock.Config{
		Shell: shell,
		Errors: map[string]error{
			"Shell getprop ro.product.model": errors.New("denied"),
			"Shell dumpsys connectivity":     errors.New("denied"),
			"WindowSize":                     errors.New("no window"),
		},
	})
	s := NewInfo(testUtils(session, nil)).Snapshot(context.Background())

	if s.DeviceModel != "" {
		t.Errorf("failed field should be empty, got %q", s.DeviceModel)
	}
	if s.ScreenResolution != "" {
		t.Errorf("failed resolution should be empty, got %q", s.ScreenResolution)
	}
	if s.NetworkConnected != nil {
		t.Error("failed network query should leave NetworkConnected absent")
	}
	if s.AndroidVersion != "14" || s.Manufacturer != "Google" {
		t.Errorf("other fields should survive: %+v", s)
	}
}

func TestInfo_SnapshotFresh(t *testing.T) {
	session := mock.New(mock.Config{Shell: deviceShell()})
	info := NewInfo(testUtils(session, nil))
	ctx := context.Background()

	_ = info.Snapshot(ctx)
	session.SetShellOutput("getprop ro.build.version.release", "15\n")
	if s := info.Snapshot(ctx); s.AndroidVersion != "15" {
		t.Errorf("snapshot should not be cached, got %q", s.AndroidVersion)
	}
}
