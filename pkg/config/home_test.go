package config

import (
	"path/filepath"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	t.Setenv("DROID_HARNESS_HOME", "/custom/path")

	if got := GetHome(); got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_NotInBin(t *testing.T) {
	t.Setenv("DROID_HARNESS_HOME", "")

	// go test binaries live in a temp build dir, never <home>/bin.
	if got := GetHome(); got != "" {
		t.Errorf("GetHome() = %q, want empty", got)
	}
}

func TestSearchDirs(t *testing.T) {
	home, userDir := t.TempDir(), t.TempDir()
	t.Setenv("DROID_HARNESS_HOME", home)
	t.Setenv("XDG_CONFIG_HOME", userDir)

	want := []string{".", home, filepath.Join(userDir, "droid-harness")}
	got := SearchDirs()
	if len(got) != len(want) {
		t.Fatalf("SearchDirs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SearchDirs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSearchDirs_Dedup(t *testing.T) {
	t.Setenv("DROID_HARNESS_HOME", ".")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if got := SearchDirs(); len(got) != 2 || got[0] != "." {
		t.Errorf("SearchDirs() = %v", got)
	}
}
