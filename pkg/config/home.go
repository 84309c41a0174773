package config

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
)

const envHome = "DROID_HARNESS_HOME"

// configNames are the file names Resolve looks for, in order.
var configNames = []string{"harness.yaml", "harness.yml"}

// GetHome returns the droid-harness home: $DROID_HARNESS_HOME, else the
// parent of the binary's bin/ directory. It is empty when neither applies.
func GetHome() string {
	if env := os.Getenv(envHome); env != "" {
		return env
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	if binDir := filepath.Dir(exe); filepath.Base(binDir) == "bin" {
		return filepath.Dir(binDir)
	}
	return ""
}

// SearchDirs lists where harness.yaml is looked for: the working
// directory, the home, then <user config dir>/droid-harness.
func SearchDirs() []string {
	dirs := []string{"."}
	if home := GetHome(); home != "" {
		dirs = append(dirs, home)
	}
	if userDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userDir, "droid-harness"))
	}
	return lo.Uniq(dirs)
}

// FindConfig returns the first harness config file in SearchDirs.
func FindConfig() (string, bool) {
	for _, dir := range SearchDirs() {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}
