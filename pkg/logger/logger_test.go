package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"error", LevelError, false},
		{"WARN", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"debug", LevelDebug, false},
		{"trace", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_Threshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Error("e")
	l.Warn("w")
	l.Info("i")
	l.Debug("d")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines at warn threshold, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"message":"e"`) || !strings.Contains(lines[1], `"message":"w"`) {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestLogger_Enabled(t *testing.T) {
	l := New(&bytes.Buffer{}, LevelInfo)
	if !l.Enabled(LevelError) || !l.Enabled(LevelInfo) {
		t.Error("error and info should be enabled at info threshold")
	}
	if l.Enabled(LevelDebug) {
		t.Error("debug should be disabled at info threshold")
	}

	var nilLogger *Logger
	if nilLogger.Enabled(LevelError) {
		t.Error("nil logger should never be enabled")
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug).With("run", "r1")

	l.Info("device info", Fields{"model": "Pixel 8", "api": 34})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["model"] != "Pixel 8" {
		t.Errorf("model = %v, want Pixel 8", entry["model"])
	}
	if entry["run"] != "r1" {
		t.Errorf("run = %v, want r1", entry["run"])
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.log")

	l, err := Open(Options{Level: LevelInfo, File: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	l.Info("written to file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestOpen_NoSinks(t *testing.T) {
	l, err := Open(Options{Level: LevelDebug})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	l.Info("discarded")
}
