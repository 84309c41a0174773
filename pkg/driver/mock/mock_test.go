package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/core"
)

func TestNew_Defaults(t *testing.T) {
	s := New(Config{})
	ctx := context.Background()

	size, err := s.WindowSize(ctx)
	if err != nil || size.Width != 1080 || size.Height != 2400 {
		t.Errorf("WindowSize = %v, %v", size, err)
	}
	orientation, _ := s.Orientation(ctx)
	if orientation != core.OrientationPortrait {
		t.Errorf("Orientation = %q, want PORTRAIT", orientation)
	}
	png, _ := s.Screenshot(ctx)
	if len(png) < 8 || png[1] != 'P' {
		t.Error("default screenshot should be a PNG")
	}
}

func TestSession_Shell(t *testing.T) {
	s := New(Config{
		Shell: map[string]string{
			"getprop ro.product.model": "Pixel 7\n",
			"uname":                    "5.10.0\n",
		},
	})
	ctx := context.Background()

	if out, _ := s.Shell(ctx, "getprop", "ro.product.model"); out != "Pixel 7\n" {
		t.Errorf("exact match = %q", out)
	}
	if out, _ := s.Shell(ctx, "uname", "-r"); out != "5.10.0\n" {
		t.Errorf("command fallback = %q", out)
	}
	if out, _ := s.Shell(ctx, "df", "/data"); out != "" {
		t.Errorf("unscripted = %q, want empty", out)
	}

	out, err := s.Execute(ctx, "mobile: shell", map[string]interface{}{
		"command": "getprop",
		"args":    []interface{}{"ro.product.model"},
	})
	if err != nil || out != "Pixel 7\n" {
		t.Errorf("Execute mobile: shell = %v, %v", out, err)
	}

	lines := s.ShellLines()
	if len(lines) != 4 || lines[3] != "getprop ro.product.model" {
		t.Errorf("ShellLines = %v", lines)
	}
}

func TestSession_Errors(t *testing.T) {
	boom := errors.New("boom")
	s := New(Config{Errors: map[string]error{
		"Screenshot":             boom,
		"Shell svc wifi disable": errors.New("permission denied"),
	}})
	ctx := context.Background()

	if _, err := s.Screenshot(ctx); !errors.Is(err, core.ErrCommand) || !errors.Is(err, boom) {
		t.Errorf("Screenshot error = %v", err)
	}
	if _, err := s.Shell(ctx, "svc", "wifi", "disable"); !errors.Is(err, core.ErrCommand) {
		t.Errorf("Shell error = %v", err)
	}
	if _, err := s.Shell(ctx, "svc", "wifi", "enable"); err != nil {
		t.Errorf("unrelated shell should succeed: %v", err)
	}
}

func TestSession_Elements(t *testing.T) {
	s := New(Config{Elements: map[string][]Element{
		"//android.widget.EditText": {{ID: "e1", Text: "", Displayed: true}},
	}})
	ctx := context.Background()

	ids, err := s.FindElements(ctx, "//android.widget.EditText")
	if err != nil || len(ids) != 1 || ids[0] != "e1" {
		t.Fatalf("FindElements = %v, %v", ids, err)
	}
	if ids, _ := s.FindElements(ctx, "//missing"); ids == nil || len(ids) != 0 {
		t.Errorf("no match should be empty slice, got %#v", ids)
	}

	_ = s.SetElementValue(ctx, "e1", "abc")
	if text, _ := s.ElementText(ctx, "e1"); text != "abc" {
		t.Errorf("ElementText = %q, want abc", text)
	}
	_ = s.ClearElement(ctx, "e1")
	if text, _ := s.ElementText(ctx, "e1"); text != "" {
		t.Errorf("ElementText after clear = %q", text)
	}

	if _, err := s.ElementDisplayed(ctx, "ghost"); err == nil {
		t.Error("unknown element should error")
	}
}

func TestSession_StatefulHooks(t *testing.T) {
	s := New(Config{})
	s.OnShell = func(s *Session, command string, args []string) {
		if command == "monkey" {
			s.SetActivity(args[1] + "/.Main")
		}
	}
	ctx := context.Background()

	_, _ = s.Shell(ctx, "monkey", "-p", "com.example", "1")
	if act, _ := s.CurrentActivity(ctx); act != "com.example/.Main" {
		t.Errorf("CurrentActivity = %q", act)
	}
	_ = s.PressKey(ctx, core.KeyHome)
	if act, _ := s.CurrentActivity(ctx); act == "com.example/.Main" {
		t.Error("Home should return to the launcher")
	}
}

func TestSession_Close(t *testing.T) {
	s := New(Config{})
	ctx := context.Background()

	_ = s.Close(ctx)
	_ = s.Close(ctx)

	if s.CloseCount() != 1 {
		t.Errorf("CloseCount = %d, want 1", s.CloseCount())
	}
	if err := s.PressKey(ctx, core.KeyHome); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("PressKey after close = %v", err)
	}
}

func TestSession_Delay(t *testing.T) {
	s := New(Config{Delay: 5 * time.Millisecond})
	start := time.Now()
	_ = s.PressKey(context.Background(), core.KeyHome)
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Delay not applied")
	}
}

func TestFailingOpener(t *testing.T) {
	_, err := FailingOpener(errors.New("refused"))(context.Background())
	if !errors.Is(err, core.ErrConnection) {
		t.Errorf("err = %v, want ErrConnection", err)
	}
}
