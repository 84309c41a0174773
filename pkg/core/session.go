package core

import (
	"context"
	"fmt"
)

// Session is an open, exclusive connection to one device.
// Implementations: Appium (W3C WebDriver), mock.
// Commands must be issued sequentially; no two may be in flight at once.
// After Close every command returns ErrSessionClosed.
type Session interface {
	// Execute runs a "mobile:" style script with one argument object.
	Execute(ctx context.Context, script string, args map[string]interface{}) (interface{}, error)

	// Shell runs a device shell command and returns its output.
	Shell(ctx context.Context, command string, args ...string) (string, error)

	// Screenshot captures the current screen as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// WindowSize returns the current window dimensions.
	WindowSize(ctx context.Context) (Size, error)

	// Gesture replays touch paths. Several paths are performed simultaneously
	// (one pointer per path).
	Gesture(ctx context.Context, paths ...TouchPath) error

	// PressKey presses an Android keycode.
	PressKey(ctx context.Context, code int) error

	Orientation(ctx context.Context) (string, error)
	SetOrientation(ctx context.Context, orientation string) error

	// CurrentActivity returns the foreground Android activity.
	CurrentActivity(ctx context.Context) (string, error)

	// FindElements returns IDs of elements matching an opaque selector.
	// No match is an empty slice, not an error.
	FindElements(ctx context.Context, selector string) ([]string, error)
	ElementDisplayed(ctx context.Context, elementID string) (bool, error)
	ClickElement(ctx context.Context, elementID string) error
	ClearElement(ctx context.Context, elementID string) error
	SetElementValue(ctx context.Context, elementID, text string) error
	ElementText(ctx context.Context, elementID string) (string, error)

	// Close ends the session. Closing twice is a no-op.
	Close(ctx context.Context) error
}

// Opener opens a new Session from resolved configuration.
type Opener func(ctx context.Context) (Session, error)

// Element is a located UI element.
type Element struct {
	ID       string `json:"id"`
	Selector string `json:"selector"`
}

// Size represents window dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// String formats the size as WxH.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Center returns the center point.
func (s Size) Center() (int, int) {
	return s.Width / 2, s.Height / 2
}

// TouchKind is one step of a touch path.
type TouchKind string

// Touch path steps.
const (
	TouchPress   TouchKind = "press"
	TouchMoveTo  TouchKind = "moveTo"
	TouchWait    TouchKind = "wait"
	TouchRelease TouchKind = "release"
)

// TouchAction is a single touch path step. X/Y apply to press and moveTo,
// WaitMs to wait.
type TouchAction struct {
	Kind   TouchKind `json:"action"`
	X      int       `json:"x,omitempty"`
	Y      int       `json:"y,omitempty"`
	WaitMs int       `json:"ms,omitempty"`
}

// TouchPath is an ordered sequence of steps performed by one finger.
type TouchPath []TouchAction

// Android keycodes used by the harness.
const (
	KeyHome      = 3
	KeyBack      = 4
	KeyAppSwitch = 187
)

// Orientation values.
const (
	OrientationPortrait  = "PORTRAIT"
	OrientationLandscape = "LANDSCAPE"
)
