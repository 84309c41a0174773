// Package mock provides a scripted core.Session for testing without a real device.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/core"
)

var _ core.Session = (*Session)(nil)

// Element is a scripted UI element.
type Element struct {
	ID        string
	Text      string
	Displayed bool
}

// Call is one recorded session command.
type Call struct {
	Method string
	Args   []string
}

// String formats the call as "Method arg1 arg2".
func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Method
	}
	return c.Method + " " + strings.Join(c.Args, " ")
}

// Config configures mock session behavior.
type Config struct {
	// Delay adds artificial latency to every command.
	Delay time.Duration
	// WindowSize reported by WindowSize. Defaults to 1080x2400.
	WindowSize core.Size
	// Orientation is the initial orientation. Defaults to PORTRAIT.
	Orientation string
	// Activity is the initial foreground activity.
	Activity string
	// Shell maps "command arg1 arg2" (or just "command") to output.
	Shell map[string]string
	// Elements maps selectors to the elements they match.
	Elements map[string][]Element
	// Errors makes a method fail. Keys are method names ("Screenshot") or
	// "Shell <command line>" for a specific shell invocation.
	Errors map[string]error
	// Screenshot bytes. Defaults to a 1x1 PNG.
	Screenshot []byte
}

// Session is a scripted, in-memory core.Session.
type Session struct {
	mu     sync.Mutex
	cfg    Config
	closed bool

	orientation string
	activity    string
	elements    map[string][]Element
	values      map[string]string

	calls      []Call
	gestures   [][]core.TouchPath
	keys       []int
	closeCount int

	// OnShell runs after every successful shell command (for stateful scripts,
	// e.g. launching an app changes the current activity). Called with the
	// session lock released.
	OnShell func(s *Session, command string, args []string)
	// OnGesture runs after every gesture, with the session lock released.
	OnGesture func(s *Session, paths []core.TouchPath)
}

// New creates a new mock session.
func New(cfg Config) *Session {
	if cfg.WindowSize.Width == 0 && cfg.WindowSize.Height == 0 {
		cfg.WindowSize = core.Size{Width: 1080, Height: 2400}
	}
	if cfg.Orientation == "" {
		cfg.Orientation = core.OrientationPortrait
	}
	if cfg.Activity == "" {
		cfg.Activity = "com.google.android.apps.nexuslauncher/.NexusLauncherActivity"
	}
	if cfg.Screenshot == nil {
		cfg.Screenshot = pngPixel()
	}
	s := &Session{
		cfg:         cfg,
		orientation: cfg.Orientation,
		activity:    cfg.Activity,
		elements:    make(map[string][]Element),
		values:      make(map[string]string),
	}
	for sel, elems := range cfg.Elements {
		s.elements[sel] = append([]Element(nil), elems...)
	}
	return s
}

// Opener returns a core.Opener that always yields s.
func (s *Session) Opener() core.Opener {
	return func(context.Context) (core.Session, error) {
		return s, nil
	}
}

// FailingOpener returns a core.Opener that always fails to connect.
func FailingOpener(cause error) core.Opener {
	return func(context.Context) (core.Session, error) {
		return nil, core.ErrConnection.WithCause(cause)
	}
}

// begin records a call and applies delay, closed-state and scripted errors.
// The caller must hold s.mu.
func (s *Session) begin(ctx context.Context, method string, args ...string) error {
	s.calls = append(s.calls, Call{Method: method, Args: args})
	if s.closed {
		return core.ErrSessionClosed.WithDetails(map[string]interface{}{"command": method})
	}
	if s.cfg.Delay > 0 {
		timer := time.NewTimer(s.cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := s.cfg.Errors[method]; ok {
		return core.CommandError(method, err)
	}
	return nil
}

// Execute routes "mobile: shell" to Shell; other scripts return nil.
func (s *Session) Execute(ctx context.Context, script string, args map[string]interface{}) (interface{}, error) {
	if script == "mobile: shell" {
		command, _ := args["command"].(string)
		var shellArgs []string
		switch v := args["args"].(type) {
		case []string:
			shellArgs = v
		case []interface{}:
			for _, a := range v {
				shellArgs = append(shellArgs, fmt.Sprint(a))
			}
		}
		return s.Shell(ctx, command, shellArgs...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "Execute", script); err != nil {
		return nil, err
	}
	return nil, nil
}

// Shell returns scripted output for the command line.
func (s *Session) Shell(ctx context.Context, command string, args ...string) (string, error) {
	line := strings.TrimSpace(command + " " + strings.Join(args, " "))

	s.mu.Lock()
	if err := s.begin(ctx, "Shell", append([]string{command}, args...)...); err != nil {
		s.mu.Unlock()
		return "", err
	}
	if err, ok := s.cfg.Errors["Shell "+line]; ok {
		s.mu.Unlock()
		return "", core.CommandError("mobile: shell", err)
	}
	out, ok := s.cfg.Shell[line]
	if !ok {
		out = s.cfg.Shell[command]
	}
	hook := s.OnShell
	s.mu.Unlock()

	if hook != nil {
		hook(s, command, args)
	}
	return out, nil
}

// Screenshot returns the scripted PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "Screenshot"); err != nil {
		return nil, err
	}
	return append([]byte(nil), s.cfg.Screenshot...), nil
}

// WindowSize returns the scripted size.
func (s *Session) WindowSize(ctx context.Context) (core.Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "WindowSize"); err != nil {
		return core.Size{}, err
	}
	return s.cfg.WindowSize, nil
}

// Gesture records the touch paths.
func (s *Session) Gesture(ctx context.Context, paths ...core.TouchPath) error {
	s.mu.Lock()
	if err := s.begin(ctx, "Gesture", fmt.Sprint(len(paths))); err != nil {
		s.mu.Unlock()
		return err
	}
	s.gestures = append(s.gestures, paths)
	hook := s.OnGesture
	s.mu.Unlock()

	if hook != nil {
		hook(s, paths)
	}
	return nil
}

// PressKey records the keycode. Home returns to the launcher.
func (s *Session) PressKey(ctx context.Context, code int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "PressKey", fmt.Sprint(code)); err != nil {
		return err
	}
	s.keys = append(s.keys, code)
	if code == core.KeyHome {
		s.activity = s.cfg.Activity
	}
	return nil
}

// Orientation returns the current orientation.
func (s *Session) Orientation(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "Orientation"); err != nil {
		return "", err
	}
	return s.orientation, nil
}

// SetOrientation changes the orientation.
func (s *Session) SetOrientation(ctx context.Context, orientation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "SetOrientation", orientation); err != nil {
		return err
	}
	s.orientation = strings.ToUpper(orientation)
	return nil
}

// CurrentActivity returns the foreground activity.
func (s *Session) CurrentActivity(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "CurrentActivity"); err != nil {
		return "", err
	}
	return s.activity, nil
}

// FindElements returns IDs of scripted elements for selector.
func (s *Session) FindElements(ctx context.Context, selector string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "FindElements", selector); err != nil {
		return nil, err
	}
	elems := s.elements[selector]
	ids := make([]string, 0, len(elems))
	for _, e := range elems {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// ElementDisplayed reports the element's Displayed flag.
func (s *Session) ElementDisplayed(ctx context.Context, elementID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "ElementDisplayed", elementID); err != nil {
		return false, err
	}
	e, ok := s.lookup(elementID)
	if !ok {
		return false, core.CommandError("isDisplayed", fmt.Errorf("stale element reference: %s", elementID))
	}
	return e.Displayed, nil
}

// ClickElement records a click.
func (s *Session) ClickElement(ctx context.Context, elementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin(ctx, "ClickElement", elementID)
}

// ClearElement empties the element's value.
func (s *Session) ClearElement(ctx context.Context, elementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "ClearElement", elementID); err != nil {
		return err
	}
	s.values[elementID] = ""
	return nil
}

// SetElementValue appends text to the element's value.
func (s *Session) SetElementValue(ctx context.Context, elementID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "SetElementValue", elementID, text); err != nil {
		return err
	}
	if _, ok := s.values[elementID]; !ok {
		if e, found := s.lookup(elementID); found {
			s.values[elementID] = e.Text
		}
	}
	s.values[elementID] += text
	return nil
}

// ElementText returns the typed value, or the scripted text.
func (s *Session) ElementText(ctx context.Context, elementID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "ElementText", elementID); err != nil {
		return "", err
	}
	if v, ok := s.values[elementID]; ok {
		return v, nil
	}
	e, _ := s.lookup(elementID)
	return e.Text, nil
}

// Close marks the session closed. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "Close"})
	if s.closed {
		return nil
	}
	s.closed = true
	s.closeCount++
	if err, ok := s.cfg.Errors["Close"]; ok {
		return core.CommandError("deleteSession", err)
	}
	return nil
}

func (s *Session) lookup(elementID string) (Element, bool) {
	for _, elems := range s.elements {
		for _, e := range elems {
			if e.ID == elementID {
				return e, true
			}
		}
	}
	return Element{}, false
}

// Scripting helpers

// AddElement makes selector match e.
func (s *Session) AddElement(selector string, e Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[selector] = append(s.elements[selector], e)
}

// RemoveElements makes selector match nothing.
func (s *Session) RemoveElements(selector string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.elements, selector)
}

// SetActivity changes the foreground activity.
func (s *Session) SetActivity(activity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = activity
}

// SetShellOutput scripts output for a command line.
func (s *Session) SetShellOutput(line, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Shell == nil {
		s.cfg.Shell = make(map[string]string)
	}
	s.cfg.Shell[line] = output
}

// Inspection helpers

// Calls returns every recorded command in order.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many times method was invoked.
func (s *Session) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ShellLines returns every shell command line in order.
func (s *Session) ShellLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []string
	for _, c := range s.calls {
		if c.Method == "Shell" {
			lines = append(lines, strings.Join(c.Args, " "))
		}
	}
	return lines
}

// Gestures returns recorded gestures in order.
func (s *Session) Gestures() [][]core.TouchPath {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]core.TouchPath(nil), s.gestures...)
}

// Keys returns pressed keycodes in order.
func (s *Session) Keys() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.keys...)
}

// CloseCount returns how many times the session was actually closed.
func (s *Session) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Selectors returns the scripted selectors, sorted.
func (s *Session) Selectors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.elements))
	for sel := range s.elements {
		out = append(out, sel)
	}
	sort.Strings(out)
	return out
}

// pngPixel is a minimal valid PNG (1x1 transparent pixel).
func pngPixel() []byte {
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
		0x42, 0x60, 0x82,
	}
}
