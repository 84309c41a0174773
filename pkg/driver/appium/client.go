// Package appium implements core.Session against an Appium server using the
// W3C WebDriver protocol.
package appium

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/bytedance/sonic"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

// W3C WebDriver element identifier key (standard constant)
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// moveDurationMs is the pointer travel time for a moveTo step.
const moveDurationMs = 100

var _ core.Session = (*Client)(nil)

// Client handles HTTP communication with Appium server.
// Commands are serialized: at most one request is in flight per session.
type Client struct {
	serverURL string
	sessionID string
	client    *http.Client
	log       *logger.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the logger used for command tracing.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new Appium client.
func NewClient(serverURL string, opts ...Option) *Client {
	c := &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for install/screenshot
		},
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open creates a client and starts a session with the given capabilities.
func Open(ctx context.Context, serverURL string, capabilities map[string]interface{}, opts ...Option) (*Client, error) {
	c := NewClient(serverURL, opts...)
	if err := c.Connect(ctx, capabilities); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect creates a new session with the given capabilities.
func (c *Client) Connect(ctx context.Context, capabilities map[string]interface{}) error {
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": capabilities,
		},
	}

	resp, err := c.post(ctx, "/session", body)
	if err != nil {
		return core.ErrConnection.WithDetails(map[string]interface{}{"server": c.serverURL}).WithCause(err)
	}

	value, ok := resp["value"].(map[string]interface{})
	if !ok {
		return core.ErrConnection.WithCause(fmt.Errorf("invalid session response"))
	}

	sessionID, _ := value["sessionId"].(string)
	if sessionID == "" {
		return core.ErrConnection.WithCause(fmt.Errorf("no session ID in response"))
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.closed = false
	c.mu.Unlock()

	c.log.Info("Session created", logger.Fields{"sessionId": sessionID, "server": c.serverURL})
	return nil
}

// SessionID returns the active session ID.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Close deletes the session. Closing twice is a no-op.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.sessionID == "" {
		c.closed = true
		c.mu.Unlock()
		return nil
	}
	sessionID := c.sessionID
	c.closed = true
	c.mu.Unlock()

	_, err := c.delete(ctx, "/session/"+sessionID)
	if err != nil {
		return core.CommandError("deleteSession", err)
	}
	c.log.Info("Session closed", logger.Fields{"sessionId": sessionID})
	return nil
}

// Element Operations

// FindElements finds all elements matching an opaque selector.
func (c *Client) FindElements(ctx context.Context, selector string) ([]string, error) {
	using, value := selectorStrategy(selector)
	resp, err := c.command(ctx, "findElements", http.MethodPost, "/elements", map[string]interface{}{
		"using": using,
		"value": value,
	})
	if err != nil {
		return nil, err
	}

	values, ok := resp["value"].([]interface{})
	if !ok {
		return []string{}, nil
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if elem, ok := v.(map[string]interface{}); ok {
			if id := extractElementID(elem); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// ElementDisplayed checks if element is visible.
func (c *Client) ElementDisplayed(ctx context.Context, elementID string) (bool, error) {
	resp, err := c.command(ctx, "isDisplayed", http.MethodGet, elementPath(elementID)+"/displayed", nil)
	if err != nil {
		return false, err
	}
	displayed, _ := resp["value"].(bool)
	return displayed, nil
}

// ClickElement clicks an element using WebDriver standard endpoint.
func (c *Client) ClickElement(ctx context.Context, elementID string) error {
	_, err := c.command(ctx, "click", http.MethodPost, elementPath(elementID)+"/click", map[string]interface{}{})
	return err
}

// ClearElement clears an element's text.
func (c *Client) ClearElement(ctx context.Context, elementID string) error {
	_, err := c.command(ctx, "clear", http.MethodPost, elementPath(elementID)+"/clear", map[string]interface{}{})
	return err
}

// SetElementValue types text into an element.
func (c *Client) SetElementValue(ctx context.Context, elementID, text string) error {
	_, err := c.command(ctx, "setValue", http.MethodPost, elementPath(elementID)+"/value", map[string]interface{}{
		"text": text,
	})
	return err
}

// ElementText returns an element's text.
func (c *Client) ElementText(ctx context.Context, elementID string) (string, error) {
	resp, err := c.command(ctx, "getText", http.MethodGet, elementPath(elementID)+"/text", nil)
	if err != nil {
		return "", err
	}
	text, _ := resp["value"].(string)
	return text, nil
}

// Touch/Gesture Operations (W3C Actions)

// Gesture replays touch paths, one touch pointer per path.
func (c *Client) Gesture(ctx context.Context, paths ...core.TouchPath) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := c.command(ctx, "performActions", http.MethodPost, "/actions", map[string]interface{}{
		"actions": pointerActions(paths),
	})
	return err
}

// pointerActions converts touch paths into W3C pointer input sources.
func pointerActions(paths []core.TouchPath) []map[string]interface{} {
	sources := make([]map[string]interface{}, 0, len(paths))
	for i, path := range paths {
		actions := make([]map[string]interface{}, 0, len(path)+1)
		for _, step := range path {
			switch step.Kind {
			case core.TouchPress:
				actions = append(actions,
					map[string]interface{}{"type": "pointerMove", "duration": 0, "x": step.X, "y": step.Y, "origin": "viewport"},
					map[string]interface{}{"type": "pointerDown", "button": 0},
				)
			case core.TouchMoveTo:
				actions = append(actions,
					map[string]interface{}{"type": "pointerMove", "duration": moveDurationMs, "x": step.X, "y": step.Y, "origin": "viewport"},
				)
			case core.TouchWait:
				actions = append(actions, map[string]interface{}{"type": "pause", "duration": step.WaitMs})
			case core.TouchRelease:
				actions = append(actions, map[string]interface{}{"type": "pointerUp", "button": 0})
			}
		}
		sources = append(sources, map[string]interface{}{
			"type":       "pointer",
			"id":         fmt.Sprintf("finger%d", i+1),
			"parameters": map[string]interface{}{"pointerType": "touch"},
			"actions":    actions,
		})
	}
	return sources
}

// Navigation

// PressKey presses a key by Android keycode.
func (c *Client) PressKey(ctx context.Context, code int) error {
	_, err := c.command(ctx, "pressKeyCode", http.MethodPost, "/appium/device/press_keycode", map[string]interface{}{
		"keycode": code,
	})
	return err
}

// Screen Operations

// Screenshot returns a screenshot as PNG bytes.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	resp, err := c.command(ctx, "takeScreenshot", http.MethodGet, "/screenshot", nil)
	if err != nil {
		return nil, err
	}
	encoded, ok := resp["value"].(string)
	if !ok {
		return nil, core.CommandError("takeScreenshot", fmt.Errorf("invalid screenshot response"))
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, core.CommandError("takeScreenshot", err)
	}
	return data, nil
}

// WindowSize returns the current window dimensions.
func (c *Client) WindowSize(ctx context.Context) (core.Size, error) {
	resp, err := c.command(ctx, "getWindowRect", http.MethodGet, "/window/rect", nil)
	if err != nil {
		return core.Size{}, err
	}
	value, ok := resp["value"].(map[string]interface{})
	if !ok {
		return core.Size{}, core.CommandError("getWindowRect", fmt.Errorf("invalid rect response"))
	}
	w, _ := value["width"].(float64)
	h, _ := value["height"].(float64)
	return core.Size{Width: int(w), Height: int(h)}, nil
}

// Orientation

// Orientation returns the current orientation (PORTRAIT or LANDSCAPE).
func (c *Client) Orientation(ctx context.Context) (string, error) {
	resp, err := c.command(ctx, "getOrientation", http.MethodGet, "/orientation", nil)
	if err != nil {
		return "", err
	}
	orientation, _ := resp["value"].(string)
	return strings.ToUpper(orientation), nil
}

// SetOrientation sets the orientation.
func (c *Client) SetOrientation(ctx context.Context, orientation string) error {
	_, err := c.command(ctx, "setOrientation", http.MethodPost, "/orientation", map[string]interface{}{
		"orientation": strings.ToUpper(orientation),
	})
	return err
}

// CurrentActivity returns the foreground component as package/activity.
// Appium reports the activity relative to its package, so both are queried.
func (c *Client) CurrentActivity(ctx context.Context) (string, error) {
	resp, err := c.command(ctx, "getCurrentActivity", http.MethodGet, "/appium/device/current_activity", nil)
	if err != nil {
		return "", err
	}
	activity, _ := resp["value"].(string)

	resp, err = c.command(ctx, "getCurrentPackage", http.MethodGet, "/appium/device/current_package", nil)
	if err != nil {
		return activity, nil
	}
	pkg, _ := resp["value"].(string)
	if pkg == "" || strings.HasPrefix(activity, pkg) {
		return activity, nil
	}
	return pkg + "/" + activity, nil
}

// Scripts

// Execute runs a "mobile:" script with a single argument object.
func (c *Client) Execute(ctx context.Context, script string, args map[string]interface{}) (interface{}, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	resp, err := c.command(ctx, script, http.MethodPost, "/execute/sync", map[string]interface{}{
		"script": script,
		"args":   []interface{}{args},
	})
	if err != nil {
		return nil, err
	}
	return resp["value"], nil
}

// Shell runs a device shell command through "mobile: shell".
// The server must be started with the adb_shell insecure feature.
func (c *Client) Shell(ctx context.Context, command string, args ...string) (string, error) {
	if args == nil {
		args = []string{}
	}
	value, err := c.Execute(ctx, "mobile: shell", map[string]interface{}{
		"command": command,
		"args":    args,
	})
	if err != nil {
		return "", err
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case map[string]interface{}:
		// Some servers answer {stdout, stderr} when includeStderr is set.
		out, _ := v["stdout"].(string)
		return out, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// HTTP Helpers

func (c *Client) sessionPath() string {
	return "/session/" + c.sessionID
}

func elementPath(elementID string) string {
	return "/element/" + elementID
}

// command issues a session-scoped request and wraps failures as command errors.
func (c *Client) command(ctx context.Context, name, method, path string, body interface{}) (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.sessionID == "" {
		return nil, core.ErrSessionClosed.WithDetails(map[string]interface{}{"command": name})
	}

	c.log.Debug("Appium command", logger.Fields{"command": name, "path": path})
	resp, err := c.request(ctx, method, c.sessionPath()+path, body)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, core.CommandError(name, err)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *Client) delete(ctx context.Context, path string) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodDelete, path, nil)
}

func (c *Client) request(ctx context.Context, method, path string, body interface{}) (map[string]interface{}, error) {
	url := c.serverURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response (HTTP %d): %w", resp.StatusCode, err)
	}

	// Check for WebDriver error
	if errValue, ok := result["value"].(map[string]interface{}); ok {
		if errMsg, ok := errValue["message"].(string); ok {
			if errType, ok := errValue["error"].(string); ok {
				return result, fmt.Errorf("%s: %s", errType, errMsg)
			}
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return result, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return result, nil
}

// selectorStrategy maps an opaque selector onto a W3C locator strategy.
// XPath is the default; the other prefixes follow the WebdriverIO shorthands.
func selectorStrategy(selector string) (using, value string) {
	switch {
	case strings.HasPrefix(selector, "~"):
		return "accessibility id", selector[1:]
	case strings.HasPrefix(selector, "android="):
		return "-android uiautomator", strings.TrimPrefix(selector, "android=")
	case strings.HasPrefix(selector, "id="):
		return "id", strings.TrimPrefix(selector, "id=")
	default:
		return "xpath", selector
	}
}

func extractElementID(value map[string]interface{}) string {
	// W3C format
	if id, ok := value[w3cElementKey].(string); ok {
		return id
	}
	// Legacy format
	if id, ok := value["ELEMENT"].(string); ok {
		return id
	}
	return ""
}
