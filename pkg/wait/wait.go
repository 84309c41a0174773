// Package wait provides the bounded polling primitive used by every
// operation that depends on asynchronous device state settling.
package wait

import (
	"context"
	"errors"
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/core"
)

// Condition reports whether the awaited state holds. An error counts as
// "not yet" and polling continues.
type Condition func(ctx context.Context) (bool, error)

// Config bounds a wait. Interval must be > 0; a zero Timeout means a single
// check without sleeping.
type Config struct {
	Timeout  time.Duration
	Interval time.Duration
}

// permanentError stops Until without further polling.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a condition error as final: Until returns it unchanged
// instead of polling again.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DefaultInterval is used when Config.Interval is not positive.
const DefaultInterval = time.Second

// sleep is replaced in tests.
var sleep = Sleep

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MaxPolls returns the number of condition checks Until performs at most.
func (c Config) MaxPolls() int {
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		return 1
	}
	n := int((c.Timeout + interval - 1) / interval)
	if n < 1 {
		n = 1
	}
	return n
}

// Until polls cond every cfg.Interval until it returns true, the poll budget
// (ceil(Timeout/Interval) checks) is spent, or Timeout elapses.
//
// It returns nil on success, core.ErrWaitTimeout (with the last condition
// error as cause, if any) on exhaustion, ctx.Err() when cancelled, or the
// wrapped error of a Permanent condition error.
func Until(ctx context.Context, cond Condition, cfg Config) error {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxPolls := cfg.MaxPolls()
	deadline := time.Now().Add(cfg.Timeout)

	var lastErr error
	for poll := 1; ; poll++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := cond(ctx)
		if err == nil && ok {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if err != nil {
			lastErr = err
		}

		if poll >= maxPolls || !time.Now().Before(deadline) {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}

	timeoutErr := core.ErrWaitTimeout.
		WithMessage("wait condition timed out after " + cfg.Timeout.String()).
		WithDetails(map[string]interface{}{"timeoutMs": cfg.Timeout.Milliseconds()})
	if lastErr != nil {
		return timeoutErr.WithCause(lastErr)
	}
	return timeoutErr
}
