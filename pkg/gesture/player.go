package gesture

import (
	"context"
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
	"github.com/devicelab-dev/droid-harness/pkg/wait"
)

// Player replays gestures on a borrowed session and waits Settle after each.
type Player struct {
	session core.Session
	settle  time.Duration
	log     *logger.Logger
}

// NewPlayer creates a Player. A nil logger discards output.
func NewPlayer(session core.Session, settle time.Duration, log *logger.Logger) *Player {
	if log == nil {
		log = logger.Nop()
	}
	return &Player{session: session, settle: settle, log: log}
}

// play sends paths and pauses for the settle delay.
func (p *Player) play(ctx context.Context, name string, paths ...core.TouchPath) error {
	p.log.Debug("Performing gesture", logger.Fields{"gesture": name})
	if err := p.session.Gesture(ctx, paths...); err != nil {
		return err
	}
	return wait.Sleep(ctx, p.settle)
}

func (p *Player) size(ctx context.Context) (core.Size, error) {
	return p.session.WindowSize(ctx)
}

// Swipe performs a held swipe in dir.
func (p *Player) Swipe(ctx context.Context, dir Direction) error {
	size, err := p.size(ctx)
	if err != nil {
		return err
	}
	path, err := Swipe(size, dir)
	if err != nil {
		return err
	}
	return p.play(ctx, "swipe "+string(dir), path)
}

// Scroll scrolls the content in dir (up or down).
func (p *Player) Scroll(ctx context.Context, dir Direction) error {
	size, err := p.size(ctx)
	if err != nil {
		return err
	}
	path, err := Scroll(size, dir)
	if err != nil {
		return err
	}
	return p.play(ctx, "scroll "+string(dir), path)
}

// Pinch performs a two-finger pinch around the center.
func (p *Player) Pinch(ctx context.Context, outward bool) error {
	size, err := p.size(ctx)
	if err != nil {
		return err
	}
	name := "pinch in"
	if outward {
		name = "pinch out"
	}
	return p.play(ctx, name, Pinch(size, outward)...)
}

// LongPress long-presses the window center.
func (p *Player) LongPress(ctx context.Context) error {
	size, err := p.size(ctx)
	if err != nil {
		return err
	}
	return p.play(ctx, "long press", LongPress(Center(size)))
}

// DoubleTap double-taps the window center.
func (p *Player) DoubleTap(ctx context.Context) error {
	size, err := p.size(ctx)
	if err != nil {
		return err
	}
	return p.play(ctx, "double tap", DoubleTap(Center(size)))
}

// Drag drags between two points.
func (p *Player) Drag(ctx context.Context, from, to Point) error {
	return p.play(ctx, "drag", Drag(from, to))
}

// OpenAppDrawer swipes the launcher's app drawer open.
func (p *Player) OpenAppDrawer(ctx context.Context) error {
	size, err := p.size(ctx)
	if err != nil {
		return err
	}
	return p.play(ctx, "open app drawer", OpenAppDrawer(size))
}

// DismissRecents swipes the focused recent task away.
func (p *Player) DismissRecents(ctx context.Context) error {
	size, err := p.size(ctx)
	if err != nil {
		return err
	}
	return p.play(ctx, "dismiss recents", DismissRecents(size))
}
