// Package gesture translates window geometry into touch paths.
//
// Every function here is pure: given the same window size it yields the same
// paths. Player replays them against a core.Session.
package gesture

import (
	"fmt"

	"github.com/devicelab-dev/droid-harness/pkg/core"
)

// Direction of a swipe or scroll, named after finger travel.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Fixed timings.
const (
	SwipeHoldMs     = 500
	LongPressMs     = 2000
	DoubleTapGapMs  = 100
	pinchInnerDelta = 50
	pinchOuterDelta = 100
)

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Center returns the middle of the window.
func Center(size core.Size) Point {
	x, y := size.Center()
	return Point{X: x, Y: y}
}

func frac(v int, f float64) int {
	return int(float64(v) * f)
}

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down, Left, Right:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q (want up, down, left or right)", s)
	}
}

// span returns start and end points for a swipe between the 20% and 80% lines.
func span(size core.Size, dir Direction) (Point, Point, error) {
	cx, cy := size.Center()
	low, high := frac(size.Height, 0.2), frac(size.Height, 0.8)
	left, right := frac(size.Width, 0.2), frac(size.Width, 0.8)

	switch dir {
	case Up:
		return Point{cx, high}, Point{cx, low}, nil
	case Down:
		return Point{cx, low}, Point{cx, high}, nil
	case Left:
		return Point{right, cy}, Point{left, cy}, nil
	case Right:
		return Point{left, cy}, Point{right, cy}, nil
	default:
		return Point{}, Point{}, fmt.Errorf("unknown direction %q", dir)
	}
}

// Swipe is a held swipe: press, hold SwipeHoldMs, move, release.
func Swipe(size core.Size, dir Direction) (core.TouchPath, error) {
	from, to, err := span(size, dir)
	if err != nil {
		return nil, err
	}
	return core.TouchPath{
		{Kind: core.TouchPress, X: from.X, Y: from.Y},
		{Kind: core.TouchWait, WaitMs: SwipeHoldMs},
		{Kind: core.TouchMoveTo, X: to.X, Y: to.Y},
		{Kind: core.TouchRelease},
	}, nil
}

// Scroll moves content. Down drags the finger from 80% to 20% of the height
// (revealing content below); Up is the reverse. There is no hold.
func Scroll(size core.Size, dir Direction) (core.TouchPath, error) {
	var finger Direction
	switch dir {
	case Down:
		finger = Up
	case Up:
		finger = Down
	default:
		return nil, fmt.Errorf("scroll direction must be up or down, got %q", dir)
	}
	from, to, _ := span(size, finger)
	return Drag(from, to), nil
}

// Drag presses at from, moves to to and releases.
func Drag(from, to Point) core.TouchPath {
	return core.TouchPath{
		{Kind: core.TouchPress, X: from.X, Y: from.Y},
		{Kind: core.TouchMoveTo, X: to.X, Y: to.Y},
		{Kind: core.TouchRelease},
	}
}

// Pinch returns two simultaneous finger paths around the window center.
// Outward moves the fingers from 50px to 100px off center along the
// diagonal; inward is the reverse.
func Pinch(size core.Size, outward bool) []core.TouchPath {
	c := Center(size)
	from, to := pinchInnerDelta, pinchOuterDelta
	if !outward {
		from, to = to, from
	}
	return []core.TouchPath{
		Drag(Point{c.X - from, c.Y - from}, Point{c.X - to, c.Y - to}),
		Drag(Point{c.X + from, c.Y + from}, Point{c.X + to, c.Y + to}),
	}
}

// LongPress presses at p, dwells for LongPressMs and releases.
func LongPress(p Point) core.TouchPath {
	return core.TouchPath{
		{Kind: core.TouchPress, X: p.X, Y: p.Y},
		{Kind: core.TouchWait, WaitMs: LongPressMs},
		{Kind: core.TouchRelease},
	}
}

// DoubleTap is two press-release pairs at p, DoubleTapGapMs apart.
func DoubleTap(p Point) core.TouchPath {
	return core.TouchPath{
		{Kind: core.TouchPress, X: p.X, Y: p.Y},
		{Kind: core.TouchRelease},
		{Kind: core.TouchWait, WaitMs: DoubleTapGapMs},
		{Kind: core.TouchPress, X: p.X, Y: p.Y},
		{Kind: core.TouchRelease},
	}
}

// OpenAppDrawer drags from 100px above the bottom edge to the center.
func OpenAppDrawer(size core.Size) core.TouchPath {
	c := Center(size)
	return Drag(Point{c.X, size.Height - 100}, c)
}

// DismissRecents drags from the center to 50px below the top edge.
func DismissRecents(size core.Size) core.TouchPath {
	c := Center(size)
	return Drag(c, Point{c.X, 50})
}
