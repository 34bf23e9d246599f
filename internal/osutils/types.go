// Package osutils provides the window, cursor and coordinate primitives the
// overlay needs from the host operating system.
package osutils

// HWND is an opaque window handle.
type HWND uintptr

// Point is a position in client or screen coordinates.
type Point struct {
	X, Y int32
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the offset from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Rect is an axis-aligned rectangle expressed as origin plus size.
type Rect struct {
	Left   int32 `mapstructure:"left" json:"left"`
	Top    int32 `mapstructure:"top" json:"top"`
	Width  int32 `mapstructure:"width" json:"width"`
	Height int32 `mapstructure:"height" json:"height"`
}

// RectFromBounds converts Win32-style edges into a Rect.
func RectFromBounds(left, top, right, bottom int32) Rect {
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Center returns the middle of the rectangle relative to its own origin.
func (r Rect) Center() Point {
	return Point{X: r.Width / 2, Y: r.Height / 2}
}

// Clamp limits p to [0, Width] x [0, Height].
func (r Rect) Clamp(p Point) Point {
	if p.X < 0 {
		p.X = 0
	}
	if p.X > r.Width {
		p.X = r.Width
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.Y > r.Height {
		p.Y = r.Height
	}
	return p
}
