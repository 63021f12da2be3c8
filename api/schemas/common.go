// api/schemas/common.go
package schemas

// -- Geometry Primitives --

// Point is a position in viewport coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in viewport coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the middle point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Empty reports whether the rectangle encloses no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Intersect returns the overlapping region of two rectangles. The result is
// empty when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x1 := maxf(r.X, o.X)
	y1 := maxf(r.Y, o.Y)
	x2 := minf(r.X+r.Width, o.X+o.Width)
	y2 := minf(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// -- Computed Style Snapshot --

// Pseudo selects which pseudo-element a style query targets. A single element
// has independent style results per pseudo selector.
type Pseudo string

const (
	PseudoNone   Pseudo = ""
	PseudoBefore Pseudo = "::before"
	PseudoAfter  Pseudo = "::after"
)

// ComputedStyle is the subset of resolved style properties the inspection
// engine consumes. A nil *ComputedStyle means the element has no rendering
// view (for example, it is detached).
type ComputedStyle struct {
	Display    string
	Visibility string
	Position   string
	Cursor     string
	OverflowX  string
	OverflowY  string
}

// ScrollMetrics describes the scrolling root: its total scrollable extent and
// the current scroll offset.
type ScrollMetrics struct {
	ScrollWidth  float64
	ScrollHeight float64
	ScrollLeft   float64
	ScrollTop    float64
}

// IntersectionEntry is a single observation of an element's intersection with
// the scrolling viewport.
type IntersectionEntry struct {
	Intersecting bool
	Rect         Rect
}
