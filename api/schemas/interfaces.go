// api/schemas/interfaces.go
package schemas

import (
	"context"

	"golang.org/x/net/html"
)

// -- External Collaborator Contracts --
//
// The inspection engine does not compute layout itself; it consumes an
// existing computed-style and geometry oracle supplied by the host
// environment. Implementations live in internal/render; a harness embedding
// the library may provide its own.

// RenderOracle answers style, geometry, and hit-testing questions about a
// rendered document. All methods degrade rather than fail: a detached
// element yields a nil style and a missing rect, never an error.
type RenderOracle interface {
	// ComputedStyle returns the resolved style snapshot for the element and
	// pseudo selector, or nil when the element has no rendering view.
	ComputedStyle(el *html.Node, pseudo Pseudo) *ComputedStyle

	// ContentVisible reports the platform's own rendered-content check for
	// the element (content-visibility, display:none ancestors, etc.).
	ContentVisible(el *html.Node) bool

	// BoundingRect returns the element's bounding rectangle in viewport
	// coordinates. ok is false when the element generates no box.
	BoundingRect(el *html.Node) (rect Rect, ok bool)

	// TextRect returns the bounding rectangle of a text node's rendered run.
	TextRect(text *html.Node) (rect Rect, ok bool)

	// ElementsFromPoint returns every element under the point within the
	// given rendering root, topmost first.
	ElementsFromPoint(root *html.Node, pt Point) []*html.Node

	// ElementFromPoint returns the single topmost element under the point
	// within the given rendering root, or nil.
	ElementFromPoint(root *html.Node, pt Point) *html.Node

	// Viewport returns the scrolling viewport rectangle (origin 0,0).
	Viewport() Rect

	// ScrollMetrics returns the scrolling root's extent and offset.
	ScrollMetrics() ScrollMetrics

	// ScrollIntoView performs an instantaneous, non-animated, centered
	// scroll bringing the element into the viewport.
	ScrollIntoView(el *html.Node) error
}

// FrameClock schedules work against the rendering pipeline. NextFrame blocks
// until the next rendering frame, or until the context is done.
type FrameClock interface {
	NextFrame(ctx context.Context) error
}

// IntersectionNotifier asynchronously delivers viewport-intersection entries
// for an observed element. The notifier must deliver at least one entry for
// any currently-existing element. The returned cancel releases the
// observation and is safe to call more than once.
type IntersectionNotifier interface {
	Observe(ctx context.Context, el *html.Node) (entries <-chan IntersectionEntry, cancel func(), err error)
}

// Environment bundles the collaborators an inspector needs from its host.
type Environment struct {
	Oracle        RenderOracle
	Clock         FrameClock
	Intersections IntersectionNotifier
}
