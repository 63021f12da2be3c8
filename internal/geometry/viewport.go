// internal/geometry/viewport.go
package geometry

import (
	"context"

	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/dom"
	"github.com/dashv0id/domprobe/internal/waitfor"
)

// -- Viewport Intersection --

// InViewport reports whether the element currently intersects the scrolling
// viewport, awaiting at least one delivered observation entry from the
// native notifier. No local timeout is imposed: the element is known to
// exist, so the first observation is guaranteed to eventually arrive; an
// outer deadline governs the wait.
func (e *Engine) InViewport(ctx context.Context, n *html.Node) (bool, error) {
	target := n
	// Individual options are not independently rendered in closed popups;
	// report the viewport state of the owning select instead.
	switch dom.TagName(n) {
	case "OPTION", "OPTGROUP":
		if sel := e.tree.Closest(n, func(a *html.Node) bool {
			return dom.TagName(a) == "SELECT"
		}); sel != nil {
			target = sel
		}
	}

	entries, cancel, err := e.env.Intersections.Observe(ctx, target)
	if err != nil {
		return false, err
	}
	defer cancel()

	var entry *schemas.IntersectionEntry
	w := waitfor.New(waitfor.NewFrameScheduler(e.env.Clock), waitfor.NoTimeout)
	err = w.Wait(ctx, func(context.Context) (bool, error) {
		select {
		case got, ok := <-entries:
			if !ok {
				return true, nil
			}
			entry = &got
			return true, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return entry.Intersecting, nil
}

// ViewportRect resolves the element's rectangle clipped to the viewport.
// ok is false when the element does not intersect the viewport or has a
// zero-area rect.
func (e *Engine) ViewportRect(n *html.Node) (schemas.Rect, bool) {
	rect, ok := e.env.Oracle.BoundingRect(n)
	if !ok || rect.Empty() {
		return schemas.Rect{}, false
	}
	clipped := rect.Intersect(e.env.Oracle.Viewport())
	if clipped.Empty() {
		return schemas.Rect{}, false
	}
	return clipped, true
}
