// internal/geometry/overflow.go
package geometry

import (
	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/dom"
)

// -- Overflow Clipping --
//
// An element can be geometrically visible yet entirely clipped out by an
// ancestor's overflow behavior. The direct test compares the element's rect
// against each overflow-capable ancestor; the full test additionally lets a
// non-clipped descendant rescue the subtree (a parent with zero visible
// area does not nullify a child escaping via position:fixed or negative
// margins).

// HiddenByOverflow reports whether the element is fully clipped out of view:
// the element itself is clipped and every element child is too. A childless
// clipped candidate is fully hidden.
func (e *Engine) HiddenByOverflow(n *html.Node) bool {
	rect, ok := e.env.Oracle.BoundingRect(n)
	if !ok {
		// Permissive default: treat as scrollable when geometry is missing.
		return false
	}
	if !e.clippedByAncestors(n, rect) {
		return false
	}
	children := dom.ElementChildren(n)
	for _, c := range children {
		if !e.HiddenByOverflow(c) {
			return false
		}
	}
	return true
}

// ScrollableIntoView reports whether scrolling can ever bring the element
// into the viewport.
func (e *Engine) ScrollableIntoView(n *html.Node) bool {
	return !e.HiddenByOverflow(n)
}

// clippedByAncestors runs the direct clipping test against each overflow
// ancestor up to the document's root element.
func (e *Engine) clippedByAncestors(n *html.Node, rect schemas.Rect) bool {
	rootEl := e.rootElement()
	anc := e.overflowAncestor(n, rootEl)
	for anc != nil {
		if e.clips(anc, n, rect) {
			return true
		}
		if anc == rootEl {
			return false
		}
		anc = e.overflowAncestor(anc, rootEl)
	}
	return false
}

// overflowAncestor finds the nearest ancestor capable of clipping the
// element: skipping inline/contents display and, for absolutely positioned
// elements, statically positioned ancestors. Fixed-position elements always
// resolve to the root element, their scroll-independent origin.
func (e *Engine) overflowAncestor(n *html.Node, rootEl *html.Node) *html.Node {
	style := e.Style(n, schemas.PseudoNone)
	if style != nil && style.Position == "fixed" {
		if n == rootEl {
			return nil
		}
		return rootEl
	}
	absolute := style != nil && style.Position == "absolute"
	for p := e.tree.ParentElementOrHost(n); p != nil; p = e.tree.ParentElementOrHost(p) {
		if p == rootEl {
			return p
		}
		ps := e.Style(p, schemas.PseudoNone)
		if ps == nil {
			continue
		}
		if ps.Display == "inline" || ps.Display == "contents" {
			continue
		}
		if absolute && ps.Position == "static" {
			continue
		}
		return p
	}
	return nil
}

// clips runs the direct test of one ancestor against the element's rect.
func (e *Engine) clips(anc, n *html.Node, rect schemas.Rect) bool {
	style := e.Style(anc, schemas.PseudoNone)
	if style == nil {
		return false
	}
	ox, oy := style.OverflowX, style.OverflowY
	if ox == "" {
		ox = "visible"
	}
	if oy == "" {
		oy = "visible"
	}
	if ox == "visible" && oy == "visible" {
		return false
	}

	elStyle := e.Style(n, schemas.PseudoNone)
	if elStyle != nil && elStyle.Position == "fixed" {
		// Fixed elements escape normal containment: check against the
		// scrolling root's total extent and current offset instead.
		return e.fixedOutOfExtent(rect)
	}

	arect, ok := e.env.Oracle.BoundingRect(anc)
	if !ok || arect.Empty() {
		// A zero-area or invisible ancestor clips everything beneath it.
		return true
	}

	underflowX := ox == "hidden" && rect.X+rect.Width <= arect.X
	overflowX := ox != "visible" && rect.X >= arect.X+arect.Width
	underflowY := oy == "hidden" && rect.Y+rect.Height <= arect.Y
	overflowY := oy != "visible" && rect.Y >= arect.Y+arect.Height
	return underflowX || overflowX || underflowY || overflowY
}

// fixedOutOfExtent reports whether a fixed-position rect lies beyond the
// scrolling root's reachable area.
func (e *Engine) fixedOutOfExtent(rect schemas.Rect) bool {
	m := e.env.Oracle.ScrollMetrics()
	if rect.X+rect.Width <= -m.ScrollLeft || rect.Y+rect.Height <= -m.ScrollTop {
		return true
	}
	return rect.X >= m.ScrollWidth-m.ScrollLeft || rect.Y >= m.ScrollHeight-m.ScrollTop
}

// rootElement returns the document's root element (html), or nil for an
// empty document.
func (e *Engine) rootElement() *html.Node {
	for c := e.tree.Document().FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}
