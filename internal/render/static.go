// internal/render/static.go
package render

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/dom"
)

// -- Static Rendering Oracle --
//
// StaticOracle serves style and geometry for a parsed document without a
// browser. Styles come from inline style="" declarations over a minimal
// per-tag default table; rectangles come from inline left/top/width/height
// declarations or explicit SetRect calls, held in document coordinates and
// reported relative to a scrollable viewport. It implements every host
// collaborator contract, which makes it both the CLI backend and the test
// harness for the inspection engine.

const defaultFrameInterval = 16 * time.Millisecond

// inlineTags get display:inline by default.
var inlineTags = map[string]bool{
	"A": true, "ABBR": true, "B": true, "BDI": true, "BDO": true,
	"CITE": true, "CODE": true, "DATA": true, "DFN": true, "EM": true,
	"I": true, "KBD": true, "LABEL": true, "MARK": true, "Q": true,
	"S": true, "SAMP": true, "SMALL": true, "SPAN": true, "STRONG": true,
	"SUB": true, "SUP": true, "TIME": true, "U": true, "VAR": true,
}

type StaticOracle struct {
	mu        sync.Mutex
	tree      *dom.Tree
	viewport  schemas.Rect
	scroll    schemas.Point
	rects     map[*html.Node]schemas.Rect // document coordinates
	textRects map[*html.Node]schemas.Rect
	styles    map[*html.Node]map[string]string
	interval  time.Duration
}

// Compile-time collaborator contract checks.
var (
	_ schemas.RenderOracle         = (*StaticOracle)(nil)
	_ schemas.FrameClock           = (*StaticOracle)(nil)
	_ schemas.IntersectionNotifier = (*StaticOracle)(nil)
)

// NewStaticOracle builds an oracle over the tree with the given viewport
// size. Inline geometry declarations seed the rect table.
func NewStaticOracle(tree *dom.Tree, viewport schemas.Rect) *StaticOracle {
	o := &StaticOracle{
		tree:      tree,
		viewport:  viewport,
		rects:     make(map[*html.Node]schemas.Rect),
		textRects: make(map[*html.Node]schemas.Rect),
		styles:    make(map[*html.Node]map[string]string),
		interval:  defaultFrameInterval,
	}
	o.indexNode(tree.Document())
	return o
}

// Environment bundles the oracle into the host collaborator set.
func (o *StaticOracle) Environment() schemas.Environment {
	return schemas.Environment{Oracle: o, Clock: o, Intersections: o}
}

func (o *StaticOracle) indexNode(n *html.Node) {
	if n.Type == html.ElementNode {
		decls := parseDeclarations(dom.AttrOr(n, "style", ""))
		o.styles[n] = decls
		if rect, ok := rectFromDeclarations(decls); ok {
			o.rects[n] = rect
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		o.indexNode(c)
	}
}

// parseDeclarations splits an inline style attribute into a property map.
func parseDeclarations(style string) map[string]string {
	decls := make(map[string]string)
	for _, part := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		decls[strings.ToLower(strings.TrimSpace(prop))] = strings.ToLower(strings.TrimSpace(val))
	}
	return decls
}

func rectFromDeclarations(decls map[string]string) (schemas.Rect, bool) {
	w, okW := pixels(decls["width"])
	h, okH := pixels(decls["height"])
	if !okW || !okH {
		return schemas.Rect{}, false
	}
	x, _ := pixels(decls["left"])
	y, _ := pixels(decls["top"])
	return schemas.Rect{X: x, Y: y, Width: w, Height: h}, true
}

func pixels(v string) (float64, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// -- Mutation Helpers --
//
// Tests and long-lived callers adjust geometry through these; each mutation
// models a rendering tick.

// SetRect assigns the element's rectangle in document coordinates.
func (o *StaticOracle) SetRect(n *html.Node, rect schemas.Rect) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rects[n] = rect
}

// SetTextRect assigns a text node's rendered-run rectangle.
func (o *StaticOracle) SetTextRect(n *html.Node, rect schemas.Rect) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.textRects[n] = rect
}

// SetStyle overrides a single style property on an element.
func (o *StaticOracle) SetStyle(n *html.Node, prop, val string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	decls := o.styles[n]
	if decls == nil {
		decls = make(map[string]string)
		o.styles[n] = decls
	}
	decls[strings.ToLower(prop)] = strings.ToLower(val)
}

// SetFrameInterval tunes the frame clock; tests shorten it.
func (o *StaticOracle) SetFrameInterval(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.interval = d
}

// -- RenderOracle --

func (o *StaticOracle) ComputedStyle(n *html.Node, pseudo schemas.Pseudo) *schemas.ComputedStyle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if pseudo != schemas.PseudoNone {
		return nil
	}
	if !o.tree.Connected(n) {
		return nil
	}
	decls, ok := o.styles[n]
	if !ok {
		return nil
	}
	display := decls["display"]
	if display == "" {
		if inlineTags[dom.TagName(n)] {
			display = "inline"
		} else {
			display = "block"
		}
	}
	overflowX := firstNonEmpty(decls["overflow-x"], decls["overflow"], "visible")
	overflowY := firstNonEmpty(decls["overflow-y"], decls["overflow"], "visible")
	return &schemas.ComputedStyle{
		Display:    display,
		Visibility: o.inheritedLocked(n, "visibility", "visible"),
		Position:   firstNonEmpty(decls["position"], "static"),
		Cursor:     o.inheritedLocked(n, "cursor", "auto"),
		OverflowX:  overflowX,
		OverflowY:  overflowY,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// inheritedLocked resolves an inherited property up the parent chain.
func (o *StaticOracle) inheritedLocked(n *html.Node, prop, def string) string {
	for cur := n; cur != nil; cur = o.tree.ParentElementOrHost(cur) {
		if v := o.styles[cur][prop]; v != "" && v != "inherit" {
			return v
		}
	}
	return def
}

func (o *StaticOracle) ContentVisible(n *html.Node) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for cur := n; cur != nil; cur = o.tree.ParentElementOrHost(cur) {
		decls := o.styles[cur]
		if decls["display"] == "none" || decls["content-visibility"] == "hidden" {
			return false
		}
	}
	return true
}

func (o *StaticOracle) BoundingRect(n *html.Node) (schemas.Rect, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.viewRectLocked(n)
}

func (o *StaticOracle) viewRectLocked(n *html.Node) (schemas.Rect, bool) {
	rect, ok := o.rects[n]
	if !ok {
		return schemas.Rect{}, false
	}
	if o.styles[n]["position"] == "fixed" {
		// Fixed rects are authored in viewport coordinates already.
		return rect, true
	}
	rect.X -= o.scroll.X
	rect.Y -= o.scroll.Y
	return rect, true
}

func (o *StaticOracle) TextRect(n *html.Node) (schemas.Rect, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rect, ok := o.textRects[n]
	if !ok {
		return schemas.Rect{}, false
	}
	rect.X -= o.scroll.X
	rect.Y -= o.scroll.Y
	return rect, true
}

func (o *StaticOracle) ElementsFromPoint(root *html.Node, pt schemas.Point) []*html.Node {
	o.mu.Lock()
	defer o.mu.Unlock()

	type hit struct {
		el    *html.Node
		z     int
		order int
	}
	var hits []hit
	order := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			order++
			decls := o.styles[n]
			if decls["pointer-events"] != "none" && decls["display"] != "none" &&
				o.inheritedLocked(n, "visibility", "visible") == "visible" {
				if rect, ok := o.viewRectLocked(n); ok && rect.Contains(pt) {
					rep := o.representativeLocked(root, n)
					if rep != nil {
						z, _ := strconv.Atoi(decls["z-index"])
						hits = append(hits, hit{el: rep, z: z, order: order})
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(o.tree.Document())

	// Topmost first: higher z-index wins, later document order breaks ties.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].z != hits[j].z {
			return hits[i].z > hits[j].z
		}
		return hits[i].order > hits[j].order
	})

	seen := make(map[*html.Node]bool)
	var out []*html.Node
	for _, h := range hits {
		if !seen[h.el] {
			seen[h.el] = true
			out = append(out, h.el)
		}
	}
	return out
}

// representativeLocked maps an element to the node visible from the given
// rendering root: the element itself when it belongs to the root, otherwise
// the host chain entry that does.
func (o *StaticOracle) representativeLocked(root, n *html.Node) *html.Node {
	cur := n
	for cur != nil {
		encl := o.tree.EnclosingRoot(cur)
		if encl == root {
			return cur
		}
		if encl == nil {
			return nil
		}
		cur = o.tree.Host(encl)
	}
	return nil
}

func (o *StaticOracle) ElementFromPoint(root *html.Node, pt schemas.Point) *html.Node {
	els := o.ElementsFromPoint(root, pt)
	if len(els) == 0 {
		return nil
	}
	return els[0]
}

func (o *StaticOracle) Viewport() schemas.Rect {
	o.mu.Lock()
	defer o.mu.Unlock()
	return schemas.Rect{Width: o.viewport.Width, Height: o.viewport.Height}
}

func (o *StaticOracle) ScrollMetrics() schemas.ScrollMetrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	m := o.scrollMetricsLocked()
	m.ScrollLeft = o.scroll.X
	m.ScrollTop = o.scroll.Y
	return m
}

func (o *StaticOracle) ScrollIntoView(n *html.Node) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rect, ok := o.rects[n]
	if !ok {
		return nil
	}
	m := o.scrollMetricsLocked()
	o.scroll.X = clamp(rect.X+rect.Width/2-o.viewport.Width/2, 0, m.ScrollWidth-o.viewport.Width)
	o.scroll.Y = clamp(rect.Y+rect.Height/2-o.viewport.Height/2, 0, m.ScrollHeight-o.viewport.Height)
	return nil
}

// scrollMetricsLocked computes the document extents; fixed elements do not
// contribute. Offsets are left zero for the caller to fill in.
func (o *StaticOracle) scrollMetricsLocked() schemas.ScrollMetrics {
	w, h := o.viewport.Width, o.viewport.Height
	for n, r := range o.rects {
		if o.styles[n]["position"] == "fixed" {
			continue
		}
		if r.X+r.Width > w {
			w = r.X + r.Width
		}
		if r.Y+r.Height > h {
			h = r.Y + r.Height
		}
	}
	return schemas.ScrollMetrics{ScrollWidth: w, ScrollHeight: h}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// -- FrameClock --

func (o *StaticOracle) NextFrame(ctx context.Context) error {
	o.mu.Lock()
	d := o.interval
	o.mu.Unlock()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -- IntersectionNotifier --

func (o *StaticOracle) Observe(ctx context.Context, el *html.Node) (<-chan schemas.IntersectionEntry, func(), error) {
	entries := make(chan schemas.IntersectionEntry, 1)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	go func() {
		for {
			entry := o.intersection(el)
			select {
			case entries <- entry:
			default:
				// Slow consumer keeps only the freshest entry.
				select {
				case <-entries:
				default:
				}
				entries <- entry
			}
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(o.frameInterval()):
			}
		}
	}()
	return entries, cancel, nil
}

func (o *StaticOracle) frameInterval() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.interval
}

func (o *StaticOracle) intersection(el *html.Node) schemas.IntersectionEntry {
	rect, ok := o.BoundingRect(el)
	if !ok {
		return schemas.IntersectionEntry{}
	}
	overlap := rect.Intersect(o.Viewport())
	return schemas.IntersectionEntry{Intersecting: !overlap.Empty(), Rect: overlap}
}
