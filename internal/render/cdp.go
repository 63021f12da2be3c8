// internal/render/cdp.go
package render

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/dom"
)

// -- CDP Rendering Oracle --
//
// CDPOracle answers style and geometry questions against a live Chrome tab.
// On construction it snapshots the page's markup and parses it into the
// inspection tree; afterwards every query addresses the live element by its
// document-order index within its rendering root, so geometry always
// reflects the current render. The snapshot and the live DOM must stay
// structurally aligned: pages rewriting their own structure need a fresh
// oracle. Shadow content is covered for declarative shadow roots present in
// the snapshot markup.

var cdpJSON = jsoniter.ConfigCompatibleWithStandardLibrary

type CDPOracle struct {
	browser context.Context
	tree    *dom.Tree
	log     *zap.Logger
	frames  *rate.Limiter
	mu      sync.Mutex
	indexes map[*html.Node]int
	byRoot  map[*html.Node][]*html.Node
}

var (
	_ schemas.RenderOracle         = (*CDPOracle)(nil)
	_ schemas.FrameClock           = (*CDPOracle)(nil)
	_ schemas.IntersectionNotifier = (*CDPOracle)(nil)
)

// NewCDPOracle snapshots the tab's current document and builds an oracle
// over it. browser must be a chromedp tab context with a loaded page.
func NewCDPOracle(browser context.Context, log *zap.Logger) (*CDPOracle, *dom.Tree, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var src string
	if err := chromedp.Run(browser, chromedp.OuterHTML("html", &src, chromedp.ByQuery)); err != nil {
		return nil, nil, fmt.Errorf("snapshotting document markup: %w", err)
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing document snapshot: %w", err)
	}
	tree := dom.NewTree(doc)

	o := &CDPOracle{
		browser: browser,
		tree:    tree,
		log:     log.Named("cdp"),
		frames:  rate.NewLimiter(rate.Every(16*time.Millisecond), 1),
		indexes: make(map[*html.Node]int),
		byRoot:  make(map[*html.Node][]*html.Node),
	}
	o.indexRoot(tree.Document())
	return o, tree, nil
}

// indexRoot assigns each element its index within its rendering root,
// mirroring the live page's root.querySelectorAll('*') order. Template
// elements carrying a shadow root do not exist in the live DOM; their
// subtrees index as separate roots.
func (o *CDPOracle) indexRoot(root *html.Node) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if o.tree.IsShadowRoot(c) {
				o.indexRoot(c)
				continue
			}
			o.indexes[c] = len(o.byRoot[root])
			o.byRoot[root] = append(o.byRoot[root], c)
			walk(c)
		}
	}
	walk(root)
}

// ref builds the JS expression addressing the element in the live page, or
// ok=false when the element is not indexed.
func (o *CDPOracle) ref(n *html.Node) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refLocked(n)
}

func (o *CDPOracle) refLocked(n *html.Node) (string, bool) {
	idx, ok := o.indexes[n]
	if !ok {
		return "", false
	}
	root := o.tree.EnclosingRoot(n)
	rref, ok := o.rootRefLocked(root)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s.querySelectorAll('*')[%d]", rref, idx), true
}

func (o *CDPOracle) rootRefLocked(root *html.Node) (string, bool) {
	if root == nil {
		return "", false
	}
	if root.Type == html.DocumentNode {
		return "document", true
	}
	host := o.tree.Host(root)
	if host == nil {
		return "", false
	}
	href, ok := o.refLocked(host)
	if !ok {
		return "", false
	}
	return href + ".shadowRoot", true
}

// eval runs a JS expression and unmarshals its JSON result into out.
func (o *CDPOracle) eval(expr string, out any) error {
	var raw []byte
	if err := chromedp.Run(o.browser, chromedp.Evaluate(expr, &raw)); err != nil {
		return err
	}
	return cdpJSON.Unmarshal(raw, out)
}

// -- RenderOracle --

func (o *CDPOracle) ComputedStyle(n *html.Node, pseudo schemas.Pseudo) *schemas.ComputedStyle {
	ref, ok := o.ref(n)
	if !ok {
		return nil
	}
	pseudoArg := "null"
	if pseudo != schemas.PseudoNone {
		pseudoArg = fmt.Sprintf("%q", string(pseudo))
	}
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return null;
		const s = getComputedStyle(el, %s);
		return {
			display: s.display,
			visibility: s.visibility,
			position: s.position,
			cursor: s.cursor,
			overflowX: s.overflowX,
			overflowY: s.overflowY,
		};
	})()`, ref, pseudoArg)

	var got *struct {
		Display    string `json:"display"`
		Visibility string `json:"visibility"`
		Position   string `json:"position"`
		Cursor     string `json:"cursor"`
		OverflowX  string `json:"overflowX"`
		OverflowY  string `json:"overflowY"`
	}
	if err := o.eval(expr, &got); err != nil {
		o.log.Debug("computed style query failed", zap.Error(err))
		return nil
	}
	if got == nil {
		return nil
	}
	return &schemas.ComputedStyle{
		Display:    got.Display,
		Visibility: got.Visibility,
		Position:   got.Position,
		Cursor:     got.Cursor,
		OverflowX:  got.OverflowX,
		OverflowY:  got.OverflowY,
	}
}

func (o *CDPOracle) ContentVisible(n *html.Node) bool {
	ref, ok := o.ref(n)
	if !ok {
		return true
	}
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		if (el.checkVisibility) return el.checkVisibility({contentVisibilityAuto: true});
		return true;
	})()`, ref)
	var visible bool
	if err := o.eval(expr, &visible); err != nil {
		o.log.Debug("content visibility query failed", zap.Error(err))
		return true
	}
	return visible
}

type jsRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (o *CDPOracle) BoundingRect(n *html.Node) (schemas.Rect, bool) {
	ref, ok := o.ref(n)
	if !ok {
		return schemas.Rect{}, false
	}
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return null;
		const r = el.getBoundingClientRect();
		return {x: r.x, y: r.y, width: r.width, height: r.height};
	})()`, ref)
	var got *jsRect
	if err := o.eval(expr, &got); err != nil || got == nil {
		return schemas.Rect{}, false
	}
	return schemas.Rect{X: got.X, Y: got.Y, Width: got.Width, Height: got.Height}, true
}

func (o *CDPOracle) TextRect(text *html.Node) (schemas.Rect, bool) {
	parent := text.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return schemas.Rect{}, false
	}
	ref, ok := o.ref(parent)
	if !ok {
		return schemas.Rect{}, false
	}
	childIdx := 0
	for c := parent.FirstChild; c != nil && c != text; c = c.NextSibling {
		childIdx++
	}
	expr := fmt.Sprintf(`(() => {
		const t = %s.childNodes[%d];
		if (!t || t.nodeType !== Node.TEXT_NODE) return null;
		const range = document.createRange();
		range.selectNode(t);
		const r = range.getBoundingClientRect();
		return {x: r.x, y: r.y, width: r.width, height: r.height};
	})()`, ref, childIdx)
	var got *jsRect
	if err := o.eval(expr, &got); err != nil || got == nil {
		return schemas.Rect{}, false
	}
	return schemas.Rect{X: got.X, Y: got.Y, Width: got.Width, Height: got.Height}, true
}

func (o *CDPOracle) ElementsFromPoint(root *html.Node, pt schemas.Point) []*html.Node {
	return o.fromPoint(root, pt, "elementsFromPoint", true)
}

func (o *CDPOracle) ElementFromPoint(root *html.Node, pt schemas.Point) *html.Node {
	els := o.fromPoint(root, pt, "elementFromPoint", false)
	if len(els) == 0 {
		return nil
	}
	return els[0]
}

func (o *CDPOracle) fromPoint(root *html.Node, pt schemas.Point, method string, multi bool) []*html.Node {
	o.mu.Lock()
	rref, ok := o.rootRefLocked(root)
	ordered := o.byRoot[root]
	o.mu.Unlock()
	if !ok {
		return nil
	}
	call := fmt.Sprintf("root.%s(%f, %f)", method, pt.X, pt.Y)
	if !multi {
		call = "[" + call + "]"
	}
	expr := fmt.Sprintf(`(() => {
		const root = %s;
		if (!root) return null;
		const all = Array.from(root.querySelectorAll('*'));
		const out = [];
		for (const el of %s) {
			const i = all.indexOf(el);
			if (i !== -1) out.push(i);
		}
		return out;
	})()`, rref, call)

	var idxs []int
	if err := o.eval(expr, &idxs); err != nil {
		o.log.Debug("point query failed", zap.String("method", method), zap.Error(err))
		return nil
	}
	var out []*html.Node
	for _, i := range idxs {
		if i >= 0 && i < len(ordered) {
			out = append(out, ordered[i])
		}
	}
	return out
}

func (o *CDPOracle) Viewport() schemas.Rect {
	metrics, err := o.layoutMetrics()
	if err != nil {
		o.log.Debug("layout metrics query failed", zap.Error(err))
		return schemas.Rect{}
	}
	return schemas.Rect{Width: metrics.viewportW, Height: metrics.viewportH}
}

func (o *CDPOracle) ScrollMetrics() schemas.ScrollMetrics {
	metrics, err := o.layoutMetrics()
	if err != nil {
		o.log.Debug("layout metrics query failed", zap.Error(err))
		return schemas.ScrollMetrics{}
	}
	return schemas.ScrollMetrics{
		ScrollWidth:  metrics.contentW,
		ScrollHeight: metrics.contentH,
		ScrollLeft:   metrics.scrollX,
		ScrollTop:    metrics.scrollY,
	}
}

type layoutSnapshot struct {
	viewportW, viewportH float64
	contentW, contentH   float64
	scrollX, scrollY     float64
}

func (o *CDPOracle) layoutMetrics() (layoutSnapshot, error) {
	var snap layoutSnapshot
	err := chromedp.Run(o.browser, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, _, cssLayout, _, cssContent, err := page.GetLayoutMetrics().Do(ctx)
		if err != nil {
			return err
		}
		if cssLayout != nil {
			snap.viewportW = float64(cssLayout.ClientWidth)
			snap.viewportH = float64(cssLayout.ClientHeight)
			snap.scrollX = float64(cssLayout.PageX)
			snap.scrollY = float64(cssLayout.PageY)
		}
		if cssContent != nil {
			snap.contentW = cssContent.Width
			snap.contentH = cssContent.Height
		}
		return nil
	}))
	return snap, err
}

func (o *CDPOracle) ScrollIntoView(n *html.Node) error {
	ref, ok := o.ref(n)
	if !ok {
		return schemas.ErrNotConnected
	}
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		el.scrollIntoView({block: 'center', inline: 'center', behavior: 'instant'});
		return true;
	})()`, ref)
	var scrolled bool
	if err := o.eval(expr, &scrolled); err != nil {
		return fmt.Errorf("scrolling element into view: %w", err)
	}
	if !scrolled {
		return schemas.ErrNotConnected
	}
	return nil
}

// -- FrameClock --

// NextFrame paces callers to roughly the rendering cadence. CDP offers no
// portable frame callback over a shared tab, so a rate limiter at ~60Hz
// stands in.
func (o *CDPOracle) NextFrame(ctx context.Context) error {
	return o.frames.Wait(ctx)
}

// -- IntersectionNotifier --

func (o *CDPOracle) Observe(ctx context.Context, el *html.Node) (<-chan schemas.IntersectionEntry, func(), error) {
	if _, ok := o.ref(el); !ok {
		return nil, nil, schemas.ErrNotConnected
	}
	entries := make(chan schemas.IntersectionEntry, 1)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	go func() {
		for {
			entry := schemas.IntersectionEntry{}
			if rect, ok := o.BoundingRect(el); ok {
				overlap := rect.Intersect(o.Viewport())
				entry = schemas.IntersectionEntry{Intersecting: !overlap.Empty(), Rect: overlap}
			}
			select {
			case entries <- entry:
			default:
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
			default:
			}
			if err := o.NextFrame(ctx); err != nil {
				return
			}
		}
	}()
	return entries, cancel, nil
}
