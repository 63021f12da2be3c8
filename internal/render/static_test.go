// internal/render/static_test.go
package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/dom"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T, src string, viewport schemas.Rect) (*StaticOracle, *dom.Tree) {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	tree := dom.NewTree(doc)
	return NewStaticOracle(tree, viewport), tree
}

func byID(t *testing.T, tree *dom.Tree, id string) *html.Node {
	t.Helper()
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && dom.AttrOr(n, "id", "") == id {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tree.Document())
	require.NotNil(t, found, "element #%s not found", id)
	return found
}

func TestInlineDeclarationsSeedGeometry(t *testing.T) {
	src := `<html><body>
      <div id="boxed" style="left: 10px; top: 20px; width: 100px; height: 50px"></div>
      <div id="unboxed" style="left:10px;top:20px"></div>
    </body></html>`
	o, tree := setup(t, src, schemas.Rect{Width: 800, Height: 600})

	rect, ok := o.BoundingRect(byID(t, tree, "boxed"))
	require.True(t, ok)
	assert.Equal(t, schemas.Rect{X: 10, Y: 20, Width: 100, Height: 50}, rect)

	_, ok = o.BoundingRect(byID(t, tree, "unboxed"))
	assert.False(t, ok)
}

func TestComputedStyleDefaults(t *testing.T) {
	src := `<html><body>
      <span id="s"></span>
      <div id="d" style="overflow:hidden;position:absolute"></div>
      <div style="visibility:hidden"><span id="inherits"></span></div>
    </body></html>`
	o, tree := setup(t, src, schemas.Rect{Width: 800, Height: 600})

	s := o.ComputedStyle(byID(t, tree, "s"), schemas.PseudoNone)
	require.NotNil(t, s)
	assert.Equal(t, "inline", s.Display)
	assert.Equal(t, "visible", s.Visibility)
	assert.Equal(t, "static", s.Position)

	d := o.ComputedStyle(byID(t, tree, "d"), schemas.PseudoNone)
	require.NotNil(t, d)
	want := &schemas.ComputedStyle{
		Display:    "block",
		Visibility: "visible",
		Position:   "absolute",
		Cursor:     "auto",
		OverflowX:  "hidden",
		OverflowY:  "hidden",
	}
	assert.Empty(t, cmp.Diff(want, d))

	inh := o.ComputedStyle(byID(t, tree, "inherits"), schemas.PseudoNone)
	require.NotNil(t, inh)
	assert.Equal(t, "hidden", inh.Visibility)

	detached := &html.Node{Type: html.ElementNode, Data: "div"}
	assert.Nil(t, o.ComputedStyle(detached, schemas.PseudoNone))
}

func TestScrollTranslation(t *testing.T) {
	src := `<html><body>
      <div id="far" style="left:100px;top:2000px;width:100px;height:50px"></div>
      <div id="pinned" style="position:fixed;left:10px;top:10px;width:40px;height:40px"></div>
    </body></html>`
	o, tree := setup(t, src, schemas.Rect{Width: 800, Height: 600})
	far := byID(t, tree, "far")

	m := o.ScrollMetrics()
	assert.Equal(t, float64(2050), m.ScrollHeight)
	assert.Zero(t, m.ScrollTop)

	require.NoError(t, o.ScrollIntoView(far))
	rect, ok := o.BoundingRect(far)
	require.True(t, ok)
	// Clamped to the document extent: the element sits at the viewport's
	// bottom edge rather than its center.
	assert.Equal(t, float64(550), rect.Y)
	assert.Equal(t, float64(1450), o.ScrollMetrics().ScrollTop)

	// Fixed elements do not move with the scroll offset.
	pinned, ok := o.BoundingRect(byID(t, tree, "pinned"))
	require.True(t, ok)
	assert.Equal(t, float64(10), pinned.Y)
}

func TestElementsFromPointOrdering(t *testing.T) {
	src := `<html><body>
      <div id="under" style="left:0px;top:0px;width:100px;height:100px"></div>
      <div id="over" style="left:0px;top:0px;width:100px;height:100px"></div>
      <div id="raised" style="left:0px;top:0px;width:100px;height:100px;z-index:5"></div>
      <div id="ghost" style="left:0px;top:0px;width:100px;height:100px;pointer-events:none"></div>
    </body></html>`
	o, tree := setup(t, src, schemas.Rect{Width: 800, Height: 600})

	els := o.ElementsFromPoint(tree.Document(), schemas.Point{X: 50, Y: 50})
	require.GreaterOrEqual(t, len(els), 3)
	assert.Same(t, byID(t, tree, "raised"), els[0])
	assert.Same(t, byID(t, tree, "over"), els[1])
	assert.Same(t, byID(t, tree, "under"), els[2])
	assert.NotContains(t, els, byID(t, tree, "ghost"))
}

func TestElementsFromPointShadowHostMapping(t *testing.T) {
	src := `<html><body>
      <div id="host" style="left:0px;top:0px;width:100px;height:100px">
        <template shadowrootmode="open">
          <button id="inner" style="left:10px;top:10px;width:50px;height:20px">go</button>
        </template>
      </div>
    </body></html>`
	o, tree := setup(t, src, schemas.Rect{Width: 800, Height: 600})
	host := byID(t, tree, "host")
	inner := byID(t, tree, "inner")
	pt := schemas.Point{X: 20, Y: 20}

	// From the document the shadow content is represented by its host.
	fromDoc := o.ElementsFromPoint(tree.Document(), pt)
	require.NotEmpty(t, fromDoc)
	assert.Same(t, host, fromDoc[0])

	// From inside the shadow root the real element is hit.
	root := tree.ShadowRoot(host)
	require.NotNil(t, root)
	fromRoot := o.ElementsFromPoint(root, pt)
	require.NotEmpty(t, fromRoot)
	assert.Same(t, inner, fromRoot[0])
}

func TestNextFrameHonorsContext(t *testing.T) {
	src := `<html><body></body></html>`
	o, _ := setup(t, src, schemas.Rect{Width: 800, Height: 600})
	o.SetFrameInterval(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.NextFrame(ctx), context.Canceled)
}

func TestObserveDeliversEntries(t *testing.T) {
	src := `<html><body><div id="d" style="left:10px;top:10px;width:50px;height:50px"></div></body></html>`
	o, tree := setup(t, src, schemas.Rect{Width: 800, Height: 600})
	o.SetFrameInterval(2 * time.Millisecond)

	entries, cancel, err := o.Observe(context.Background(), byID(t, tree, "d"))
	require.NoError(t, err)
	defer cancel()

	select {
	case entry := <-entries:
		assert.True(t, entry.Intersecting)
		assert.Equal(t, schemas.Rect{X: 10, Y: 10, Width: 50, Height: 50}, entry.Rect)
	case <-time.After(time.Second):
		t.Fatal("no intersection entry delivered")
	}
}
