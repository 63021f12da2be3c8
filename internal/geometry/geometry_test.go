// internal/geometry/geometry_test.go
package geometry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/dom"
	"github.com/dashv0id/domprobe/internal/render"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func parseDoc(t *testing.T, src string) *dom.Tree {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return dom.NewTree(doc)
}

func findByID(t *testing.T, tree *dom.Tree, id string) *html.Node {
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

func newEngine(t *testing.T, src string, viewport schemas.Rect) (*Engine, *dom.Tree, *render.StaticOracle) {
	t.Helper()
	tree := parseDoc(t, src)
	oracle := render.NewStaticOracle(tree, viewport)
	oracle.SetFrameInterval(2 * time.Millisecond)
	return New(tree, oracle.Environment(), nil), tree, oracle
}

const viewportFixture = `<html><body>
  <div id="inside" style="left:10px;top:10px;width:100px;height:40px"></div>
  <div id="below" style="left:10px;top:900px;width:100px;height:40px"></div>
  <select id="sel" style="left:10px;top:60px;width:120px;height:20px">
    <option id="opt">one</option>
  </select>
</body></html>`

func TestVisible(t *testing.T) {
	src := `<html><body>
      <div id="plain" style="width:50px;height:50px"></div>
      <div id="none" style="display:none;width:50px;height:50px"></div>
      <div id="invis" style="visibility:hidden;width:50px;height:50px"></div>
      <div id="parent-invis" style="visibility:hidden"><span id="child-invis" style="width:10px;height:10px">x</span></div>
      <div id="zero" style="width:0px;height:50px"></div>
      <div id="norect"></div>
    </body></html>`
	e, tree, _ := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})

	tests := []struct {
		id   string
		want bool
	}{
		{"plain", true},
		{"none", false},
		{"invis", false},
		{"child-invis", false},
		{"zero", false},
		{"norect", false},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Visible(findByID(t, tree, tc.id)))
		})
	}
}

func TestVisibleDisplayContents(t *testing.T) {
	src := `<html><body>
      <div id="boxed-child" style="display:contents"><span id="inner" style="width:20px;height:10px">x</span></div>
      <div id="text-only" style="display:contents">hello</div>
      <div id="empty" style="display:contents"></div>
    </body></html>`
	e, tree, oracle := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})

	assert.True(t, e.Visible(findByID(t, tree, "boxed-child")))
	assert.False(t, e.Visible(findByID(t, tree, "empty")))

	// A contents element with only a rendered text run counts as visible.
	textOnly := findByID(t, tree, "text-only")
	assert.False(t, e.Visible(textOnly))
	oracle.SetTextRect(textOnly.FirstChild, schemas.Rect{X: 5, Y: 5, Width: 40, Height: 12})
	e.ResetCache()
	assert.True(t, e.Visible(textOnly))
}

func TestStyleCacheLifetime(t *testing.T) {
	src := `<html><body><div id="d" style="width:10px;height:10px"></div></body></html>`
	e, tree, oracle := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})
	d := findByID(t, tree, "d")

	first := e.Style(d, schemas.PseudoNone)
	require.NotNil(t, first)
	assert.Equal(t, "visible", first.Visibility)

	// Style mutations are invisible until the cache is reset.
	oracle.SetStyle(d, "visibility", "hidden")
	assert.Equal(t, "visible", e.Style(d, schemas.PseudoNone).Visibility)

	e.ResetCache()
	assert.Equal(t, "hidden", e.Style(d, schemas.PseudoNone).Visibility)
}

func TestStyleCachesAbsence(t *testing.T) {
	src := `<html><body><div id="d"></div></body></html>`
	e, _, _ := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})

	detached := &html.Node{Type: html.ElementNode, Data: "div"}
	assert.Nil(t, e.Style(detached, schemas.PseudoNone))
	// Second lookup is served from cache without consulting the oracle.
	assert.Nil(t, e.Style(detached, schemas.PseudoNone))
}

func TestHiddenByOverflow(t *testing.T) {
	src := `<html><body>
      <div id="clip" style="overflow:hidden;left:100px;top:100px;width:200px;height:100px">
        <div id="above" style="left:100px;top:0px;width:50px;height:50px"></div>
        <div id="inside" style="left:120px;top:120px;width:50px;height:50px"></div>
        <div id="beyond" style="left:100px;top:500px;width:50px;height:50px"></div>
      </div>
      <div id="scroller" style="overflow:scroll;left:400px;top:100px;width:200px;height:100px">
        <div id="left-of" style="left:100px;top:120px;width:50px;height:50px"></div>
        <div id="below-scroll" style="left:420px;top:500px;width:50px;height:50px"></div>
      </div>
      <div id="rescue" style="overflow:hidden;left:100px;top:400px;width:200px;height:100px">
        <div id="stray" style="left:100px;top:900px;width:50px;height:50px">
          <div id="escapee" style="left:120px;top:420px;width:20px;height:20px"></div>
        </div>
      </div>
    </body></html>`
	e, tree, _ := newEngine(t, src, schemas.Rect{Width: 1000, Height: 1000})

	tests := []struct {
		id     string
		hidden bool
	}{
		// overflow:hidden clips on both sides of both axes.
		{"above", true},
		{"inside", false},
		{"beyond", true},
		// overflow:scroll clips past the end but not before the start.
		{"left-of", false},
		{"below-scroll", true},
		// A clipped parent is rescued by a non-clipped descendant.
		{"stray", false},
		{"escapee", false},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			n := findByID(t, tree, tc.id)
			assert.Equal(t, tc.hidden, e.HiddenByOverflow(n))
			assert.Equal(t, !tc.hidden, e.ScrollableIntoView(n))
		})
	}
}

func TestHiddenByOverflowFixedExtent(t *testing.T) {
	// Fixed elements escape normal containment: their overflow ancestor is
	// the root element and clipping is judged against the scrolling root's
	// reachable area, not the ancestor's box.
	t.Run("beyond and before the document extent", func(t *testing.T) {
		src := `<html style="overflow:hidden"><body>
          <div id="content" style="left:0px;top:0px;width:800px;height:600px"></div>
          <div id="beyond" style="position:fixed;left:1000px;top:10px;width:50px;height:50px"></div>
          <div id="within" style="position:fixed;left:100px;top:10px;width:50px;height:50px"></div>
          <div id="before" style="position:fixed;left:-100px;top:10px;width:50px;height:50px"></div>
        </body></html>`
		e, tree, _ := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})

		assert.True(t, e.HiddenByOverflow(findByID(t, tree, "beyond")))
		assert.False(t, e.ScrollableIntoView(findByID(t, tree, "beyond")))
		assert.False(t, e.HiddenByOverflow(findByID(t, tree, "within")))
		assert.True(t, e.HiddenByOverflow(findByID(t, tree, "before")))
	})

	t.Run("scrolling shrinks the reachable area", func(t *testing.T) {
		src := `<html style="overflow:hidden"><body>
          <div id="content" style="left:0px;top:0px;width:1200px;height:600px"></div>
          <div id="edge" style="position:fixed;left:1100px;top:10px;width:50px;height:50px"></div>
        </body></html>`
		e, tree, oracle := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})
		edge := findByID(t, tree, "edge")

		assert.False(t, e.HiddenByOverflow(edge))

		// Centering the wide content scrolls right; the fixed element now
		// sits past what any further scrolling can reveal.
		require.NoError(t, oracle.ScrollIntoView(findByID(t, tree, "content")))
		assert.True(t, e.HiddenByOverflow(edge))
	})
}

func TestOverflowMissingGeometry(t *testing.T) {
	src := `<html><body><div id="clip" style="overflow:hidden;width:100px;height:100px"><div id="norect"></div></div></body></html>`
	e, tree, _ := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})
	// Without a rect the element is treated as reachable.
	assert.True(t, e.ScrollableIntoView(findByID(t, tree, "norect")))
}

func TestInViewport(t *testing.T) {
	e, tree, _ := newEngine(t, viewportFixture, schemas.Rect{Width: 800, Height: 600})
	ctx := context.Background()

	in, err := e.InViewport(ctx, findByID(t, tree, "inside"))
	require.NoError(t, err)
	assert.True(t, in)

	in, err = e.InViewport(ctx, findByID(t, tree, "below"))
	require.NoError(t, err)
	assert.False(t, in)
}

func TestInViewportOptionUsesSelect(t *testing.T) {
	e, tree, _ := newEngine(t, viewportFixture, schemas.Rect{Width: 800, Height: 600})
	// The option itself has no rect; its select is inside the viewport.
	in, err := e.InViewport(context.Background(), findByID(t, tree, "opt"))
	require.NoError(t, err)
	assert.True(t, in)
}

func TestViewportRect(t *testing.T) {
	src := `<html><body>
      <div id="partial" style="left:700px;top:500px;width:200px;height:200px"></div>
      <div id="off" style="left:900px;top:900px;width:50px;height:50px"></div>
    </body></html>`
	e, tree, _ := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})

	rect, ok := e.ViewportRect(findByID(t, tree, "partial"))
	require.True(t, ok)
	assert.Equal(t, schemas.Rect{X: 700, Y: 500, Width: 100, Height: 100}, rect)

	_, ok = e.ViewportRect(findByID(t, tree, "off"))
	assert.False(t, ok)
}

func TestCheckStable(t *testing.T) {
	src := `<html><body><div id="d" style="left:10px;top:10px;width:50px;height:50px"></div></body></html>`

	t.Run("holds still", func(t *testing.T) {
		e, tree, _ := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})
		stable, err := e.CheckStable(context.Background(), findByID(t, tree, "d"))
		require.NoError(t, err)
		assert.True(t, stable)
	})

	t.Run("moves between frames", func(t *testing.T) {
		e, tree, oracle := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})
		oracle.SetFrameInterval(30 * time.Millisecond)
		d := findByID(t, tree, "d")
		go func() {
			time.Sleep(5 * time.Millisecond)
			oracle.SetRect(d, schemas.Rect{X: 40, Y: 10, Width: 50, Height: 50})
		}()
		stable, err := e.CheckStable(context.Background(), d)
		require.NoError(t, err)
		assert.False(t, stable)
	})

	t.Run("element removed", func(t *testing.T) {
		e, tree, _ := newEngine(t, src, schemas.Rect{Width: 800, Height: 600})
		d := findByID(t, tree, "d")
		d.Parent.RemoveChild(d)
		_, err := e.CheckStable(context.Background(), d)
		assert.ErrorIs(t, err, schemas.ErrNotConnected)
	})
}
