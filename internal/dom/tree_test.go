// internal/dom/tree_test.go
package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseDoc(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

const shadowFixture = `
<div id="host">
  <template shadowrootmode="open">
    <div id="inner">
      <slot name="title"></slot>
      <slot id="default-slot"></slot>
    </div>
  </template>
  <span id="titled" slot="title">Heading</span>
  <span id="plain">Body</span>
</div>
<p id="outside">after</p>`

func TestTreeShadowRoots(t *testing.T) {
	doc := parseDoc(t, shadowFixture)
	tree := NewTree(doc)

	host := findByID(doc, "host")
	inner := findByID(doc, "inner")
	outside := findByID(doc, "outside")
	require.NotNil(t, host)
	require.NotNil(t, inner)

	root := tree.ShadowRoot(host)
	require.NotNil(t, root, "declarative shadow root should be instantiated")
	assert.True(t, tree.IsShadowRoot(root))
	assert.Equal(t, host, tree.Host(root))

	t.Run("enclosing root", func(t *testing.T) {
		assert.Equal(t, root, tree.EnclosingRoot(inner))
		assert.Equal(t, doc, tree.EnclosingRoot(host))
		assert.Equal(t, doc, tree.EnclosingRoot(outside))
	})

	t.Run("parent element crosses the boundary", func(t *testing.T) {
		assert.Equal(t, host, tree.ParentElementOrHost(inner))
		assert.Equal(t, inner, tree.ParentElementOrHost(findByID(doc, "default-slot")))
	})

	t.Run("slot assignment", func(t *testing.T) {
		titled := findByID(doc, "titled")
		plain := findByID(doc, "plain")
		named := tree.AssignedSlot(titled)
		require.NotNil(t, named)
		assert.Equal(t, "title", AttrOr(named, "name", ""))
		assert.Equal(t, findByID(doc, "default-slot"), tree.AssignedSlot(plain))
		assert.Nil(t, tree.AssignedSlot(outside))
	})

	t.Run("connectivity", func(t *testing.T) {
		assert.True(t, tree.Connected(inner))
		assert.True(t, tree.Connected(outside))
		detached := &html.Node{Type: html.ElementNode, Data: "div"}
		assert.False(t, tree.Connected(detached))
	})
}

func TestClosestAndNearestElement(t *testing.T) {
	doc := parseDoc(t, `<section id="outer"><div id="mid"><b id="leaf">x</b></div></section>`)
	tree := NewTree(doc)
	leaf := findByID(doc, "leaf")
	text := leaf.FirstChild
	require.NotNil(t, text)

	assert.Equal(t, leaf, tree.NearestElement(text))
	got := tree.Closest(text, func(n *html.Node) bool { return TagName(n) == "SECTION" })
	assert.Equal(t, findByID(doc, "outer"), got)
	assert.Nil(t, tree.Closest(text, func(n *html.Node) bool { return TagName(n) == "NAV" }))
}

func TestNativelyDisabled(t *testing.T) {
	doc := parseDoc(t, `
		<fieldset disabled id="fs">
			<legend><input id="exempt"></legend>
			<input id="caught">
		</fieldset>
		<button id="own" disabled>b</button>
		<button id="free">b</button>
		<div id="div" disabled>not a control</div>`)
	tree := NewTree(doc)

	assert.True(t, NativelyDisabled(tree, findByID(doc, "own")))
	assert.False(t, NativelyDisabled(tree, findByID(doc, "free")))
	assert.True(t, NativelyDisabled(tree, findByID(doc, "caught")), "fieldset disables descendants")
	assert.False(t, NativelyDisabled(tree, findByID(doc, "exempt")), "first legend is exempt")
	assert.False(t, NativelyDisabled(tree, findByID(doc, "div")), "disabled only applies to form controls")
}

func TestFocusable(t *testing.T) {
	doc := parseDoc(t, `
		<a id="link" href="/x">a</a>
		<a id="anchor">a</a>
		<input id="hidden" type="hidden">
		<input id="text">
		<div id="tab" tabindex="0">d</div>
		<div id="edit" contenteditable>d</div>
		<button id="dis" disabled>b</button>
		<div id="plain">d</div>`)
	tree := NewTree(doc)

	assert.True(t, IsFocusable(tree, findByID(doc, "link")))
	assert.False(t, IsFocusable(tree, findByID(doc, "anchor")))
	assert.False(t, IsFocusable(tree, findByID(doc, "hidden")))
	assert.True(t, IsFocusable(tree, findByID(doc, "text")))
	assert.True(t, IsFocusable(tree, findByID(doc, "tab")))
	assert.True(t, IsFocusable(tree, findByID(doc, "edit")))
	assert.False(t, IsFocusable(tree, findByID(doc, "dis")))
	assert.False(t, IsFocusable(tree, findByID(doc, "plain")))
}
