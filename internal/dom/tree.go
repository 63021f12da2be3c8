// internal/dom/tree.go
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// -- Shadow-Aware Document Tree --
//
// Tree indexes a parsed document's rendering roots so traversal can cross
// shadow boundaries. Declarative shadow roots (<template shadowrootmode>)
// are instantiated at construction: the template element itself acts as the
// shadow root node, its parent as the host. The snapshot is immutable; a
// shadow structure that may have changed requires a fresh Tree.

type Tree struct {
	doc      *html.Node
	hostRoot map[*html.Node]*html.Node // host element -> shadow root
	rootHost map[*html.Node]*html.Node // shadow root -> host element
	assigned map[*html.Node]*html.Node // light-DOM node -> assigned slot
}

// NewTree builds the rendering-root index for a document node.
func NewTree(doc *html.Node) *Tree {
	t := &Tree{
		doc:      doc,
		hostRoot: make(map[*html.Node]*html.Node),
		rootHost: make(map[*html.Node]*html.Node),
		assigned: make(map[*html.Node]*html.Node),
	}
	t.index(doc)
	return t
}

func (t *Tree) index(n *html.Node) {
	if n.Type == html.ElementNode {
		if root := declarativeShadowRoot(n); root != nil {
			t.hostRoot[n] = root
			t.rootHost[root] = n
			t.assignSlots(n, root)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		t.index(c)
	}
}

// declarativeShadowRoot returns the host's shadow-root template child, if any.
func declarativeShadowRoot(host *html.Node) *html.Node {
	for c := host.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.EqualFold(c.Data, "template") {
			if mode, ok := Attr(c, "shadowrootmode"); ok {
				mode = strings.ToLower(strings.TrimSpace(mode))
				if mode == "open" || mode == "closed" {
					return c
				}
			}
		}
	}
	return nil
}

// assignSlots mirrors the rendering engine's slot assignment: named light-DOM
// children go to the matching <slot name>, the rest to the first unnamed slot.
func (t *Tree) assignSlots(host, root *html.Node) {
	named := make(map[string]*html.Node)
	var fallback *html.Node
	collectSlots(root, named, &fallback)

	for c := host.FirstChild; c != nil; c = c.NextSibling {
		if c == root {
			continue
		}
		switch c.Type {
		case html.ElementNode:
			if name, ok := Attr(c, "slot"); ok && name != "" {
				if slot := named[name]; slot != nil {
					t.assigned[c] = slot
				}
				continue
			}
			if fallback != nil {
				t.assigned[c] = fallback
			}
		case html.TextNode:
			if fallback != nil && strings.TrimSpace(c.Data) != "" {
				t.assigned[c] = fallback
			}
		}
	}
}

// collectSlots gathers slot elements within one shadow tree, not descending
// into nested shadow roots.
func collectSlots(n *html.Node, named map[string]*html.Node, fallback **html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if declarativeShadowRoot(c) != nil {
			continue
		}
		if strings.EqualFold(c.Data, "slot") {
			if name, ok := Attr(c, "name"); ok && name != "" {
				if _, dup := named[name]; !dup {
					named[name] = c
				}
			} else if *fallback == nil {
				*fallback = c
			}
		}
		collectSlots(c, named, fallback)
	}
}

// Document returns the top-level document node.
func (t *Tree) Document() *html.Node { return t.doc }

// IsShadowRoot reports whether the node is an instantiated shadow root.
func (t *Tree) IsShadowRoot(n *html.Node) bool {
	_, ok := t.rootHost[n]
	return ok
}

// Host returns the host element of a shadow root, or nil.
func (t *Tree) Host(root *html.Node) *html.Node { return t.rootHost[root] }

// ShadowRoot returns the shadow root attached to a host element, or nil.
func (t *Tree) ShadowRoot(host *html.Node) *html.Node { return t.hostRoot[host] }

// AssignedSlot returns the slot element a light-DOM node is rendered into,
// or nil when the node is not slotted.
func (t *Tree) AssignedSlot(n *html.Node) *html.Node { return t.assigned[n] }

// EnclosingRoot returns the nearest rendering root containing the node: a
// shadow root, or the document. It returns nil for a detached node.
func (t *Tree) EnclosingRoot(n *html.Node) *html.Node {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if t.IsShadowRoot(cur) {
			return cur
		}
		if cur.Type == html.DocumentNode {
			return cur
		}
	}
	return nil
}

// ParentElementOrHost returns the parent element of a node, crossing shadow
// boundaries: the parent of a shadow tree's top-level node is the host.
func (t *Tree) ParentElementOrHost(n *html.Node) *html.Node {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if t.IsShadowRoot(cur) {
			return cur.Parent
		}
		if cur.Type == html.ElementNode {
			return cur
		}
	}
	return nil
}

// Connected reports whether the node reaches this tree's document through
// parent and host links.
func (t *Tree) Connected(n *html.Node) bool {
	cur := n
	for cur != nil {
		root := t.EnclosingRoot(cur)
		if root == nil {
			return false
		}
		if root.Type == html.DocumentNode {
			return root == t.doc
		}
		cur = t.Host(root)
	}
	return false
}

// NearestElement resolves the closest actionable element for a node: the
// node itself when it is an element, otherwise its nearest ancestor element.
func (t *Tree) NearestElement(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		return n
	}
	return t.ParentElementOrHost(n)
}

// Closest walks upward from the node (inclusive) through parent and host
// links, returning the first element matching pred.
func (t *Tree) Closest(n *html.Node, pred func(*html.Node) bool) *html.Node {
	cur := t.NearestElement(n)
	for cur != nil {
		if pred(cur) {
			return cur
		}
		cur = t.ParentElementOrHost(cur)
	}
	return nil
}

// Contains reports whether ancestor contains n (inclusive), crossing shadow
// boundaries.
func (t *Tree) Contains(ancestor, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}
