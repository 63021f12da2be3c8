// internal/dom/traversal.go
package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// TagName returns the normalized (upper-case) tag name of an element node,
// or the empty string for other node types.
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToUpper(n.Data)
}

// IsElement reports whether the node is an element.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Attr returns the value of the named attribute and whether it is present.
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute's value, or def when absent.
func AttrOr(n *html.Node, name, def string) string {
	if v, ok := Attr(n, name); ok {
		return v
	}
	return def
}

// HasAttr reports presence of the named attribute.
func HasAttr(n *html.Node, name string) bool {
	_, ok := Attr(n, name)
	return ok
}

// InputType returns the lower-cased type attribute of an input element.
// An absent or empty type defaults to "text" per the HTML parsing rules.
func InputType(n *html.Node) string {
	typ := strings.ToLower(strings.TrimSpace(AttrOr(n, "type", "")))
	if typ == "" {
		return "text"
	}
	return typ
}

// HasTabIndex reports whether the element carries a parseable tabindex.
func HasTabIndex(n *html.Node) bool {
	v, ok := Attr(n, "tabindex")
	if !ok {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSpace(v))
	return err == nil
}

// formControlTags are the tags that honor the native disabled attribute.
var formControlTags = map[string]bool{
	"BUTTON": true, "INPUT": true, "SELECT": true, "TEXTAREA": true,
	"OPTION": true, "OPTGROUP": true, "FIELDSET": true,
}

// NativelyDisabled reports whether the element is disabled through native
// HTML semantics: its own disabled attribute, or membership in a disabled
// fieldset outside that fieldset's first legend.
func NativelyDisabled(t *Tree, n *html.Node) bool {
	if !formControlTags[TagName(n)] {
		return false
	}
	if HasAttr(n, "disabled") {
		return true
	}
	for p := t.ParentElementOrHost(n); p != nil; p = t.ParentElementOrHost(p) {
		if TagName(p) != "FIELDSET" || !HasAttr(p, "disabled") {
			continue
		}
		if legend := firstChildTag(p, "LEGEND"); legend != nil && t.Contains(legend, n) {
			continue
		}
		return true
	}
	return false
}

func firstChildTag(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if TagName(c) == tag {
			return c
		}
	}
	return nil
}

// IsFocusable reports whether the element can receive focus on its own:
// natively interactive, content-editable, or carrying a tabindex — and not
// natively disabled.
func IsFocusable(t *Tree, n *html.Node) bool {
	if !IsElement(n) || NativelyDisabled(t, n) {
		return false
	}
	if HasTabIndex(n) {
		return true
	}
	if IsContentEditable(n) {
		return true
	}
	switch TagName(n) {
	case "BUTTON", "SELECT", "TEXTAREA", "IFRAME":
		return true
	case "A", "AREA":
		return HasAttr(n, "href")
	case "INPUT":
		return InputType(n) != "hidden"
	}
	return false
}

// IsContentEditable reports whether the element opts into rich editing. An
// empty attribute value counts as true.
func IsContentEditable(n *html.Node) bool {
	v, ok := Attr(n, "contenteditable")
	if !ok {
		return false
	}
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "" || v == "true" || v == "plaintext-only"
}

// ElementChildren returns the element-typed children of a node.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}
