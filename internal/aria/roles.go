// internal/aria/roles.go
package aria

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/internal/dom"
)

// -- Accessibility Role Resolution --
//
// The resolver computes the effective ARIA role of an element from the
// explicit role attribute, the tag-implicit mapping, and the presentation
// conflict-resolution rules. Role and attribute lookups never fail; absence
// resolves to RoleNone.

// Role is a value from the closed set of valid ARIA roles. The empty string
// means "no role".
type Role string

const RoleNone Role = ""

// validRoles is the closed set of recognized role attribute values.
// Malformed or unknown tokens are ignored during explicit-role resolution.
var validRoles = map[Role]bool{
	"alert": true, "alertdialog": true, "application": true, "article": true,
	"banner": true, "blockquote": true, "button": true, "caption": true,
	"cell": true, "checkbox": true, "code": true, "columnheader": true,
	"combobox": true, "complementary": true, "contentinfo": true,
	"definition": true, "deletion": true, "dialog": true, "directory": true,
	"document": true, "emphasis": true, "feed": true, "figure": true,
	"form": true, "generic": true, "grid": true, "gridcell": true,
	"group": true, "heading": true, "img": true, "insertion": true,
	"link": true, "list": true, "listbox": true, "listitem": true,
	"log": true, "main": true, "marquee": true, "math": true, "menu": true,
	"menubar": true, "menuitem": true, "menuitemcheckbox": true,
	"menuitemradio": true, "meter": true, "navigation": true, "none": true,
	"note": true, "option": true, "paragraph": true, "presentation": true,
	"progressbar": true, "radio": true, "radiogroup": true, "region": true,
	"row": true, "rowgroup": true, "rowheader": true, "scrollbar": true,
	"search": true, "searchbox": true, "separator": true, "slider": true,
	"spinbutton": true, "status": true, "strong": true, "subscript": true,
	"superscript": true, "switch": true, "tab": true, "table": true,
	"tablist": true, "tabpanel": true, "term": true, "textbox": true,
	"time": true, "timer": true, "toolbar": true, "tooltip": true,
	"tree": true, "treegrid": true, "treeitem": true,
}

// presentationParents is the fixed parent/child tag-pair table through which
// an explicit none/presentation role propagates downward. The walk stops the
// moment a pair is not matched.
var presentationParents = map[string][]string{
	"DD":    {"DL", "DIV"},
	"DIV":   {"DL"},
	"DT":    {"DL", "DIV"},
	"LI":    {"OL", "UL"},
	"TBODY": {"TABLE"},
	"TD":    {"TR"},
	"TFOOT": {"TABLE"},
	"TH":    {"TR"},
	"THEAD": {"TABLE"},
	"TR":    {"THEAD", "TBODY", "TFOOT", "TABLE"},
}

// landmarkAncestors suppress the banner/contentinfo implicit roles of
// header and footer elements.
var landmarkAncestors = map[string]bool{
	"ARTICLE": true, "ASIDE": true, "MAIN": true, "NAV": true, "SECTION": true,
}

// Resolver computes roles over one shadow-aware document tree.
type Resolver struct {
	tree *dom.Tree
}

// NewResolver builds a role resolver for the given tree.
func NewResolver(tree *dom.Tree) *Resolver {
	return &Resolver{tree: tree}
}

// EffectiveRole returns the element's effective ARIA role, or RoleNone.
func (r *Resolver) EffectiveRole(n *html.Node) Role {
	if !dom.IsElement(n) {
		return RoleNone
	}
	explicit := r.explicitRole(n)
	if explicit == RoleNone {
		if suppressed := r.inheritedPresentation(n); suppressed != RoleNone {
			return suppressed
		}
		return r.implicitRole(n)
	}
	if explicit == "none" || explicit == "presentation" {
		// An author cannot fully suppress semantics on an interactive or
		// globally-annotated element.
		implicit := r.implicitRole(n)
		if r.presentationConflict(n, implicit) {
			return implicit
		}
	}
	return explicit
}

// explicitRole returns the first valid whitespace-separated token of the
// role attribute, in attribute order.
func (r *Resolver) explicitRole(n *html.Node) Role {
	raw, ok := dom.Attr(n, "role")
	if !ok {
		return RoleNone
	}
	for _, token := range strings.Fields(raw) {
		if role := Role(token); validRoles[role] {
			return role
		}
	}
	return RoleNone
}

// inheritedPresentation walks upward through the fixed parent/child tag-pair
// table looking for an ancestor that explicitly declares none/presentation
// and is not conflict-resolved away.
func (r *Resolver) inheritedPresentation(n *html.Node) Role {
	cur := n
	for {
		parent := r.tree.ParentElementOrHost(cur)
		if parent == nil {
			return RoleNone
		}
		allowed, ok := presentationParents[dom.TagName(cur)]
		if !ok || !containsTag(allowed, dom.TagName(parent)) {
			return RoleNone
		}
		explicit := r.explicitRole(parent)
		if explicit == "none" || explicit == "presentation" {
			if !r.presentationConflict(parent, r.implicitRole(parent)) {
				return explicit
			}
			return RoleNone
		}
		if explicit != RoleNone {
			return RoleNone
		}
		cur = parent
	}
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// presentationConflict reports whether a none/presentation role must be
// overridden: the element carries a global ARIA attribute applicable to the
// role, or is independently focusable.
func (r *Resolver) presentationConflict(n *html.Node, implicit Role) bool {
	return hasApplicableGlobalAttribute(n, implicit) || dom.IsFocusable(r.tree, n)
}

// -- Implicit Role Table --

// implicitRole computes the tag-implicit role of an element.
func (r *Resolver) implicitRole(n *html.Node) Role {
	switch dom.TagName(n) {
	case "A", "AREA":
		if dom.HasAttr(n, "href") {
			return "link"
		}
		return RoleNone
	case "ARTICLE":
		return "article"
	case "ASIDE":
		return "complementary"
	case "BLOCKQUOTE":
		return "blockquote"
	case "BUTTON":
		return "button"
	case "CAPTION":
		return "caption"
	case "CODE":
		return "code"
	case "DATALIST":
		return "listbox"
	case "DD":
		return "definition"
	case "DEL":
		return "deletion"
	case "DETAILS":
		return "group"
	case "DFN", "DT":
		return "term"
	case "DIALOG":
		return "dialog"
	case "EM":
		return "emphasis"
	case "FIELDSET":
		return "group"
	case "FIGURE":
		return "figure"
	case "FOOTER":
		if r.insideLandmark(n) {
			return RoleNone
		}
		return "contentinfo"
	case "FORM":
		if hasAccessibleName(n) {
			return "form"
		}
		return RoleNone
	case "H1", "H2", "H3", "H4", "H5", "H6":
		return "heading"
	case "HEADER":
		if r.insideLandmark(n) {
			return RoleNone
		}
		return "banner"
	case "HR":
		return "separator"
	case "HTML":
		return "document"
	case "IMG":
		if alt, ok := dom.Attr(n, "alt"); ok && alt == "" &&
			!dom.HasAttr(n, "title") && !hasAnyGlobalAttribute(n) && !dom.HasTabIndex(n) {
			return "presentation"
		}
		return "img"
	case "INPUT":
		return r.inputRole(n)
	case "INS":
		return "insertion"
	case "LI":
		return "listitem"
	case "MAIN":
		return "main"
	case "MATH":
		return "math"
	case "MENU":
		return "list"
	case "METER":
		return "meter"
	case "NAV":
		return "navigation"
	case "OL", "UL":
		return "list"
	case "OPTGROUP":
		return "group"
	case "OPTION":
		return "option"
	case "OUTPUT":
		return "status"
	case "P":
		return "paragraph"
	case "PROGRESS":
		return "progressbar"
	case "SECTION":
		if hasAccessibleName(n) {
			return "region"
		}
		return RoleNone
	case "SELECT":
		if dom.HasAttr(n, "multiple") || selectSizeAbove(n, 1) {
			return "listbox"
		}
		return "combobox"
	case "STRONG":
		return "strong"
	case "SUB":
		return "subscript"
	case "SUP":
		return "superscript"
	case "SVG":
		return "img"
	case "TABLE":
		return "table"
	case "TBODY", "TFOOT", "THEAD":
		return "rowgroup"
	case "TD":
		return r.cellRole(n, "cell", "gridcell")
	case "TEXTAREA":
		return "textbox"
	case "TH":
		switch strings.ToLower(dom.AttrOr(n, "scope", "")) {
		case "col", "colgroup":
			return "columnheader"
		case "row", "rowgroup":
			return "rowheader"
		}
		return r.cellRole(n, "cell", "gridcell")
	case "TIME":
		return "time"
	case "TR":
		return "row"
	}
	return RoleNone
}

// inputRole branches on the input type plus the list attribute to pick among
// the form-widget roles.
func (r *Resolver) inputRole(n *html.Node) Role {
	typ := dom.InputType(n)
	if typ == "search" {
		if r.resolvesToDatalist(n) {
			return "combobox"
		}
		return "searchbox"
	}
	switch typ {
	case "button", "image", "reset", "submit":
		return "button"
	case "checkbox":
		return "checkbox"
	case "radio":
		return "radio"
	case "range":
		return "slider"
	case "number":
		return "spinbutton"
	case "hidden":
		return RoleNone
	case "email", "tel", "text", "url":
		if r.resolvesToDatalist(n) {
			return "combobox"
		}
		return "textbox"
	}
	return "textbox"
}

// resolvesToDatalist reports whether the input's list attribute references a
// datalist element in the document.
func (r *Resolver) resolvesToDatalist(n *html.Node) bool {
	id, ok := dom.Attr(n, "list")
	if !ok || id == "" {
		return false
	}
	ref := findByID(r.tree.Document(), id)
	return dom.TagName(ref) == "DATALIST"
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && dom.AttrOr(n, "id", "") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// cellRole resolves td/th against the enclosing table's declared role.
func (r *Resolver) cellRole(n *html.Node, plain, grid Role) Role {
	table := r.tree.Closest(n, func(a *html.Node) bool {
		return dom.TagName(a) == "TABLE"
	})
	if table != nil {
		switch r.explicitRole(table) {
		case "grid", "treegrid":
			return grid
		}
	}
	return plain
}

// insideLandmark reports whether a header/footer sits under a
// landmark-suppressing ancestor.
func (r *Resolver) insideLandmark(n *html.Node) bool {
	return r.tree.Closest(r.tree.ParentElementOrHost(n), func(a *html.Node) bool {
		return landmarkAncestors[dom.TagName(a)]
	}) != nil
}

// hasAccessibleName is the reduced accessible-name check used by the form
// and section implicit-role rules.
func hasAccessibleName(n *html.Node) bool {
	if v, ok := dom.Attr(n, "aria-label"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	if v, ok := dom.Attr(n, "aria-labelledby"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	if v, ok := dom.Attr(n, "title"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	return false
}

func selectSizeAbove(n *html.Node, limit int) bool {
	v, ok := dom.Attr(n, "size")
	if !ok {
		return false
	}
	size := 0
	for _, c := range strings.TrimSpace(v) {
		if c < '0' || c > '9' {
			return false
		}
		size = size*10 + int(c-'0')
	}
	return size > limit
}
