// internal/aria/attributes.go
package aria

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/internal/dom"
)

// -- Global ARIA Attribute Applicability --
//
// Most global ARIA attributes apply to every role; a handful are
// inapplicable for a fixed subset of roles.

var nameProhibitedRoles = map[Role]bool{
	"caption": true, "code": true, "deletion": true, "emphasis": true,
	"generic": true, "insertion": true, "paragraph": true,
	"presentation": true, "strong": true, "subscript": true,
	"superscript": true,
}

// globalAriaAttributes maps each global attribute to the roles it does NOT
// apply to. A nil set means the attribute applies everywhere.
var globalAriaAttributes = map[string]map[Role]bool{
	"aria-atomic":          nil,
	"aria-busy":            nil,
	"aria-controls":        nil,
	"aria-current":         nil,
	"aria-describedby":     nil,
	"aria-details":         nil,
	"aria-dropeffect":      nil,
	"aria-flowto":          nil,
	"aria-grabbed":         nil,
	"aria-hidden":          nil,
	"aria-keyshortcuts":    nil,
	"aria-label":           nameProhibitedRoles,
	"aria-labelledby":      nameProhibitedRoles,
	"aria-live":            nil,
	"aria-owns":            nil,
	"aria-relevant":        nil,
	"aria-roledescription": {"generic": true},
}

// hasApplicableGlobalAttribute reports whether the element carries any
// global ARIA attribute that applies to the given role.
func hasApplicableGlobalAttribute(n *html.Node, role Role) bool {
	for attr, excluded := range globalAriaAttributes {
		if !dom.HasAttr(n, attr) {
			continue
		}
		if excluded != nil && excluded[role] {
			continue
		}
		return true
	}
	return false
}

// hasAnyGlobalAttribute ignores role applicability; used by the img
// presentation rule.
func hasAnyGlobalAttribute(n *html.Node) bool {
	for attr := range globalAriaAttributes {
		if dom.HasAttr(n, attr) {
			return true
		}
	}
	return false
}

// -- Disabled Semantics --

// ariaDisabledRoles is the whitelist of roles on which aria-disabled is
// honored directly.
var ariaDisabledRoles = map[Role]bool{
	"application": true, "button": true, "composite": true, "gridcell": true,
	"group": true, "input": true, "link": true, "menuitem": true,
	"scrollbar": true, "separator": true, "tab": true, "checkbox": true,
	"columnheader": true, "combobox": true, "grid": true, "listbox": true,
	"menu": true, "menubar": true, "menuitemcheckbox": true,
	"menuitemradio": true, "option": true, "radio": true, "radiogroup": true,
	"row": true, "rowheader": true, "searchbox": true, "select": true,
	"slider": true, "spinbutton": true, "switch": true, "tablist": true,
	"textbox": true, "toolbar": true, "tree": true, "treegrid": true,
	"treeitem": true,
}

// AriaDisabled reports whether the element is disabled through the
// aria-disabled attribute, on itself or any ancestor. Ancestor disabling
// always counts, regardless of the ancestor's own role.
func (r *Resolver) AriaDisabled(n *html.Node) bool {
	return r.ariaDisabled(n, false)
}

func (r *Resolver) ariaDisabled(n *html.Node, isAncestor bool) bool {
	if !dom.IsElement(n) {
		return false
	}
	if isAncestor || ariaDisabledRoles[r.EffectiveRole(n)] {
		switch strings.ToLower(dom.AttrOr(n, "aria-disabled", "")) {
		case "true":
			return true
		case "false":
			return false
		}
		// Any other value continues the walk upward.
	}
	return r.ariaDisabled(r.tree.ParentElementOrHost(n), true)
}

// -- Read-Only Semantics --

// ReadOnly is the tri-state result of a read-only query.
type ReadOnly int

const (
	// ReadOnlyNo means the element supports the concept and is writable.
	ReadOnlyNo ReadOnly = iota
	// ReadOnlyYes means the element is read-only.
	ReadOnlyYes
	// ReadOnlyUnsupported means the element type has no read-only concept.
	ReadOnlyUnsupported
)

// ariaReadonlyRoles is the whitelist of roles on which aria-readonly is
// honored.
var ariaReadonlyRoles = map[Role]bool{
	"checkbox": true, "combobox": true, "grid": true, "gridcell": true,
	"listbox": true, "radiogroup": true, "slider": true, "spinbutton": true,
	"textbox": true, "columnheader": true, "rowheader": true,
	"searchbox": true, "switch": true, "treegrid": true,
}

// textInputTypes are the input types that honor the native readonly
// attribute.
var textInputTypes = map[string]bool{
	"text": true, "search": true, "url": true, "tel": true, "email": true,
	"password": true, "number": true, "date": true, "month": true,
	"week": true, "time": true, "datetime-local": true,
}

// ReadOnlyState resolves the element's read-only state from its role plus
// native attributes. The attribute value is compared literally against
// "true"; elements whose role is outside the whitelist have no read-only
// concept unless they are content-editable.
func (r *Resolver) ReadOnlyState(n *html.Node) ReadOnly {
	role := r.EffectiveRole(n)
	if ariaReadonlyRoles[role] {
		if v, ok := dom.Attr(n, "aria-readonly"); ok {
			if v == "true" {
				return ReadOnlyYes
			}
			return ReadOnlyNo
		}
		if nativeReadOnly(n) {
			return ReadOnlyYes
		}
		return ReadOnlyNo
	}
	if dom.IsContentEditable(n) {
		return ReadOnlyNo
	}
	return ReadOnlyUnsupported
}

func nativeReadOnly(n *html.Node) bool {
	switch dom.TagName(n) {
	case "TEXTAREA":
		return dom.HasAttr(n, "readonly")
	case "INPUT":
		return textInputTypes[dom.InputType(n)] && dom.HasAttr(n, "readonly")
	}
	return false
}
