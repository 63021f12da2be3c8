// internal/hittest/resolver.go
package hittest

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/dom"
	"github.com/dashv0id/domprobe/internal/geometry"
)

// -- Cross-Boundary Hit Testing --
//
// A click point is only safe when the element that actually receives the
// point is the target or one of its descendants. Shadow roots scope
// hit-testing, so resolution runs per rendering root, from the top-level
// document inward, reconciling the platform's two point-query forms along
// the way.

// Resolver resolves click points and occlusion for one document tree.
type Resolver struct {
	tree   *dom.Tree
	geo    *geometry.Engine
	oracle schemas.RenderOracle
	log    *zap.Logger
}

// New builds a hit-test resolver sharing the geometry engine's tree, style
// cache, and oracle.
func New(geo *geometry.Engine, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		tree:   geo.Tree(),
		geo:    geo,
		oracle: geo.Oracle(),
		log:    log.Named("hittest"),
	}
}

// RootChain returns the rendering roots enclosing the target, outermost
// (document) first, innermost (the root directly containing the target)
// last. Rebuilt fresh per call: a shadow structure can change between calls.
func (r *Resolver) RootChain(target *html.Node) []*html.Node {
	var inward []*html.Node
	cur := target
	for cur != nil {
		root := r.tree.EnclosingRoot(cur)
		if root == nil {
			break
		}
		inward = append(inward, root)
		if root.Type == html.DocumentNode {
			break
		}
		cur = r.tree.Host(root)
	}
	chain := make([]*html.Node, len(inward))
	for i, root := range inward {
		chain[len(inward)-1-i] = root
	}
	return chain
}

// ClickPoint resolves a safe interaction point for the target: the center of
// its viewport rect, shifted by the optional offset, validated by
// hit-testing through every enclosing rendering root. The error status
// carries a description of whatever obscures the target; it is never
// returned as a Go error from here.
func (r *Resolver) ClickPoint(target *html.Node, offset *schemas.Point) schemas.ClickPointResult {
	rect, ok := r.geo.ViewportRect(target)
	if !ok {
		return schemas.ClickPointResult{
			Status:  schemas.PointError,
			Message: "element is outside of the viewport or has no size",
		}
	}
	pt := rect.Center()
	if offset != nil {
		pt.X += offset.X
		pt.Y += offset.Y
	}

	roots := r.RootChain(target)
	var hit *html.Node
	for i, root := range roots {
		els := r.elementsAt(root, pt)
		if len(els) == 0 {
			break
		}
		hit = els[0]
		if i+1 < len(roots) && hit != r.tree.Host(roots[i+1]) {
			// The hit at this root does not lead into the next root the
			// target lives under. The upward walk below will classify it.
			r.log.Debug("hit chain diverged from root chain",
				zap.String("hit", describeNode(hit)),
				zap.String("expectedHost", describeNode(r.tree.Host(roots[i+1]))))
			break
		}
	}

	if hit == nil {
		return schemas.ClickPointResult{
			Status:  schemas.PointError,
			Message: "no element receives pointer events at the resolved point",
		}
	}

	// The hit must be the target or one of its structural descendants.
	// Slotted content hit-tests through its assigned slot, so the walk
	// prefers the slot relation over ordinary parentage.
	var hitChain []*html.Node
	for cur := hit; cur != nil && cur != target; cur = r.structuralParent(cur) {
		hitChain = append(hitChain, cur)
	}
	if len(hitChain) == 0 || r.structuralParent(hitChain[len(hitChain)-1]) == target {
		return schemas.ClickPointResult{Status: schemas.PointResolved, Point: pt}
	}

	return schemas.ClickPointResult{
		Status:  schemas.PointError,
		Message: r.occlusionMessage(target, hitChain),
	}
}

// elementsAt queries the topmost elements at the point within one rendering
// root, reconciling the bulk and single-result query forms.
func (r *Resolver) elementsAt(root *html.Node, pt schemas.Point) []*html.Node {
	els := r.oracle.ElementsFromPoint(root, pt)
	single := r.oracle.ElementFromPoint(root, pt)

	// Some engines omit the innermost display:contents element from the
	// bulk query while the single query finds it; put it back in front.
	if single != nil && len(els) > 0 && r.structuralParent(single) == els[0] {
		if style := r.geo.Style(single, schemas.PseudoNone); style != nil && style.Display == "contents" {
			els = append([]*html.Node{single}, els...)
		}
	}
	// Some engines report a shadow host twice, ahead of its own content.
	if len(els) > 1 && r.tree.ShadowRoot(els[0]) == root && els[1] == single {
		els = els[1:]
	}
	return els
}

// structuralParent is the hit-testing parent relation: assigned slot when
// the element is slotted, otherwise the parent element or shadow host.
func (r *Resolver) structuralParent(n *html.Node) *html.Node {
	if slot := r.tree.AssignedSlot(n); slot != nil {
		return slot
	}
	return r.tree.ParentElementOrHost(n)
}

// occlusionMessage names the obscuring element and, when the obscuring chain
// diverges from the target's own ancestry above the second level, the common
// subtree root responsible.
func (r *Resolver) occlusionMessage(target *html.Node, hitChain []*html.Node) string {
	msg := fmt.Sprintf("%s intercepts pointer events", describeNode(hitChain[0]))

	chainIndex := func(n *html.Node) int {
		for i, h := range hitChain {
			if h == n {
				return i
			}
		}
		return -1
	}
	for cur := target; cur != nil; cur = r.structuralParent(cur) {
		if i := chainIndex(cur); i > 1 {
			msg += fmt.Sprintf(", from %s subtree", describeNode(hitChain[i-1]))
			break
		} else if i != -1 {
			break
		}
	}
	return msg
}

// describeNode renders a short, stable preview of an element for diagnostic
// messages.
func describeNode(n *html.Node) string {
	if n == nil {
		return "<none>"
	}
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(strings.ToLower(dom.TagName(n)))
	if id := dom.AttrOr(n, "id", ""); id != "" {
		fmt.Fprintf(&b, " id=%q", id)
	}
	if class := dom.AttrOr(n, "class", ""); class != "" {
		fmt.Fprintf(&b, " class=%q", class)
	}
	b.WriteByte('>')
	return b.String()
}
