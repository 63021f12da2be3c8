// pkg/inspect/inspector.go
package inspect

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/aria"
	"github.com/dashv0id/domprobe/internal/dom"
	"github.com/dashv0id/domprobe/internal/geometry"
	"github.com/dashv0id/domprobe/internal/hittest"
	"github.com/dashv0id/domprobe/internal/render"
)

// -- Inspection Facade --
//
// Inspector is the caller-facing composition of the role, geometry, and
// hit-testing engines. One inspector covers one render state of one
// document: its style cache is never refreshed behind the caller's back, so
// an inspector must not be held across layout-affecting mutations. Bounded
// waits reset the cache themselves between polls.

type Inspector struct {
	tree  *dom.Tree
	env   schemas.Environment
	geo   *geometry.Engine
	roles *aria.Resolver
	hits  *hittest.Resolver
	log   *zap.Logger
}

// New builds an inspector over an already-parsed tree and host environment.
func New(tree *dom.Tree, env schemas.Environment, log *zap.Logger) *Inspector {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("inspect")
	geo := geometry.New(tree, env, log)
	return &Inspector{
		tree:  tree,
		env:   env,
		geo:   geo,
		roles: aria.NewResolver(tree),
		hits:  hittest.New(geo, log),
		log:   log,
	}
}

// NewFromHTML parses markup and backs the inspector with the deterministic
// static oracle. The oracle is returned so callers can adjust geometry.
func NewFromHTML(src string, viewport schemas.Rect, log *zap.Logger) (*Inspector, *render.StaticOracle, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing markup: %w", err)
	}
	tree := dom.NewTree(doc)
	oracle := render.NewStaticOracle(tree, viewport)
	return New(tree, oracle.Environment(), log), oracle, nil
}

// NewFromBrowser snapshots the page loaded in a chromedp tab context and
// backs the inspector with the live CDP oracle.
func NewFromBrowser(browser context.Context, log *zap.Logger) (*Inspector, error) {
	oracle, tree, err := render.NewCDPOracle(browser, log)
	if err != nil {
		return nil, err
	}
	env := schemas.Environment{Oracle: oracle, Clock: oracle, Intersections: oracle}
	return New(tree, env, log), nil
}

// Tree exposes the document tree for element lookup by the caller.
func (in *Inspector) Tree() *dom.Tree { return in.tree }

// ResetCache discards cached styles. Required before reusing the inspector
// after a render-affecting mutation.
func (in *Inspector) ResetCache() { in.geo.ResetCache() }

// -- Synchronous Checks --

// IsVisible reports whether the element occupies rendered screen space.
func (in *Inspector) IsVisible(n *html.Node) bool {
	return in.geo.Visible(n)
}

// IsDisabled reports whether the element is disabled natively or through
// ARIA semantics.
func (in *Inspector) IsDisabled(n *html.Node) bool {
	return dom.NativelyDisabled(in.tree, n) || in.roles.AriaDisabled(n)
}

// IsReadOnly reports whether the element is read-only. It returns an error
// for element types with no read-only concept.
func (in *Inspector) IsReadOnly(n *html.Node) (bool, error) {
	switch in.roles.ReadOnlyState(n) {
	case aria.ReadOnlyYes:
		return true, nil
	case aria.ReadOnlyNo:
		return false, nil
	default:
		return false, &schemas.UnsupportedStateError{State: schemas.StateEditable}
	}
}

// Role resolves the element's effective accessibility role.
func (in *Inspector) Role(n *html.Node) aria.Role {
	return in.roles.EffectiveRole(n)
}

// ScrollableIntoView reports whether scrolling can ever bring the element
// into the viewport.
func (in *Inspector) ScrollableIntoView(n *html.Node) bool {
	return in.geo.ScrollableIntoView(n)
}

// InViewport reports whether the element currently intersects the viewport.
func (in *Inspector) InViewport(ctx context.Context, n *html.Node) (bool, error) {
	return in.geo.InViewport(ctx, n)
}

// ViewportRect resolves the element's rectangle clipped to the viewport.
func (in *Inspector) ViewportRect(n *html.Node) (schemas.Rect, bool) {
	return in.geo.ViewportRect(n)
}

// ClickPoint resolves a safe interaction point for the element, or an error
// result describing what obscures it.
func (in *Inspector) ClickPoint(n *html.Node, offset *schemas.Point) schemas.ClickPointResult {
	return in.hits.ClickPoint(n, offset)
}
