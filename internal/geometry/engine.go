// internal/geometry/engine.go
package geometry

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/dom"
)

// -- Geometry & Visibility Engine --
//
// The engine decides whether an element occupies rendered, non-clipped
// screen space. It never computes layout itself; every geometric fact comes
// from the host's rendering oracle. Missing data degrades to permissive
// defaults so callers always get a definite answer.

type styleKey struct {
	node   *html.Node
	pseudo schemas.Pseudo
}

// Engine evaluates geometry for one inspection session. The style cache is
// scoped to the engine instance and is never invalidated mid-call; holding
// an engine across a render-affecting operation requires ResetCache or a
// fresh instance.
type Engine struct {
	tree  *dom.Tree
	env   schemas.Environment
	log   *zap.Logger
	cache map[styleKey]*schemas.ComputedStyle
}

// New builds a geometry engine over a document tree and host environment.
func New(tree *dom.Tree, env schemas.Environment, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		tree:  tree,
		env:   env,
		log:   log.Named("geometry"),
		cache: make(map[styleKey]*schemas.ComputedStyle),
	}
}

// Style returns the cached computed style for an element and pseudo
// selector. Absence (nil) is cached too: within one inspection the same
// element+pseudo pair always yields the same result.
func (e *Engine) Style(n *html.Node, pseudo schemas.Pseudo) *schemas.ComputedStyle {
	key := styleKey{node: n, pseudo: pseudo}
	if style, ok := e.cache[key]; ok {
		return style
	}
	style := e.env.Oracle.ComputedStyle(n, pseudo)
	e.cache[key] = style
	return style
}

// ResetCache discards every cached style. Required between inspections that
// span a rendering tick.
func (e *Engine) ResetCache() {
	e.cache = make(map[styleKey]*schemas.ComputedStyle)
}

// Tree exposes the engine's document tree to sibling engines.
func (e *Engine) Tree() *dom.Tree { return e.tree }

// Oracle exposes the rendering oracle to sibling engines.
func (e *Engine) Oracle() schemas.RenderOracle { return e.env.Oracle }

// -- Box Computation --

// Box is an ephemeral per-element snapshot. It must not be reused once any
// layout-affecting operation (for example, a scroll) may have occurred.
type Box struct {
	Visible bool
	Inline  bool
	Rect    *schemas.Rect
	Cursor  string
}

// ComputeBox derives the element's box from the cached style and the
// oracle's geometry.
func (e *Engine) ComputeBox(n *html.Node) Box {
	style := e.Style(n, schemas.PseudoNone)
	if style == nil {
		// No rendering view. Permissive default: the caller is responsible
		// for connectivity checks.
		return Box{Visible: true}
	}
	if style.Display == "contents" {
		// The element itself is not boxed; visibility comes from the first
		// visible child, element or non-empty text run.
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.ElementNode:
				if e.ComputeBox(c).Visible {
					return Box{Visible: true, Cursor: style.Cursor}
				}
			case html.TextNode:
				if rect, ok := e.env.Oracle.TextRect(c); ok && !rect.Empty() {
					return Box{Visible: true, Cursor: style.Cursor}
				}
			}
		}
		return Box{Visible: false, Cursor: style.Cursor}
	}

	box := Box{
		Inline: style.Display == "inline",
		Cursor: style.Cursor,
	}
	if !e.env.Oracle.ContentVisible(n) || style.Visibility != "visible" {
		return box
	}
	rect, ok := e.env.Oracle.BoundingRect(n)
	if !ok {
		return box
	}
	box.Rect = &rect
	box.Visible = rect.Width > 0 && rect.Height > 0
	return box
}

// Visible reports whether the element occupies rendered screen space.
func (e *Engine) Visible(n *html.Node) bool {
	return e.ComputeBox(n).Visible
}
