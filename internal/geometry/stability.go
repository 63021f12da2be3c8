// internal/geometry/stability.go
package geometry

import (
	"context"

	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/waitfor"
)

// -- Geometric Stability --

// CheckStable samples the element's bounding rect once per animation frame
// and reports whether it held still: false the instant a frame's rect
// differs from the previous frame's on any of x/y/width/height, true only
// after one full frame interval with an unchanged rect. It returns
// ErrNotConnected when the element can no longer be located on any frame.
// No timeout is applied here; the caller enforces one externally.
func (e *Engine) CheckStable(ctx context.Context, n *html.Node) (bool, error) {
	var (
		prev    *schemas.Rect
		stable  bool
		lostErr error
	)
	w := waitfor.New(waitfor.NewFrameScheduler(e.env.Clock), waitfor.NoTimeout)
	err := w.Wait(ctx, func(context.Context) (bool, error) {
		if !e.tree.Connected(n) {
			lostErr = schemas.ErrNotConnected
			return true, nil
		}
		rect, ok := e.env.Oracle.BoundingRect(n)
		if !ok {
			rect = schemas.Rect{}
		}
		if prev == nil {
			prev = &rect
			return false, nil
		}
		stable = rect == *prev
		return true, nil
	})
	if err != nil {
		return false, err
	}
	if lostErr != nil {
		return false, lostErr
	}
	return stable, nil
}
