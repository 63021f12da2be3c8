// pkg/inspect/states.go
package inspect

import (
	"context"
	"errors"
	"time"

	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/waitfor"
)

// -- State Queries --
//
// Connectivity is checked once up front; an element disconnecting between
// that check and the deeper state computation is an accepted race, matching
// how rendering engines themselves behave. Callers needing a definite
// answer use the readiness path, which re-checks during stability sampling.

// QueryElementState evaluates a single observable state. The result's
// Received field names the observed state, or "error:notconnected". Invalid
// or inapplicable state names (checked family, stable) return an error.
func (in *Inspector) QueryElementState(ctx context.Context, node *html.Node, state schemas.ElementState) (schemas.StateResult, error) {
	el := in.tree.NearestElement(node)
	if el == nil || !in.tree.Connected(el) {
		return schemas.StateResult{Matches: false, Received: schemas.ReceivedNotConnected}, nil
	}

	switch state {
	case schemas.StateVisible, schemas.StateHidden:
		received := schemas.StateHidden
		if in.IsVisible(el) {
			received = schemas.StateVisible
		}
		return match(state, received), nil

	case schemas.StateEnabled, schemas.StateDisabled:
		received := schemas.StateEnabled
		if in.IsDisabled(el) {
			received = schemas.StateDisabled
		}
		return match(state, received), nil

	case schemas.StateEditable:
		if in.IsDisabled(el) {
			return schemas.StateResult{Matches: false, Received: string(schemas.StateDisabled)}, nil
		}
		readonly, err := in.IsReadOnly(el)
		if err != nil {
			return schemas.StateResult{}, err
		}
		if readonly {
			return schemas.StateResult{Matches: false, Received: "readonly"}, nil
		}
		return schemas.StateResult{Matches: true, Received: string(schemas.StateEditable)}, nil

	case schemas.StateInView, schemas.StateNotInView, schemas.StateUnviewable:
		received, err := in.viewportState(ctx, el)
		if err != nil {
			return schemas.StateResult{}, err
		}
		return match(state, received), nil

	default:
		return schemas.StateResult{}, &schemas.UnsupportedStateError{State: state}
	}
}

func match(requested, received schemas.ElementState) schemas.StateResult {
	return schemas.StateResult{Matches: requested == received, Received: string(received)}
}

// viewportState classifies viewport membership: inview, notinview
// (recoverable by scrolling), or unviewable (permanently clipped).
func (in *Inspector) viewportState(ctx context.Context, el *html.Node) (schemas.ElementState, error) {
	visible, err := in.geo.InViewport(ctx, el)
	if err != nil {
		return "", err
	}
	if visible {
		return schemas.StateInView, nil
	}
	if in.geo.ScrollableIntoView(el) {
		return schemas.StateNotInView, nil
	}
	return schemas.StateUnviewable, nil
}

// QueryElementStates evaluates the requested states in caller order,
// short-circuiting on the first that does not hold. A stable request is
// evaluated first through the dedicated stability path regardless of its
// position. MissingState names the observed contrary state where one exists
// (hidden for visible, notinview/unviewable for inview), otherwise the
// requested state itself.
func (in *Inspector) QueryElementStates(ctx context.Context, node *html.Node, states []schemas.ElementState) (schemas.StatesResult, error) {
	el := in.tree.NearestElement(node)
	if el == nil || !in.tree.Connected(el) {
		return notConnectedStates(), nil
	}

	for _, s := range states {
		if s != schemas.StateStable {
			continue
		}
		stable, err := in.geo.CheckStable(ctx, el)
		if err != nil {
			if errors.Is(err, schemas.ErrNotConnected) {
				return notConnectedStates(), nil
			}
			return schemas.StatesResult{}, err
		}
		if !stable {
			return schemas.StatesResult{Status: schemas.StatesFailure, MissingState: schemas.StateStable}, nil
		}
		break
	}

	for _, s := range states {
		if s == schemas.StateStable {
			continue
		}
		res, err := in.QueryElementState(ctx, el, s)
		if err != nil {
			return schemas.StatesResult{}, err
		}
		if res.Received == schemas.ReceivedNotConnected {
			return notConnectedStates(), nil
		}
		if !res.Matches {
			return schemas.StatesResult{
				Status:       schemas.StatesFailure,
				MissingState: missingFor(s, res.Received),
			}, nil
		}
	}
	return schemas.StatesResult{Status: schemas.StatesSuccess}, nil
}

func notConnectedStates() schemas.StatesResult {
	return schemas.StatesResult{Status: schemas.StatesError, Message: "notconnected"}
}

// missingFor maps a failed state check to the state name reported to the
// caller.
func missingFor(requested schemas.ElementState, received string) schemas.ElementState {
	switch schemas.ElementState(received) {
	case schemas.StateHidden, schemas.StateVisible,
		schemas.StateDisabled, schemas.StateEnabled,
		schemas.StateNotInView, schemas.StateUnviewable, schemas.StateInView:
		return schemas.ElementState(received)
	}
	return requested
}

// -- Interaction Readiness --

// InteractionReady probes whether the element can receive the interaction
// right now. Unrecoverable conditions (disconnection, permanent clipping,
// occlusion at the final stage) are errors; recoverable ones are statuses.
// The style cache is reset on entry: readiness spans rendering frames.
func (in *Inspector) InteractionReady(ctx context.Context, node *html.Node, typ schemas.InteractionType, offset *schemas.Point) (schemas.ReadinessResult, error) {
	in.geo.ResetCache()

	res, err := in.QueryElementStates(ctx, node, typ.RequiredStates())
	if err != nil {
		return schemas.ReadinessResult{}, err
	}
	switch res.Status {
	case schemas.StatesError:
		return schemas.ReadinessResult{}, schemas.ErrNotConnected
	case schemas.StatesFailure:
		switch res.MissingState {
		case schemas.StateUnviewable:
			return schemas.ReadinessResult{}, schemas.ErrUnviewable
		case schemas.StateNotInView:
			return schemas.ReadinessResult{Status: schemas.NeedsScroll, MissingState: res.MissingState}, nil
		default:
			return schemas.ReadinessResult{Status: schemas.NotReady, MissingState: res.MissingState}, nil
		}
	}

	el := in.tree.NearestElement(node)
	point := in.hits.ClickPoint(el, offset)
	if point.Status != schemas.PointResolved {
		return schemas.ReadinessResult{}, &schemas.OccludedError{Message: point.Message}
	}
	pt := point.Point
	return schemas.ReadinessResult{Status: schemas.Ready, Point: &pt}, nil
}

// retryDelays is the readiness polling backoff; the last delay repeats.
var retryDelays = []time.Duration{
	0, 0,
	20 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
}

// WaitForInteractionReady polls InteractionReady on a growing backoff until
// the element is ready, scrolling it into view when that is all it needs.
// Probe errors (occlusion, transient disconnection) keep the poll alive;
// only the timeout budget ends it.
func (in *Inspector) WaitForInteractionReady(ctx context.Context, node *html.Node, typ schemas.InteractionType, offset *schemas.Point, timeout time.Duration) (schemas.Point, error) {
	var point schemas.Point
	w := waitfor.New(waitfor.NewIntervalScheduler(retryDelays...), timeout)
	err := w.Wait(ctx, func(ctx context.Context) (bool, error) {
		res, err := in.InteractionReady(ctx, node, typ, offset)
		if err != nil {
			return false, err
		}
		switch res.Status {
		case schemas.Ready:
			point = *res.Point
			return true, nil
		case schemas.NeedsScroll:
			if err := in.env.Oracle.ScrollIntoView(in.tree.NearestElement(node)); err != nil {
				return false, err
			}
			return false, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		return schemas.Point{}, err
	}
	return point, nil
}
