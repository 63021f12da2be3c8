// api/schemas/errors.go
package schemas

import (
	"errors"
	"fmt"
	"time"
)

// -- Error Taxonomy --
//
// Low-level inspection paths report failures as "error:..." values inside
// query results so callers always get a definite answer. Composite operations
// (readiness checks, bounded waits, editability queries) convert the same
// conditions into the typed errors below.

// ReceivedNotConnected is the Received value of a state query whose subject
// is not attached to a live document.
const ReceivedNotConnected = "error:notconnected"

// ErrNotConnected reports a subject node detached from a live document.
var ErrNotConnected = errors.New("element is not connected to a document")

// ErrCancelled reports an explicit cancellation before a wait completed. It
// is distinguishable from a timeout.
var ErrCancelled = errors.New("wait cancelled")

// ErrUnviewable reports an element that cannot be scrolled into view because
// an ancestor's overflow permanently clips it. Retrying cannot help.
var ErrUnviewable = errors.New("element is permanently clipped by ancestor overflow and cannot be scrolled into view")

// TimeoutError reports a bounded wait that exhausted its budget.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("wait exceeded %s timeout", e.Budget)
}

// UnsupportedStateError reports a state name that is invalid or inapplicable
// for the query entry point it was passed to. This is a caller programming
// error, never a transient condition.
type UnsupportedStateError struct {
	State ElementState
}

func (e *UnsupportedStateError) Error() string {
	return fmt.Sprintf("state %q is not supported by this query", e.State)
}

// OccludedError reports that a geometric click point exists but hit-testing
// resolves to a different element. Message describes the obscuring element
// or subtree.
type OccludedError struct {
	Message string
}

func (e *OccludedError) Error() string {
	return fmt.Sprintf("element is obscured: %s", e.Message)
}
