// internal/waitfor/waiter.go
package waitfor

import (
	"context"
	"sync"
	"time"

	"github.com/dashv0id/domprobe/api/schemas"
)

// -- Polling Primitive --
//
// A Waiter repeatedly evaluates a condition until it reports true, the
// timeout budget is exhausted, or the waiter is cancelled. The two scheduling
// strategies differ only in how the next evaluation is resumed: a delay
// sequence, or the next rendering frame. Condition evaluation and timeout
// accounting are shared so retry and cancel semantics stay identical.

// Condition is evaluated once per scheduling slot. An error is treated as
// "not yet satisfied" and retried; the timeout is still enforced after every
// attempt.
type Condition func(ctx context.Context) (bool, error)

// Scheduler suspends the waiter between condition evaluations.
type Scheduler interface {
	// Reset rewinds the schedule to its first slot.
	Reset()
	// Sleep blocks until the next evaluation slot or until ctx is done.
	Sleep(ctx context.Context) error
}

// -- Interval Strategy --

// IntervalScheduler suspends for a caller-specified sequence of delays, the
// last value repeating once the sequence is exhausted.
type IntervalScheduler struct {
	delays []time.Duration
	next   int
}

// NewIntervalScheduler builds an interval scheduler. At least one delay is
// required; a single delay yields fixed-interval polling.
func NewIntervalScheduler(delays ...time.Duration) *IntervalScheduler {
	if len(delays) == 0 {
		delays = []time.Duration{100 * time.Millisecond}
	}
	return &IntervalScheduler{delays: delays}
}

func (s *IntervalScheduler) Reset() { s.next = 0 }

func (s *IntervalScheduler) Sleep(ctx context.Context) error {
	d := s.delays[s.next]
	if s.next < len(s.delays)-1 {
		s.next++
	}
	if d <= 0 {
		// Still yield to cancellation on zero delays.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -- Frame Strategy --

// FrameScheduler resynchronizes every evaluation with the rendering
// pipeline via the host's frame clock.
type FrameScheduler struct {
	clock schemas.FrameClock
}

func NewFrameScheduler(clock schemas.FrameClock) *FrameScheduler {
	return &FrameScheduler{clock: clock}
}

func (s *FrameScheduler) Reset() {}

func (s *FrameScheduler) Sleep(ctx context.Context) error {
	return s.clock.NextFrame(ctx)
}

// -- Waiter --

// NoTimeout disables local timeout accounting for waits that logically
// cannot time out and rely on an outer deadline instead.
const NoTimeout = time.Duration(1<<63 - 1)

// Waiter owns a scheduler and a timeout budget. A waiter becomes terminal on
// the first truthy condition result, on timeout, or on cancellation. Calling
// Wait again after completion restarts its internal counters; concurrent
// reentry against the same instance is not supported.
type Waiter struct {
	sched   Scheduler
	timeout time.Duration

	mu       sync.Mutex
	stop     context.CancelFunc
	canceled bool
}

// New builds a waiter over the given scheduler with the given budget.
func New(sched Scheduler, timeout time.Duration) *Waiter {
	return &Waiter{sched: sched, timeout: timeout}
}

// Wait polls cond until it returns true, the budget is exhausted, ctx is
// done, or Cancel is called.
func (w *Waiter) Wait(ctx context.Context, cond Condition) error {
	wctx, stop := context.WithCancel(ctx)
	defer stop()

	w.mu.Lock()
	w.stop = stop
	w.canceled = false
	w.mu.Unlock()
	w.sched.Reset()

	var deadline time.Time
	if w.timeout != NoTimeout {
		deadline = time.Now().Add(w.timeout)
	}

	for {
		ok, err := cond(wctx)
		if ok && err == nil {
			return nil
		}
		// A condition error means "keep polling"; the deadline is still
		// enforced after every attempt.
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return &schemas.TimeoutError{Budget: w.timeout}
		}
		if err := w.sched.Sleep(wctx); err != nil {
			return w.terminalError(ctx, err)
		}
	}
}

// Cancel immediately rejects a pending wait and releases the underlying
// timer or frame subscription. It is idempotent and a no-op after natural
// completion.
func (w *Waiter) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.canceled = true
	if w.stop != nil {
		w.stop()
	}
}

func (w *Waiter) terminalError(parent context.Context, err error) error {
	w.mu.Lock()
	canceled := w.canceled
	w.mu.Unlock()
	if canceled && parent.Err() == nil {
		return schemas.ErrCancelled
	}
	return err
}
