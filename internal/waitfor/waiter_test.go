// internal/waitfor/waiter_test.go
package waitfor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dashv0id/domprobe/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a FrameClock driven manually by the test.
type fakeClock struct {
	frames chan struct{}
}

func newFakeClock() *fakeClock {
	return &fakeClock{frames: make(chan struct{}, 64)}
}

func (c *fakeClock) Tick() { c.frames <- struct{}{} }

func (c *fakeClock) NextFrame(ctx context.Context) error {
	select {
	case <-c.frames:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestIntervalWaiter(t *testing.T) {
	t.Run("succeeds once condition becomes true", func(t *testing.T) {
		attempts := 0
		w := New(NewIntervalScheduler(0, 0, 5*time.Millisecond), time.Second)
		err := w.Wait(context.Background(), func(context.Context) (bool, error) {
			attempts++
			return attempts >= 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("last delay repeats", func(t *testing.T) {
		s := NewIntervalScheduler(0, 10*time.Millisecond)
		ctx := context.Background()
		require.NoError(t, s.Sleep(ctx)) // 0
		start := time.Now()
		require.NoError(t, s.Sleep(ctx)) // 10ms
		require.NoError(t, s.Sleep(ctx)) // 10ms again
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("times out with budget in error", func(t *testing.T) {
		w := New(NewIntervalScheduler(time.Millisecond), 20*time.Millisecond)
		err := w.Wait(context.Background(), func(context.Context) (bool, error) {
			return false, nil
		})
		var te *schemas.TimeoutError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 20*time.Millisecond, te.Budget)
	})

	t.Run("condition errors keep polling until timeout", func(t *testing.T) {
		attempts := 0
		w := New(NewIntervalScheduler(time.Millisecond), 15*time.Millisecond)
		err := w.Wait(context.Background(), func(context.Context) (bool, error) {
			attempts++
			return false, errors.New("transient")
		})
		var te *schemas.TimeoutError
		require.ErrorAs(t, err, &te)
		assert.Greater(t, attempts, 1)
	})

	t.Run("reusable after completion", func(t *testing.T) {
		w := New(NewIntervalScheduler(0), 50*time.Millisecond)
		cond := func(context.Context) (bool, error) { return true, nil }
		require.NoError(t, w.Wait(context.Background(), cond))
		require.NoError(t, w.Wait(context.Background(), cond))
	})
}

func TestWaiterCancel(t *testing.T) {
	t.Run("cancel rejects pending wait", func(t *testing.T) {
		w := New(NewIntervalScheduler(time.Hour), time.Hour)
		done := make(chan error, 1)
		go func() {
			done <- w.Wait(context.Background(), func(context.Context) (bool, error) {
				return false, nil
			})
		}()
		time.Sleep(10 * time.Millisecond)
		w.Cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, schemas.ErrCancelled)
		case <-time.After(time.Second):
			t.Fatal("wait did not return after cancel")
		}
	})

	t.Run("cancel is idempotent and safe after completion", func(t *testing.T) {
		w := New(NewIntervalScheduler(0), time.Second)
		require.NoError(t, w.Wait(context.Background(), func(context.Context) (bool, error) {
			return true, nil
		}))
		w.Cancel()
		w.Cancel()
	})

	t.Run("context cancellation is not reported as waiter cancel", func(t *testing.T) {
		w := New(NewIntervalScheduler(time.Hour), time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(5 * time.Millisecond)
			cancel()
		}()
		err := w.Wait(ctx, func(context.Context) (bool, error) { return false, nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, schemas.ErrCancelled)
	})
}

func TestFrameWaiter(t *testing.T) {
	t.Run("evaluates once per frame", func(t *testing.T) {
		clock := newFakeClock()
		attempts := 0
		w := New(NewFrameScheduler(clock), NoTimeout)

		for i := 0; i < 3; i++ {
			clock.Tick()
		}
		err := w.Wait(context.Background(), func(context.Context) (bool, error) {
			attempts++
			return attempts == 4, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 4, attempts)
	})

	t.Run("unbounded timeout defers to outer context", func(t *testing.T) {
		clock := newFakeClock()
		w := New(NewFrameScheduler(clock), NoTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := w.Wait(ctx, func(context.Context) (bool, error) { return false, nil })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
