package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errNotYet = errors.New("not yet")

func TestDo_SucceedsFirstTry(t *testing.T) {
	clk := NewFakeClock(time.Unix(0, 0))
	calls := 0
	err := Do(context.Background(), Policy{Interval: time.Second, Deadline: time.Minute, Clock: clk}, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, clk.Waits())
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	clk := NewFakeClock(time.Unix(0, 0))
	calls := 0
	var retried []int
	p := Poll(5*time.Second, 30*time.Minute)
	p.Clock = clk
	p.OnRetry = func(attempt int, err error) {
		require.ErrorIs(t, err, errNotYet)
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 4 {
			return errNotYet
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 4, calls)
	require.Equal(t, []int{1, 2, 3}, retried)
	require.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, clk.Waits())
}

func TestDo_DeadlineIsBounded(t *testing.T) {
	start := time.Unix(0, 0)
	clk := NewFakeClock(start)
	p := Poll(5*time.Second, 30*time.Minute)
	p.Clock = clk

	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return errNotYet
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.Contains(t, err.Error(), "not yet")

	// 0s, 5s, ..., 1800s: 361 intentos y nunca se pasa del deadline.
	require.Equal(t, 361, calls)
	require.Equal(t, 30*time.Minute, clk.Now().Sub(start))
}

func TestDo_LastWaitIsClippedToDeadline(t *testing.T) {
	start := time.Unix(0, 0)
	clk := NewFakeClock(start)
	err := Do(context.Background(), Policy{Interval: 4 * time.Second, Deadline: 10 * time.Second, Clock: clk}, func(context.Context) error {
		return errNotYet
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second, 2 * time.Second}, clk.Waits())
	require.Equal(t, 10*time.Second, clk.Now().Sub(start))
}

func TestDo_MaxAttemptsReturnsLastError(t *testing.T) {
	clk := NewFakeClock(time.Unix(0, 0))
	calls := 0
	p := Constant(3, 2*time.Second)
	p.Clock = clk

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return errNotYet
	})
	require.ErrorIs(t, err, errNotYet)
	require.NotErrorIs(t, err, ErrTimeout)
	require.Equal(t, 3, calls)
	require.Len(t, clk.Waits(), 2)
}

func TestDo_ZeroPolicyRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{}, func(context.Context) error {
		calls++
		return errNotYet
	})
	require.ErrorIs(t, err, errNotYet)
	require.Equal(t, 1, calls)
}

func TestDo_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clk := NewFakeClock(time.Unix(0, 0))
	calls := 0

	err := Do(ctx, Policy{Interval: time.Second, Deadline: time.Hour, Clock: clk}, func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errNotYet
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, calls)
}

func TestDo_RealClockHonorsCancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	began := time.Now()
	err := Do(ctx, Policy{Interval: time.Hour, Deadline: 2 * time.Hour}, func(context.Context) error {
		return errNotYet
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(began), 5*time.Second)
}
