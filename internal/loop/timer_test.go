package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketfw/reactor/internal/testutil"
)

func TestTimer_InvalidConfig(t *testing.T) {
	l := New()

	_, err := l.Timer("t", "weekly", time.Second)
	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))

	_, err = l.Timer("t", TimerOneshot, 0)
	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))

	_, err = l.Timer("t", TimerPeriodic, -time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))
}

func TestTimer_Oneshot_FiresExactlyOnce(t *testing.T) {
	clk := testutil.NewVirtualClock(time.Unix(0, 0))
	l := New(WithClock(clk))

	c, err := l.Timer("once", TimerOneshot, 50*time.Millisecond)
	require.NoError(t, err)

	fired := 0
	_, err = l.Subscribe(c, func(sub *Subscription, ev Event, state []any) []any {
		fired++
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Not due yet.
	assert.Equal(t, 0, l.runPass(ctx))

	clk.Advance(50 * time.Millisecond)
	assert.Equal(t, 1, l.runPass(ctx))
	assert.Equal(t, 1, fired)

	// Polling after firing never yields readiness again.
	clk.Advance(time.Hour)
	assert.Equal(t, 0, l.runPass(ctx))
	assert.Equal(t, 1, fired)

	_, ok := l.nextDeadline(clk.Now())
	assert.False(t, ok, "spent oneshot must not report a deadline")
}

func TestTimer_Periodic_NoCumulativeDrift(t *testing.T) {
	clk := testutil.NewVirtualClock(time.Unix(0, 0))
	l := New(WithClock(clk))

	const period = 100 * time.Millisecond
	c, err := l.Timer("tick", TimerPeriodic, period)
	require.NoError(t, err)

	fired := 0
	_, err = l.Subscribe(c, func(sub *Subscription, ev Event, state []any) []any {
		fired++
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	start := clk.Now()

	for k := 1; k <= 10; k++ {
		clk.AdvanceTo(start.Add(time.Duration(k) * period))
		assert.Equal(t, 1, l.runPass(ctx), "firing %d", k)

		// The next deadline stays at exactly (k+1)*period from creation,
		// independent of when the firing was dispatched.
		deadline, ok := l.nextDeadline(clk.Now())
		require.True(t, ok)
		assert.Equal(t, start.Add(time.Duration(k+1)*period), deadline)
	}
	assert.Equal(t, 10, fired)
}

func TestTimer_Periodic_CatchUpAfterStall(t *testing.T) {
	clk := testutil.NewVirtualClock(time.Unix(0, 0))
	l := New(WithClock(clk))

	c, err := l.Timer("tick", TimerPeriodic, 100*time.Millisecond)
	require.NoError(t, err)

	fired := 0
	_, err = l.Subscribe(c, func(sub *Subscription, ev Event, state []any) []any {
		fired++
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Stall for three periods: one firing per missed period, one per pass.
	clk.Advance(300 * time.Millisecond)
	assert.Equal(t, 1, l.runPass(ctx))
	assert.Equal(t, 1, l.runPass(ctx))
	assert.Equal(t, 1, l.runPass(ctx))
	assert.Equal(t, 0, l.runPass(ctx))
	assert.Equal(t, 3, fired)
}

func TestTimer_Run_DispatchesOnVirtualDeadline(t *testing.T) {
	clk := testutil.NewVirtualClock(time.Unix(0, 0))
	l := New(WithClock(clk))

	c, err := l.Timer("once", TimerOneshot, 25*time.Millisecond)
	require.NoError(t, err)

	fired := 0
	_, err = l.Subscribe(c, func(sub *Subscription, ev Event, state []any) []any {
		fired++
		sub.Loop().Stop()
		return nil
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clk.BlockUntilContext(ctx, 1), "loop never parked on the timer")
	require.True(t, clk.AdvanceToNext())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after oneshot fired")
	}
	assert.Equal(t, 1, fired)
}
