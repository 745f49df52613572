package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClock_StartsAtEpoch(t *testing.T) {
	c := NewManualClock()
	assert.Equal(t, Epoch, c.Now())
	c.Advance(time.Second)
	assert.Equal(t, Epoch.Add(time.Second), c.Now())
}

func TestManualClock_FiresInDueOrder(t *testing.T) {
	c := NewManualClock()
	var order []string

	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "b") })

	c.Advance(99 * time.Millisecond)
	assert.Empty(t, order)

	c.Advance(time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, c.Pending())
}

func TestManualClock_CallbackSeesDueTime(t *testing.T) {
	c := NewManualClock()
	var at time.Time
	c.AfterFunc(time.Second, func() { at = c.Now() })

	c.Advance(time.Minute)
	assert.Equal(t, Epoch.Add(time.Second), at)
	assert.Equal(t, Epoch.Add(time.Minute), c.Now())
}

func TestManualClock_NestedTimerWithinWindow(t *testing.T) {
	c := NewManualClock()
	fired := 0
	c.AfterFunc(time.Second, func() {
		c.AfterFunc(time.Second, func() { fired++ })
	})

	c.Advance(2 * time.Second)
	assert.Equal(t, 1, fired)
}

func TestManualClock_Stop(t *testing.T) {
	c := NewManualClock()
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.Equal(t, 1, c.Pending())
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Hour)
	assert.False(t, fired)
}

func TestManualClock_Sleep(t *testing.T) {
	c := NewManualClock()
	done := make(chan error, 1)

	go func() {
		done <- c.Sleep(context.Background(), time.Second)
	}()

	c.BlockUntil(1)
	c.Advance(time.Second)
	require.NoError(t, <-done)
}

func TestManualClock_SleepCancelled(t *testing.T) {
	c := NewManualClock()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- c.Sleep(ctx, time.Second)
	}()

	c.BlockUntil(1)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, c.Pending())
}

func TestManualClock_SleepZeroReturnsImmediately(t *testing.T) {
	c := NewManualClock()
	require.NoError(t, c.Sleep(context.Background(), 0))
	assert.Equal(t, 0, c.Pending())
}
