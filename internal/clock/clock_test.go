package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-journey/internal/clock"
)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	c := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var got []string
	c.AfterFunc(30*time.Millisecond, func() { got = append(got, "b") })
	c.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	stopped := c.AfterFunc(20*time.Millisecond, func() { got = append(got, "x") })
	require.True(t, stopped.Stop())
	require.False(t, stopped.Stop())

	c.Advance(25 * time.Millisecond)
	require.Equal(t, []string{"a"}, got)
	require.Equal(t, 1, c.Pending())

	c.Advance(5 * time.Millisecond)
	require.Equal(t, []string{"a", "b"}, got)
	require.Equal(t, 0, c.Pending())
}

func TestManualRunsTimersScheduledByCallbacks(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))

	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 3 {
			c.AfterFunc(10*time.Millisecond, tick)
		}
	}
	c.AfterFunc(10*time.Millisecond, tick)

	c.Advance(time.Second)
	require.Equal(t, 3, ticks)
	require.True(t, c.Now().Equal(time.Unix(1, 0)))
}
