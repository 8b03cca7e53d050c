package suggestion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-journey/internal/app/suggestion"
	"github.com/PabloGalante/farum-journey/internal/clock"
)

func TestDebouncerRunsOnlyLastCall(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	d := suggestion.NewDebouncer(c, 800*time.Millisecond)

	var got []int
	for i := 1; i <= 5; i++ {
		v := i
		d.Trigger("safety", func() { got = append(got, v) })
		c.Advance(100 * time.Millisecond)
	}
	require.Empty(t, got)
	require.True(t, d.Pending("safety"))

	c.Advance(800 * time.Millisecond)
	require.Equal(t, []int{5}, got)
	require.False(t, d.Pending("safety"))
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	d := suggestion.NewDebouncer(c, 50*time.Millisecond)

	var got []string
	d.Trigger("safety", func() { got = append(got, "safety") })
	d.Trigger("belief", func() { got = append(got, "belief") })

	c.Advance(50 * time.Millisecond)
	require.ElementsMatch(t, []string{"safety", "belief"}, got)
}

func TestDebouncerCancelAndStop(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	d := suggestion.NewDebouncer(c, 50*time.Millisecond)

	fired := 0
	d.Trigger("a", func() { fired++ })
	d.Cancel("a")
	c.Advance(time.Second)
	require.Zero(t, fired)

	d.Trigger("a", func() { fired++ })
	d.Stop()
	d.Trigger("a", func() { fired++ })
	c.Advance(time.Second)
	require.Zero(t, fired)
	require.Zero(t, c.Pending())
}

func TestDebouncerRealClock(t *testing.T) {
	d := suggestion.NewDebouncer(clock.Real(), 10*time.Millisecond)
	defer d.Stop()

	done := make(chan int, 3)
	for i := 0; i < 3; i++ {
		v := i
		d.Trigger("k", func() { done <- v })
	}

	select {
	case v := <-done:
		require.Equal(t, 2, v)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never ran")
	}
}
