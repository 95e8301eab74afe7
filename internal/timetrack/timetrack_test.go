package timetrack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adbsync/adbsync/internal/clock"
)

func fakeClock(t *testing.T, start time.Time) func(d time.Duration) {
	t.Helper()

	now := start
	old := clock.Now
	clock.Now = func() time.Time { return now }

	t.Cleanup(func() { clock.Now = old })

	return func(d time.Duration) { now = now.Add(d) }
}

func TestEstimator(t *testing.T) {
	advance := fakeClock(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	e := Start()

	_, ok := e.Estimate(0, 100)
	require.False(t, ok, "no estimate before any work completed")

	advance(10 * time.Second)

	est, ok := e.Estimate(25, 100)
	require.True(t, ok)

	require.InDelta(t, 25.0, est.PercentComplete, 0.01)
	require.InDelta(t, 2.5, est.SpeedPerSecond, 0.01)
	require.Equal(t, 30*time.Second, est.Remaining)
}

func TestEstimatorComplete(t *testing.T) {
	advance := fakeClock(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	e := Start()
	advance(5 * time.Second)

	est, ok := e.Estimate(100, 100)
	require.True(t, ok)
	require.InDelta(t, 100.0, est.PercentComplete, 0.01)
	require.Equal(t, time.Duration(0), est.Remaining)
}

func TestThrottle(t *testing.T) {
	advance := fakeClock(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	var th Throttle

	require.True(t, th.ShouldOutput(time.Second))
	require.False(t, th.ShouldOutput(time.Second), "second output within the interval is suppressed")

	advance(2 * time.Second)
	require.True(t, th.ShouldOutput(time.Second))

	th.Reset()
	require.True(t, th.ShouldOutput(time.Second), "reset re-arms the throttle")
}
