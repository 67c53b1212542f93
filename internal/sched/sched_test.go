package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEveryRejectsBadIntervals(t *testing.T) {
	e := New(nil)
	require.Error(t, e.Every("not-a-duration", "x", func() {}))
	require.Error(t, e.Every("-5s", "x", func() {}))
	require.Error(t, e.Every("0s", "x", func() {}))
}

func TestEveryFiresRepeatedly(t *testing.T) {
	e := New(nil)

	var ticks atomic.Int32
	require.NoError(t, e.Every("1s", "tick", func() { ticks.Add(1) }))

	e.Start()
	defer e.Stop()

	require.Eventually(t, func() bool {
		return ticks.Load() >= 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestIndependentSchedules(t *testing.T) {
	e := New(nil)

	var fast, slow atomic.Int32
	require.NoError(t, e.Every("1s", "fast", func() { fast.Add(1) }))
	require.NoError(t, e.Every("1h", "slow", func() { slow.Add(1) }))

	e.Start()
	defer e.Stop()

	require.Eventually(t, func() bool {
		return fast.Load() >= 2
	}, 5*time.Second, 20*time.Millisecond)
	require.Zero(t, slow.Load())
}
