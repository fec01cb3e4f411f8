package singleflight

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var (
		calls atomic.Int32
		last  atomic.Int32
	)
	for i := 1; i <= 5; i++ {
		n := int32(i)
		require.True(t, d.Schedule(func() {
			calls.Add(1)
			last.Store(n)
		}))
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, int32(5), last.Load())
	require.False(t, d.Pending())
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Schedule(func() { calls.Add(1) })
	require.True(t, d.Pending())
	require.True(t, d.Cancel())
	require.False(t, d.Cancel())

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, calls.Load())
}

func TestDebouncerStopRejectsSchedule(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var calls atomic.Int32
	d.Schedule(func() { calls.Add(1) })
	d.Stop()

	require.False(t, d.Schedule(func() { calls.Add(1) }))
	time.Sleep(40 * time.Millisecond)
	require.Zero(t, calls.Load())
}

func TestGuardSingleHolder(t *testing.T) {
	g := NewGuard()
	require.False(t, g.Busy())
	require.True(t, g.TryAcquire())
	require.True(t, g.Busy())
	require.False(t, g.TryAcquire())

	g.Release()
	require.False(t, g.Busy())
	require.True(t, g.TryAcquire())
	g.Release()
}

func TestGuardReleaseWithoutHoldIsNoop(t *testing.T) {
	g := NewGuard()
	g.Release()
	require.True(t, g.TryAcquire())
	require.False(t, g.TryAcquire())
	g.Release()
}

func TestGuardConcurrentAcquire(t *testing.T) {
	g := NewGuard()
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAcquire() {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	require.Equal(t, int32(1), winners.Load())
}
