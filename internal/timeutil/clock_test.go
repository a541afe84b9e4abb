package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMockClockAfterFiresOnAdvance(t *testing.T) {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	ch := clock.After(2 * time.Second)
	clock.Advance(time.Second)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	clock.Advance(time.Second)
	select {
	case got := <-ch:
		require.Equal(t, start.Add(2*time.Second), got)
	default:
		t.Fatal("did not fire")
	}
}

func TestMockClockAfterZeroFiresImmediately(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	select {
	case <-clock.After(0):
	default:
		t.Fatal("zero wait should fire immediately")
	}
}

func TestMockTicker(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Second)

	clock.Advance(500 * time.Millisecond)
	require.Len(t, ticker.C(), 0)

	clock.Advance(500 * time.Millisecond)
	require.Len(t, ticker.C(), 1)
	<-ticker.C()

	ticker.Stop()
	clock.Advance(5 * time.Second)
	require.Len(t, ticker.C(), 0)
}
