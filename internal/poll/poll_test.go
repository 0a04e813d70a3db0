package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ReturnsImmediatelyWhenAlreadySatisfied(t *testing.T) {
	calls := 0
	probe := func(context.Context) (int, error) {
		calls++
		return 0, nil
	}
	ticks := 0

	start := time.Now()
	err := Until(context.Background(), probe, func(v int) bool { return v == 0 }, time.Hour, func(int) { ticks++ })
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, ticks)
	assert.Less(t, elapsed, time.Second, "should not have waited a full period")
}

func TestUntil_RetriesUntilSatisfied(t *testing.T) {
	values := []int{3, 1, 0}
	idx := 0
	probe := func(context.Context) (int, error) {
		v := values[idx]
		if idx < len(values)-1 {
			idx++
		}
		return v, nil
	}

	var observed []int
	err := Until(context.Background(), probe, func(v int) bool { return v == 0 }, time.Millisecond, func(v int) {
		observed = append(observed, v)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 0}, observed)
}

func TestUntil_PropagatesProbeError(t *testing.T) {
	probe := func(context.Context) (int, error) { return 0, errors.New("boom") }

	err := Until(context.Background(), probe, func(int) bool { return true }, time.Millisecond, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestUntil_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	probe := func(context.Context) (int, error) { return 1, nil }

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := Until(ctx, probe, func(v int) bool { return v == 0 }, 50*time.Millisecond, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}
