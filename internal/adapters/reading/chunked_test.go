package reading_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/wres/internal/adapters/reading"
)

func delayed(v int, d time.Duration) reading.Load[int] {
	return func(ctx context.Context) (int, error) {
		select {
		case <-time.After(d):
			return v, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func TestChunked_SubmissionOrder(t *testing.T) {
	loads := []reading.Load[int]{
		delayed(0, 40*time.Millisecond),
		delayed(1, 5*time.Millisecond),
		delayed(2, 20*time.Millisecond),
		delayed(3, 0),
	}
	got, err := reading.ReadAll(context.Background(), 3, loads)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, got)
}

func TestChunked_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int64
	load := func(ctx context.Context) (int, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return 1, nil
	}
	loads := make([]reading.Load[int], 12)
	for i := range loads {
		loads[i] = load
	}
	got, err := reading.ReadAll(context.Background(), 2, loads)
	require.NoError(t, err)
	assert.Len(t, got, 12)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestChunked_ErrorAtItsSlot(t *testing.T) {
	boom := errors.New("boom")
	loads := []reading.Load[int]{
		delayed(0, 10*time.Millisecond),
		func(context.Context) (int, error) { return 0, boom },
		delayed(2, time.Second),
	}
	c := reading.NewChunked(context.Background(), 3, loads)

	v, ok, err := c.Next()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, v)

	_, ok, err = c.Next()
	require.ErrorIs(t, err, boom)
	assert.False(t, ok)

	_, _, err = c.Next()
	require.ErrorIs(t, err, boom, "the first error should stick")
}

func TestChunked_Close(t *testing.T) {
	loads := []reading.Load[int]{delayed(0, time.Minute), delayed(1, time.Minute)}
	c := reading.NewChunked(context.Background(), 1, loads)

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close should abandon reads in flight")
	}

	_, ok, err := c.Next()
	assert.False(t, ok)
	require.ErrorIs(t, err, context.Canceled)
}

func TestChunked_Empty(t *testing.T) {
	got, err := reading.ReadAll[int](context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
