package reading

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/okian/wres/pkg/metrics"
)

// Load reads one source.
type Load[T any] func(ctx context.Context) (T, error)

type result[T any] struct {
	value T
	err   error
}

// Chunked runs loads concurrently, at most concurrency at once, and yields
// their results in submission order. Loads are started ahead of the consumer
// as slots free up.
type Chunked[T any] struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sem     *semaphore.Weighted
	slots   []chan result[T]
	next    int
	err     error
	running atomic.Int64
	wg      sync.WaitGroup
	once    sync.Once
}

// NewChunked starts reading. A concurrency below 1 reads one source at a time.
func NewChunked[T any](ctx context.Context, concurrency int, loads []Load[T]) *Chunked[T] {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Chunked[T]{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		slots:  make([]chan result[T], len(loads)),
	}
	for i := range c.slots {
		c.slots[i] = make(chan result[T], 1)
	}
	c.wg.Add(1)
	go c.submit(loads)
	return c
}

func (c *Chunked[T]) submit(loads []Load[T]) {
	defer c.wg.Done()
	for i, load := range loads {
		if err := c.sem.Acquire(c.ctx, 1); err != nil {
			for _, slot := range c.slots[i:] {
				slot <- result[T]{err: fmt.Errorf("%w: %w", ErrRead, err)}
			}
			return
		}
		metrics.UpdateReadsInFlight(int(c.running.Add(1)))
		c.wg.Add(1)
		go func(slot chan<- result[T], load Load[T]) {
			defer c.wg.Done()
			defer c.sem.Release(1)
			defer func() { metrics.UpdateReadsInFlight(int(c.running.Add(-1))) }()
			v, err := load(c.ctx)
			slot <- result[T]{value: v, err: err}
		}(c.slots[i], load)
	}
}

// Next returns the next result in submission order. It reports false once
// every result was returned. After an error, Next keeps returning that error.
func (c *Chunked[T]) Next() (T, bool, error) {
	var zero T
	if c.err != nil {
		return zero, false, c.err
	}
	if c.next >= len(c.slots) {
		return zero, false, nil
	}
	r := <-c.slots[c.next]
	c.next++
	if r.err != nil {
		c.err = r.err
		c.Close()
		return zero, false, r.err
	}
	return r.value, true, nil
}

// All drains the reader.
func (c *Chunked[T]) All() ([]T, error) {
	defer c.Close()
	out := make([]T, 0, len(c.slots)-c.next)
	for {
		v, ok, err := c.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Close cancels loads in flight and waits for them to return.
func (c *Chunked[T]) Close() {
	c.once.Do(func() {
		c.cancel()
		c.wg.Wait()
	})
}

// ReadAll is a convenience for NewChunked followed by All.
func ReadAll[T any](ctx context.Context, concurrency int, loads []Load[T]) ([]T, error) {
	return NewChunked(ctx, concurrency, loads).All()
}
