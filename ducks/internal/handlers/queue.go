// Package handlers runs fire-and-forget work on single or key-partitioned worker goroutines.
package handlers

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Partitionable messages are routed to a worker by key, so messages sharing a key are handled in order.
type Partitionable interface {
	PartitionKey() string
}

type ScopeConfig struct {
	BufferSize int
	NumWorkers int
}

// NewScopeConfig clamps both values to at least 1.
func NewScopeConfig(bufferSize, numWorkers int) ScopeConfig {
	return ScopeConfig{BufferSize: max(bufferSize, 1), NumWorkers: max(numWorkers, 1)}
}

type WorkerDispatcher[T any] interface {
	GetChannelOf(msg T) chan T
}

// Queue owns its worker goroutines. Workers stop when the parent context is
// cancelled or Close is called, handling whatever is still buffered first.
// Once they stop, Send rejects every message.
type Queue[T any] struct {
	channels []chan T
	route    func(msg T, n int) int
	cancel   context.CancelFunc
	// stopped is closed together with the worker context.
	stopped <-chan struct{}
	// sending is read-held by senders. A stopping worker sets sealed under it before its final drain.
	sending sync.RWMutex
	sealed  bool
	wg      sync.WaitGroup
}

var _ WorkerDispatcher[int] = (*Queue[int])(nil)

// NewSingleQueue starts one worker; messages are handled in send order.
func NewSingleQueue[T any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, T),
) *Queue[T] {
	return newQueue(ctx, NewScopeConfig(bufferSize, 1), func(T, int) int { return 0 }, handleFn)
}

// NewPartitionedQueue starts config.NumWorkers workers and routes by xxhash of the partition key.
func NewPartitionedQueue[T Partitionable](
	ctx context.Context,
	config ScopeConfig,
	handleFn func(context.Context, T),
) *Queue[T] {
	return newQueue(ctx, NewScopeConfig(config.BufferSize, config.NumWorkers), getIndexByHash[T], handleFn)
}

func newQueue[T any](
	ctx context.Context,
	config ScopeConfig,
	route func(T, int) int,
	handleFn func(context.Context, T),
) *Queue[T] {
	ctx, cancel := context.WithCancel(ctx)
	handleCtx := context.WithoutCancel(ctx)
	q := &Queue[T]{
		channels: make([]chan T, config.NumWorkers),
		route:    route,
		cancel:   cancel,
		stopped:  ctx.Done(),
	}
	for i := range q.channels {
		ch := make(chan T, config.BufferSize)
		q.channels[i] = ch
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case msg := <-ch:
					handleFn(handleCtx, msg)
				case <-ctx.Done():
					q.seal()
					for {
						select {
						case msg := <-ch:
							handleFn(handleCtx, msg)
						default:
							return
						}
					}
				}
			}
		}()
	}
	return q
}

func (q *Queue[T]) GetChannelOf(msg T) chan T {
	return q.channels[q.route(msg, len(q.channels))]
}

// Send enqueues msg. It reports false when ctx ends first or the workers are stopping.
// A message it accepts is always handled.
func (q *Queue[T]) Send(ctx context.Context, msg T) bool {
	q.sending.RLock()
	defer q.sending.RUnlock()
	if q.sealed {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-q.stopped:
		return false
	case q.GetChannelOf(msg) <- msg:
		return true
	}
}

func (q *Queue[T]) seal() {
	q.sending.Lock()
	defer q.sending.Unlock()
	q.sealed = true
}

// Close stops the workers after the buffered messages are handled and waits for them.
func (q *Queue[T]) Close() {
	q.cancel()
	q.wg.Wait()
}

func getIndexByHash[T Partitionable](msg T, numChs int) int {
	switch numChs {
	case 0:
		panic("number of channels cannot be 0")
	case 1:
		return 0
	default:
		return int(xxhash.Sum64String(msg.PartitionKey()) % uint64(numChs))
	}
}
