// Package saga runs long-lived processes that react to messages and orchestrate effects.
//
// Sagas are cooperative: every saga goroutine of a Runtime needs the runtime's
// baton to run, and only the blocking primitives (Take, Call, Delay, Join) give it
// up. Code between two blocking primitives is therefore atomic with respect to
// every other saga of the same runtime.
package saga

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/on-the-ground/reducks_go/ducks/message"
	"go.uber.org/zap"
)

var (
	// ErrNoRuntime is returned by primitives called with a context that does not belong to a saga.
	ErrNoRuntime = errors.New("saga: context does not carry a task")

	// ErrCancelled wraps the context error of a Put issued by a cancelled task.
	ErrCancelled = errors.New("saga: task cancelled")

	// ErrPanic is recorded as the task error when a saga panics.
	ErrPanic = errors.New("saga: task panicked")
)

// Saga is the body of a task. It runs until it returns or its context is cancelled.
type Saga func(ctx context.Context) error

// Store is the state container sagas read from and put messages into.
type Store interface {
	Dispatch(msg message.Message) error
	State() any
}

type Option func(*Runtime)

func WithLogger(logger *zap.Logger) Option {
	return func(rt *Runtime) { rt.logger = logger }
}

// Runtime schedules the sagas of one store.
type Runtime struct {
	baton  sync.Mutex
	store  Store
	logger *zap.Logger

	// guarded by baton
	takers   []*taker
	queue    []message.Message
	draining bool
	busy     int
}

func New(store Store, opts ...Option) *Runtime {
	rt := &Runtime{
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run starts s as a root task and returns once it first blocks or ends.
// Run must not be called from inside a saga; use Fork there.
func (rt *Runtime) Run(ctx context.Context, s Saga) *Task {
	rt.baton.Lock()
	defer rt.baton.Unlock()
	return rt.spawn(ctx, nil, s)
}

// Dispatch reduces msg and delivers it to waiting sagas.
// It returns once every saga reacting synchronously has blocked again.
// Sagas must use Put instead.
func (rt *Runtime) Dispatch(msg message.Message) error {
	rt.baton.Lock()
	defer rt.baton.Unlock()
	return rt.put(msg)
}

// Settle waits until no saga is inside Call, Delay or a pending dispatch.
func (rt *Runtime) Settle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		rt.baton.Lock()
		idle := rt.busy == 0 && len(rt.queue) == 0
		rt.baton.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// put must be called with the baton held.
// Messages put while a drain is in progress are processed after the current one.
func (rt *Runtime) put(msg message.Message) error {
	rt.queue = append(rt.queue, msg)
	if rt.draining {
		return nil
	}
	rt.draining = true
	defer func() { rt.draining = false }()

	var err error
	own := true
	for len(rt.queue) > 0 {
		next := rt.queue[0]
		rt.queue = rt.queue[1:]
		if dispatchErr := rt.store.Dispatch(next); dispatchErr != nil {
			rt.logger.Error("store rejected message", zap.String("type", string(next.Type)), zap.Error(dispatchErr))
			if own {
				err = dispatchErr
			}
			own = false
			continue
		}
		own = false
		rt.deliver(next)
	}
	return err
}

type delivery struct {
	msg      message.Message
	handback chan struct{}
}

type taker struct {
	pattern Pattern
	ctx     context.Context
	ch      chan delivery
}

// deliver hands msg to every matching taker in registration order, lending each the baton
// until it blocks again. Takers registered during delivery wait for the next message.
func (rt *Runtime) deliver(msg message.Message) {
	var matched []*taker
	kept := make([]*taker, 0, len(rt.takers))
	for _, tk := range rt.takers {
		if tk.pattern.Match(msg) {
			matched = append(matched, tk)
		} else {
			kept = append(kept, tk)
		}
	}
	rt.takers = kept

	for _, tk := range matched {
		handback := make(chan struct{})
		select {
		case tk.ch <- delivery{msg: msg, handback: handback}:
			<-handback
		case <-tk.ctx.Done():
		}
	}
}

func (rt *Runtime) removeTaker(tk *taker) {
	for i, other := range rt.takers {
		if other == tk {
			rt.takers = append(rt.takers[:i:i], rt.takers[i+1:]...)
			return
		}
	}
}
