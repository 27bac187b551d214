package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/selector"
)

// Take blocks until a message matching p is dispatched.
func Take(ctx context.Context, p Pattern) (message.Message, error) {
	t, err := taskOf(ctx)
	if err != nil {
		return message.Message{}, err
	}
	if err := ctx.Err(); err != nil {
		return message.Message{}, err
	}

	tk := &taker{pattern: p, ctx: ctx, ch: make(chan delivery)}
	t.rt.takers = append(t.rt.takers, tk)
	t.yield()

	select {
	case d := <-tk.ch:
		t.handback = d.handback
		if err := ctx.Err(); err != nil {
			return message.Message{}, err
		}
		return d.msg, nil
	case <-ctx.Done():
		t.resume()
		t.rt.removeTaker(tk)
		return message.Message{}, ctx.Err()
	}
}

// Put dispatches msg. A cancelled task cannot put: the message is dropped and ErrCancelled returned.
func Put(ctx context.Context, msg message.Message) error {
	t, err := taskOf(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s dropped: %w", ErrCancelled, msg.Type, err)
	}
	return t.rt.put(msg)
}

// Select returns the current state.
func Select(ctx context.Context) (any, error) {
	t, err := taskOf(ctx)
	if err != nil {
		return nil, err
	}
	return t.rt.store.State(), nil
}

// SelectWith applies sel to the current state.
func SelectWith[V any](ctx context.Context, sel selector.Selector[any, V]) (V, error) {
	state, err := Select(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	return sel(state), nil
}

// Call runs fn without the baton so other sagas progress meanwhile.
// Panics in fn are returned as errors. When ctx is cancelled while fn runs,
// its result is discarded and ctx's error returned.
// fn must not use saga primitives.
func Call(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	return Await(ctx, fn)
}

// Await is the typed form of Call.
func Await[R any](ctx context.Context, fn func(context.Context) (R, error)) (R, error) {
	var zero R
	t, err := taskOf(ctx)
	if err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var (
		res     R
		callErr error
	)
	t.suspend(func() {
		res, callErr = protect(ctx, fn)
	})
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return res, callErr
}

func protect[R any](ctx context.Context, fn func(context.Context) (R, error)) (res R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx)
}

// Fork starts s as a child task and returns once it first blocks or ends.
// The child is cancelled with ctx, and the parent is not Done before its children are.
func Fork(ctx context.Context, s Saga) (*Task, error) {
	t, err := taskOf(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.rt.spawn(ctx, t, s), nil
}

// Cancel cancels task.
func Cancel(ctx context.Context, task *Task) error {
	if _, err := taskOf(ctx); err != nil {
		return err
	}
	task.Cancel()
	return nil
}

// Join waits for task to end and returns its error.
func Join(ctx context.Context, task *Task) error {
	t, err := taskOf(ctx)
	if err != nil {
		return err
	}
	t.park(func() {
		select {
		case <-task.done:
		case <-ctx.Done():
		}
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	return task.err
}

// Delay sleeps for d.
func Delay(ctx context.Context, d time.Duration) error {
	t, err := taskOf(ctx)
	if err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	t.suspend(func() {
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	})
	return ctx.Err()
}
