package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type taskKey struct{}

// Task is a handle to a running saga.
type Task struct {
	id     string
	rt     *Runtime
	parent *Task
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// set before done is closed
	err       error
	cancelled bool

	// non-nil while the baton is lent to this task by a goroutine waiting for it back
	handback chan struct{}
	children sync.WaitGroup
}

func (t *Task) ID() string { return t.id }

// Cancel cancels the task and all tasks forked from it. Cancelling a finished task does nothing.
func (t *Task) Cancel() { t.cancel() }

// Done is closed when the task and all of its forks have ended.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is the error returned by the saga. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// IsCancelled reports whether the task was cancelled before its saga returned.
func (t *Task) IsCancelled() bool {
	select {
	case <-t.done:
		return t.cancelled
	default:
		return t.ctx.Err() != nil
	}
}

func taskOf(ctx context.Context) (*Task, error) {
	t, ok := ctx.Value(taskKey{}).(*Task)
	if !ok {
		return nil, ErrNoRuntime
	}
	return t, nil
}

// spawn must be called with the baton held. The baton is lent to the new task
// until it first blocks or ends.
func (rt *Runtime) spawn(ctx context.Context, parent *Task, s Saga) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		id:     uuid.New().String(),
		rt:     rt,
		parent: parent,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	t.ctx = context.WithValue(ctx, taskKey{}, t)
	if parent != nil {
		parent.children.Add(1)
	}

	handback := make(chan struct{})
	t.handback = handback
	go t.run(s)
	<-handback
	return t
}

func (t *Task) run(s Saga) {
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("%w: %v", ErrPanic, r)
			t.rt.logger.Error("saga panicked", zap.String("task", t.id), zap.Any("panic", r), zap.Stack("stack"))
		} else if t.err != nil && !errors.Is(t.err, context.Canceled) {
			t.rt.logger.Warn("saga returned an error", zap.String("task", t.id), zap.Error(t.err))
		}
		t.cancelled = t.ctx.Err() != nil
		t.yield()

		t.children.Wait()
		t.cancel()
		close(t.done)
		if t.parent != nil {
			t.parent.children.Done()
		}
	}()
	t.err = s(t.ctx)
}

// yield gives the baton back to the goroutine that lent it, or releases it.
func (t *Task) yield() {
	if handback := t.handback; handback != nil {
		t.handback = nil
		close(handback)
		return
	}
	t.rt.baton.Unlock()
}

func (t *Task) resume() {
	t.rt.baton.Lock()
}

// suspend runs block without the baton. The runtime is not settled until block returns.
func (t *Task) suspend(block func()) {
	t.rt.busy++
	t.park(block)
	t.rt.busy--
}

// park runs block without the baton.
func (t *Task) park(block func()) {
	t.yield()
	defer t.resume()
	block()
}
