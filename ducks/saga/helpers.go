package saga

import (
	"context"
	"errors"

	"github.com/on-the-ground/reducks_go/ducks/log"
	"github.com/on-the-ground/reducks_go/ducks/message"
)

// Worker handles one message. args are the fixed arguments given to the helper that forked it.
type Worker func(ctx context.Context, msg message.Message, args ...any) error

func (w Worker) bind(msg message.Message, args []any) Saga {
	return func(ctx context.Context) error { return w(ctx, msg, args...) }
}

// TakeEvery forks w for every message matching p.
func TakeEvery(p Pattern, w Worker, args ...any) Saga {
	return func(ctx context.Context) error {
		for {
			msg, err := Take(ctx, p)
			if err != nil {
				return err
			}
			if _, err := Fork(ctx, w.bind(msg, args)); err != nil {
				return err
			}
		}
	}
}

// TakeLatestBy forks w for every message matching p, first cancelling the
// worker still running for the same key. Workers of different keys run concurrently.
// Only running workers are remembered.
func TakeLatestBy(p Pattern, getKey func(message.Message) string, w Worker, args ...any) Saga {
	return func(ctx context.Context) error {
		lastTasks := map[string]*Task{}
		for {
			msg, err := Take(ctx, p)
			if err != nil {
				return err
			}
			for k, last := range lastTasks {
				select {
				case <-last.Done():
					delete(lastTasks, k)
				default:
				}
			}
			key := getKey(msg)
			if last, ok := lastTasks[key]; ok {
				log.Effect(ctx, log.LevelDebug, "cancelling superseded worker", map[string]any{
					"key":  key,
					"task": last.ID(),
				})
				last.Cancel()
			}
			task, err := Fork(ctx, w.bind(msg, args))
			if err != nil {
				return err
			}
			lastTasks[key] = task
		}
	}
}

// TakeLatest keeps only the worker of the latest matching message.
func TakeLatest(p Pattern, w Worker, args ...any) Saga {
	return TakeLatestBy(p, func(message.Message) string { return "" }, w, args...)
}

// TakeOne forks w for the first matching message only.
func TakeOne(p Pattern, w Worker, args ...any) Saga {
	return func(ctx context.Context) error {
		msg, err := Take(ctx, p)
		if err != nil {
			return err
		}
		_, err = Fork(ctx, w.bind(msg, args))
		return err
	}
}

// Compose forks every saga and returns. The composed task ends when all of them have.
func Compose(sagas ...Saga) Saga {
	return func(ctx context.Context) error {
		for _, s := range sagas {
			if s == nil {
				continue
			}
			if _, err := Fork(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}

// All forks every saga and waits for them, returning their errors joined.
func All(sagas ...Saga) Saga {
	return func(ctx context.Context) error {
		tasks := make([]*Task, 0, len(sagas))
		for _, s := range sagas {
			if s == nil {
				continue
			}
			task, err := Fork(ctx, s)
			if err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		var errs []error
		for _, task := range tasks {
			if err := Join(ctx, task); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// SideEffect reacts to a message given the state after it was reduced.
type SideEffect func(ctx context.Context, msg message.Message, state any) error

// SideEffectsMap runs the side effect registered for each dispatched type.
// Side effects run without the baton.
func SideEffectsMap(effects map[message.Type]SideEffect) Saga {
	types := make([]message.Type, 0, len(effects))
	for t := range effects {
		types = append(types, t)
	}
	return TakeEvery(Is(types...), func(ctx context.Context, msg message.Message, _ ...any) error {
		state, err := Select(ctx)
		if err != nil {
			return err
		}
		_, err = Call(ctx, func(ctx context.Context) (any, error) {
			return nil, effects[msg.Type](ctx, msg, state)
		})
		if err != nil && ctx.Err() == nil {
			log.Effect(ctx, log.LevelWarn, "side effect failed", map[string]any{
				"type":  string(msg.Type),
				"error": err.Error(),
			})
			return nil
		}
		return err
	})
}
