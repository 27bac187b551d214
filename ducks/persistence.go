package ducks

import (
	"context"
	"errors"
	"sync"

	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/saga"
	"github.com/on-the-ground/reducks_go/ducks/storage"
	"go.uber.org/zap"
)

var ErrRootPersistence = errors.New("persistence duck needs a non-root factory path")

type persistenceConfig struct {
	triggers saga.Pattern
	writer   *storage.Writer
}

type PersistenceOption func(*persistenceConfig)

// WithPersistTriggers limits writes to messages of the given types. By default every message triggers a write.
func WithPersistTriggers(types ...message.Type) PersistenceOption {
	return func(c *persistenceConfig) { c.triggers = saga.Is(types...) }
}

// WithWriter queues writes on w instead of writing from the saga.
func WithWriter(w *storage.Writer) PersistenceOption {
	return func(c *persistenceConfig) { c.writer = w }
}

// PersistenceDuck mirrors the factory slice into a Storage.
type PersistenceDuck struct {
	Duck
	StorageKey string
}

// NewPersistenceDuck loads the slice from st on the first reduction and saves it on every trigger.
// A missing or unreadable stored value leaves the slice as is.
func NewPersistenceDuck(st storage.Storage, opts ...PersistenceOption) Creator[*PersistenceDuck] {
	cfg := persistenceConfig{triggers: saga.Any()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(f *Factory) (*PersistenceDuck, error) {
		if len(f.path) == 0 {
			return nil, ErrRootPersistence
		}
		key := f.path.String()
		local := f.CreateSelector()

		var once sync.Once
		load := func(state any, _ message.Message) any {
			next := state
			once.Do(func() {
				v, ok, err := st.Get(context.Background(), key)
				switch {
				case err != nil:
					f.logger.Warn("failed to load persisted state", zap.String("key", key), zap.Error(err))
				case ok && v != nil:
					next = v
				}
			})
			return next
		}

		// previous is closed when the last started write ends. It is only swapped while holding the baton,
		// so direct writes reach st in trigger order.
		previous := make(chan struct{})
		close(previous)

		save := func(ctx context.Context, _ message.Message, _ ...any) error {
			value, err := saga.SelectWith(ctx, local)
			if err != nil {
				return err
			}
			if cfg.writer != nil {
				if !cfg.writer.Write(ctx, st, key, value) {
					f.logger.Warn("persisted write dropped", zap.String("key", key))
				}
				return nil
			}

			wait, mine := previous, make(chan struct{})
			previous = mine
			_, err = saga.Call(ctx, func(ctx context.Context) (any, error) {
				select {
				case <-wait:
				case <-ctx.Done():
					go func() {
						<-wait
						close(mine)
					}()
					return nil, ctx.Err()
				}
				defer close(mine)
				return nil, st.Set(ctx, key, value)
			})
			return err
		}

		return &PersistenceDuck{
			Duck: Duck{
				Reducer: f.CreateReducer(load),
				Saga:    saga.TakeEvery(cfg.triggers, save),
			},
			StorageKey: key,
		}, nil
	}
}
