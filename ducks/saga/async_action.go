package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/reducks_go/ducks/log"
	"github.com/on-the-ground/reducks_go/ducks/message"
)

// Effect is an asynchronous operation driven by an async action.
type Effect func(ctx context.Context, args ...any) (any, error)

type asyncActionConfig struct {
	getArgs  func(msg message.Message, state any) []any
	getMeta  func(msg message.Message, state any) message.AsyncMeta
	debounce time.Duration
}

type AsyncActionOption func(*asyncActionConfig)

// WithGetArgs sets the effect arguments. The default is payload, state and the trigger message.
func WithGetArgs(fn func(msg message.Message, state any) []any) AsyncActionOption {
	return func(c *asyncActionConfig) { c.getArgs = fn }
}

// WithGetMeta sets the metadata of the lifecycle messages. The request id is always
// overwritten, and an empty Trigger is set to the triggering message.
func WithGetMeta(fn func(msg message.Message, state any) message.AsyncMeta) AsyncActionOption {
	return func(c *asyncActionConfig) { c.getMeta = fn }
}

// WithDebounce waits d before reading state. Combined with TakeLatest this debounces triggers.
func WithDebounce(d time.Duration) AsyncActionOption {
	return func(c *asyncActionConfig) { c.debounce = d }
}

// AsyncAction returns a worker that puts PENDING, runs effect, then puts SUCCESS
// with the result or FAILURE with the error. A cancelled worker puts nothing more.
func AsyncAction(types message.AsyncType, effect Effect, opts ...AsyncActionOption) Worker {
	cfg := asyncActionConfig{
		getArgs: func(msg message.Message, state any) []any {
			return []any{msg.Payload, state, msg}
		},
		getMeta: func(msg message.Message, _ any) message.AsyncMeta {
			return message.AsyncMeta{Trigger: msg}
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx context.Context, msg message.Message, _ ...any) error {
		if cfg.debounce > 0 {
			if err := Delay(ctx, cfg.debounce); err != nil {
				return err
			}
		}

		state, err := Select(ctx)
		if err != nil {
			return err
		}
		meta := cfg.getMeta(msg, state)
		meta.RequestID = uuid.New().String()
		if meta.Trigger.Type == "" {
			meta.Trigger = msg
		}

		if err := Put(ctx, message.Message{Type: types.Pending, Meta: meta}); err != nil {
			return err
		}

		args := cfg.getArgs(msg, state)
		result, err := Call(ctx, func(ctx context.Context) (any, error) {
			return effect(ctx, args...)
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Effect(ctx, log.LevelDebug, "async action failed", map[string]any{
				"type":      string(types.Failure),
				"requestId": meta.RequestID,
				"error":     err.Error(),
			})
			return Put(ctx, message.Failure(types.Failure, err, meta))
		}
		return Put(ctx, message.Message{Type: types.Success, Payload: result, Meta: meta})
	}
}
