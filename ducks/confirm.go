package ducks

import (
	"context"

	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/reducer"
	"github.com/on-the-ground/reducks_go/ducks/saga"
	"github.com/on-the-ground/reducks_go/ducks/selector"
)

// ConfirmAction builds the message put once a triggered operation is confirmed.
type ConfirmAction func(triggerPayload, confirmPayload, state any) message.Message

type confirmConfig struct {
	triggerPayload func(any) any
	confirmPayload func(any) any
}

type ConfirmOption func(*confirmConfig)

// WithTriggerPayload maps the argument of Trigger to the TRIGGER payload.
func WithTriggerPayload(fn func(any) any) ConfirmOption {
	return func(c *confirmConfig) { c.triggerPayload = fn }
}

// WithConfirmPayload maps the argument of Confirm to the CONFIRM payload.
func WithConfirmPayload(fn func(any) any) ConfirmOption {
	return func(c *confirmConfig) { c.confirmPayload = fn }
}

// ConfirmDuck gates an action behind TRIGGER then CONFIRM. CANCEL aborts.
type ConfirmDuck struct {
	Duck
	TriggerType message.Type
	ConfirmType message.Type
	CancelType  message.Type

	IsPending         selector.Selector[any, bool]
	GetTriggerPayload selector.Selector[any, any]

	cfg confirmConfig
}

func (d *ConfirmDuck) Trigger(arg any) message.Message {
	return message.New(d.TriggerType, d.cfg.triggerPayload(arg))
}

func (d *ConfirmDuck) Confirm(arg any) message.Message {
	return message.New(d.ConfirmType, d.cfg.confirmPayload(arg))
}

func (d *ConfirmDuck) Cancel() message.Message {
	return message.New(d.CancelType, nil)
}

// NewConfirmDuck keeps the pending flag under "isPending" and the trigger payload under "trigger".
// On CONFIRM it puts action(triggerPayload, confirmPayload, state).
func NewConfirmDuck(action ConfirmAction, opts ...ConfirmOption) Creator[*ConfirmDuck] {
	identity := func(v any) any { return v }
	cfg := confirmConfig{triggerPayload: identity, confirmPayload: identity}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(f *Factory) (*ConfirmDuck, error) {
		d := &ConfirmDuck{cfg: cfg}
		var err error
		if d.TriggerType, err = f.DefineType("TRIGGER"); err != nil {
			return nil, err
		}
		if d.ConfirmType, err = f.DefineType("CONFIRM"); err != nil {
			return nil, err
		}
		if d.CancelType, err = f.DefineType("CANCEL"); err != nil {
			return nil, err
		}

		pendingFactory, err := f.CreateNestedFactory("isPending")
		if err != nil {
			return nil, err
		}
		pending, err := NewReduceAndSelectDuck(reducer.Lift(
			reducer.Flag([]message.Type{d.TriggerType}, []message.Type{d.CancelType, d.ConfirmType}, nil),
			false,
		))(pendingFactory)
		if err != nil {
			return nil, err
		}
		d.IsPending = castSelector[bool](pending.Selector, false)

		triggerFactory, err := f.CreateNestedFactory("trigger")
		if err != nil {
			return nil, err
		}
		payload, err := NewReduceAndSelectDuck(reducer.SingleAction[any](d.TriggerType, nil))(triggerFactory)
		if err != nil {
			return nil, err
		}
		d.GetTriggerPayload = payload.Selector

		perform := func(ctx context.Context, msg message.Message, _ ...any) error {
			state, err := saga.Select(ctx)
			if err != nil {
				return err
			}
			triggerPayload, err := saga.SelectWith(ctx, d.GetTriggerPayload)
			if err != nil {
				return err
			}
			return saga.Put(ctx, action(triggerPayload, msg.Payload, state))
		}

		d.Duck = ComposeDucks(pending.Duck, payload.Duck, Duck{
			Saga: saga.TakeEvery(saga.Is(d.ConfirmType), perform),
		})
		return d, nil
	}
}
