package ducks

import (
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/reducer"
	"github.com/on-the-ground/reducks_go/ducks/saga"
	"github.com/on-the-ground/reducks_go/ducks/selector"
	"github.com/on-the-ground/reducks_go/shared/helper"
)

type asyncConfig[R any] struct {
	initial  R
	reduce   reducer.Reducer[R]
	sagaOpts []saga.AsyncActionOption
}

// AsyncOption configures the async ducks.
type AsyncOption[R any] func(*asyncConfig[R])

// WithInitialResult sets the result held before the first SUCCESS.
func WithInitialResult[R any](v R) AsyncOption[R] {
	return func(c *asyncConfig[R]) { c.initial = v }
}

// WithResultReducer folds each SUCCESS into the previous result instead of replacing it.
func WithResultReducer[R any](r reducer.Reducer[R]) AsyncOption[R] {
	return func(c *asyncConfig[R]) { c.reduce = r }
}

// WithAsyncActionOptions forwards options to saga.AsyncAction.
func WithAsyncActionOptions[R any](opts ...saga.AsyncActionOption) AsyncOption[R] {
	return func(c *asyncConfig[R]) { c.sagaOpts = append(c.sagaOpts, opts...) }
}

func newAsyncConfig[R any](opts []AsyncOption[R]) asyncConfig[R] {
	var c asyncConfig[R]
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func asyncStateOf[R any](v any) reducer.AsyncState[R] {
	s, _ := helper.Cast[reducer.AsyncState[R]](v)
	return s
}

// AsyncActionDuck runs an effect on every trigger, keeping only the latest run.
type AsyncActionDuck[R any] struct {
	Duck
	Type      message.AsyncType
	GetResult selector.Selector[any, R]
	GetStatus selector.Selector[any, reducer.AsyncStatus]
}

// NewAsyncActionDuck stores the lifecycle and result of effect under the factory path.
func NewAsyncActionDuck[R any](trigger saga.Pattern, effect saga.Effect, opts ...AsyncOption[R]) Creator[*AsyncActionDuck[R]] {
	cfg := newAsyncConfig(opts)
	return func(f *Factory) (*AsyncActionDuck[R], error) {
		types, err := f.DefineAsyncType("EFFECT")
		if err != nil {
			return nil, err
		}
		local := f.CreateSelector()
		return &AsyncActionDuck[R]{
			Duck: Duck{
				Reducer: f.CreateReducer(reducer.Lift(
					reducer.AsyncAction(types, cfg.reduce),
					reducer.AsyncState[R]{Result: cfg.initial},
				)),
				Saga: saga.TakeLatest(trigger, saga.AsyncAction(types, effect, cfg.sagaOpts...)),
			},
			Type: types,
			GetResult: func(state any) R {
				return asyncStateOf[R](local(state)).Result
			},
			GetStatus: AsyncStatusSelector(f),
		}, nil
	}
}

// AsyncActionDuckWithTrigger is an AsyncActionDuck owning its trigger type.
type AsyncActionDuckWithTrigger[R any] struct {
	*AsyncActionDuck[R]
	TriggerType message.Type
	Trigger     message.Creator[any]
}

// NewAsyncActionDuckWithTrigger defines "<path>.TRIGGER" and runs effect on it.
func NewAsyncActionDuckWithTrigger[R any](effect saga.Effect, opts ...AsyncOption[R]) Creator[*AsyncActionDuckWithTrigger[R]] {
	return func(f *Factory) (*AsyncActionDuckWithTrigger[R], error) {
		t, err := f.DefineType("TRIGGER")
		if err != nil {
			return nil, err
		}
		d, err := NewAsyncActionDuck(saga.Is(t), effect, opts...)(f)
		if err != nil {
			return nil, err
		}
		return &AsyncActionDuckWithTrigger[R]{
			AsyncActionDuck: d,
			TriggerType:     t,
			Trigger:         f.CreateAction(t),
		}, nil
	}
}

// SplitAsyncActionDuck runs an effect per key; runs of distinct keys are independent.
type SplitAsyncActionDuck[R any] struct {
	Duck
	Type        message.AsyncType
	GetResults  selector.Selector[any, map[string]R]
	GetStatuses selector.Selector[any, map[string]reducer.AsyncStatus]

	local       selector.Selector[any, any]
	resultByKey selector.WithProps[any, string, R]
	statusByKey selector.WithProps[any, string, reducer.AsyncStatus]
}

// keySelectorCacheSize bounds the per-key selector memo of a split duck.
const keySelectorCacheSize = 256

func (d *SplitAsyncActionDuck[R]) states(state any) map[string]reducer.AsyncState[R] {
	m, _ := helper.Cast[map[string]reducer.AsyncState[R]](d.local(state))
	return m
}

// GetResult selects the result stored for key.
func (d *SplitAsyncActionDuck[R]) GetResult(key string) selector.Selector[any, R] {
	return func(state any) R { return d.resultByKey(state, key) }
}

// GetStatus selects the status stored for key. An unknown key is neither pending nor failed.
func (d *SplitAsyncActionDuck[R]) GetStatus(key string) selector.Selector[any, reducer.AsyncStatus] {
	return func(state any) reducer.AsyncStatus { return d.statusByKey(state, key) }
}

// NewSplitAsyncActionDuck shards the lifecycle of effect by getKey of the trigger.
func NewSplitAsyncActionDuck[R any](trigger saga.Pattern, getKey reducer.KeyFunc, effect saga.Effect, opts ...AsyncOption[R]) Creator[*SplitAsyncActionDuck[R]] {
	cfg := newAsyncConfig(opts)
	return func(f *Factory) (*SplitAsyncActionDuck[R], error) {
		types, err := f.DefineAsyncType("EFFECT")
		if err != nil {
			return nil, err
		}
		d := &SplitAsyncActionDuck[R]{
			Duck: Duck{
				Reducer: f.CreateReducer(reducer.Lift(
					reducer.SplitAsyncAction(types, reducer.TriggerKey(getKey), cfg.reduce),
					map[string]reducer.AsyncState[R]{},
				)),
				Saga: saga.TakeLatestBy(trigger, getKey, saga.AsyncAction(types, effect, cfg.sagaOpts...)),
			},
			Type:  types,
			local: f.CreateSelector(),
		}
		d.resultByKey = selector.MemoizeByProps[any, string, R](func(state any, key string) R {
			return d.states(state)[key].Result
		}, keySelectorCacheSize)
		d.statusByKey = selector.MemoizeByProps[any, string, reducer.AsyncStatus](func(state any, key string) reducer.AsyncStatus {
			return reducer.GetStatus(d.states(state), key)
		}, keySelectorCacheSize)
		d.GetResults = func(state any) map[string]R {
			states := d.states(state)
			out := make(map[string]R, len(states))
			for k, s := range states {
				out[k] = s.Result
			}
			return out
		}
		d.GetStatuses = func(state any) map[string]reducer.AsyncStatus {
			states := d.states(state)
			out := make(map[string]reducer.AsyncStatus, len(states))
			for k, s := range states {
				out[k] = s.AsyncStatus
			}
			return out
		}
		return d, nil
	}
}

// SplitAsyncActionDuckWithTrigger is a SplitAsyncActionDuck owning its trigger type.
type SplitAsyncActionDuckWithTrigger[R any] struct {
	*SplitAsyncActionDuck[R]
	TriggerType message.Type
	Trigger     message.Creator[any]
}

// NewSplitAsyncActionDuckWithTrigger defines "<path>.TRIGGER" and runs effect on it per key.
func NewSplitAsyncActionDuckWithTrigger[R any](getKey reducer.KeyFunc, effect saga.Effect, opts ...AsyncOption[R]) Creator[*SplitAsyncActionDuckWithTrigger[R]] {
	return func(f *Factory) (*SplitAsyncActionDuckWithTrigger[R], error) {
		t, err := f.DefineType("TRIGGER")
		if err != nil {
			return nil, err
		}
		d, err := NewSplitAsyncActionDuck(saga.Is(t), getKey, effect, opts...)(f)
		if err != nil {
			return nil, err
		}
		return &SplitAsyncActionDuckWithTrigger[R]{
			SplitAsyncActionDuck: d,
			TriggerType:          t,
			Trigger:              f.CreateAction(t),
		}, nil
	}
}

// AsyncStatusSelector selects the status of the async state at the factory path.
// Any state embedding reducer.AsyncStatus qualifies; anything else reads as the zero status.
func AsyncStatusSelector(f *Factory) selector.Selector[any, reducer.AsyncStatus] {
	return statusOf(f.CreateSelector())
}

func statusOf(local selector.Selector[any, any]) selector.Selector[any, reducer.AsyncStatus] {
	return func(state any) reducer.AsyncStatus {
		if c, ok := local(state).(reducer.StatusCarrier); ok {
			return c.Status()
		}
		return reducer.AsyncStatus{}
	}
}
