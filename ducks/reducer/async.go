package reducer

import (
	"github.com/on-the-ground/reducks_go/ducks/internal/tree"
	"github.com/on-the-ground/reducks_go/ducks/lens"
	"github.com/on-the-ground/reducks_go/ducks/message"
)

// AsyncStatus is the lifecycle status of one asynchronous operation.
type AsyncStatus struct {
	IsPending bool
	Error     error
}

// Status makes AsyncStatus a StatusCarrier.
func (s AsyncStatus) Status() AsyncStatus { return s }

// StatusCarrier is implemented by every state shape that embeds an AsyncStatus.
type StatusCarrier interface {
	Status() AsyncStatus
}

// AsyncState is the lifecycle status plus the latest successful result.
type AsyncState[R any] struct {
	AsyncStatus
	Result R
}

var (
	pendingLens = lens.New(
		func(s AsyncStatus) bool { return s.IsPending },
		func(s AsyncStatus, v bool) AsyncStatus { s.IsPending = v; return s },
	)
	errorLens = lens.New(
		func(s AsyncStatus) error { return s.Error },
		func(s AsyncStatus, err error) AsyncStatus { s.Error = err; return s },
	)
)

func statusLens[R any]() lens.Lens[AsyncState[R], AsyncStatus] {
	return lens.New(
		func(s AsyncState[R]) AsyncStatus { return s.AsyncStatus },
		func(s AsyncState[R], st AsyncStatus) AsyncState[R] { s.AsyncStatus = st; return s },
	)
}

func resultLens[R any]() lens.Lens[AsyncState[R], R] {
	return lens.New(
		func(s AsyncState[R]) R { return s.Result },
		func(s AsyncState[R], r R) AsyncState[R] { s.Result = r; return s },
	)
}

// AsyncActionFlag is true between PENDING and the matching SUCCESS or FAILURE.
func AsyncActionFlag(types message.AsyncType) Reducer[bool] {
	return Flag(
		[]message.Type{types.Pending},
		[]message.Type{types.Success, types.Failure},
		nil,
	)
}

// AsyncActionStatus tracks pending and error state.
// FAILURE sets the error from its payload, SUCCESS clears it, PENDING leaves it alone.
func AsyncActionStatus(types message.AsyncType) Reducer[AsyncStatus] {
	return Compose(
		Focus(pendingLens, AsyncActionFlag(types)),
		Focus(errorLens, Compose(
			SingleAction[error](types.Failure, func(_ error, msg message.Message) error {
				return message.PayloadError(msg)
			}),
			SingleAction[error](types.Success, func(error, message.Message) error {
				return nil
			}),
		)),
	)
}

// AsyncAction adds the result of the operation to AsyncActionStatus.
// On SUCCESS the result becomes reduce(result, msg), or the payload when reduce is nil.
// Seed the initial result with Lift(AsyncAction(...), AsyncState[R]{Result: initial}).
func AsyncAction[R any](types message.AsyncType, reduce Reducer[R]) Reducer[AsyncState[R]] {
	return Compose(
		Focus(resultLens[R](), SingleAction(types.Success, reduce)),
		Focus(statusLens[R](), AsyncActionStatus(types)),
	)
}

// KeyFunc derives a shard key from a lifecycle message.
type KeyFunc func(message.Message) string

// SplitAsyncAction shards AsyncAction by key.
// Messages outside the triplet return the input map itself.
func SplitAsyncAction[R any](types message.AsyncType, getKey KeyFunc, reduce Reducer[R]) Reducer[map[string]AsyncState[R]] {
	entry := AsyncAction(types, reduce)
	return func(state map[string]AsyncState[R], msg message.Message) map[string]AsyncState[R] {
		if !types.Has(msg.Type) {
			return state
		}
		key := getKey(msg)
		prev, present := state[key]
		next := entry(prev, msg)
		if present && tree.Same(prev, next) {
			return state
		}
		out := make(map[string]AsyncState[R], len(state)+1)
		for k, v := range state {
			out[k] = v
		}
		out[key] = next
		return out
	}
}

// TriggerKey adapts a key function over trigger messages to lifecycle messages,
// reading the trigger from AsyncMeta.
func TriggerKey(getKey KeyFunc) KeyFunc {
	return func(msg message.Message) string {
		meta, _ := message.AsyncMetaOf(msg)
		return getKey(meta.Trigger)
	}
}

// GetStatus returns the status stored under key, or the zero status.
func GetStatus[R any](state map[string]AsyncState[R], key string) AsyncStatus {
	return state[key].AsyncStatus
}
