package saga_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/on-the-ground/reducks_go/ducks/log"
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/saga"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fetch = message.AsyncTypeOf("test.FETCH")

type request struct {
	ID   int
	Name string
}

func triggerOf(m message.Message) request {
	meta, _ := message.AsyncMetaOf(m)
	return meta.Trigger.Payload.(request)
}

func TestTakeLatestBy_CancelsSupersededWorkerOfSameKey(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)

	release := make(chan struct{})
	var started atomic.Int32
	slow := func(_ context.Context, args ...any) (any, error) {
		started.Add(1)
		<-release
		return args[0].(request).Name, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Run(ctx, saga.TakeLatestBy(
		saga.Is("test.TRIGGER"),
		func(m message.Message) string { return string(rune('0' + m.Payload.(request).ID)) },
		saga.AsyncAction(fetch, slow),
	))

	for _, r := range []request{{1, "first"}, {2, "second"}, {1, "third"}} {
		require.NoError(t, rt.Dispatch(message.New("test.TRIGGER", r)))
	}
	close(release)
	settle(t, rt)

	assert.Equal(t, int32(3), started.Load())

	var pending, settled []string
	for _, m := range traceOf(st) {
		switch m.Type {
		case fetch.Pending:
			pending = append(pending, triggerOf(m).Name)
		case fetch.Success, fetch.Failure:
			settled = append(settled, triggerOf(m).Name)
		}
	}
	assert.Equal(t, []string{"first", "second", "third"}, pending)
	assert.ElementsMatch(t, []string{"second", "third"}, settled)
	assert.NotContains(t, settled, "first")
}

func TestTakeLatestBy_ForgetsFinishedWorkers(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)

	core, logs := observer.New(zapcore.DebugLevel)
	logCtx, teardown := log.WithZapHandler(context.Background(), 16, zap.New(core))
	ctx, cancel := context.WithCancel(logCtx)
	defer cancel()

	release := make(chan struct{})
	effect := func(ctx context.Context, args ...any) (any, error) {
		if args[0].(request).Name == "blocked" {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return nil, nil
	}
	rt.Run(ctx, saga.TakeLatestBy(
		saga.Is("test.TRIGGER"),
		func(m message.Message) string { return string(rune('0' + m.Payload.(request).ID)) },
		saga.AsyncAction(fetch, effect),
	))

	require.NoError(t, rt.Dispatch(message.New("test.TRIGGER", request{1, "quick"})))
	settle(t, rt)
	// the finished worker closes Done just after giving the baton back
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, rt.Dispatch(message.New("test.TRIGGER", request{1, "again"})))
	settle(t, rt)

	require.NoError(t, rt.Dispatch(message.New("test.TRIGGER", request{2, "blocked"})))
	require.NoError(t, rt.Dispatch(message.New("test.TRIGGER", request{2, "replacement"})))
	close(release)
	settle(t, rt)
	teardown()

	superseded := logs.FilterMessage("cancelling superseded worker").AllUntimed()
	require.Len(t, superseded, 1)
	assert.Equal(t, "2", superseded[0].ContextMap()["key"])
}

func TestTakeLatestBy_DistinctKeysRunConcurrently(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)

	var wg sync.WaitGroup
	wg.Add(2)
	both := make(chan struct{})
	go func() {
		wg.Wait()
		close(both)
	}()
	effect := func(_ context.Context, _ ...any) (any, error) {
		wg.Done()
		<-both
		return "ok", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Run(ctx, saga.TakeLatestBy(
		saga.Is("test.TRIGGER"),
		func(m message.Message) string { return m.Payload.(request).Name },
		saga.AsyncAction(fetch, effect),
	))

	require.NoError(t, rt.Dispatch(message.New("test.TRIGGER", request{Name: "a"})))
	require.NoError(t, rt.Dispatch(message.New("test.TRIGGER", request{Name: "b"})))
	settle(t, rt)

	var successes int
	for _, m := range traceOf(st) {
		if m.Type == fetch.Success {
			successes++
		}
	}
	assert.Equal(t, 2, successes)
}

func TestTakeLatestBy_ForwardsFixedArgs(t *testing.T) {
	rt := saga.New(newTraceStore(t))
	got := make(chan []any, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Run(ctx, saga.TakeLatestBy(
		saga.Any(),
		func(message.Message) string { return "k" },
		func(_ context.Context, msg message.Message, args ...any) error {
			got <- append(args, msg.Type)
			return nil
		},
		"x", 2,
	))

	require.NoError(t, rt.Dispatch(message.New("GO", nil)))
	assert.Equal(t, []any{"x", 2, message.Type("GO")}, <-got)
}

func TestAsyncAction_FailureProtocol(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)
	boom := errors.New("boom")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Run(ctx, saga.TakeEvery(saga.Is("test.GO"), saga.AsyncAction(fetch, func(context.Context, ...any) (any, error) {
		return nil, boom
	})))

	trigger := message.New("test.GO", 7)
	require.NoError(t, rt.Dispatch(trigger))
	settle(t, rt)

	trace := traceOf(st)
	require.Len(t, trace, 3)
	pending, failure := trace[1], trace[2]

	assert.Equal(t, fetch.Pending, pending.Type)
	assert.False(t, pending.Error)
	assert.Equal(t, fetch.Failure, failure.Type)
	assert.True(t, failure.Error)
	assert.Equal(t, boom, failure.Payload)

	pendingMeta, ok := message.AsyncMetaOf(pending)
	require.True(t, ok)
	failureMeta, ok := message.AsyncMetaOf(failure)
	require.True(t, ok)
	assert.Equal(t, trigger, pendingMeta.Trigger)
	assert.NotEmpty(t, pendingMeta.RequestID)
	assert.Equal(t, pendingMeta.RequestID, failureMeta.RequestID)
}

func TestAsyncAction_SuccessAndDefaultArgs(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)

	var gotArgs []any
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Run(ctx, saga.TakeEvery(saga.Is("test.GO"), saga.AsyncAction(fetch, func(_ context.Context, args ...any) (any, error) {
		gotArgs = args
		return args[0].(int) * 2, nil
	})))

	require.NoError(t, rt.Dispatch(message.New("test.GO", 21)))
	settle(t, rt)

	trace := traceOf(st)
	require.Len(t, trace, 3)
	assert.Equal(t, fetch.Success, trace[2].Type)
	assert.Equal(t, 42, trace[2].Payload)
	require.Len(t, gotArgs, 3)
	assert.Equal(t, 21, gotArgs[0])
	assert.Equal(t, message.New("test.GO", 21), gotArgs[2])
}

func TestAsyncAction_CustomArgsAndMeta(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Run(ctx, saga.TakeEvery(saga.Is("test.GO"), saga.AsyncAction(
		fetch,
		func(_ context.Context, args ...any) (any, error) { return args[0], nil },
		saga.WithGetArgs(func(message.Message, any) []any { return []any{"custom"} }),
		saga.WithGetMeta(func(msg message.Message, _ any) message.AsyncMeta {
			return message.AsyncMeta{Trigger: msg, Extra: "extra", RequestID: "ignored"}
		}),
	)))

	require.NoError(t, rt.Dispatch(message.New("test.GO", nil)))
	settle(t, rt)

	success := traceOf(st)[2]
	assert.Equal(t, "custom", success.Payload)
	meta, _ := message.AsyncMetaOf(success)
	assert.Equal(t, "extra", meta.Extra)
	assert.NotEqual(t, "ignored", meta.RequestID)
}

func TestAsyncAction_MetaWithoutTriggerGetsTheTrigger(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Run(ctx, saga.TakeEvery(saga.Is("test.TRIGGER"), saga.AsyncAction(
		fetch,
		func(context.Context, ...any) (any, error) { return nil, nil },
		saga.WithGetMeta(func(message.Message, any) message.AsyncMeta {
			return message.AsyncMeta{Extra: "only extra"}
		}),
	)))

	require.NoError(t, rt.Dispatch(message.New("test.TRIGGER", request{7, "seven"})))
	settle(t, rt)

	trace := traceOf(st)
	require.Len(t, trace, 3)
	for _, m := range trace[1:] {
		assert.Equal(t, request{7, "seven"}, triggerOf(m))
		meta, ok := message.AsyncMetaOf(m)
		require.True(t, ok)
		assert.Equal(t, "only extra", meta.Extra)
	}
}

func TestAsyncAction_DebounceWithTakeLatest(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Run(ctx, saga.TakeLatest(saga.Is("test.GO"), saga.AsyncAction(
		fetch,
		func(context.Context, ...any) (any, error) {
			calls.Add(1)
			return nil, nil
		},
		saga.WithDebounce(200*time.Millisecond),
	)))

	require.NoError(t, rt.Dispatch(message.New("test.GO", 1)))
	require.NoError(t, rt.Dispatch(message.New("test.GO", 2)))
	settle(t, rt)

	assert.Equal(t, int32(1), calls.Load())
	var pendings []message.Message
	for _, m := range traceOf(st) {
		if m.Type == fetch.Pending {
			pendings = append(pendings, m)
		}
	}
	require.Len(t, pendings, 1)
	meta, _ := message.AsyncMetaOf(pendings[0])
	assert.Equal(t, 2, meta.Trigger.Payload)
}

func TestTakeOne(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)

	var calls atomic.Int32
	task := rt.Run(context.Background(), saga.TakeOne(saga.Is("GO"), func(context.Context, message.Message, ...any) error {
		calls.Add(1)
		return nil
	}))
	require.NoError(t, rt.Dispatch(message.New("GO", nil)))
	require.NoError(t, rt.Dispatch(message.New("GO", nil)))
	waitDone(t, task)

	assert.Equal(t, int32(1), calls.Load())
}

func TestAll_JoinsErrors(t *testing.T) {
	rt := saga.New(newTraceStore(t))
	boom := errors.New("boom")

	task := rt.Run(context.Background(), saga.All(
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
		nil,
	))
	waitDone(t, task)
	assert.ErrorIs(t, task.Err(), boom)
}

func TestSideEffectsMap(t *testing.T) {
	st := newTraceStore(t)
	rt := saga.New(st)

	got := make(chan int, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Run(ctx, saga.SideEffectsMap(map[message.Type]saga.SideEffect{
		"SAVED": func(_ context.Context, msg message.Message, state any) error {
			got <- len(state.([]message.Message)) + msg.Payload.(int)
			return nil
		},
		"FAILS": func(context.Context, message.Message, any) error {
			return errors.New("side effect failure")
		},
	}))

	require.NoError(t, rt.Dispatch(message.New("FAILS", nil)))
	require.NoError(t, rt.Dispatch(message.New("SAVED", 10)))
	settle(t, rt)
	assert.Equal(t, 12, <-got)
}
