package ducks_test

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/on-the-ground/reducks_go/ducks"
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/registry"
	"github.com/on-the-ground/reducks_go/ducks/saga"
	"github.com/on-the-ground/reducks_go/ducks/store"

	"github.com/stretchr/testify/require"
)

func newFactory(t *testing.T, path string) *ducks.Factory {
	t.Helper()
	f, err := ducks.NewFactory(path, ducks.WithRegistry(registry.New()))
	require.NoError(t, err)
	return f
}

// app wires a duck into a store and a saga runtime.
type app struct {
	store   *store.Store
	runtime *saga.Runtime

	mu       sync.Mutex
	messages []message.Message
}

func runDuck(t *testing.T, d ducks.Bundler) *app {
	t.Helper()
	b := d.Bundle()
	st, err := store.New(b.Reducer)
	require.NoError(t, err)

	a := &app{store: st, runtime: saga.New(st)}
	st.Subscribe(func(msg message.Message, _ any) {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.messages = append(a.messages, msg)
	})
	if b.Saga != nil {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		a.runtime.Run(ctx, b.Saga)
	}
	return a
}

func (a *app) dispatch(t *testing.T, msgs ...message.Message) {
	t.Helper()
	for _, m := range msgs {
		require.NoError(t, a.runtime.Dispatch(m))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.runtime.Settle(ctx))
}

func (a *app) state() any { return a.store.State() }

func (a *app) typesSeen() []message.Type {
	a.mu.Lock()
	defer a.mu.Unlock()
	types := make([]message.Type, 0, len(a.messages))
	for _, m := range a.messages {
		types = append(types, m.Type)
	}
	return types
}

func (a *app) messagesOf(t message.Type) []message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []message.Message
	for _, m := range a.messages {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func sameMap(a, b any) bool {
	return reflect.ValueOf(a).UnsafePointer() == reflect.ValueOf(b).UnsafePointer()
}
