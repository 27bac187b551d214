package ducks_test

import (
	"context"
	"testing"

	"github.com/on-the-ground/reducks_go/ducks"
	"github.com/on-the-ground/reducks_go/ducks/lens"
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/reducer"
	"github.com/on-the-ground/reducks_go/ducks/registry"
	"github.com/on-the-ground/reducks_go/ducks/saga"
	"github.com/on-the-ground/reducks_go/ducks/selector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactory_InvalidPath(t *testing.T) {
	_, err := ducks.NewFactory("a..b")
	assert.ErrorIs(t, err, lens.ErrInvalidPath)
}

func TestFactory_TypeNames(t *testing.T) {
	reg := registry.New()
	f := ducks.MustNewFactory("a.b", ducks.WithRegistry(reg))

	assert.Equal(t, message.Type("a.b.X"), f.MustDefineType("X"))
	assert.Equal(t, message.AsyncTypeOf("a.b.LOAD"), f.MustDefineAsyncType("LOAD"))

	root := ducks.MustNewFactory("", ducks.WithRegistry(reg))
	assert.Equal(t, message.Type("X"), root.MustDefineType("X"))

	_, err := ducks.MustNewFactory("a.b", ducks.WithRegistry(reg)).DefineType("X")
	assert.True(t, registry.IsDuplicateType(err))
}

func TestFactory_Paths(t *testing.T) {
	f := newFactory(t, "a.b")
	assert.Equal(t, lens.Path{"a", "b"}, f.Path())

	sub, err := f.SubPath("c.d")
	require.NoError(t, err)
	assert.Equal(t, lens.Path{"a", "b", "c", "d"}, sub)

	child, err := f.CreateNestedFactory("c")
	require.NoError(t, err)
	assert.Equal(t, message.Type("a.b.c.X"), child.MustDefineType("X"))
}

func TestCreateReducer_StructuralSharing(t *testing.T) {
	f := newFactory(t, "a.b")

	local := map[string]any{"x": 1}
	aSibling := map[string]any{"k": 2}
	rootSibling := map[string]any{"k": 3}
	state := map[string]any{
		"a": map[string]any{"b": local, "c": aSibling},
		"z": rootSibling,
	}

	var seen any
	unchanged := f.CreateReducer(func(s any, _ message.Message) any {
		seen = s
		return s
	})
	next := unchanged(state, message.New("ANY", nil))
	assert.Equal(t, local, seen)
	assert.True(t, sameMap(state, next))

	changed := f.CreateReducer(func(any, message.Message) any { return map[string]any{"x": 2} })
	next = changed(state, message.New("ANY", nil))

	root := next.(map[string]any)
	a := root["a"].(map[string]any)
	assert.False(t, sameMap(state, next))
	assert.Equal(t, map[string]any{"x": 2}, a["b"])
	assert.True(t, sameMap(aSibling, a["c"]))
	assert.True(t, sameMap(rootSibling, root["z"]))
	assert.Equal(t, map[string]any{"x": 1}, state["a"].(map[string]any)["b"], "input must not be mutated")
}

func TestCreateReducer_CreatesMissingNodes(t *testing.T) {
	f := newFactory(t, "a.b")
	r := f.CreateReducer(reducer.Lift(reducer.Identity[int](), 7))
	assert.Equal(t, map[string]any{"a": map[string]any{"b": 7}}, r(nil, message.New(message.Init, nil)))
}

func TestCreateSelector(t *testing.T) {
	f := newFactory(t, "a")
	state := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}

	assert.Equal(t, map[string]any{"b": map[string]any{"c": 1}}, f.CreateSelector()(state))

	sel, err := f.SelectPath("b.c")
	require.NoError(t, err)
	assert.Equal(t, 1, sel(state))

	_, err = f.SelectPath("b.")
	var invalid *selector.InvalidSelectorError
	assert.ErrorAs(t, err, &invalid)
}

func marker(name string) reducer.Reducer[any] {
	return func(any, message.Message) any { return name }
}

func TestCollectCreatedDucks_Order(t *testing.T) {
	f := newFactory(t, "")
	ducks.MustCreateDuck(f, ducks.NewReduceAndSelectDuck(marker("first")))
	child, err := f.CreateNestedFactory("child")
	require.NoError(t, err)
	ducks.MustCreateDuck(child, ducks.NewReduceAndSelectDuck(marker("nested")))
	ducks.MustCreateDuck(f, ducks.NewReduceAndSelectDuck(marker("second")))

	collected := f.CollectCreatedDucks()
	require.Len(t, collected, 3)

	init := message.New(message.Init, nil)
	assert.Equal(t, "first", collected[0].Reducer(nil, init))
	assert.Equal(t, "second", collected[1].Reducer(nil, init))
	assert.Equal(t, map[string]any{"child": "nested"}, collected[2].Reducer(nil, init))
}

func TestCreateDuck_WrapsCreatorErrors(t *testing.T) {
	f := newFactory(t, "a")
	ducks.MustCreateDuck(f, ducks.NewFlagDuck(false))

	_, err := ducks.CreateDuck(f, ducks.NewFlagDuck(false))
	assert.True(t, registry.IsDuplicateType(err))
	assert.Len(t, f.CollectCreatedDucks(), 1)
}

func TestCollectAndComposeCreatedDucks(t *testing.T) {
	f := newFactory(t, "app")
	flag := ducks.MustCreateDuck(f.MustCreateNestedFactory("flag"), ducks.NewFlagDuck(false))
	value := ducks.MustCreateDuck(f.MustCreateNestedFactory("value"), ducks.NewGetSetDuck("none"))

	echoed := make(chan message.Message, 1)
	f.CreateSagaDuck(saga.TakeOne(saga.Is(value.Type), func(ctx context.Context, msg message.Message, _ ...any) error {
		echoed <- msg
		return nil
	}))

	a := runDuck(t, f.CollectAndComposeCreatedDucks())
	a.dispatch(t, flag.TurnOn(), value.Set("some"))

	assert.True(t, flag.Selector(a.state()))
	assert.Equal(t, "some", value.Selector(a.state()))
	assert.Equal(t, "some", (<-echoed).Payload)
}
