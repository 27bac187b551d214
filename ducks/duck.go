// Package ducks bundles reducers, selectors and sagas of one feature under a
// namespace of the global state.
package ducks

import (
	"github.com/on-the-ground/reducks_go/ducks/reducer"
	"github.com/on-the-ground/reducks_go/ducks/saga"
)

// Duck is the reducer/saga pair of a feature. Either side may be nil.
type Duck struct {
	Reducer reducer.Reducer[any]
	Saga    saga.Saga
}

// Bundle makes Duck, and every struct embedding it, a Bundler.
func (d Duck) Bundle() Duck { return d }

// Bundler is implemented by every concrete duck.
type Bundler interface {
	Bundle() Duck
}

// Creator builds a duck under the namespace of the given factory.
type Creator[D Bundler] func(f *Factory) (D, error)

// ComposeDucks merges ducks: the reducer composes all present reducers right to left,
// the saga forks all present sagas concurrently.
func ComposeDucks[D Bundler](ds ...D) Duck {
	var (
		reducers []reducer.Reducer[any]
		sagas    []saga.Saga
	)
	for _, d := range ds {
		b := d.Bundle()
		if b.Reducer != nil {
			reducers = append(reducers, b.Reducer)
		}
		if b.Saga != nil {
			sagas = append(sagas, b.Saga)
		}
	}
	out := Duck{Reducer: reducer.Compose(reducers...)}
	if len(sagas) > 0 {
		out.Saga = saga.Compose(sagas...)
	}
	return out
}
