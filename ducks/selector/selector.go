// Package selector derives values from state.
package selector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/on-the-ground/reducks_go/ducks/internal/tree"
	"github.com/on-the-ground/reducks_go/ducks/lens"
	"github.com/on-the-ground/reducks_go/shared/helper"
)

// Selector reads a value of type V from a state S.
type Selector[S, V any] func(state S) V

// InvalidSelectorError is returned when a selector is built from something
// that is neither a function nor a valid path expression.
type InvalidSelectorError struct {
	Input any
	Err   error
}

func (e *InvalidSelectorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid selector %#v: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid selector %#v", e.Input)
}

func (e *InvalidSelectorError) Unwrap() error { return e.Err }

// Identity returns the state itself.
func Identity[S any]() Selector[S, S] {
	return func(s S) S { return s }
}

// Create builds a selector from a Selector, a plain function, a path expression or a lens.Path.
func Create(sel any) (Selector[any, any], error) {
	switch v := sel.(type) {
	case Selector[any, any]:
		if v == nil {
			return nil, &InvalidSelectorError{Input: sel}
		}
		return v, nil
	case func(any) any:
		if v == nil {
			return nil, &InvalidSelectorError{Input: sel}
		}
		return v, nil
	case string:
		return FromPath(v)
	case lens.Path:
		return At(v), nil
	case []string:
		return At(v), nil
	default:
		return nil, &InvalidSelectorError{Input: sel}
	}
}

// MustCreate is the panicking variant of Create.
func MustCreate(sel any) Selector[any, any] {
	s, err := Create(sel)
	if err != nil {
		panic(err)
	}
	return s
}

// FromPath builds a selector reading the node at a path expression such as "a.b[0]".
func FromPath(expr string) (Selector[any, any], error) {
	p, err := lens.ParsePath(expr)
	if err != nil {
		return nil, &InvalidSelectorError{Input: expr, Err: err}
	}
	return At(p), nil
}

// At reads the node at p, or nil when it is absent.
func At(p lens.Path) Selector[any, any] {
	return func(state any) any { return tree.Get(state, p) }
}

// Then feeds the output of outer into inner.
func Then[S, A, B any](outer Selector[S, A], inner Selector[A, B]) Selector[S, B] {
	return func(s S) B { return inner(outer(s)) }
}

// As asserts the selected value to V. Nil selects the zero V; any other type panics.
func As[V, S any](s Selector[S, any]) Selector[S, V] {
	return func(state S) V { return helper.MustCast[V](s(state)) }
}

// Combine applies every selector to the same state and collects the results by key.
func Combine[S any](selectors map[string]Selector[S, any]) Selector[S, map[string]any] {
	keys := sortedKeys(selectors)
	return func(state S) map[string]any {
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			out[k] = selectors[k](state)
		}
		return out
	}
}

// WithProps is a selector that also receives caller supplied properties.
type WithProps[S, P, V any] func(state S, props P) V

// CombineWithProps is Combine for selectors taking extra properties.
func CombineWithProps[S, P any](selectors map[string]WithProps[S, P, any]) WithProps[S, P, map[string]any] {
	keys := sortedKeys(selectors)
	return func(state S, props P) map[string]any {
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			out[k] = selectors[k](state, props)
		}
		return out
	}
}

// Memoize caches the last result and recomputes only when the state is not the Same as before.
func Memoize[S, V any](s Selector[S, V]) Selector[S, V] {
	var (
		mu     sync.Mutex
		primed bool
		last   S
		cached V
	)
	return func(state S) V {
		mu.Lock()
		defer mu.Unlock()
		if primed && tree.Same(any(last), any(state)) {
			return cached
		}
		last, cached, primed = state, s(state), true
		return cached
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
