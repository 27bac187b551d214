// Package reducer holds pure state transition functions and their combinators.
package reducer

import (
	"sort"

	"github.com/on-the-ground/reducks_go/ducks/internal/tree"
	"github.com/on-the-ground/reducks_go/ducks/lens"
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/shared/helper"
)

// Reducer computes the next state from the current one and a message.
// It must not mutate state and should return state itself when nothing changes.
type Reducer[S any] func(state S, msg message.Message) S

// Identity returns its state unchanged.
func Identity[S any]() Reducer[S] {
	return func(state S, _ message.Message) S { return state }
}

// Compose chains reducers right to left: the last one sees the input state,
// the first one produces the output. Nil reducers are skipped.
func Compose[S any](reducers ...Reducer[S]) Reducer[S] {
	rs := make([]Reducer[S], 0, len(reducers))
	for _, r := range reducers {
		if r != nil {
			rs = append(rs, r)
		}
	}
	switch len(rs) {
	case 0:
		return Identity[S]()
	case 1:
		return rs[0]
	}
	return func(state S, msg message.Message) S {
		for i := len(rs) - 1; i >= 0; i-- {
			state = rs[i](state, msg)
		}
		return state
	}
}

// Map assigns a reducer to each key of a state node.
type Map map[string]Reducer[any]

// Combine reduces each key of a map[string]any node with its own reducer.
// A nil state is treated as an empty node. The input node is returned when no key changed.
// Nested maps are expressed by nesting Combine.
func Combine(reducers Map) Reducer[any] {
	keys := make([]string, 0, len(reducers))
	for k := range reducers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return func(state any, msg message.Message) any {
		node, _ := state.(tree.Node)
		var out tree.Node
		for _, k := range keys {
			prev, present := node[k]
			next := reducers[k](prev, msg)
			if present && tree.Same(prev, next) {
				continue
			}
			if out == nil {
				out = make(tree.Node, len(node)+len(keys))
				for nk, nv := range node {
					out[nk] = nv
				}
			}
			out[k] = next
		}
		switch {
		case out != nil:
			return out
		case node == nil:
			return tree.Node{}
		default:
			return node
		}
	}
}

// Lift adapts a typed reducer to an untyped state tree slot.
// An absent slot starts as initial; a slot of another type is a programming error and panics.
func Lift[S any](r Reducer[S], initial S) Reducer[any] {
	return func(state any, msg message.Message) any {
		if state == nil {
			return r(initial, msg)
		}
		return r(helper.MustCast[S](state), msg)
	}
}

// Focus runs r on the part of the state selected by l.
func Focus[S, A any](l lens.Lens[S, A], r Reducer[A]) Reducer[S] {
	return func(state S, msg message.Message) S {
		return l.Set(state, r(l.Get(state), msg))
	}
}

// At runs r on the node at path p of an untyped state tree.
func At(p lens.Path, r Reducer[any]) Reducer[any] {
	return func(state any, msg message.Message) any {
		return tree.Update(state, p, func(local any) any { return r(local, msg) })
	}
}

// SingleAction reacts only to messages of type t.
// A nil reduce replaces the state with the message payload.
func SingleAction[S any](t message.Type, reduce Reducer[S]) Reducer[S] {
	return func(state S, msg message.Message) S {
		if msg.Type != t {
			return state
		}
		if reduce == nil {
			return helper.MustCast[S](msg.Payload)
		}
		return reduce(state, msg)
	}
}

// Flag turns a boolean on, off or over depending on the message type.
// A type present in several lists is resolved in on, off, toggle order.
func Flag(on, off, toggle []message.Type) Reducer[bool] {
	set := func(ts []message.Type) map[message.Type]struct{} {
		m := make(map[message.Type]struct{}, len(ts))
		for _, t := range ts {
			m[t] = struct{}{}
		}
		return m
	}
	onSet, offSet, toggleSet := set(on), set(off), set(toggle)

	return func(state bool, msg message.Message) bool {
		if _, ok := onSet[msg.Type]; ok {
			return true
		}
		if _, ok := offSet[msg.Type]; ok {
			return false
		}
		if _, ok := toggleSet[msg.Type]; ok {
			return !state
		}
		return state
	}
}
