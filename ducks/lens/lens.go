// Package lens provides functional getters/setters over immutable state.
package lens

// Lens focuses a part A of a whole S.
// Set must not mutate its input and should return the input itself when nothing changes.
type Lens[S, A any] struct {
	Get func(S) A
	Set func(S, A) S
}

// New builds a lens from a getter and a setter.
func New[S, A any](get func(S) A, set func(S, A) S) Lens[S, A] {
	return Lens[S, A]{Get: get, Set: set}
}

// Update replaces the focused part with fn applied to it.
func (l Lens[S, A]) Update(s S, fn func(A) A) S {
	return l.Set(s, fn(l.Get(s)))
}

// Compose focuses inner through outer.
func Compose[S, A, B any](outer Lens[S, A], inner Lens[A, B]) Lens[S, B] {
	return Lens[S, B]{
		Get: func(s S) B { return inner.Get(outer.Get(s)) },
		Set: func(s S, b B) S {
			return outer.Set(s, inner.Set(outer.Get(s), b))
		},
	}
}
