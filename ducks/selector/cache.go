package selector

import (
	"sync"

	"github.com/on-the-ground/reducks_go/ducks/internal/tree"
)

// generations is a bounded map keeping two generations of entries.
// Once the head generation holds maxSize entries it is retired and the older one dropped.
type generations[K comparable, V any] struct {
	gens    [2]map[K]V
	head    int
	maxSize int
}

func newGenerations[K comparable, V any](maxSize int) *generations[K, V] {
	if maxSize <= 0 {
		panic("maxSize should be greater than 0")
	}
	return &generations[K, V]{
		gens:    [2]map[K]V{make(map[K]V, maxSize), make(map[K]V, maxSize)},
		maxSize: maxSize,
	}
}

func (g *generations[K, V]) load(k K) (V, bool) {
	if v, ok := g.gens[g.head][k]; ok {
		return v, true
	}
	v, ok := g.gens[1-g.head][k]
	return v, ok
}

func (g *generations[K, V]) store(k K, v V) {
	if _, ok := g.gens[g.head][k]; !ok && len(g.gens[g.head]) >= g.maxSize {
		g.head = 1 - g.head
		clear(g.gens[g.head])
	}
	g.gens[g.head][k] = v
}

type memoEntry[S, V any] struct {
	state S
	value V
}

// MemoizeByProps memoizes s separately for each props value, like Memoize does for a plain selector.
// Results for about maxEntries distinct props are retained; older ones are recomputed on demand.
func MemoizeByProps[S any, P comparable, V any](s WithProps[S, P, V], maxEntries int) WithProps[S, P, V] {
	var mu sync.Mutex
	memo := newGenerations[P, memoEntry[S, V]](maxEntries)
	return func(state S, props P) V {
		mu.Lock()
		defer mu.Unlock()
		if e, ok := memo.load(props); ok && tree.Same(any(e.state), any(state)) {
			return e.value
		}
		v := s(state, props)
		memo.store(props, memoEntry[S, V]{state: state, value: v})
		return v
	}
}
