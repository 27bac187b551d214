package tree_test

import (
	"testing"

	"github.com/on-the-ground/reducks_go/ducks/internal/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	root := tree.Node{"a": tree.Node{"b": 1}}
	assert.Equal(t, 1, tree.Get(root, []string{"a", "b"}))
	assert.Nil(t, tree.Get(root, []string{"a", "c"}))
	assert.Nil(t, tree.Get(root, []string{"a", "b", "c"}))
	assert.Equal(t, root, tree.Get(root, nil))
}

func TestSet_SharesUntouchedBranches(t *testing.T) {
	sibling := tree.Node{"x": 1}
	root := tree.Node{"a": tree.Node{"b": 1}, "s": sibling}

	next := tree.Set(root, []string{"a", "b"}, 2).(tree.Node)

	assert.Equal(t, 2, tree.Get(next, []string{"a", "b"}))
	assert.Equal(t, 1, tree.Get(root, []string{"a", "b"}))
	assert.True(t, tree.Same(sibling, next["s"]))
}

func TestSet_ReturnsSameRootWhenUnchanged(t *testing.T) {
	root := tree.Node{"a": tree.Node{"b": 1}}
	next := tree.Set(root, []string{"a", "b"}, 1)
	assert.True(t, tree.Same(root, next))
}

func TestSet_CreatesMissingNodes(t *testing.T) {
	next := tree.Set(nil, []string{"a", "b"}, "v")
	assert.Equal(t, tree.Node{"a": tree.Node{"b": "v"}}, next)

	next = tree.Set(tree.Node{"a": 3}, []string{"a", "b"}, "v")
	assert.Equal(t, tree.Node{"a": tree.Node{"b": "v"}}, next)
}

func TestLookup(t *testing.T) {
	root := tree.Node{"a": tree.Node{"b": nil}}
	_, ok := tree.Lookup(root, []string{"a", "b"})
	assert.True(t, ok)
	_, ok = tree.Lookup(root, []string{"a", "c"})
	assert.False(t, ok)
}

func TestSame(t *testing.T) {
	m := tree.Node{"a": 1}
	assert.True(t, tree.Same(m, m))
	assert.False(t, tree.Same(m, tree.Node{"a": 1}))
	assert.True(t, tree.Same(1, 1))
	assert.False(t, tree.Same(1, int64(1)))
	assert.True(t, tree.Same(nil, nil))
	assert.False(t, tree.Same(nil, 0))

	type withMap struct{ M map[string]int }
	assert.True(t, tree.Same(withMap{M: map[string]int{"a": 1}}, withMap{M: map[string]int{"a": 1}}))
}

func TestMerge(t *testing.T) {
	dst := tree.Node{"name": "a", "tags": []any{"x", "y"}, "nested": tree.Node{"k": 1, "j": 2}}
	src := tree.Node{"tags": []any{nil, "z"}, "nested": tree.Node{"k": 3}}

	merged := tree.Merge(dst, src).(tree.Node)

	require.Equal(t, "a", merged["name"])
	assert.Equal(t, []any{"x", "z"}, merged["tags"])
	assert.Equal(t, tree.Node{"k": 3, "j": 2}, merged["nested"])
	assert.Equal(t, tree.Node{"k": 1, "j": 2}, dst["nested"])
}
