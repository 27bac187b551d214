// Package tree implements persistent updates on state trees made of map[string]any nodes.
//
// Nodes are never mutated. Every update copies the maps along the updated path
// and shares everything else with the previous tree.
package tree

import "reflect"

// Node is the container type of a state tree.
type Node = map[string]any

// Get returns the value at path, or nil when any segment is absent.
func Get(root any, path []string) any {
	cur := root
	for _, seg := range path {
		node, ok := cur.(Node)
		if !ok {
			return nil
		}
		cur = node[seg]
	}
	return cur
}

// Lookup is like Get but also reports whether the final key exists.
func Lookup(root any, path []string) (any, bool) {
	if len(path) == 0 {
		return root, root != nil
	}
	parent, ok := Get(root, path[:len(path)-1]).(Node)
	if !ok {
		return nil, false
	}
	v, ok := parent[path[len(path)-1]]
	return v, ok
}

// Set returns a tree equal to root except that path holds v.
// Missing or non-map intermediate nodes are replaced by fresh maps.
// When the value at path is already Same as v, root itself is returned.
func Set(root any, path []string, v any) any {
	return Update(root, path, func(any) any { return v })
}

// Update replaces the value at path with fn(old).
func Update(root any, path []string, fn func(any) any) any {
	if len(path) == 0 {
		return fn(root)
	}
	node, _ := root.(Node)
	key := path[0]
	old, present := node[key]
	next := Update(old, path[1:], fn)
	if present && Same(old, next) {
		return root
	}
	if !present && next == nil {
		return root
	}
	out := make(Node, len(node)+1)
	for k, v := range node {
		out[k] = v
	}
	out[key] = next
	return out
}

// Same reports whether a and b are the same value.
// Reference types compare by identity, everything else by deep equality.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Slice:
		return va.Len() == vb.Len() && va.UnsafePointer() == vb.UnsafePointer()
	}
	if va.Comparable() {
		return va.Equal(vb)
	}
	return reflect.DeepEqual(a, b)
}

// Merge deep-merges src into dst without mutating either.
// Maps merge key by key and slices element by element; nil entries of src keep dst's value.
func Merge(dst, src any) any {
	switch s := src.(type) {
	case nil:
		return dst
	case Node:
		d, ok := dst.(Node)
		if !ok {
			return s
		}
		out := make(Node, len(d)+len(s))
		for k, v := range d {
			out[k] = v
		}
		for k, v := range s {
			out[k] = Merge(d[k], v)
		}
		return out
	case []any:
		d, ok := dst.([]any)
		if !ok {
			return s
		}
		out := make([]any, max(len(d), len(s)))
		copy(out, d)
		for i, v := range s {
			if i < len(d) {
				out[i] = Merge(d[i], v)
			} else {
				out[i] = v
			}
		}
		return out
	default:
		return src
	}
}
