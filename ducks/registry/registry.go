// Package registry guarantees that message type names are unique within a process.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/on-the-ground/reducks_go/ducks/message"
)

// DuplicateTypeError is returned when a type name is registered twice.
type DuplicateTypeError struct {
	Type message.Type
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("action type %q is already defined", e.Type)
}

// IsDuplicateType reports whether err is (or wraps) a DuplicateTypeError.
func IsDuplicateType(err error) bool {
	var dup *DuplicateTypeError
	return errors.As(err, &dup)
}

// Registry is a set of registered type names. It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	types map[message.Type]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{types: map[message.Type]struct{}{}}
}

// Default is the process wide registry used when a factory is not given its own.
var Default = New()

// DefineType registers t and returns it unchanged.
func (r *Registry) DefineType(t message.Type) (message.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.add(t); err != nil {
		return "", err
	}
	return t, nil
}

// MustDefineType is the panicking variant of DefineType.
func (r *Registry) MustDefineType(t message.Type) message.Type {
	t, err := r.DefineType(t)
	if err != nil {
		panic(err)
	}
	return t
}

// DefineAsyncType registers the PENDING/SUCCESS/FAILURE triplet derived from base.
// The first collision is returned; names registered before it stay registered.
func (r *Registry) DefineAsyncType(base string) (message.AsyncType, error) {
	at := message.AsyncTypeOf(base)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range at.Types() {
		if err := r.add(t); err != nil {
			return message.AsyncType{}, err
		}
	}
	return at, nil
}

// MustDefineAsyncType is the panicking variant of DefineAsyncType.
func (r *Registry) MustDefineAsyncType(base string) message.AsyncType {
	at, err := r.DefineAsyncType(base)
	if err != nil {
		panic(err)
	}
	return at
}

// Has reports whether t is registered.
func (r *Registry) Has(t message.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.types[t]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.types)
}

// Reset forgets every registered name. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = map[message.Type]struct{}{}
}

func (r *Registry) add(t message.Type) error {
	if _, ok := r.types[t]; ok {
		return &DuplicateTypeError{Type: t}
	}
	r.types[t] = struct{}{}
	return nil
}

// DefineType registers t in the Default registry.
func DefineType(t message.Type) (message.Type, error) {
	return Default.DefineType(t)
}

// DefineAsyncType registers a triplet in the Default registry.
func DefineAsyncType(base string) (message.AsyncType, error) {
	return Default.DefineAsyncType(base)
}

// Reset clears the Default registry.
func Reset() {
	Default.Reset()
}
