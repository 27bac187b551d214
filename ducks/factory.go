package ducks

import (
	"fmt"
	"slices"
	"sync"

	"github.com/on-the-ground/reducks_go/ducks/lens"
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/reducer"
	"github.com/on-the-ground/reducks_go/ducks/registry"
	"github.com/on-the-ground/reducks_go/ducks/saga"
	"github.com/on-the-ground/reducks_go/ducks/selector"
	"go.uber.org/zap"
)

// Factory binds ducks to a path of the global state and remembers what it created.
type Factory struct {
	path     lens.Path
	registry *registry.Registry
	logger   *zap.Logger

	mu       sync.Mutex
	ducks    []Duck
	children []*Factory
}

type FactoryOption func(*Factory)

// WithRegistry sets the registry type names are defined in. Defaults to registry.Default.
func WithRegistry(r *registry.Registry) FactoryOption {
	return func(f *Factory) { f.registry = r }
}

func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// NewFactory creates a factory at path. An empty path is the state root.
func NewFactory(path string, opts ...FactoryOption) (*Factory, error) {
	var p lens.Path
	if path != "" {
		var err error
		if p, err = lens.ParsePath(path); err != nil {
			return nil, fmt.Errorf("invalid factory path: %w", err)
		}
	}
	f := &Factory{
		path:     p,
		registry: registry.Default,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// MustNewFactory is the panicking variant of NewFactory.
func MustNewFactory(path string, opts ...FactoryOption) *Factory {
	f, err := NewFactory(path, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Path returns a copy of the factory path.
func (f *Factory) Path() lens.Path {
	return slices.Clone(f.path)
}

// SubPath resolves sub relative to the factory path.
func (f *Factory) SubPath(sub string) (lens.Path, error) {
	p, err := lens.ParsePath(sub)
	if err != nil {
		return nil, err
	}
	return f.path.Join(p), nil
}

func (f *Factory) typeName(name string) string {
	if len(f.path) == 0 {
		return name
	}
	return f.path.String() + "." + name
}

// DefineType registers "<path>.<name>".
func (f *Factory) DefineType(name string) (message.Type, error) {
	return f.registry.DefineType(message.Type(f.typeName(name)))
}

func (f *Factory) MustDefineType(name string) message.Type {
	t, err := f.DefineType(name)
	if err != nil {
		panic(err)
	}
	return t
}

// DefineAsyncType registers the triplet of "<path>.<name>".
func (f *Factory) DefineAsyncType(name string) (message.AsyncType, error) {
	return f.registry.DefineAsyncType(f.typeName(name))
}

func (f *Factory) MustDefineAsyncType(name string) message.AsyncType {
	at, err := f.DefineAsyncType(name)
	if err != nil {
		panic(err)
	}
	return at
}

// CreateAction returns a creator using its argument as payload.
func (f *Factory) CreateAction(t message.Type) message.Creator[any] {
	return message.Action(t)
}

// CreateReducer lifts a reducer of the local slice to the global state.
// The local reducer sees nil while the slice is absent.
func (f *Factory) CreateReducer(local reducer.Reducer[any]) reducer.Reducer[any] {
	return reducer.At(f.path, local)
}

// CreateSelector reads the local slice, then applies the optional inner selectors in order.
func (f *Factory) CreateSelector(inner ...selector.Selector[any, any]) selector.Selector[any, any] {
	sel := selector.At(f.path)
	for _, s := range inner {
		sel = selector.Then(sel, s)
	}
	return sel
}

// SelectPath reads the node at sub below the factory path.
func (f *Factory) SelectPath(sub string) (selector.Selector[any, any], error) {
	inner, err := selector.FromPath(sub)
	if err != nil {
		return nil, err
	}
	return f.CreateSelector(inner), nil
}

func (f *Factory) mustSelectPath(sub string) selector.Selector[any, any] {
	s, err := f.SelectPath(sub)
	if err != nil {
		panic(err)
	}
	return s
}

// CreateDuck runs creator with f and records the duck for collection.
func CreateDuck[D Bundler](f *Factory, creator Creator[D]) (D, error) {
	d, err := creator(f)
	if err != nil {
		var zero D
		return zero, fmt.Errorf("create duck at %q: %w", f.path.String(), err)
	}
	f.record(d.Bundle())
	return d, nil
}

// MustCreateDuck is the panicking variant of CreateDuck.
func MustCreateDuck[D Bundler](f *Factory, creator Creator[D]) D {
	d, err := CreateDuck(f, creator)
	if err != nil {
		panic(err)
	}
	return d
}

// CreateSagaDuck records a duck made of s alone.
func (f *Factory) CreateSagaDuck(s saga.Saga) Duck {
	d := Duck{Saga: s}
	f.record(d)
	return d
}

func (f *Factory) record(d Duck) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ducks = append(f.ducks, d)
	f.logger.Debug("duck created", zap.String("path", f.path.String()), zap.Int("count", len(f.ducks)))
}

// CreateNestedFactory creates a child factory at sub below f. Its ducks are collected with f's.
func (f *Factory) CreateNestedFactory(sub string) (*Factory, error) {
	p, err := f.SubPath(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid nested factory path: %w", err)
	}
	child := &Factory{
		path:     p,
		registry: f.registry,
		logger:   f.logger,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children = append(f.children, child)
	return child, nil
}

// MustCreateNestedFactory is the panicking variant of CreateNestedFactory.
func (f *Factory) MustCreateNestedFactory(sub string) *Factory {
	child, err := f.CreateNestedFactory(sub)
	if err != nil {
		panic(err)
	}
	return child
}

// CollectCreatedDucks lists f's ducks in creation order followed by the collections of its children.
func (f *Factory) CollectCreatedDucks() []Duck {
	f.mu.Lock()
	out := slices.Clone(f.ducks)
	children := slices.Clone(f.children)
	f.mu.Unlock()

	for _, child := range children {
		out = append(out, child.CollectCreatedDucks()...)
	}
	return out
}

// CollectAndComposeCreatedDucks composes everything CollectCreatedDucks returns.
func (f *Factory) CollectAndComposeCreatedDucks() Duck {
	return ComposeDucks(f.CollectCreatedDucks()...)
}
