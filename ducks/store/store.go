// Package store is a minimal state container: it applies a root reducer to every
// dispatched message and notifies listeners.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/reducer"
	"github.com/rickb777/date/v2/timespan"
	"go.uber.org/zap"
)

// ErrReducerPanic is wrapped by Dispatch when the reducer panics. State is left unchanged.
var ErrReducerPanic = errors.New("reducer panicked")

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("store closed")

// Change describes one applied message.
type Change struct {
	Message message.Message
	State   any
	// Span covers the reducer call.
	Span timespan.TimeSpan
}

// Listener is called after each successful dispatch with the message and the new state.
type Listener func(msg message.Message, state any)

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSourceBuffer sets the capacity of the Source channel. Changes are dropped when it is full.
func WithSourceBuffer(n int) Option {
	return func(s *Store) { s.source = make(chan Change, max(n, 0)) }
}

// WithInitialState sets the state the init message is reduced from.
func WithInitialState(state any) Option {
	return func(s *Store) { s.state = state }
}

type Store struct {
	mu        sync.Mutex
	reducer   reducer.Reducer[any]
	state     any
	listeners map[uint64]Listener
	nextID    uint64
	source    chan Change
	closed    bool
	logger    *zap.Logger
}

// New creates a store and reduces message.Init into its initial state.
func New(r reducer.Reducer[any], opts ...Option) (*Store, error) {
	s := &Store{
		reducer:   r,
		listeners: map[uint64]Listener{},
		source:    make(chan Change, 64),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Dispatch(message.New(message.Init, nil)); err != nil {
		return nil, fmt.Errorf("failed to initialize state: %w", err)
	}
	return s, nil
}

// Dispatch reduces msg into the state and notifies listeners.
func (s *Store) Dispatch(msg message.Message) error {
	next, err := s.reduce(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for id := uint64(0); id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(msg, next)
	}
	return nil
}

func (s *Store) reduce(msg message.Message) (next any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reducer panicked", zap.String("type", string(msg.Type)), zap.Any("panic", r))
			err = fmt.Errorf("%w on %s: %v", ErrReducerPanic, msg.Type, r)
		}
	}()

	begin := time.Now()
	next = s.reducer(s.state, msg)
	span := timespan.BetweenTimes(begin, time.Now())
	s.state = next

	select {
	case s.source <- Change{Message: msg, State: next, Span: span}:
	default:
		s.logger.Debug("change feed is full, dropping", zap.String("type", string(msg.Type)))
	}
	return next, nil
}

// State returns the current state snapshot.
func (s *Store) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers l and returns a function removing it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Source is a feed of applied changes, closed by Close.
func (s *Store) Source() <-chan Change {
	return s.source
}

func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.source)
	}
}
