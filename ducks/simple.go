package ducks

import (
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/reducer"
	"github.com/on-the-ground/reducks_go/ducks/selector"
	"github.com/on-the-ground/reducks_go/shared/helper"
)

// ReduceAndSelectDuck pairs a reducer of the factory slice with its selector.
type ReduceAndSelectDuck struct {
	Duck
	Selector selector.Selector[any, any]
}

func NewReduceAndSelectDuck(r reducer.Reducer[any]) Creator[*ReduceAndSelectDuck] {
	return func(f *Factory) (*ReduceAndSelectDuck, error) {
		return &ReduceAndSelectDuck{
			Duck:     Duck{Reducer: f.CreateReducer(r)},
			Selector: f.CreateSelector(),
		}, nil
	}
}

// FlagDuck is a boolean switched by ON, OFF and TOGGLE.
type FlagDuck struct {
	Duck
	OnType     message.Type
	OffType    message.Type
	ToggleType message.Type
	Selector   selector.Selector[any, bool]
}

func (d *FlagDuck) TurnOn() message.Message  { return message.New(d.OnType, nil) }
func (d *FlagDuck) TurnOff() message.Message { return message.New(d.OffType, nil) }
func (d *FlagDuck) Toggle() message.Message  { return message.New(d.ToggleType, nil) }

func NewFlagDuck(initial bool) Creator[*FlagDuck] {
	return func(f *Factory) (*FlagDuck, error) {
		on, err := f.DefineType("ON")
		if err != nil {
			return nil, err
		}
		off, err := f.DefineType("OFF")
		if err != nil {
			return nil, err
		}
		toggle, err := f.DefineType("TOGGLE")
		if err != nil {
			return nil, err
		}
		r := reducer.Flag([]message.Type{on}, []message.Type{off}, []message.Type{toggle})
		return &FlagDuck{
			Duck:       Duck{Reducer: f.CreateReducer(reducer.Lift(r, initial))},
			OnType:     on,
			OffType:    off,
			ToggleType: toggle,
			Selector:   castSelector[bool](f.CreateSelector(), initial),
		}, nil
	}
}

// GetSetDuck holds a value replaced by SET.
type GetSetDuck[V any] struct {
	Duck
	Type     message.Type
	Set      message.Creator[V]
	Selector selector.Selector[any, V]
}

func NewGetSetDuck[V any](initial V) Creator[*GetSetDuck[V]] {
	return func(f *Factory) (*GetSetDuck[V], error) {
		t, err := f.DefineType("SET")
		if err != nil {
			return nil, err
		}
		return &GetSetDuck[V]{
			Duck:     Duck{Reducer: f.CreateReducer(reducer.Lift(reducer.SingleAction[V](t, nil), initial))},
			Type:     t,
			Set:      message.CreateAction[V](t),
			Selector: castSelector[V](f.CreateSelector(), initial),
		}, nil
	}
}

// castSelector reads a typed slice, falling back to def while the slice is absent.
func castSelector[V any](local selector.Selector[any, any], def V) selector.Selector[any, V] {
	return func(state any) V {
		v := local(state)
		if v == nil {
			return def
		}
		return helper.MustCast[V](v)
	}
}
