package ducks

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/on-the-ground/reducks_go/ducks/internal/tree"
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/reducer"
	"github.com/on-the-ground/reducks_go/ducks/saga"
	"github.com/on-the-ground/reducks_go/ducks/selector"
)

var ErrNoLoadEffect = errors.New("form duck needs a load effect")

// FormOptions configures a FormDuck. Only Load is required.
type FormOptions struct {
	Load saga.Effect
	Save saga.Effect
	// ToFormState builds the form state from a loaded model, or from nil after a failed load.
	ToFormState func(model any) any
	ToModel     func(formState any) any
	// TransformChanges rewrites edits before they are applied.
	TransformChanges func(changes, formState any) any
	// ApplyChanges merges edits into the form state. Defaults to a recursive map and slice merge.
	ApplyChanges func(formState, changes any) any
}

func (o FormOptions) withDefaults() FormOptions {
	identity := func(v any) any { return v }
	if o.Save == nil {
		o.Save = func(context.Context, ...any) (any, error) { return nil, nil }
	}
	if o.ToFormState == nil {
		o.ToFormState = identity
	}
	if o.ToModel == nil {
		o.ToModel = identity
	}
	if o.TransformChanges == nil {
		o.TransformChanges = func(changes, _ any) any { return changes }
	}
	if o.ApplyChanges == nil {
		o.ApplyChanges = tree.Merge
	}
	return o
}

// EditMeta is the meta of EDIT messages. Replace swaps the whole form state.
type EditMeta struct {
	Replace bool
}

// FormDuck keeps a local form state loaded on reset, edited locally and saved on submit.
// State layout: {formState, load, save}.
type FormDuck struct {
	Duck
	LoadType   message.AsyncType
	SaveType   message.AsyncType
	EditType   message.Type
	ChangeType message.Type
	SubmitType message.Type

	GetFormState  selector.Selector[any, any]
	GetModel      selector.Selector[any, any]
	GetLoadStatus selector.Selector[any, reducer.AsyncStatus]
	GetSaveStatus selector.Selector[any, reducer.AsyncStatus]
}

func (d *FormDuck) Edit(changes any, replace bool) message.Message {
	return message.New(d.EditType, changes).WithMeta(EditMeta{Replace: replace})
}

func (d *FormDuck) Submit(payload any) message.Message {
	return message.New(d.SubmitType, payload)
}

// NewFormDuck loads the model on reset and saves it on SUBMIT.
// CHANGE is put with the model after each edit that changes it.
func NewFormDuck(reset saga.Pattern, opts FormOptions) Creator[*FormDuck] {
	return func(f *Factory) (*FormDuck, error) {
		if opts.Load == nil {
			return nil, ErrNoLoadEffect
		}
		o := opts.withDefaults()

		d := &FormDuck{}
		var err error
		if d.LoadType, err = f.DefineAsyncType("LOAD"); err != nil {
			return nil, err
		}
		if d.EditType, err = f.DefineType("EDIT"); err != nil {
			return nil, err
		}
		if d.ChangeType, err = f.DefineType("CHANGE"); err != nil {
			return nil, err
		}
		if d.SubmitType, err = f.DefineType("SUBMIT"); err != nil {
			return nil, err
		}
		if d.SaveType, err = f.DefineAsyncType("SAVE"); err != nil {
			return nil, err
		}

		formState := reducer.Compose(
			reducer.SingleAction[any](d.LoadType.Success, func(_ any, msg message.Message) any {
				return o.ToFormState(msg.Payload)
			}),
			reducer.SingleAction[any](d.LoadType.Failure, func(any, message.Message) any {
				return o.ToFormState(nil)
			}),
			reducer.SingleAction[any](d.EditType, func(state any, msg message.Message) any {
				if meta, _ := msg.Meta.(EditMeta); meta.Replace {
					return msg.Payload
				}
				return o.ApplyChanges(state, o.TransformChanges(msg.Payload, state))
			}),
		)

		d.GetFormState = f.mustSelectPath("formState")
		d.GetModel = func(state any) any { return o.ToModel(d.GetFormState(state)) }
		d.GetLoadStatus = statusOf(f.mustSelectPath("load"))
		d.GetSaveStatus = statusOf(f.mustSelectPath("save"))

		var prevModel any
		reportModelChanges := func(ctx context.Context, msg message.Message, _ ...any) error {
			fs, err := saga.SelectWith(ctx, d.GetFormState)
			if err != nil {
				return err
			}
			model := o.ToModel(fs)
			changed := msg.Type == d.EditType && !reflect.DeepEqual(model, prevModel)
			prevModel = model
			if !changed {
				return nil
			}
			return saga.Put(ctx, message.New(d.ChangeType, model))
		}

		d.Duck = Duck{
			Reducer: f.CreateReducer(reducer.Combine(reducer.Map{
				"formState": formState,
				"load":      reducer.Lift(reducer.AsyncActionStatus(d.LoadType), reducer.AsyncStatus{}),
				"save":      reducer.Lift(reducer.AsyncActionStatus(d.SaveType), reducer.AsyncStatus{}),
			})),
			Saga: saga.All(
				saga.TakeLatest(reset, saga.AsyncAction(d.LoadType, o.Load)),
				saga.TakeLatest(saga.Is(d.SubmitType), saga.AsyncAction(d.SaveType, o.Save)),
				saga.TakeLatest(saga.Is(d.LoadType.Success, d.EditType), reportModelChanges),
			),
		}
		return d, nil
	}
}

// DefaultValidationDebounce is the delay between the last CHANGE and validation.
const DefaultValidationDebounce = 500 * time.Millisecond

type formValidationConfig struct {
	debounce      time.Duration
	getErrors     func(payload any) any
	getSaveErrors func(payload any) any
}

type FormValidationOption func(*formValidationConfig)

// WithValidationDebounce sets the debounce delay. Zero validates immediately.
func WithValidationDebounce(d time.Duration) FormValidationOption {
	return func(c *formValidationConfig) { c.debounce = d }
}

// WithGetErrors extracts validation errors from a VALIDATE failure payload.
// A nil result keeps the previous errors.
func WithGetErrors(fn func(payload any) any) FormValidationOption {
	return func(c *formValidationConfig) { c.getErrors = fn }
}

// WithGetSaveErrors extracts validation errors from a SAVE failure payload. Defaults to the WithGetErrors function.
func WithGetSaveErrors(fn func(payload any) any) FormValidationOption {
	return func(c *formValidationConfig) { c.getSaveErrors = fn }
}

// FormValidationDuck validates the model of a FormDuck remotely after each change.
// State layout: {errors, status}.
type FormValidationDuck struct {
	Duck
	ValidateType message.AsyncType
	GetErrors    selector.Selector[any, any]
	GetStatus    selector.Selector[any, reducer.AsyncStatus]
}

func NewFormValidationDuck(form *FormDuck, validate saga.Effect, opts ...FormValidationOption) Creator[*FormValidationDuck] {
	cfg := formValidationConfig{
		debounce:  DefaultValidationDebounce,
		getErrors: func(payload any) any { return payload },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.getSaveErrors == nil {
		cfg.getSaveErrors = cfg.getErrors
	}

	return func(f *Factory) (*FormValidationDuck, error) {
		validateType, err := f.DefineAsyncType("VALIDATE")
		if err != nil {
			return nil, err
		}

		clearErrors := func(any, message.Message) any { return []any{} }
		extract := func(get func(any) any) reducer.Reducer[any] {
			return func(state any, msg message.Message) any {
				if errs := get(msg.Payload); errs != nil {
					return errs
				}
				return state
			}
		}
		errs := reducer.Compose(
			reducer.SingleAction[any](form.LoadType.Success, clearErrors),
			reducer.SingleAction[any](validateType.Success, clearErrors),
			reducer.SingleAction[any](validateType.Failure, extract(cfg.getErrors)),
			reducer.SingleAction[any](form.SaveType.Failure, extract(cfg.getSaveErrors)),
		)

		return &FormValidationDuck{
			Duck: Duck{
				Reducer: f.CreateReducer(reducer.Combine(reducer.Map{
					"errors": errs,
					"status": reducer.Lift(reducer.AsyncActionStatus(validateType), reducer.AsyncStatus{}),
				})),
				Saga: saga.TakeLatest(
					saga.Is(form.ChangeType),
					saga.AsyncAction(validateType, validate, saga.WithDebounce(cfg.debounce)),
				),
			},
			ValidateType: validateType,
			GetErrors:    f.mustSelectPath("errors"),
			GetStatus:    statusOf(f.mustSelectPath("status")),
		}, nil
	}
}
