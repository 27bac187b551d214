package ducks_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/on-the-ground/reducks_go/ducks"
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/reducer"
	"github.com/on-the-ground/reducks_go/ducks/saga"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resetForm message.Type = "profile.RESET"

func loadProfile(context.Context, ...any) (any, error) {
	return map[string]any{"name": "ann", "tags": []any{"a", "b"}}, nil
}

func TestFormDuck_LoadEditSubmit(t *testing.T) {
	var (
		mu    sync.Mutex
		saved []any
	)
	save := func(_ context.Context, args ...any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		saved = append(saved, args[0])
		return nil, nil
	}

	f := newFactory(t, "profile.form")
	form := ducks.MustCreateDuck(f, ducks.NewFormDuck(saga.Is(resetForm), ducks.FormOptions{
		Load: loadProfile,
		Save: save,
	}))
	assert.Equal(t, message.AsyncTypeOf("profile.form.LOAD"), form.LoadType)
	assert.Equal(t, message.Type("profile.form.EDIT"), form.EditType)

	a := runDuck(t, form)
	a.dispatch(t, message.New(resetForm, nil))
	assert.Equal(t, map[string]any{"name": "ann", "tags": []any{"a", "b"}}, form.GetFormState(a.state()))
	assert.Equal(t, reducer.AsyncStatus{}, form.GetLoadStatus(a.state()))
	assert.Empty(t, a.messagesOf(form.ChangeType), "loading is not a change")

	a.dispatch(t, form.Edit(map[string]any{"name": "bob"}, false))
	want := map[string]any{"name": "bob", "tags": []any{"a", "b"}}
	assert.Equal(t, want, form.GetModel(a.state()))

	changes := a.messagesOf(form.ChangeType)
	require.Len(t, changes, 1)
	assert.Equal(t, want, changes[0].Payload)

	a.dispatch(t, form.Edit(map[string]any{"name": "bob"}, false))
	assert.Len(t, a.messagesOf(form.ChangeType), 1, "an edit without effect is not a change")

	a.dispatch(t, form.Edit(map[string]any{"name": "cy"}, true))
	assert.Equal(t, map[string]any{"name": "cy"}, form.GetFormState(a.state()))

	a.dispatch(t, form.Submit(form.GetModel(a.state())))
	assert.Equal(t, reducer.AsyncStatus{}, form.GetSaveStatus(a.state()))
	mu.Lock()
	assert.Equal(t, []any{map[string]any{"name": "cy"}}, saved)
	mu.Unlock()
}

func TestFormDuck_FailedLoad(t *testing.T) {
	f := newFactory(t, "profile")
	form := ducks.MustCreateDuck(f, ducks.NewFormDuck(saga.Is(resetForm), ducks.FormOptions{
		Load:        func(context.Context, ...any) (any, error) { return nil, errors.New("offline") },
		ToFormState: func(model any) any { return map[string]any{"loaded": model != nil} },
	}))

	a := runDuck(t, form)
	a.dispatch(t, message.New(resetForm, nil))
	assert.Equal(t, map[string]any{"loaded": false}, form.GetFormState(a.state()))
	assert.EqualError(t, form.GetLoadStatus(a.state()).Error, "offline")
}

func TestNewFormDuck_RequiresLoad(t *testing.T) {
	_, err := ducks.CreateDuck(newFactory(t, "profile"), ducks.NewFormDuck(saga.Is(resetForm), ducks.FormOptions{}))
	assert.ErrorIs(t, err, ducks.ErrNoLoadEffect)
}

func validateName(_ context.Context, args ...any) (any, error) {
	model, _ := args[0].(map[string]any)
	if model["name"] == "" {
		return nil, errors.New("name is required")
	}
	return nil, nil
}

func messagesOfError(payload any) any {
	if err, ok := payload.(error); ok {
		return []string{err.Error()}
	}
	return nil
}

func newValidatedForm(t *testing.T, opts ...ducks.FormValidationOption) (*ducks.FormDuck, *ducks.FormValidationDuck, *app) {
	t.Helper()
	f := newFactory(t, "profile")
	form := ducks.MustCreateDuck(f.MustCreateNestedFactory("form"), ducks.NewFormDuck(saga.Is(resetForm), ducks.FormOptions{
		Load: loadProfile,
		Save: func(context.Context, ...any) (any, error) { return nil, errors.New("conflict") },
	}))
	opts = append([]ducks.FormValidationOption{ducks.WithGetErrors(messagesOfError)}, opts...)
	validation := ducks.MustCreateDuck(f.MustCreateNestedFactory("validation"), ducks.NewFormValidationDuck(form, validateName, opts...))
	return form, validation, runDuck(t, f.CollectAndComposeCreatedDucks())
}

func TestFormValidationDuck(t *testing.T) {
	form, validation, a := newValidatedForm(t, ducks.WithValidationDebounce(0))
	assert.Equal(t, message.AsyncTypeOf("profile.validation.VALIDATE"), validation.ValidateType)

	a.dispatch(t, message.New(resetForm, nil))
	assert.Equal(t, []any{}, validation.GetErrors(a.state()))

	a.dispatch(t, form.Edit(map[string]any{"name": ""}, false))
	assert.Equal(t, []string{"name is required"}, validation.GetErrors(a.state()))
	assert.EqualError(t, validation.GetStatus(a.state()).Error, "name is required")

	a.dispatch(t, form.Edit(map[string]any{"name": "dee"}, false))
	assert.Equal(t, []any{}, validation.GetErrors(a.state()))
	assert.Equal(t, reducer.AsyncStatus{}, validation.GetStatus(a.state()))

	a.dispatch(t, form.Submit(nil))
	assert.Equal(t, []string{"conflict"}, validation.GetErrors(a.state()))
}

func TestFormValidationDuck_Debounce(t *testing.T) {
	form, validation, a := newValidatedForm(t, ducks.WithValidationDebounce(20*time.Millisecond))

	a.dispatch(t, message.New(resetForm, nil))
	a.dispatch(t,
		form.Edit(map[string]any{"name": "e"}, false),
		form.Edit(map[string]any{"name": "ed"}, false),
		form.Edit(map[string]any{"name": "eddy"}, false),
	)

	assert.Len(t, a.messagesOf(form.ChangeType), 3)
	assert.Len(t, a.messagesOf(validation.ValidateType.Pending), 1)
	assert.Len(t, a.messagesOf(validation.ValidateType.Success), 1)
}
