package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/on-the-ground/reducks_go/ducks"
	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/registry"
	"github.com/on-the-ground/reducks_go/ducks/storage"
	"go.uber.org/zap"
)

var ErrUnknownStep = errors.New("unknown step type")

// fetchRequest is the payload of users.TRIGGER.
type fetchRequest struct {
	Key   string
	Delay time.Duration
	Fail  string
}

func fetchKey(m message.Message) string {
	req, _ := m.Payload.(fetchRequest)
	return req.Key
}

func fetchUser(ctx context.Context, args ...any) (any, error) {
	req, _ := args[0].(fetchRequest)
	if req.Delay > 0 {
		select {
		case <-time.After(req.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if req.Fail != "" {
		return nil, errors.New(req.Fail)
	}
	return "user:" + req.Key, nil
}

// demo is a small application: users fetched per key, a sidebar flag and a persisted theme.
type demo struct {
	users   *ducks.SplitAsyncActionDuckWithTrigger[any]
	sidebar *ducks.FlagDuck
	theme   *ducks.GetSetDuck[any]
	duck    ducks.Duck
}

func newDemo(st storage.Storage, w *storage.Writer, logger *zap.Logger) (*demo, error) {
	f, err := ducks.NewFactory("", ducks.WithRegistry(registry.New()), ducks.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	d := &demo{}
	usersFactory, err := f.CreateNestedFactory("users")
	if err != nil {
		return nil, err
	}
	if d.users, err = ducks.CreateDuck(usersFactory, ducks.NewSplitAsyncActionDuckWithTrigger[any](fetchKey, fetchUser)); err != nil {
		return nil, err
	}

	sidebarFactory, err := f.CreateNestedFactory("ui.sidebar")
	if err != nil {
		return nil, err
	}
	if d.sidebar, err = ducks.CreateDuck(sidebarFactory, ducks.NewFlagDuck(false)); err != nil {
		return nil, err
	}

	themeFactory, err := f.CreateNestedFactory("prefs.theme")
	if err != nil {
		return nil, err
	}
	if d.theme, err = ducks.CreateDuck(themeFactory, ducks.NewGetSetDuck[any]("light")); err != nil {
		return nil, err
	}
	persist := ducks.NewPersistenceDuck(st, ducks.WithPersistTriggers(d.theme.Type), ducks.WithWriter(w))
	if _, err := ducks.CreateDuck(themeFactory, persist); err != nil {
		return nil, err
	}

	d.duck = f.CollectAndComposeCreatedDucks()
	return d, nil
}

func (d *demo) message(step Step) (message.Message, error) {
	switch step.Type {
	case "fetch":
		return d.users.Trigger(fetchRequest{Key: step.Key, Delay: step.Delay, Fail: step.Fail}), nil
	case "sidebar.on":
		return d.sidebar.TurnOn(), nil
	case "sidebar.off":
		return d.sidebar.TurnOff(), nil
	case "sidebar.toggle":
		return d.sidebar.Toggle(), nil
	case "theme":
		return d.theme.Set(step.Payload), nil
	}
	return message.Message{}, fmt.Errorf("%w: %q", ErrUnknownStep, step.Type)
}

type userView struct {
	Pending bool   `json:"pending"`
	Error   string `json:"error,omitempty"`
	Result  any    `json:"result,omitempty"`
}

type stateView struct {
	Users   map[string]userView `json:"users"`
	Sidebar bool                `json:"sidebar"`
	Theme   any                 `json:"theme"`
}

func (d *demo) view(state any) stateView {
	results := d.users.GetResults(state)
	users := make(map[string]userView, len(results))
	for key, status := range d.users.GetStatuses(state) {
		u := userView{Pending: status.IsPending, Result: results[key]}
		if status.Error != nil {
			u.Error = status.Error.Error()
		}
		users[key] = u
	}
	return stateView{
		Users:   users,
		Sidebar: d.sidebar.Selector(state),
		Theme:   d.theme.Selector(state),
	}
}
