package ducks

import (
	"github.com/on-the-ground/reducks_go/ducks/internal/tree"
	"github.com/on-the-ground/reducks_go/ducks/lens"
	"github.com/on-the-ground/reducks_go/ducks/message"
)

// ResetState makes a duck restore the node at path to its defaults before reducing resetType.
// Defaults are what the reducer produces from nil for a StateReset message.
func ResetState(path lens.Path, resetType message.Type) func(Duck) Duck {
	return func(d Duck) Duck {
		r := d.Reducer
		if r == nil {
			return d
		}
		d.Reducer = func(state any, msg message.Message) any {
			if msg.Type != resetType {
				return r(state, msg)
			}
			defaults := r(nil, message.New(message.StateReset, nil))
			return r(tree.Set(state, path, tree.Get(defaults, path)), msg)
		}
		return d
	}
}
