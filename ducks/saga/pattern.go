package saga

import "github.com/on-the-ground/reducks_go/ducks/message"

// Pattern selects the messages a Take waits for.
type Pattern interface {
	Match(msg message.Message) bool
}

type PatternFunc func(msg message.Message) bool

func (f PatternFunc) Match(msg message.Message) bool { return f(msg) }

// Any matches every message.
func Any() Pattern {
	return PatternFunc(func(message.Message) bool { return true })
}

// Is matches messages of any of the given types. message.Wildcard matches everything.
func Is(types ...message.Type) Pattern {
	set := make(map[message.Type]struct{}, len(types))
	for _, t := range types {
		if t == message.Wildcard {
			return Any()
		}
		set[t] = struct{}{}
	}
	return PatternFunc(func(msg message.Message) bool {
		_, ok := set[msg.Type]
		return ok
	})
}

// Match matches messages accepted by fn.
func Match(fn func(msg message.Message) bool) Pattern {
	return PatternFunc(fn)
}
