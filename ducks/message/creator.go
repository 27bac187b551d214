package message

// Creator builds messages of a fixed type from an argument.
type Creator[A any] func(arg A) Message

type creatorConfig[A any] struct {
	payload func(A) any
	meta    func(A) any
}

// CreatorOption customises how a Creator derives payload and metadata.
type CreatorOption[A any] func(*creatorConfig[A])

// WithPayloadOf derives the payload from the creator argument.
func WithPayloadOf[A any](fn func(A) any) CreatorOption[A] {
	return func(c *creatorConfig[A]) { c.payload = fn }
}

// WithMetaOf derives the metadata from the creator argument.
func WithMetaOf[A any](fn func(A) any) CreatorOption[A] {
	return func(c *creatorConfig[A]) { c.meta = fn }
}

// CreateAction returns a creator for type t.
// By default the argument becomes the payload and no metadata is attached.
func CreateAction[A any](t Type, opts ...CreatorOption[A]) Creator[A] {
	cfg := creatorConfig[A]{
		payload: func(a A) any { return a },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(arg A) Message {
		m := Message{Type: t, Payload: cfg.payload(arg)}
		if cfg.meta != nil {
			m.Meta = cfg.meta(arg)
		}
		return m
	}
}

// Action is a creator whose argument is used verbatim as payload.
func Action(t Type) Creator[any] {
	return CreateAction[any](t)
}
