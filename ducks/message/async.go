package message

// AsyncType is the PENDING/SUCCESS/FAILURE triplet of an asynchronous operation.
type AsyncType struct {
	Pending Type
	Success Type
	Failure Type
}

// AsyncTypeOf derives the triplet names for base without registering them.
func AsyncTypeOf(base string) AsyncType {
	return AsyncType{
		Pending: Type(base + ".PENDING"),
		Success: Type(base + ".SUCCESS"),
		Failure: Type(base + ".FAILURE"),
	}
}

// Has reports whether t is one of the three lifecycle types.
func (a AsyncType) Has(t Type) bool {
	return t == a.Pending || t == a.Success || t == a.Failure
}

// Types lists the lifecycle types in PENDING, SUCCESS, FAILURE order.
func (a AsyncType) Types() []Type {
	return []Type{a.Pending, a.Success, a.Failure}
}

// AsyncMeta is the metadata attached to every lifecycle message of one invocation.
type AsyncMeta struct {
	// Trigger is the message that started the invocation.
	Trigger Message
	// RequestID is unique per invocation.
	RequestID string
	// Extra holds caller supplied metadata.
	Extra any
}

// AsyncMetaOf extracts AsyncMeta from m, accepting both value and pointer forms.
func AsyncMetaOf(m Message) (AsyncMeta, bool) {
	switch meta := m.Meta.(type) {
	case AsyncMeta:
		return meta, true
	case *AsyncMeta:
		if meta == nil {
			return AsyncMeta{}, false
		}
		return *meta, true
	default:
		return AsyncMeta{}, false
	}
}
