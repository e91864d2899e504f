package value

import "hash/maphash"

// Context supplies hashing and equality for associative containers.
type Context interface {
	Hash(key any) uint64
	Equal(a, b any) bool
}

// StatefulContext is a Context whose state is serialized ahead of the
// container entries.
type StatefulContext interface {
	Context
	State() any
}

// ContextState returns the serializable state of ctx, or nil when it
// carries none.
func ContextState(ctx Context) any {
	if sc, ok := ctx.(StatefulContext); ok {
		return sc.State()
	}
	return nil
}

var comparableSeed = maphash.MakeSeed()

type comparableContext struct{}

// Comparable hashes and compares keys with Go's == operator. It is the
// context of maps built with a nil Context and panics on keys whose
// dynamic type is not comparable, such as []byte.
var Comparable Context = comparableContext{}

func (comparableContext) Hash(key any) uint64 {
	return maphash.Comparable(comparableSeed, key)
}

func (comparableContext) Equal(a, b any) bool {
	return a == b
}
