package value

import (
	shapecodec "github.com/wippyai/shape-codec"
)

// List is an owning, resizable sequence.
type List struct {
	// Allocator is set when the list's shape binds the decoding
	// allocator; Release then returns Reserved bytes to it.
	Allocator shapecodec.Allocator
	Items     []any
	Reserved  uint64
}

// NewList returns an empty list with the given capacity.
func NewList(capacity int) *List {
	return &List{Items: make([]any, 0, capacity)}
}

// ListOf wraps items without copying.
func ListOf(items ...any) *List {
	return &List{Items: items}
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

func (l *List) Cap() int {
	if l == nil {
		return 0
	}
	return cap(l.Items)
}

func (l *List) At(i int) any {
	return l.Items[i]
}

func (l *List) Append(items ...any) {
	l.Items = append(l.Items, items...)
}

// Release drops the items and returns the reservation to the bound
// allocator. Elements are not released; use the package-level Release
// to walk nested storage.
func (l *List) Release() {
	if l == nil {
		return
	}
	if l.Allocator != nil && l.Reserved > 0 {
		l.Allocator.Free(l.Reserved)
	}
	l.Items = nil
	l.Reserved = 0
}
