package value

import (
	shapecodec "github.com/wippyai/shape-codec"
)

// OrderedMap is an array-backed container that preserves insertion order.
type OrderedMap struct {
	ctx       Context
	index     map[uint64][]int
	Allocator shapecodec.Allocator
	keys      []any
	values    []any
	Reserved  uint64
	// State is the context state read ahead of the entries on decode. It
	// is written back on encode when the context itself carries none.
	State any
}

// NewOrderedMap returns an empty map using ctx for hashing and equality.
// A nil ctx means Comparable.
func NewOrderedMap(ctx Context, capacity int) *OrderedMap {
	if ctx == nil {
		ctx = Comparable
	}
	return &OrderedMap{
		ctx:    ctx,
		index:  make(map[uint64][]int, capacity),
		keys:   make([]any, 0, capacity),
		values: make([]any, 0, capacity),
	}
}

// Context returns the hashing context the map was built with.
func (m *OrderedMap) Context() Context {
	return m.ctx
}

func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *OrderedMap) find(key any) (uint64, int) {
	h := m.ctx.Hash(key)
	for _, i := range m.index[h] {
		if m.ctx.Equal(m.keys[i], key) {
			return h, i
		}
	}
	return h, -1
}

// Put appends a new entry or replaces the value of an existing key in
// place. It reports whether an existing entry was replaced.
func (m *OrderedMap) Put(key, val any) bool {
	h, i := m.find(key)
	if i >= 0 {
		m.values[i] = val
		return true
	}
	m.index[h] = append(m.index[h], len(m.keys))
	m.keys = append(m.keys, key)
	m.values = append(m.values, val)
	return false
}

func (m *OrderedMap) Get(key any) (any, bool) {
	if m == nil {
		return nil, false
	}
	_, i := m.find(key)
	if i < 0 {
		return nil, false
	}
	return m.values[i], true
}

// Delete removes key, shifting later entries down to keep order.
func (m *OrderedMap) Delete(key any) bool {
	_, i := m.find(key)
	if i < 0 {
		return false
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	m.reindex()
	return true
}

func (m *OrderedMap) reindex() {
	m.index = make(map[uint64][]int, len(m.keys))
	for i, k := range m.keys {
		h := m.ctx.Hash(k)
		m.index[h] = append(m.index[h], i)
	}
}

// KeyAt and ValueAt address entries by insertion position.
func (m *OrderedMap) KeyAt(i int) any   { return m.keys[i] }
func (m *OrderedMap) ValueAt(i int) any { return m.values[i] }

// Keys returns the keys in insertion order. The slice is shared.
func (m *OrderedMap) Keys() []any {
	if m == nil {
		return nil
	}
	return m.keys
}

// Values returns the values in insertion order. The slice is shared.
func (m *OrderedMap) Values() []any {
	if m == nil {
		return nil
	}
	return m.values
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *OrderedMap) Range(fn func(key, val any) bool) {
	if m == nil {
		return
	}
	for i := range m.keys {
		if !fn(m.keys[i], m.values[i]) {
			return
		}
	}
}

// Release drops the entries and returns the reservation to the bound
// allocator.
func (m *OrderedMap) Release() {
	if m == nil {
		return
	}
	if m.Allocator != nil && m.Reserved > 0 {
		m.Allocator.Free(m.Reserved)
	}
	m.keys = nil
	m.values = nil
	m.index = make(map[uint64][]int)
	m.Reserved = 0
}
