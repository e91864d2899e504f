package value

import (
	shapecodec "github.com/wippyai/shape-codec"
)

type entry struct {
	key   any
	value any
}

// HashMap is a hash-indexed container. Iteration order is unspecified.
type HashMap struct {
	ctx       Context
	buckets   map[uint64][]entry
	Allocator shapecodec.Allocator
	Reserved  uint64
	// State is the context state read ahead of the entries on decode. It
	// is written back on encode when the context itself carries none.
	State any
	count     int
}

// NewHashMap returns an empty map using ctx for hashing and equality.
// A nil ctx means Comparable.
func NewHashMap(ctx Context, capacity int) *HashMap {
	if ctx == nil {
		ctx = Comparable
	}
	return &HashMap{
		ctx:     ctx,
		buckets: make(map[uint64][]entry, capacity),
	}
}

// Context returns the hashing context the map was built with.
func (m *HashMap) Context() Context {
	return m.ctx
}

func (m *HashMap) Len() int {
	if m == nil {
		return 0
	}
	return m.count
}

// Put inserts or replaces the value for key. It reports whether an
// existing entry was replaced.
func (m *HashMap) Put(key, val any) bool {
	h := m.ctx.Hash(key)
	bucket := m.buckets[h]
	for i := range bucket {
		if m.ctx.Equal(bucket[i].key, key) {
			bucket[i].value = val
			return true
		}
	}
	m.buckets[h] = append(bucket, entry{key: key, value: val})
	m.count++
	return false
}

func (m *HashMap) Get(key any) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, e := range m.buckets[m.ctx.Hash(key)] {
		if m.ctx.Equal(e.key, key) {
			return e.value, true
		}
	}
	return nil, false
}

func (m *HashMap) Delete(key any) bool {
	h := m.ctx.Hash(key)
	bucket := m.buckets[h]
	for i := range bucket {
		if m.ctx.Equal(bucket[i].key, key) {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				delete(m.buckets, h)
			} else {
				m.buckets[h] = bucket
			}
			m.count--
			return true
		}
	}
	return false
}

// Range calls fn for every entry until fn returns false.
func (m *HashMap) Range(fn func(key, val any) bool) {
	if m == nil {
		return
	}
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

// Release drops the entries and returns the reservation to the bound
// allocator.
func (m *HashMap) Release() {
	if m == nil {
		return
	}
	if m.Allocator != nil && m.Reserved > 0 {
		m.Allocator.Free(m.Reserved)
	}
	m.buckets = make(map[uint64][]entry)
	m.count = 0
	m.Reserved = 0
}
