package transcoder

import (
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/value"
)

// Release returns every reservation a successful decode of s charged for
// v. Containers bound to an allocator give their reservation back to it;
// unbound storage (slices and unmanaged lists) is freed to alloc. v must
// not be used afterwards.
func Release(s *shape.Shape, v any, alloc Allocator) {
	if alloc == nil {
		alloc = Heap
	}
	release(s, v, alloc)
}

func release(s *shape.Shape, v any, alloc Allocator) {
	if s == nil || v == nil {
		return
	}
	switch s.Kind {
	case shape.KindSlice:
		if s.Elem.Kind == shape.KindU8 {
			if s.Borrowed && !s.Text {
				return
			}
			switch b := v.(type) {
			case []byte:
				alloc.Free(uint64(len(b)))
			case string:
				alloc.Free(uint64(len(b)))
			}
			return
		}
		items, _ := v.([]any)
		for _, item := range items {
			release(s.Elem, item, alloc)
		}
		alloc.Free(uint64(len(items)) * unitSize(s.Elem))
	case shape.KindArray:
		items, _ := v.([]any)
		for _, item := range items {
			release(s.Elem, item, alloc)
		}
	case shape.KindStruct:
		m, _ := v.(map[string]any)
		for _, f := range s.Fields {
			release(f.Shape, m[f.Name], alloc)
		}
	case shape.KindOptional:
		if some, ok := v.(value.Some); ok {
			v = some.Value
		}
		release(s.Elem, v, alloc)
	case shape.KindUnion:
		if u, ok := v.(value.Union); ok {
			c, _ := s.Case(u.Case)
			release(c.Shape, u.Value, alloc)
		}
	case shape.KindFallible:
		if f, ok := v.(value.Fallible); ok && f.Err == nil {
			release(s.Elem, f.Value, alloc)
		}
	case shape.KindList:
		l, ok := v.(*value.List)
		if !ok || l == nil {
			return
		}
		for _, item := range l.Items {
			release(s.Elem, item, alloc)
		}
		if l.Allocator == nil {
			alloc.Free(l.Reserved)
			l.Reserved = 0
		}
		l.Release()
	case shape.KindMap:
		switch m := v.(type) {
		case *value.HashMap:
			if m == nil {
				return
			}
			releaseEntries(s, m, alloc)
			release(s.Context, m.State, alloc)
			m.State = nil
			m.Release()
		case *value.OrderedMap:
			if m == nil {
				return
			}
			releaseEntries(s, m, alloc)
			release(s.Context, m.State, alloc)
			m.State = nil
			m.Release()
		}
	}
}

func releaseEntries(s *shape.Shape, m associative, alloc Allocator) {
	m.Range(func(k, val any) bool {
		release(s.Key, k, alloc)
		release(s.Value, val, alloc)
		return true
	})
}
