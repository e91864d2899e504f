package value

// Release walks v and releases every list and map it owns, innermost
// first. It is safe to call on values that own nothing.
func Release(v any) {
	switch t := v.(type) {
	case *List:
		if t == nil {
			return
		}
		for _, item := range t.Items {
			Release(item)
		}
		t.Release()
	case *HashMap:
		if t == nil {
			return
		}
		t.Range(func(k, val any) bool {
			Release(k)
			Release(val)
			return true
		})
		t.Release()
	case *OrderedMap:
		if t == nil {
			return
		}
		t.Range(func(k, val any) bool {
			Release(k)
			Release(val)
			return true
		})
		t.Release()
	case []any:
		for _, item := range t {
			Release(item)
		}
	case map[string]any:
		for _, item := range t {
			Release(item)
		}
	case Union:
		Release(t.Value)
	case Fallible:
		Release(t.Value)
	}
}
