package transcoder

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/value"
)

// valueOpts compares decoded values structurally. Containers compare by
// content; ordered maps also by position.
var valueOpts = cmp.Options{
	cmpopts.IgnoreFields(value.List{}, "Allocator", "Reserved"),
	cmpopts.EquateEmpty(),
	cmp.Transformer("hashmap", func(m *value.HashMap) map[any]any {
		out := make(map[any]any, m.Len())
		m.Range(func(k, v any) bool {
			out[k] = v
			return true
		})
		return out
	}),
	cmp.Transformer("orderedmap", func(m *value.OrderedMap) [][2]any {
		out := make([][2]any, 0, m.Len())
		m.Range(func(k, v any) bool {
			out = append(out, [2]any{k, v})
			return true
		})
		return out
	}),
	cmp.Comparer(func(a, b *value.Error) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Name == b.Name && a.Code == b.Code
	}),
}

func hashMapOf(kv ...any) *value.HashMap {
	m := value.NewHashMap(nil, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m.Put(kv[i], kv[i+1])
	}
	return m
}

func orderedMapOf(kv ...any) *value.OrderedMap {
	m := value.NewOrderedMap(nil, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m.Put(kv[i], kv[i+1])
	}
	return m
}

func requireKind(t *testing.T, err error, phase errors.Phase, kind errors.Kind) {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	if e.Phase != phase || e.Kind != kind {
		t.Fatalf("got %s/%s, want %s/%s: %v", e.Phase, e.Kind, phase, kind, err)
	}
}

func le64(n uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(n >> (8 * i))
	}
	return b
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
