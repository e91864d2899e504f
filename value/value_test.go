package value

import (
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	shapecodec "github.com/wippyai/shape-codec"
)

// foldContext compares string keys case-insensitively.
type foldContext struct{}

func (foldContext) Hash(key any) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(key.(string))))
	return h.Sum64()
}

func (foldContext) Equal(a, b any) bool {
	return strings.EqualFold(a.(string), b.(string))
}

// collideContext sends every key to the same bucket.
type collideContext struct{}

func (collideContext) Hash(any) uint64      { return 7 }
func (collideContext) Equal(a, b any) bool { return a == b }

func TestHashMap(t *testing.T) {
	m := NewHashMap(foldContext{}, 4)
	if m.Put("Alpha", 1) {
		t.Error("first Put should not replace")
	}
	if !m.Put("ALPHA", 2) {
		t.Error("Put with folded key should replace")
	}
	m.Put("beta", 3)

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if v, ok := m.Get("alpha"); !ok || v != 2 {
		t.Errorf("Get(alpha) = %v, %v", v, ok)
	}
	if !m.Delete("BETA") {
		t.Error("Delete(BETA) should succeed")
	}
	if m.Delete("beta") {
		t.Error("second Delete should report false")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d after delete, want 1", m.Len())
	}
}

func TestHashMapCollisions(t *testing.T) {
	m := NewHashMap(collideContext{}, 0)
	for i := 0; i < 5; i++ {
		m.Put(i, i*i)
	}
	if m.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", m.Len())
	}
	m.Delete(2)
	seen := 0
	m.Range(func(k, v any) bool {
		if v != k.(int)*k.(int) {
			t.Errorf("entry %v = %v", k, v)
		}
		seen++
		return true
	})
	if seen != 4 {
		t.Errorf("Range visited %d entries, want 4", seen)
	}
}

func TestOrderedMap(t *testing.T) {
	m := NewOrderedMap(collideContext{}, 0)
	for _, k := range []string{"c", "a", "b"} {
		m.Put(k, len(k))
	}
	m.Put("a", 10)

	want := []any{"c", "a", "b"}
	for i, k := range m.Keys() {
		if k != want[i] {
			t.Fatalf("Keys() = %v, want %v", m.Keys(), want)
		}
	}
	if m.ValueAt(1) != 10 {
		t.Errorf("ValueAt(1) = %v, want 10", m.ValueAt(1))
	}

	m.Delete("c")
	if m.KeyAt(0) != "a" || m.KeyAt(1) != "b" {
		t.Errorf("order after delete = %v", m.Keys())
	}
	if v, ok := m.Get("b"); !ok || v != 1 {
		t.Errorf("Get(b) after reindex = %v, %v", v, ok)
	}
}

func TestReleaseReturnsReservations(t *testing.T) {
	budget := shapecodec.NewBudget(1024)
	if err := budget.Alloc(64); err != nil {
		t.Fatal(err)
	}
	if err := budget.Alloc(32); err != nil {
		t.Fatal(err)
	}

	inner := &List{Items: []any{uint8(1)}, Allocator: budget, Reserved: 32}
	outer := &List{Items: []any{inner}, Allocator: budget, Reserved: 64}

	Release(map[string]any{"items": outer})

	if budget.Used() != 0 {
		t.Errorf("Used() = %d after Release, want 0", budget.Used())
	}
	if outer.Len() != 0 || inner.Len() != 0 {
		t.Error("released lists should be empty")
	}
}

func TestListWithoutAllocator(t *testing.T) {
	l := NewList(2)
	l.Append(1, 2, 3)
	if l.Len() != 3 {
		t.Errorf("Len() = %d", l.Len())
	}
	l.Release()
	if l.Len() != 0 {
		t.Errorf("Len() after Release = %d", l.Len())
	}

	var nilList *List
	if nilList.Len() != 0 || nilList.Cap() != 0 {
		t.Error("nil list should be empty")
	}
}

func TestErrorMatchesByName(t *testing.T) {
	decoded := &Error{Name: "NotFound", Code: 3}
	if !errors.Is(decoded, NewError("NotFound")) {
		t.Error("decoded error should match NewError by name")
	}
	if errors.Is(decoded, NewError("Denied")) {
		t.Error("different names must not match")
	}
	if decoded.Error() != "error.NotFound" {
		t.Errorf("Error() = %q", decoded.Error())
	}

	f := Fail(decoded)
	if !f.IsError() || Ok(1).IsError() {
		t.Error("IsError mismatch")
	}
}

func TestUnionString(t *testing.T) {
	if s := (Union{Case: "none"}).String(); s != ".none" {
		t.Errorf("String() = %q", s)
	}
	if s := (Union{Case: "some", Value: 3}).String(); s != ".some = 3" {
		t.Errorf("String() = %q", s)
	}
}

func TestNilContextIsComparable(t *testing.T) {
	m := NewOrderedMap(nil, 2)
	m.Put("a", 1)
	m.Put(uint8(2), "b")
	m.Put("a", 3)
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	if v, _ := m.Get("a"); v != 3 {
		t.Errorf("Get(a) = %v, want 3", v)
	}
	if m.Context() != Comparable {
		t.Error("nil context should default to Comparable")
	}
	if _, ok := m.Get(2); ok {
		t.Error("int 2 and uint8 2 are distinct keys")
	}
}
