package transcoder

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/value"
)

// foldContext compares string keys case-insensitively. Its seed is the
// serialized state.
type foldContext struct {
	seed uint32
}

func (c foldContext) Hash(key any) uint64 {
	return xxhash.Sum64String(strings.ToLower(key.(string))) ^ uint64(c.seed)
}

func (c foldContext) Equal(a, b any) bool {
	return strings.EqualFold(a.(string), b.(string))
}

func (c foldContext) State() any {
	return c.seed
}

func makeFoldContext(state any) (value.Context, error) {
	return foldContext{seed: state.(uint32)}, nil
}

func TestHashedContextRoundTrip(t *testing.T) {
	s := shape.HashMap(shape.String(), shape.U32()).WithContext(shape.U32(), makeFoldContext)

	m := value.NewHashMap(foldContext{seed: 7}, 2)
	m.Put("Alpha", uint32(1))
	m.Put("beta", uint32(2))
	m.Put("ALPHA", uint32(3))

	data, err := EncodeToBuffer(s, m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, cat([]byte{7, 0, 0, 0}, le64(2))) {
		t.Fatalf("context state and count must lead the entries: % x", data[:12])
	}
	if data[len(data)-1] != 0 {
		t.Errorf("hashed container must end with a false sentinel")
	}

	out, err := DecodeFromBuffer(data, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	hm := out.(*value.HashMap)
	if ctx, ok := hm.Context().(foldContext); !ok || ctx.seed != 7 {
		t.Fatalf("context = %#v, want foldContext{7}", hm.Context())
	}
	if hm.Len() != 2 {
		t.Errorf("Len = %d, want 2", hm.Len())
	}
	if v, ok := hm.Get("alpha"); !ok || v != uint32(3) {
		t.Errorf("Get(alpha) = %v, %v; want 3", v, ok)
	}
	if v, ok := hm.Get("BETA"); !ok || v != uint32(2) {
		t.Errorf("Get(BETA) = %v, %v; want 2", v, ok)
	}
}

func TestOrderedContextRoundTrip(t *testing.T) {
	s := shape.OrderedMap(shape.String(), shape.U8()).WithContext(shape.U32(), makeFoldContext)

	m := value.NewOrderedMap(foldContext{seed: 99}, 3)
	m.Put("zeta", uint8(1))
	m.Put("Alpha", uint8(2))
	m.Put("mid", uint8(3))

	data, err := EncodeToBuffer(s, m)
	if err != nil {
		t.Fatal(err)
	}
	want := cat([]byte{99, 0, 0, 0}, le64(3),
		le64(4), []byte("zeta"), []byte{1},
		le64(5), []byte("Alpha"), []byte{2},
		le64(3), []byte("mid"), []byte{3},
	)
	if !bytes.Equal(data, want) {
		t.Fatalf("encoding = % x\nwant       % x", data, want)
	}

	out, err := DecodeFromBuffer(data, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	om := out.(*value.OrderedMap)
	if om.Context().(foldContext).seed != 99 {
		t.Errorf("context seed lost")
	}
	if diff := cmp.Diff([]any{"zeta", "Alpha", "mid"}, om.Keys()); diff != "" {
		t.Errorf("keys out of order (-want +got):\n%s", diff)
	}
	if v, _ := om.Get("ALPHA"); v != uint8(2) {
		t.Errorf("Get(ALPHA) = %v", v)
	}
}

func TestStatelessCustomContext(t *testing.T) {
	calls := 0
	s := shape.HashMap(shape.String(), shape.Bool()).WithContext(nil, func(state any) (value.Context, error) {
		calls++
		if state != nil {
			t.Errorf("stateless context got state %v", state)
		}
		return foldContext{}, nil
	})

	data, err := EncodeToBuffer(s, hashMapOf("Key", true))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data[:8], le64(1)) {
		t.Errorf("stateless context must not write state: % x", data)
	}
	out, err := DecodeFromBuffer(data, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("factory called %d times", calls)
	}
	if _, ok := out.(*value.HashMap).Get("KEY"); !ok {
		t.Error("custom context not used for lookups")
	}
}

func TestContextWithoutState(t *testing.T) {
	seeded := shape.HashMap(shape.U8(), shape.U8()).
		WithContext(shape.Struct("seed", shape.F("n", shape.U32())), func(any) (value.Context, error) {
			return nil, nil
		})
	_, err := EncodeToBuffer(seeded, hashMapOf(uint8(1), uint8(2)))
	requireKind(t, err, errors.PhaseEncode, errors.KindInvalidInput)
	if !strings.Contains(err.Error(), "map context carries no state") {
		t.Errorf("err = %v", err)
	}

	// An optional state encodes as absent.
	optional := shape.HashMap(shape.U8(), shape.U8()).
		WithContext(shape.Optional(shape.U32()), func(any) (value.Context, error) {
			return nil, nil
		})
	data, err := EncodeToBuffer(optional, hashMapOf(uint8(1), uint8(2)))
	if err != nil {
		t.Fatal(err)
	}
	if want := cat([]byte{0}, le64(1), []byte{1, 2, 0}); !bytes.Equal(data, want) {
		t.Errorf("encoding = % x, want % x", data, want)
	}
}

func TestDuplicateKeysLastWins(t *testing.T) {
	s := shape.OrderedMap(shape.U8(), shape.U8())
	data := cat(le64(3), []byte{1, 10}, []byte{2, 20}, []byte{1, 30})

	out, err := DecodeFromBuffer(data, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	om := out.(*value.OrderedMap)
	if om.Len() != 2 {
		t.Fatalf("Len = %d, want 2", om.Len())
	}
	if om.KeyAt(0) != uint8(1) || om.ValueAt(0) != uint8(30) {
		t.Errorf("first entry = %v:%v, want 1:30", om.KeyAt(0), om.ValueAt(0))
	}
}

func TestDefaultContextHandlesByteKeys(t *testing.T) {
	s := shape.HashMap(shape.Bytes(), shape.U16())
	m := value.NewHashMap(DefaultContext(shape.Bytes()), 1)
	m.Put([]byte("key"), uint16(5))

	data, err := EncodeToBuffer(s, m)
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeFromBuffer(data, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := out.(*value.HashMap).Get([]byte("key")); !ok || v != uint16(5) {
		t.Errorf("Get = %v, %v", v, ok)
	}
}

func TestHashedMapFromGoMap(t *testing.T) {
	s := shape.HashMap(shape.String(), shape.S32())
	in := map[string]int{"a": 1, "b": -2}

	data, err := EncodeToBuffer(s, in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeFromBuffer(data, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := hashMapOf("a", int32(1), "b", int32(-2))
	if diff := cmp.Diff(want, out, valueOpts); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := EncodeToBuffer(shape.OrderedMap(shape.String(), shape.S32()), in); err == nil {
		t.Error("ordered shape must reject an unordered Go map")
	}
}

func TestListCapacityIsExact(t *testing.T) {
	s := shape.List(shape.U32())
	data, _ := EncodeToBuffer(s, []any{uint32(1), uint32(2), uint32(3)})
	out, err := DecodeFromBuffer(data, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	l := out.(*value.List)
	if l.Len() != 3 || l.Cap() != 3 {
		t.Errorf("len/cap = %d/%d, want 3/3", l.Len(), l.Cap())
	}
	if l.Allocator != nil {
		t.Error("unmanaged list must not bind the allocator")
	}
	if l.Reserved != 12 {
		t.Errorf("Reserved = %d, want 12", l.Reserved)
	}
}
