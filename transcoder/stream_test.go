package transcoder

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/zeebo/blake3"
)

func TestEncodedLengthMatchesBuffer(t *testing.T) {
	s := shape.Struct("msg",
		shape.F("body", shape.String()),
		shape.F("parts", shape.List(shape.Bytes())),
		shape.F("index", shape.HashMap(shape.U32(), shape.Optional(shape.F64()))),
	)
	for n := 0; n < 5; n++ {
		parts := make([]any, n)
		index := hashMapOf()
		for i := range parts {
			parts[i] = bytes.Repeat([]byte{byte(i)}, i*3)
			if i%2 == 0 {
				index.Put(uint32(i), float64(i)/3)
			} else {
				index.Put(uint32(i), nil)
			}
		}
		v := map[string]any{"body": fmt.Sprintf("message %d", n), "parts": parts, "index": index}

		data, err := EncodeToBuffer(s, v)
		if err != nil {
			t.Fatal(err)
		}
		length, err := EncodedLength(s, v)
		if err != nil {
			t.Fatal(err)
		}
		if length != uint64(len(data)) {
			t.Errorf("n=%d: EncodedLength = %d, buffer = %d", n, length, len(data))
		}
	}
}

func TestFingerprint(t *testing.T) {
	s := shape.Tuple(shape.U32(), shape.String())
	a, err := Fingerprint(s, []any{uint32(1), "x"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Fingerprint(s, map[string]any{"0": 1, "1": "x"})
	if a != b {
		t.Error("equal encodings must have equal fingerprints")
	}
	c, _ := Fingerprint(s, []any{uint32(2), "x"})
	if a == c {
		t.Error("different values share a fingerprint")
	}
	data, _ := EncodeToBuffer(s, []any{uint32(1), "x"})
	if a != blake3.Sum256(data) {
		t.Error("fingerprint is not the BLAKE3 digest of the encoding")
	}
	if _, err := Fingerprint(shape.U8(), "nope"); err == nil {
		t.Error("encode failure must surface")
	}
}

func TestCodec(t *testing.T) {
	if _, err := NewCodec(shape.ErrorSet("e")); err == nil {
		t.Fatal("NewCodec must reject a bare error set")
	}

	c, err := NewCodec(shape.U32(), WithMaxLength(16))
	if err != nil {
		t.Fatal(err)
	}
	data, err := c.Marshal(7)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := c.EncodedLength(7); n != 4 {
		t.Errorf("EncodedLength = %d", n)
	}
	v, err := UnmarshalAs[uint32](c, data, nil)
	if err != nil || v != 7 {
		t.Errorf("UnmarshalAs = %v, %v", v, err)
	}
	_, err = UnmarshalAs[string](c, data, nil)
	requireKind(t, err, errors.PhaseDecode, errors.KindTypeMismatch)

	var buf bytes.Buffer
	if err := c.Write(&buf, uint32(9)); err != nil {
		t.Fatal(err)
	}
	got, err := c.Read(&buf, nil)
	if err != nil || got != uint32(9) {
		t.Errorf("Read = %v, %v", got, err)
	}
	if c.Shape() != shape.U32() {
		t.Error("Shape returned a different descriptor")
	}
}

func TestConcurrentUse(t *testing.T) {
	s := shape.Struct("rec",
		shape.F("id", shape.U64()),
		shape.F("tags", shape.OrderedMap(shape.String(), shape.U8())),
	)
	c, err := NewCodec(s)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			in := map[string]any{"id": uint64(g), "tags": orderedMapOf("g", uint8(g))}
			data, err := c.Marshal(in)
			if err != nil {
				errs <- err
				return
			}
			out, err := c.Unmarshal(data, nil)
			if err != nil {
				errs <- err
				return
			}
			if diff := cmp.Diff(in, out, valueOpts); diff != "" {
				errs <- fmt.Errorf("goroutine %d: %s", g, diff)
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func countEntries(m *sync.Map) int {
	n := 0
	m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func TestPackageFunctionsKeepNoShapeCache(t *testing.T) {
	for i := range 100 {
		s := shape.Optional(shape.U32())
		data, err := EncodeToBuffer(s, uint32(i))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := DecodeFromBuffer(data, s, nil); err != nil {
			t.Fatal(err)
		}
	}
	if n := countEntries(&defaultEncoder.compiler.checked); n != 0 {
		t.Errorf("package encoder cached %d shapes", n)
	}
	if n := countEntries(&defaultDecoder.compiler.checked); n != 0 {
		t.Errorf("package decoder cached %d shapes", n)
	}

	_, err := EncodeToBuffer(shape.ErrorSet("bare", shape.M("x", 1)), nil)
	requireKind(t, err, errors.PhaseCompile, errors.KindUnsupported)

	c := NewCompiler()
	s := shape.Optional(shape.U32())
	for range 3 {
		if err := c.Check(s); err != nil {
			t.Fatal(err)
		}
	}
	if n := countEntries(&c.checked); n != 1 {
		t.Errorf("explicit compiler cached %d shapes, want 1", n)
	}
}
