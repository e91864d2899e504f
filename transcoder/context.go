package transcoder

import (
	"bytes"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/value"
)

// keyContext hashes and compares keys by their wire encoding, so two keys
// are equal exactly when they encode to the same bytes.
type keyContext struct {
	key *shape.Shape
}

// DefaultContext returns the context decoded containers use when their
// shape has no context factory. Build maps with it when keys are not
// comparable with ==, such as []byte or map[string]any.
func DefaultContext(key *shape.Shape) value.Context {
	return newDefaultContext(key)
}

func newDefaultContext(key *shape.Shape) value.Context {
	return keyContext{key: key}
}

func (c keyContext) encodeKey(k any, buf *[]byte) bool {
	st := encodeState{w: sliceWriter{buf: buf}}
	return st.encode(c.key, k, nil) == nil
}

func (c keyContext) Hash(k any) uint64 {
	buf := getBuf()
	defer putBuf(buf)
	if !c.encodeKey(k, buf) {
		return 0
	}
	return xxhash.Sum64(*buf)
}

func (c keyContext) Equal(a, b any) bool {
	ab, bb := getBuf(), getBuf()
	defer putBuf(ab)
	defer putBuf(bb)
	if !c.encodeKey(a, ab) || !c.encodeKey(b, bb) {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(*ab, *bb)
}
