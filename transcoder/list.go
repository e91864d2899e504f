package transcoder

import (
	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/value"
)

// encodeList writes a growable list exactly like a slice: u64 length then
// the elements.
func (st *encodeState) encodeList(s *shape.Shape, v any, path []string) error {
	seq, ok := asSequence(v)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), s.String())
	}
	if err := st.writeLength(seq.n, path); err != nil {
		return err
	}
	return st.encodeElements(s.Elem, seq, path)
}

// decodeList reserves exactly length units and builds a list whose
// capacity equals its length. Managed lists carry the allocator so
// Release can return the reservation.
func (st *decodeState) decodeList(s *shape.Shape, path []string) (any, error) {
	n, err := st.readLength(s, path)
	if err != nil {
		return nil, err
	}
	if err := st.ensure(n, minWireSize(s.Elem), path); err != nil {
		return nil, err
	}
	reserved, err := st.reserve(n, unitSize(s.Elem), path)
	if err != nil {
		return nil, err
	}
	items := make([]any, n, n)
	for i := range items {
		v, err := st.decode(s.Elem, indexPath(path, i))
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	l := &value.List{Items: items, Reserved: reserved}
	if s.Managed {
		l.Allocator = st.alloc
	}
	return l, nil
}
