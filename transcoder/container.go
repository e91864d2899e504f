package transcoder

import (
	"reflect"

	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/value"
)

// maxPrealloc bounds the capacity hint taken from an untrusted count.
const maxPrealloc = 1024

// associative is the read side shared by both container kinds.
type associative interface {
	Len() int
	Context() value.Context
	Range(fn func(key, val any) bool)
}

// goMap adapts a native Go map to associative. Its iteration order is
// random, so it is only accepted for hashed shapes.
type goMap struct {
	rv reflect.Value
}

func (m goMap) Len() int               { return m.rv.Len() }
func (m goMap) Context() value.Context { return nil }

func (m goMap) Range(fn func(key, val any) bool) {
	it := m.rv.MapRange()
	for it.Next() {
		if !fn(it.Key().Interface(), it.Value().Interface()) {
			return
		}
	}
}

func asAssociative(s *shape.Shape, v any) (associative, bool) {
	switch m := v.(type) {
	case *value.OrderedMap:
		return m, m != nil
	case *value.HashMap:
		return m, m != nil && s.Indexing == shape.Hashed
	}
	if s.Indexing != shape.Hashed {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		return goMap{rv: rv}, true
	}
	return nil, false
}

// encodeMap writes [context] count (key value)* and, for hashed
// containers, a trailing false sentinel.
func (st *encodeState) encodeMap(s *shape.Shape, v any, path []string) error {
	m, ok := asAssociative(s, v)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), s.String())
	}
	if s.Context != nil {
		if err := st.encodeContext(s, m, path); err != nil {
			return err
		}
	}
	if err := st.writeLength(m.Len(), path); err != nil {
		return err
	}

	var err error
	i := 0
	m.Range(func(key, val any) bool {
		entry := indexPath(path, i)
		if err = st.encode(s.Key, key, appendPath(entry, "key")); err != nil {
			return false
		}
		if err = st.encode(s.Value, val, appendPath(entry, "value")); err != nil {
			return false
		}
		i++
		return true
	})
	if err != nil {
		return err
	}

	if s.Indexing == shape.Hashed {
		return st.writeFlag(0, path)
	}
	return nil
}

// encodeContext writes the context state: the context's own when it is
// stateful, otherwise the state the map was decoded with.
func (st *encodeState) encodeContext(s *shape.Shape, m associative, path []string) error {
	ctxPath := appendPath(path, "[context]")
	state := value.ContextState(m.Context())
	if state == nil {
		switch dm := m.(type) {
		case *value.HashMap:
			state = dm.State
		case *value.OrderedMap:
			state = dm.State
		}
	}
	if state == nil && s.Context.Kind != shape.KindOptional && s.Context.Kind != shape.KindVoid {
		return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Path(ctxPath...).
			GoType(typeName(m)).
			ShapeType(s.Context.String()).
			Detail("map context carries no state").
			Build()
	}
	return st.encode(s.Context, state, ctxPath)
}

// container is the write side shared by both container kinds.
type container interface {
	Get(key any) (any, bool)
	Put(key, val any) bool
}

// decodeMap mirrors encodeMap. Duplicate keys replace the earlier value;
// an ordered container keeps the first position.
func (st *decodeState) decodeMap(s *shape.Shape, path []string) (any, error) {
	ctx, state, err := st.decodeContext(s, path)
	if err != nil {
		return nil, err
	}
	n, err := st.readLength(s, path)
	if err != nil {
		return nil, err
	}
	if err := st.ensure(n, minWireSize(s.Key)+minWireSize(s.Value), path); err != nil {
		return nil, err
	}
	reserved, err := st.reserve(n, unitSize(s.Key)+unitSize(s.Value), path)
	if err != nil {
		return nil, err
	}

	var (
		out any
		dst container
	)
	if s.Indexing == shape.Ordered {
		om := value.NewOrderedMap(ctx, min(n, maxPrealloc))
		om.Allocator, om.Reserved, om.State = st.alloc, reserved, state
		out, dst = om, om
	} else {
		hm := value.NewHashMap(ctx, min(n, maxPrealloc))
		hm.Allocator, hm.Reserved, hm.State = st.alloc, reserved, state
		out, dst = hm, hm
	}

	for i := 0; i < n; i++ {
		entry := indexPath(path, i)
		key, err := st.decode(s.Key, appendPath(entry, "key"))
		if err != nil {
			return nil, err
		}
		val, err := st.decode(s.Value, appendPath(entry, "value"))
		if err != nil {
			return nil, err
		}
		if old, ok := dst.Get(key); ok {
			// The map keeps the first key and the new value.
			st.discard(s.Key, key)
			st.discard(s.Value, old)
		}
		dst.Put(key, val)
	}

	if s.Indexing == shape.Hashed {
		// The sentinel carries no information but must be consumed.
		if _, err := st.readFlag(appendPath(path, "[end]")); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeContext reads the context state, when the shape has one, and
// rebuilds the hashing context from it.
func (st *decodeState) decodeContext(s *shape.Shape, path []string) (value.Context, any, error) {
	var state any
	if s.Context != nil {
		var err error
		if state, err = st.decode(s.Context, appendPath(path, "[context]")); err != nil {
			return nil, nil, err
		}
	}
	if s.MakeContext == nil {
		return newDefaultContext(s.Key), state, nil
	}
	ctx, err := s.MakeContext(state)
	if err != nil {
		return nil, nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(appendPath(path, "[context]")...).
			ShapeType(s.String()).
			Cause(err).
			Detail("cannot rebuild container context").
			Build()
	}
	if ctx == nil {
		ctx = newDefaultContext(s.Key)
	}
	return ctx, state, nil
}
