package transcoder

import (
	stderrors "errors"
	"io"
	"math"
	"reflect"
	"strconv"

	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/transcoder/internal/wire"
	"github.com/wippyai/shape-codec/value"
	"go.bytecodealliance.org/wit"
)

var typeName = wire.TypeName

// Encoder writes values in the wire format their shape defines. An
// Encoder holds only configuration and is safe for concurrent use.
type Encoder struct {
	compiler *Compiler
}

func NewEncoder(opts ...Option) *Encoder {
	cfg := newConfig(opts)
	return &Encoder{compiler: cfg.compiler}
}

// Encode writes the encoding of v to w. The shape is validated first, so an
// invalid descriptor fails before any byte is written.
func (e *Encoder) Encode(w io.Writer, s *shape.Shape, v any) error {
	if err := e.compiler.Check(s); err != nil {
		return err
	}
	st := encodeState{w: w}
	return st.encode(s, v, nil)
}

// EncodeWIT encodes v against the shape compiled from a WIT type.
func (e *Encoder) EncodeWIT(w io.Writer, t wit.Type, v any) error {
	s, err := e.compiler.CompileWIT(t)
	if err != nil {
		return err
	}
	return e.Encode(w, s, v)
}

// encodeState is the per-call state; it never outlives one Encode.
type encodeState struct {
	w       io.Writer
	scratch [8]byte
}

func appendPath(path []string, seg string) []string {
	return append(append(make([]string, 0, len(path)+1), path...), seg)
}

func indexPath(path []string, i int) []string {
	return appendPath(path, "["+strconv.Itoa(i)+"]")
}

func (st *encodeState) write(p []byte, path []string) error {
	if _, err := st.w.Write(p); err != nil {
		return errors.IO(errors.PhaseEncode, path, err)
	}
	return nil
}

func (st *encodeState) writeUint(k shape.Kind, bits uint64, path []string) error {
	size := k.Size()
	wire.PutUint(st.scratch[:], size, bits)
	return st.write(st.scratch[:size], path)
}

func (st *encodeState) writeFlag(b byte, path []string) error {
	st.scratch[0] = b
	return st.write(st.scratch[:1], path)
}

func (st *encodeState) writeLength(n int, path []string) error {
	return st.writeUint(shape.KindU64, uint64(n), path)
}

// encode dispatches on the shape kind alone. Container adapters come
// first; they are distinct kinds so nothing is inferred from v.
func (st *encodeState) encode(s *shape.Shape, v any, path []string) error {
	switch s.Kind {
	case shape.KindMap:
		return st.encodeMap(s, v, path)
	case shape.KindList:
		return st.encodeList(s, v, path)
	case shape.KindBool, shape.KindU8, shape.KindS8, shape.KindU16, shape.KindS16,
		shape.KindU32, shape.KindS32, shape.KindU64, shape.KindS64, shape.KindF32, shape.KindF64:
		return st.encodePrimitive(s, v, path)
	case shape.KindVoid:
		return nil
	case shape.KindArray:
		return st.encodeArray(s, v, path)
	case shape.KindSlice:
		return st.encodeSlice(s, v, path)
	case shape.KindStruct:
		return st.encodeStruct(s, v, path)
	case shape.KindPacked:
		return st.encodePacked(s, v, path)
	case shape.KindOptional:
		if v == nil {
			return st.writeFlag(0, path)
		}
		if err := st.writeFlag(1, path); err != nil {
			return err
		}
		if some, ok := v.(value.Some); ok {
			v = some.Value
		}
		return st.encode(s.Elem, v, path)
	case shape.KindEnum:
		return st.encodeEnum(s, v, path)
	case shape.KindUnion:
		return st.encodeUnion(s, v, path)
	case shape.KindFallible:
		return st.encodeFallible(s, v, path)
	case shape.KindErrorSet:
		return st.encodeErrorCode(s, v, path)
	default:
		return errors.Unsupported(errors.PhaseEncode, "shape kind "+s.Kind.String())
	}
}

func (st *encodeState) encodeArray(s *shape.Shape, v any, path []string) error {
	seq, ok := asSequence(v)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), s.String())
	}
	if uint64(seq.n) != s.Len {
		return errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Path(path...).
			ShapeType(s.String()).
			Detail("array has %d elements, shape fixes %d", seq.n, s.Len).
			Build()
	}
	return st.encodeElements(s.Elem, seq, path)
}

func (st *encodeState) encodeSlice(s *shape.Shape, v any, path []string) error {
	seq, ok := asSequence(v)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), s.String())
	}
	if err := st.writeLength(seq.n, path); err != nil {
		return err
	}
	return st.encodeElements(s.Elem, seq, path)
}

func (st *encodeState) encodeElements(elem *shape.Shape, seq sequence, path []string) error {
	if elem.Kind == shape.KindU8 && seq.bytes != nil {
		return st.write(seq.bytes, path)
	}
	for i := 0; i < seq.n; i++ {
		if err := st.encode(elem, seq.at(i), indexPath(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (st *encodeState) encodeStruct(s *shape.Shape, v any, path []string) error {
	if items, ok := v.([]any); ok {
		if len(items) != len(s.Fields) {
			return errors.New(errors.PhaseEncode, errors.KindInvalidData).
				Path(path...).
				ShapeType(s.String()).
				Detail("positional value has %d elements, shape has %d fields", len(items), len(s.Fields)).
				Build()
		}
		for i, f := range s.Fields {
			if err := st.encode(f.Shape, items[i], appendPath(path, f.Name)); err != nil {
				return err
			}
		}
		return nil
	}

	m, ok := v.(map[string]any)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), s.String())
	}
	matched := 0
	for _, f := range s.Fields {
		fv, present := m[f.Name]
		if present {
			matched++
		} else if f.Shape.Kind != shape.KindOptional && f.Shape.Kind != shape.KindVoid {
			return errors.FieldMissing(errors.PhaseEncode, path, f.Name)
		}
		if err := st.encode(f.Shape, fv, appendPath(path, f.Name)); err != nil {
			return err
		}
	}
	if matched != len(m) {
		for name := range m {
			if _, known := s.Field(name); !known {
				return errors.FieldUnknown(errors.PhaseEncode, path, name)
			}
		}
	}
	return nil
}

func (st *encodeState) encodePacked(s *shape.Shape, v any, path []string) error {
	m, ok := v.(map[string]any)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), s.String())
	}
	var bits uint64
	shift := uint(0)
	for _, f := range s.Fields {
		fpath := appendPath(path, f.Name)
		fv, present := m[f.Name]
		if !present {
			return errors.FieldMissing(errors.PhaseEncode, path, f.Name)
		}
		raw, err := packedFieldBits(f, fv, fpath)
		if err != nil {
			return err
		}
		bits |= raw << shift
		shift += uint(f.Bits)
	}
	return st.writeUint(s.Backing.Kind, bits, path)
}

func packedFieldBits(f shape.Field, v any, path []string) (uint64, error) {
	mask := uint64(math.MaxUint64)
	if f.Bits < 64 {
		mask = 1<<f.Bits - 1
	}
	if f.Shape.Kind == shape.KindBool {
		b, ok := v.(bool)
		if !ok {
			return 0, errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), "bool")
		}
		if b {
			return 1, nil
		}
		return 0, nil
	}
	if f.Shape.Kind.IsSigned() {
		i, ok := wire.CoerceToInt64(v)
		if !ok || !wire.FitsSigned(i, int(f.Bits)) {
			return 0, numberError(path, v, "s"+strconv.Itoa(int(f.Bits)))
		}
		return uint64(i) & mask, nil
	}
	u, ok := wire.CoerceToUint64(v)
	if !ok || !wire.FitsUnsigned(u, int(f.Bits)) {
		return 0, numberError(path, v, "u"+strconv.Itoa(int(f.Bits)))
	}
	return u, nil
}

// numberError reports an overflow for numbers and a mismatch otherwise.
func numberError(path []string, v any, target string) error {
	if _, isNum := wire.CoerceToFloat64(v); isNum {
		return errors.Overflow(errors.PhaseEncode, path, v, target)
	}
	if _, isInt := wire.CoerceToInt64(v); isInt {
		return errors.Overflow(errors.PhaseEncode, path, v, target)
	}
	return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), target)
}

func (st *encodeState) encodeEnum(s *shape.Shape, v any, path []string) error {
	m, err := enumMember(s, v, path)
	if err != nil {
		return err
	}
	return st.writeUint(s.Backing.Kind, uint64(m.Value), path)
}

// enumMember resolves v, a member name or its integer value.
func enumMember(s *shape.Shape, v any, path []string) (shape.Member, error) {
	if name, ok := v.(string); ok {
		if m, found := s.Member(name); found {
			return m, nil
		}
		return shape.Member{}, errors.InvalidDiscriminant(errors.PhaseEncode, path, name, s.String())
	}
	if i, ok := wire.CoerceToInt64(v); ok {
		if m, found := s.MemberByValue(i); found {
			return m, nil
		}
		return shape.Member{}, errors.InvalidDiscriminant(errors.PhaseEncode, path, v, s.String())
	}
	return shape.Member{}, errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), s.String())
}

func (st *encodeState) encodeUnion(s *shape.Shape, v any, path []string) error {
	var u value.Union
	switch x := v.(type) {
	case value.Union:
		u = x
	case *value.Union:
		if x == nil {
			return errors.TypeMismatch(errors.PhaseEncode, path, "nil", s.String())
		}
		u = *x
	case string:
		u = value.Union{Case: x}
	default:
		return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), s.String())
	}
	c, ok := s.Case(u.Case)
	if !ok {
		return errors.InvalidDiscriminant(errors.PhaseEncode, path, u.Case, s.String())
	}
	if err := st.encodeEnum(s.Tag, u.Case, path); err != nil {
		return err
	}
	if c.Shape == nil {
		return nil
	}
	return st.encode(c.Shape, u.Value, appendPath(path, u.Case))
}

func (st *encodeState) encodeFallible(s *shape.Shape, v any, path []string) error {
	var f value.Fallible
	switch x := v.(type) {
	case value.Fallible:
		f = x
	case *value.Fallible:
		if x != nil {
			f = *x
		}
	case error:
		f = value.Fail(x)
	default:
		f = value.Ok(v)
	}

	if f.Err != nil {
		if err := st.writeFlag(1, path); err != nil {
			return err
		}
		return st.encodeErrorCode(s.Errors, f.Err, path)
	}
	if err := st.writeFlag(0, path); err != nil {
		return err
	}
	if s.Elem == nil {
		return nil
	}
	return st.encode(s.Elem, f.Value, path)
}

// encodeErrorCode writes the domain's code for err. The code always comes
// from the error set, never from the value.
func (st *encodeState) encodeErrorCode(s *shape.Shape, v any, path []string) error {
	err, ok := v.(error)
	if !ok {
		return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), s.String())
	}
	var ve *value.Error
	if !stderrors.As(err, &ve) {
		return errors.New(errors.PhaseEncode, errors.KindInvalidErrorCode).
			Path(path...).
			ShapeType(s.String()).
			Cause(err).
			Detail("error is not a member of the error set").
			Build()
	}
	m, found := s.Member(ve.Name)
	if !found && ve.Name == "" {
		m, found = s.MemberByValue(int64(ve.Code))
	}
	if !found {
		return errors.New(errors.PhaseEncode, errors.KindInvalidErrorCode).
			Path(path...).
			ShapeType(s.String()).
			Value(ve.Name).
			Detail("error %q is not a member of the error set", ve.Name).
			Build()
	}
	return st.writeUint(s.Backing.Kind, uint64(m.Value), path)
}

// sequence is a uniform view over the Go values accepted for arrays,
// slices and lists.
type sequence struct {
	rv    reflect.Value
	items []any
	bytes []byte
	n     int
}

func asSequence(v any) (sequence, bool) {
	switch x := v.(type) {
	case nil:
		return sequence{}, true
	case []any:
		return sequence{items: x, n: len(x)}, true
	case []byte:
		return sequence{bytes: x, n: len(x)}, true
	case string:
		return sequence{bytes: []byte(x), n: len(x)}, true
	case *value.List:
		if x == nil {
			return sequence{}, true
		}
		return sequence{items: x.Items, n: len(x.Items)}, true
	case value.List:
		return sequence{items: x.Items, n: len(x.Items)}, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return sequence{rv: rv, n: rv.Len()}, true
	}
	return sequence{}, false
}

func (s sequence) at(i int) any {
	switch {
	case s.items != nil:
		return s.items[i]
	case s.bytes != nil:
		return s.bytes[i]
	default:
		return s.rv.Index(i).Interface()
	}
}
