package transcoder

import (
	stderrors "errors"
	"io"

	shapecodec "github.com/wippyai/shape-codec"
	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/transcoder/internal/wire"
	"github.com/wippyai/shape-codec/value"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
)

// Decoder reconstructs values from the wire format. A Decoder holds only
// configuration and is safe for concurrent use.
type Decoder struct {
	compiler  *Compiler
	maxLength uint64
}

func NewDecoder(opts ...Option) *Decoder {
	cfg := newConfig(opts)
	return &Decoder{compiler: cfg.compiler, maxLength: cfg.maxLength}
}

// Decode reads exactly the bytes the encoding of s occupies from r. Storage
// for slices, lists and containers is reserved from alloc; a nil alloc is
// the unbounded Heap. On failure every reservation made by this call is
// freed before the error is returned. On success the reservations belong
// to the returned value; see Release.
func (d *Decoder) Decode(r io.Reader, s *shape.Shape, alloc Allocator) (any, error) {
	if err := d.compiler.Check(s); err != nil {
		return nil, err
	}
	if alloc == nil {
		alloc = shapecodec.Heap
	}
	st := decodeState{
		r:         r,
		alloc:     alloc,
		allocs:    NewAllocationList(),
		maxLength: d.maxLength,
	}
	st.buf, _ = r.(*bufferSource)

	v, err := st.decode(s, nil)
	if err != nil {
		if n := st.allocs.Count(); n > 0 {
			Logger().Debug("decode failed, freeing reservations",
				zap.Int("count", n),
				zap.Uint64("bytes", st.allocs.Total()),
				zap.Error(err))
		}
		st.allocs.FreeAndRelease(alloc)
		return nil, err
	}
	st.allocs.Release()
	for _, d := range st.discarded {
		release(d.shape, d.value, alloc)
	}
	return v, nil
}

// DecodeWIT decodes against the shape compiled from a WIT type.
func (d *Decoder) DecodeWIT(r io.Reader, t wit.Type, alloc Allocator) (any, error) {
	s, err := d.compiler.CompileWIT(t)
	if err != nil {
		return nil, err
	}
	return d.Decode(r, s, alloc)
}

type decodeState struct {
	r         io.Reader
	buf       *bufferSource
	alloc     Allocator
	allocs    *AllocationList
	discarded []discarded
	maxLength uint64
	scratch   [8]byte
}

// discarded is a decoded value that did not make it into the result,
// such as the value replaced by a duplicate map key.
type discarded struct {
	shape *shape.Shape
	value any
}

// discard queues v for release once the decode succeeds. A failed decode
// frees its whole allocation list instead.
func (st *decodeState) discard(s *shape.Shape, v any) {
	st.discarded = append(st.discarded, discarded{shape: s, value: v})
}

// read fills p or fails with EndOfInput. Any other source error is an I/O
// failure.
func (st *decodeState) read(p []byte, path []string) error {
	n, err := io.ReadFull(st.r, p)
	if err == nil {
		return nil
	}
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.EndOfInput(path, len(p), n)
	}
	return errors.IO(errors.PhaseDecode, path, err)
}

func (st *decodeState) readUint(k shape.Kind, path []string) (uint64, error) {
	size := k.Size()
	if err := st.read(st.scratch[:size], path); err != nil {
		return 0, err
	}
	return wire.Uint(st.scratch[:size], size), nil
}

func (st *decodeState) readFlag(path []string) (byte, error) {
	if err := st.read(st.scratch[:1], path); err != nil {
		return 0, err
	}
	return st.scratch[0], nil
}

// readLength reads a u64 length prefix and rejects values above the limit
// before anything is allocated.
func (st *decodeState) readLength(s *shape.Shape, path []string) (int, error) {
	n, err := st.readUint(shape.KindU64, path)
	if err != nil {
		return 0, err
	}
	if n > st.maxLength {
		return 0, errors.New(errors.PhaseDecode, errors.KindOverflow).
			Path(path...).
			ShapeType(s.String()).
			Value(n).
			Detail("length %d exceeds maximum %d", n, st.maxLength).
			Build()
	}
	return int(n), nil
}

// reserve charges n units of elem storage to the allocator.
func (st *decodeState) reserve(n int, unit uint64, path []string) (uint64, error) {
	size, ok := wire.SafeMulU64(uint64(n), unit)
	if !ok || size > wire.MaxAlloc {
		return 0, errors.New(errors.PhaseDecode, errors.KindAllocation).
			Path(path...).
			Detail("reservation of %d x %d bytes exceeds limit", n, unit).
			Build()
	}
	if err := st.allocs.Reserve(st.alloc, size); err != nil {
		return 0, withPath(err, path)
	}
	return size, nil
}

// withPath attaches path to a structured error that has none.
func withPath(err error, path []string) error {
	var e *errors.Error
	if stderrors.As(err, &e) && len(e.Path) == 0 && len(path) > 0 {
		c := *e
		c.Path = path
		return &c
	}
	return err
}

// unitSize is the storage charged per element: the wire width for
// primitives, one interface slot otherwise.
func unitSize(s *shape.Shape) uint64 {
	if size := s.Kind.Size(); size > 0 {
		return uint64(size)
	}
	return 16
}

func (st *decodeState) decode(s *shape.Shape, path []string) (any, error) {
	switch s.Kind {
	case shape.KindMap:
		return st.decodeMap(s, path)
	case shape.KindList:
		return st.decodeList(s, path)
	case shape.KindBool, shape.KindU8, shape.KindS8, shape.KindU16, shape.KindS16,
		shape.KindU32, shape.KindS32, shape.KindU64, shape.KindS64, shape.KindF32, shape.KindF64:
		return st.decodePrimitive(s.Kind, path)
	case shape.KindVoid:
		return struct{}{}, nil
	case shape.KindArray:
		return st.decodeArray(s, path)
	case shape.KindSlice:
		return st.decodeSlice(s, path)
	case shape.KindStruct:
		return st.decodeStruct(s, path)
	case shape.KindPacked:
		return st.decodePacked(s, path)
	case shape.KindOptional:
		return st.decodeOptional(s, path)
	case shape.KindEnum:
		m, err := st.decodeEnum(s, path)
		if err != nil {
			return nil, err
		}
		return m.Name, nil
	case shape.KindUnion:
		return st.decodeUnion(s, path)
	case shape.KindFallible:
		return st.decodeFallible(s, path)
	case shape.KindErrorSet:
		return st.decodeErrorCode(s, path)
	default:
		return nil, errors.Unsupported(errors.PhaseDecode, "shape kind "+s.Kind.String())
	}
}

func (st *decodeState) decodeArray(s *shape.Shape, path []string) (any, error) {
	if s.Len > st.maxLength {
		return nil, errors.New(errors.PhaseDecode, errors.KindOverflow).
			Path(path...).
			Detail("array length %d exceeds maximum %d", s.Len, st.maxLength).
			Build()
	}
	n := int(s.Len)
	if s.Elem.Kind == shape.KindU8 {
		b := make([]byte, n)
		if err := st.read(b, path); err != nil {
			return nil, err
		}
		return b, nil
	}
	return st.decodeElements(s.Elem, n, path)
}

func (st *decodeState) decodeSlice(s *shape.Shape, path []string) (any, error) {
	n, err := st.readLength(s, path)
	if err != nil {
		return nil, err
	}
	if s.Elem.Kind == shape.KindU8 {
		b, err := st.decodeBytes(s, n, path)
		if err != nil {
			return nil, err
		}
		if s.Text {
			return string(b), nil
		}
		return b, nil
	}
	if err := st.ensure(n, minWireSize(s.Elem), path); err != nil {
		return nil, err
	}
	if _, err := st.reserve(n, unitSize(s.Elem), path); err != nil {
		return nil, err
	}
	return st.decodeElements(s.Elem, n, path)
}

// decodeBytes reads a byte payload. Borrowed byte views are never charged
// to the allocator; decoded from a buffer they alias it.
func (st *decodeState) decodeBytes(s *shape.Shape, n int, path []string) ([]byte, error) {
	borrowed := s.Borrowed && !s.Text
	if st.buf != nil {
		if n > st.buf.Len() {
			return nil, errors.EndOfInput(path, n, st.buf.Len())
		}
		if borrowed {
			return st.buf.Next(n), nil
		}
	}
	if !borrowed {
		if _, err := st.reserve(n, 1, path); err != nil {
			return nil, err
		}
	}
	b := make([]byte, n)
	if err := st.read(b, path); err != nil {
		return nil, err
	}
	return b, nil
}

func (st *decodeState) decodeElements(elem *shape.Shape, n int, path []string) ([]any, error) {
	items := make([]any, n)
	for i := range items {
		v, err := st.decode(elem, indexPath(path, i))
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func (st *decodeState) decodeStruct(s *shape.Shape, path []string) (any, error) {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, err := st.decode(f.Shape, appendPath(path, f.Name))
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func (st *decodeState) decodePacked(s *shape.Shape, path []string) (any, error) {
	bits, err := st.readUint(s.Backing.Kind, path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(s.Fields))
	shift := uint(0)
	for _, f := range s.Fields {
		raw := bits >> shift
		if f.Bits < 64 {
			raw &= 1<<f.Bits - 1
		}
		shift += uint(f.Bits)
		switch {
		case f.Shape.Kind == shape.KindBool:
			out[f.Name] = raw != 0
		case f.Shape.Kind.IsSigned():
			out[f.Name] = intValue(f.Shape.Kind, uint64(wire.SignExtend(raw, int(f.Bits))))
		default:
			out[f.Name] = intValue(f.Shape.Kind, raw)
		}
	}
	return out, nil
}

func (st *decodeState) decodeOptional(s *shape.Shape, path []string) (any, error) {
	flag, err := st.readFlag(path)
	if err != nil {
		return nil, err
	}
	switch flag {
	case 0:
		return nil, nil
	case 1:
		v, err := st.decode(s.Elem, path)
		if err != nil {
			return nil, err
		}
		if s.Elem.Kind == shape.KindOptional {
			return value.Some{Value: v}, nil
		}
		return v, nil
	default:
		return nil, errors.InvalidDiscriminant(errors.PhaseDecode, path, flag, s.String())
	}
}

func (st *decodeState) decodeEnum(s *shape.Shape, path []string) (shape.Member, error) {
	bits, err := st.readUint(s.Backing.Kind, path)
	if err != nil {
		return shape.Member{}, err
	}
	m, ok := s.MemberByValue(signedValue(s.Backing.Kind, bits))
	if !ok {
		return shape.Member{}, errors.InvalidDiscriminant(errors.PhaseDecode, path, intValue(s.Backing.Kind, bits), s.String())
	}
	return m, nil
}

func (st *decodeState) decodeUnion(s *shape.Shape, path []string) (any, error) {
	tag, err := st.decodeEnum(s.Tag, path)
	if err != nil {
		return nil, err
	}
	c, _ := s.Case(tag.Name)
	u := value.Union{Case: c.Name}
	if c.Shape != nil {
		if u.Value, err = st.decode(c.Shape, appendPath(path, c.Name)); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (st *decodeState) decodeFallible(s *shape.Shape, path []string) (any, error) {
	flag, err := st.readFlag(path)
	if err != nil {
		return nil, err
	}
	switch flag {
	case 0:
		if s.Elem == nil {
			return value.Fallible{}, nil
		}
		v, err := st.decode(s.Elem, path)
		if err != nil {
			return nil, err
		}
		return value.Ok(v), nil
	case 1:
		e, err := st.decodeErrorCode(s.Errors, path)
		if err != nil {
			return nil, err
		}
		return value.Fail(e), nil
	default:
		return nil, errors.InvalidDiscriminant(errors.PhaseDecode, path, flag, s.String())
	}
}

func (st *decodeState) decodeErrorCode(s *shape.Shape, path []string) (*value.Error, error) {
	code, err := st.readUint(s.Backing.Kind, path)
	if err != nil {
		return nil, err
	}
	m, ok := s.MemberByValue(int64(code))
	if !ok {
		return nil, errors.InvalidErrorCode(path, code, s.String())
	}
	return &value.Error{Name: m.Name, Code: uint64(m.Value)}, nil
}

// ensure fails early when a buffer cannot hold n elements of at least
// unit bytes each, so a corrupt length never sizes an allocation.
func (st *decodeState) ensure(n int, unit uint64, path []string) error {
	if st.buf == nil || unit == 0 {
		return nil
	}
	need, ok := wire.SafeMulU64(uint64(n), unit)
	if !ok || need > uint64(st.buf.Len()) {
		return errors.New(errors.PhaseDecode, errors.KindEndOfInput).
			Path(path...).
			Detail("%d elements need at least %d bytes, %d remain", n, need, st.buf.Len()).
			Build()
	}
	return nil
}

// minWireSize is the smallest encoding any value of s can have.
func minWireSize(s *shape.Shape) uint64 {
	if s == nil {
		return 0
	}
	switch s.Kind {
	case shape.KindArray:
		return s.Len * minWireSize(s.Elem)
	case shape.KindSlice, shape.KindList:
		return 8
	case shape.KindMap:
		n := uint64(8) + minWireSize(s.Context)
		if s.Indexing == shape.Hashed {
			n++
		}
		return n
	case shape.KindStruct:
		var n uint64
		for _, f := range s.Fields {
			n += minWireSize(f.Shape)
		}
		return n
	case shape.KindOptional, shape.KindFallible:
		return 1
	case shape.KindEnum, shape.KindPacked, shape.KindErrorSet:
		return uint64(s.Backing.Kind.Size())
	case shape.KindUnion:
		return uint64(s.Tag.Backing.Kind.Size())
	}
	return uint64(s.Kind.Size())
}
