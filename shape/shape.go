package shape

import (
	"strconv"

	"github.com/wippyai/shape-codec/value"
)

// Indexing selects the framing of an associative container.
type Indexing uint8

const (
	// Hashed containers write a trailing false sentinel after the entries
	// and do not preserve insertion order.
	Hashed Indexing = iota
	// Ordered containers preserve insertion order and have no sentinel.
	Ordered
)

func (i Indexing) String() string {
	if i == Ordered {
		return "ordered"
	}
	return "hashed"
}

// ContextFactory rebuilds a container's hashing context from its decoded
// state. state is nil when the shape has no Context.
type ContextFactory func(state any) (value.Context, error)

// Shape describes the wire layout of a type. A Shape is built once,
// validated, and never mutated afterwards.
type Shape struct {
	Elem        *Shape // array, slice, optional, list element; fallible payload
	Backing     *Shape // enum, packed and errorset integer
	Tag         *Shape // union discriminant (an enum shape)
	Errors      *Shape // fallible error set
	Key         *Shape
	Value       *Shape
	Context     *Shape // map context state, encoded ahead of the entries
	MakeContext ContextFactory
	Name        string
	Fields      []Field
	Members     []Member
	Cases       []Case
	Len         uint64
	Kind        Kind
	Indexing    Indexing
	Borrowed    bool // slice: bytes may alias the decode buffer
	Text        bool // slice of u8 decoded as a Go string
	Managed     bool // list binds the decoding allocator
}

// Field is a struct field, or a bit field of a packed struct.
type Field struct {
	Shape *Shape
	Name  string
	Bits  uint8 // packed only
}

// Member is a named enum value or error-set code.
type Member struct {
	Name  string
	Value int64
}

// Case is a union variant. A nil Shape means a void payload.
type Case struct {
	Shape *Shape
	Name  string
}

var (
	boolShape = &Shape{Kind: KindBool}
	u8Shape   = &Shape{Kind: KindU8}
	s8Shape   = &Shape{Kind: KindS8}
	u16Shape  = &Shape{Kind: KindU16}
	s16Shape  = &Shape{Kind: KindS16}
	u32Shape  = &Shape{Kind: KindU32}
	s32Shape  = &Shape{Kind: KindS32}
	u64Shape  = &Shape{Kind: KindU64}
	s64Shape  = &Shape{Kind: KindS64}
	f32Shape  = &Shape{Kind: KindF32}
	f64Shape  = &Shape{Kind: KindF64}
	voidShape = &Shape{Kind: KindVoid}
)

func Bool() *Shape { return boolShape }
func U8() *Shape   { return u8Shape }
func S8() *Shape   { return s8Shape }
func U16() *Shape  { return u16Shape }
func S16() *Shape  { return s16Shape }
func U32() *Shape  { return u32Shape }
func S32() *Shape  { return s32Shape }
func U64() *Shape  { return u64Shape }
func S64() *Shape  { return s64Shape }
func F32() *Shape  { return f32Shape }
func F64() *Shape  { return f64Shape }
func Void() *Shape { return voidShape }

// Primitive returns the shared shape for a primitive kind, or nil.
func Primitive(k Kind) *Shape {
	switch k {
	case KindBool:
		return boolShape
	case KindU8:
		return u8Shape
	case KindS8:
		return s8Shape
	case KindU16:
		return u16Shape
	case KindS16:
		return s16Shape
	case KindU32:
		return u32Shape
	case KindS32:
		return s32Shape
	case KindU64:
		return u64Shape
	case KindS64:
		return s64Shape
	case KindF32:
		return f32Shape
	case KindF64:
		return f64Shape
	case KindVoid:
		return voidShape
	}
	return nil
}

// Array is a fixed-length sequence; no length is written.
func Array(n uint64, elem *Shape) *Shape {
	return &Shape{Kind: KindArray, Len: n, Elem: elem}
}

// Slice is a u64 length-prefixed sequence decoded into owned storage.
func Slice(elem *Shape) *Shape {
	return &Shape{Kind: KindSlice, Elem: elem}
}

// BorrowedSlice is a Slice whose byte payload may alias the decode buffer.
func BorrowedSlice(elem *Shape) *Shape {
	return &Shape{Kind: KindSlice, Elem: elem, Borrowed: true}
}

// Bytes is a slice of u8.
func Bytes() *Shape {
	return Slice(u8Shape)
}

// String is a slice of u8 surfaced as a Go string.
func String() *Shape {
	return &Shape{Kind: KindSlice, Elem: u8Shape, Text: true, Name: "string"}
}

// F declares a struct field.
func F(name string, s *Shape) Field {
	return Field{Name: name, Shape: s}
}

// Struct is an aggregate encoded as its fields in declaration order.
func Struct(name string, fields ...Field) *Shape {
	return &Shape{Kind: KindStruct, Name: name, Fields: fields}
}

// Tuple is a struct whose fields are named by position.
func Tuple(elems ...*Shape) *Shape {
	fields := make([]Field, len(elems))
	for i, e := range elems {
		fields[i] = Field{Name: strconv.Itoa(i), Shape: e}
	}
	return &Shape{Kind: KindStruct, Fields: fields}
}

// Flag declares a one-bit boolean field of a packed struct.
func Flag(name string) Field {
	return Field{Name: name, Shape: boolShape, Bits: 1}
}

// UintBits declares an unsigned bit field of a packed struct. The decoded
// value uses the smallest Go unsigned type that holds bits.
func UintBits(name string, bits uint8) Field {
	return Field{Name: name, Shape: Primitive(intKindFor(bits, false)), Bits: bits}
}

// IntBits declares a signed, sign-extended bit field of a packed struct.
func IntBits(name string, bits uint8) Field {
	return Field{Name: name, Shape: Primitive(intKindFor(bits, true)), Bits: bits}
}

func intKindFor(bits uint8, signed bool) Kind {
	switch {
	case bits <= 8:
		if signed {
			return KindS8
		}
		return KindU8
	case bits <= 16:
		if signed {
			return KindS16
		}
		return KindU16
	case bits <= 32:
		if signed {
			return KindS32
		}
		return KindU32
	default:
		if signed {
			return KindS64
		}
		return KindU64
	}
}

// Packed collapses bit fields into one backing integer, filled from the
// least significant bit in declaration order.
func Packed(name string, backing *Shape, fields ...Field) *Shape {
	return &Shape{Kind: KindPacked, Name: name, Backing: backing, Fields: fields}
}

// Optional is a presence byte followed by the inner encoding when present.
func Optional(elem *Shape) *Shape {
	return &Shape{Kind: KindOptional, Elem: elem}
}

// M declares an enum member or error-set code.
func M(name string, v int64) Member {
	return Member{Name: name, Value: v}
}

// Ordinals declares members numbered from zero in order.
func Ordinals(names ...string) []Member {
	members := make([]Member, len(names))
	for i, n := range names {
		members[i] = Member{Name: n, Value: int64(i)}
	}
	return members
}

// Enum encodes the member value in the backing integer.
func Enum(name string, backing *Shape, members ...Member) *Shape {
	return &Shape{Kind: KindEnum, Name: name, Backing: backing, Members: members}
}

// C declares a union case. A nil payload is void.
func C(name string, payload *Shape) Case {
	return Case{Name: name, Shape: payload}
}

// Union encodes the tag enum member for the active case followed by its
// payload.
func Union(name string, tag *Shape, cases ...Case) *Shape {
	return &Shape{Kind: KindUnion, Name: name, Tag: tag, Cases: cases}
}

// TaggedUnion builds the tag enum from the case names, numbered from zero
// with the narrowest unsigned backing that fits.
func TaggedUnion(name string, cases ...Case) *Shape {
	names := make([]string, len(cases))
	for i, c := range cases {
		names[i] = c.Name
	}
	tag := Enum(name+".tag", DiscriminantFor(len(cases)), Ordinals(names...)...)
	return Union(name, tag, cases...)
}

// DiscriminantFor returns u8 for up to 256 members, u16 up to 65536,
// otherwise u32.
func DiscriminantFor(n int) *Shape {
	if n <= 1<<8 {
		return u8Shape
	} else if n <= 1<<16 {
		return u16Shape
	}
	return u32Shape
}

// ErrorSet is a finite set of named errors with stable u16 codes.
func ErrorSet(name string, members ...Member) *Shape {
	return &Shape{Kind: KindErrorSet, Name: name, Backing: u16Shape, Members: members}
}

// Fallible is a flag byte (0 value, 1 error) followed by the payload or the
// error code. A nil payload is void.
func Fallible(errs, payload *Shape) *Shape {
	return &Shape{Kind: KindFallible, Errors: errs, Elem: payload}
}

// List is a growable list. Decoding allocates exactly the encoded length.
func List(elem *Shape) *Shape {
	return &Shape{Kind: KindList, Elem: elem}
}

// ManagedList is a List that binds the decoding allocator.
func ManagedList(elem *Shape) *Shape {
	return &Shape{Kind: KindList, Elem: elem, Managed: true}
}

// HashMap is a hash-indexed container with a trailing sentinel.
func HashMap(key, val *Shape) *Shape {
	return &Shape{Kind: KindMap, Indexing: Hashed, Key: key, Value: val}
}

// OrderedMap is an insertion-ordered container.
func OrderedMap(key, val *Shape) *Shape {
	return &Shape{Kind: KindMap, Indexing: Ordered, Key: key, Value: val}
}

// WithContext returns a copy of a map shape that serializes the hashing
// context state (shaped by state) ahead of the entries and rebuilds it with
// factory on decode. state may be nil for stateless custom contexts.
func (s *Shape) WithContext(state *Shape, factory ContextFactory) *Shape {
	c := *s
	c.Context = state
	c.MakeContext = factory
	return &c
}

// Named returns a copy of s carrying a diagnostic name.
func (s *Shape) Named(name string) *Shape {
	c := *s
	c.Name = name
	return &c
}

// Member looks up an enum member or error-set code by name.
func (s *Shape) Member(name string) (Member, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// MemberByValue looks up an enum member or error-set code by value.
func (s *Shape) MemberByValue(v int64) (Member, bool) {
	for _, m := range s.Members {
		if m.Value == v {
			return m, true
		}
	}
	return Member{}, false
}

// Case looks up a union case by name.
func (s *Shape) Case(name string) (Case, bool) {
	for _, c := range s.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return Case{}, false
}

// Field looks up a struct field by name.
func (s *Shape) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsPrimitive reports whether s is a fixed-width scalar.
func (s *Shape) IsPrimitive() bool {
	return s.Kind.IsPrimitive()
}

// IsBytes reports whether s is a sequence of u8.
func (s *Shape) IsBytes() bool {
	return (s.Kind == KindSlice || s.Kind == KindArray) && s.Elem != nil && s.Elem.Kind == KindU8
}
