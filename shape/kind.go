package shape

type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindS8
	KindU16
	KindS16
	KindU32
	KindS32
	KindU64
	KindS64
	KindF32
	KindF64
	KindVoid
	KindArray
	KindSlice
	KindStruct
	KindPacked
	KindOptional
	KindEnum
	KindUnion
	KindFallible
	KindErrorSet
	KindList
	KindMap
)

var kindNames = [...]string{
	KindBool:     "bool",
	KindU8:       "u8",
	KindS8:       "s8",
	KindU16:      "u16",
	KindS16:      "s16",
	KindU32:      "u32",
	KindS32:      "s32",
	KindU64:      "u64",
	KindS64:      "s64",
	KindF32:      "f32",
	KindF64:      "f64",
	KindVoid:     "void",
	KindArray:    "array",
	KindSlice:    "slice",
	KindStruct:   "struct",
	KindPacked:   "packed",
	KindOptional: "optional",
	KindEnum:     "enum",
	KindUnion:    "union",
	KindFallible: "fallible",
	KindErrorSet: "errorset",
	KindList:     "list",
	KindMap:      "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) IsPrimitive() bool {
	return k <= KindF64
}

// IsInteger reports whether k is a fixed-width integer kind.
func (k Kind) IsInteger() bool {
	return k >= KindU8 && k <= KindS64
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	switch k {
	case KindS8, KindS16, KindS32, KindS64:
		return true
	}
	return false
}

// Size is the wire width in bytes of a primitive kind, 0 otherwise.
func (k Kind) Size() int {
	switch k {
	case KindBool, KindU8, KindS8:
		return 1
	case KindU16, KindS16:
		return 2
	case KindU32, KindS32, KindF32:
		return 4
	case KindU64, KindS64, KindF64:
		return 8
	default:
		return 0
	}
}

// Bits is the wire width in bits of a primitive kind.
func (k Kind) Bits() int {
	return k.Size() * 8
}
