package shape

import (
	"math"
	"strconv"

	"github.com/wippyai/shape-codec/errors"
)

// Validate checks the construction contract of s and everything it
// reaches. It rejects cycles, unknown kinds, malformed member tables, and
// a bare error set at the root: error sets are only encodable as a struct
// field or as the error half of a fallible.
func Validate(s *Shape) error {
	if s != nil && s.Kind == KindErrorSet {
		return errors.New(errors.PhaseCompile, errors.KindUnsupported).
			ShapeType(s.String()).
			Detail("error set cannot be encoded or decoded as a top-level shape").
			Build()
	}
	v := validator{
		visiting: make(map[*Shape]bool),
		done:     make(map[*Shape]bool),
	}
	return v.check(s, nil, false)
}

type validator struct {
	visiting map[*Shape]bool
	done     map[*Shape]bool
}

func childPath(path []string, seg string) []string {
	return append(append([]string{}, path...), seg)
}

func (v *validator) check(s *Shape, path []string, errorSetOK bool) error {
	if s == nil {
		return errors.InvalidShape(path, "nil shape")
	}
	if s.Kind == KindErrorSet && !errorSetOK {
		return errors.InvalidShape(path, "error set is only allowed as a struct field or fallible error type")
	}
	if v.visiting[s] {
		return errors.InvalidShape(path, "self-referential shape")
	}
	if v.done[s] {
		return nil
	}
	v.visiting[s] = true
	defer delete(v.visiting, s)

	if err := v.checkKind(s, path); err != nil {
		return err
	}
	v.done[s] = true
	return nil
}

func (v *validator) checkKind(s *Shape, path []string) error {
	switch s.Kind {
	case KindBool, KindU8, KindS8, KindU16, KindS16, KindU32, KindS32,
		KindU64, KindS64, KindF32, KindF64, KindVoid:
		return nil

	case KindArray:
		return v.check(s.Elem, childPath(path, "[elem]"), false)

	case KindSlice:
		if s.Text && (s.Elem == nil || s.Elem.Kind != KindU8) {
			return errors.InvalidShape(path, "text slice must have u8 elements")
		}
		return v.check(s.Elem, childPath(path, "[elem]"), false)

	case KindList:
		return v.check(s.Elem, childPath(path, "[elem]"), false)

	case KindStruct:
		seen := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if f.Name == "" {
				return errors.InvalidShape(path, "struct field without a name")
			}
			if seen[f.Name] {
				return errors.InvalidShape(path, "duplicate field %q", f.Name)
			}
			seen[f.Name] = true
			if err := v.check(f.Shape, childPath(path, f.Name), true); err != nil {
				return err
			}
		}
		return nil

	case KindPacked:
		return v.checkPacked(s, path)

	case KindOptional:
		return v.check(s.Elem, childPath(path, "[some]"), false)

	case KindEnum:
		if s.Backing == nil || !s.Backing.Kind.IsInteger() {
			return errors.InvalidShape(path, "enum backing must be an integer")
		}
		if len(s.Members) == 0 {
			return errors.InvalidShape(path, "enum has no members")
		}
		return checkMembers(s, path)

	case KindErrorSet:
		if s.Backing == nil || !s.Backing.Kind.IsInteger() || s.Backing.Kind.IsSigned() {
			return errors.InvalidShape(path, "error set codes must use an unsigned integer")
		}
		return checkMembers(s, path)

	case KindUnion:
		return v.checkUnion(s, path)

	case KindFallible:
		if s.Errors == nil || s.Errors.Kind != KindErrorSet {
			return errors.InvalidShape(path, "fallible requires an error set")
		}
		if err := v.check(s.Errors, childPath(path, "[err]"), true); err != nil {
			return err
		}
		if s.Elem == nil {
			return nil
		}
		return v.check(s.Elem, childPath(path, "[ok]"), false)

	case KindMap:
		if s.Indexing != Hashed && s.Indexing != Ordered {
			return errors.InvalidShape(path, "unknown indexing %d", s.Indexing)
		}
		if s.Context != nil && s.MakeContext == nil {
			return errors.InvalidShape(path, "map context state requires a context factory")
		}
		if s.MakeContext == nil && containsHashed(s.Key, 0) {
			return errors.InvalidShape(path, "keys containing hashed maps need a custom context")
		}
		if s.Context != nil {
			if err := v.check(s.Context, childPath(path, "[context]"), false); err != nil {
				return err
			}
		}
		if err := v.check(s.Key, childPath(path, "[key]"), false); err != nil {
			return err
		}
		return v.check(s.Value, childPath(path, "[value]"), false)

	default:
		return errors.InvalidShape(path, "unknown shape kind %d", s.Kind)
	}
}

func (v *validator) checkPacked(s *Shape, path []string) error {
	if s.Backing == nil || !s.Backing.Kind.IsInteger() || s.Backing.Kind.IsSigned() {
		return errors.InvalidShape(path, "packed backing must be an unsigned integer")
	}
	total := 0
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" || seen[f.Name] {
			return errors.InvalidShape(path, "packed field name %q is empty or repeated", f.Name)
		}
		seen[f.Name] = true
		if f.Shape == nil {
			return errors.InvalidShape(childPath(path, f.Name), "nil shape")
		}
		switch {
		case f.Shape.Kind == KindBool:
			if f.Bits != 1 {
				return errors.InvalidShape(childPath(path, f.Name), "bool bit field must be 1 bit wide")
			}
		case f.Shape.Kind.IsInteger():
			if f.Bits == 0 || int(f.Bits) > f.Shape.Kind.Bits() {
				return errors.InvalidShape(childPath(path, f.Name), "%d bits do not fit %s", f.Bits, f.Shape.Kind)
			}
		default:
			return errors.InvalidShape(childPath(path, f.Name), "packed fields must be bool or integer, got %s", f.Shape.Kind)
		}
		total += int(f.Bits)
	}
	if total > s.Backing.Kind.Bits() {
		return errors.InvalidShape(path, "bit fields need %d bits, backing %s has %d", total, s.Backing.Kind, s.Backing.Kind.Bits())
	}
	return nil
}

func (v *validator) checkUnion(s *Shape, path []string) error {
	if s.Tag == nil || s.Tag.Kind != KindEnum {
		return errors.InvalidShape(path, "union tag must be an enum")
	}
	if err := v.check(s.Tag, childPath(path, "[tag]"), false); err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.Cases))
	for _, c := range s.Cases {
		if seen[c.Name] {
			return errors.InvalidShape(path, "duplicate case %q", c.Name)
		}
		seen[c.Name] = true
		if _, ok := s.Tag.Member(c.Name); !ok {
			return errors.InvalidShape(path, "case %q has no tag member", c.Name)
		}
		if c.Shape == nil {
			continue
		}
		if err := v.check(c.Shape, childPath(path, c.Name), false); err != nil {
			return err
		}
	}
	for _, m := range s.Tag.Members {
		if !seen[m.Name] {
			return errors.InvalidShape(path, "tag member %q has no case", m.Name)
		}
	}
	return nil
}

func checkMembers(s *Shape, path []string) error {
	names := make(map[string]bool, len(s.Members))
	values := make(map[int64]string, len(s.Members))
	for _, m := range s.Members {
		if m.Name == "" || names[m.Name] {
			return errors.InvalidShape(path, "member name %q is empty or repeated", m.Name)
		}
		names[m.Name] = true
		if prev, dup := values[m.Value]; dup {
			return errors.InvalidShape(path, "members %q and %q share value %d", prev, m.Name, m.Value)
		}
		values[m.Value] = m.Name
		if !fits(m.Value, s.Backing.Kind) {
			return errors.InvalidShape(path, "member %q value %d does not fit %s", m.Name, m.Value, s.Backing.Kind)
		}
	}
	return nil
}

// fits reports whether v is representable in k. Values of a u64 backing
// are stored as their two's-complement int64 bits and always fit.
func fits(v int64, k Kind) bool {
	switch k {
	case KindU8:
		return v >= 0 && v <= math.MaxUint8
	case KindU16:
		return v >= 0 && v <= math.MaxUint16
	case KindU32:
		return v >= 0 && v <= math.MaxUint32
	case KindS8:
		return v >= math.MinInt8 && v <= math.MaxInt8
	case KindS16:
		return v >= math.MinInt16 && v <= math.MaxInt16
	case KindS32:
		return v >= math.MinInt32 && v <= math.MaxInt32
	case KindU64, KindS64:
		return true
	}
	return false
}

func containsHashed(s *Shape, depth int) bool {
	// Validation catches cycles; the depth cap only keeps this walk finite
	// when it runs first.
	if s == nil || depth > 256 {
		return false
	}
	switch s.Kind {
	case KindMap:
		return s.Indexing == Hashed || containsHashed(s.Key, depth+1) || containsHashed(s.Value, depth+1)
	case KindArray, KindSlice, KindList, KindOptional, KindFallible:
		return containsHashed(s.Elem, depth+1)
	case KindStruct:
		for _, f := range s.Fields {
			if containsHashed(f.Shape, depth+1) {
				return true
			}
		}
	case KindUnion:
		for _, c := range s.Cases {
			if containsHashed(c.Shape, depth+1) {
				return true
			}
		}
	}
	return false
}

// FieldPath returns path extended by an index segment.
func FieldPath(path []string, i int) []string {
	return childPath(path, "["+strconv.Itoa(i)+"]")
}
