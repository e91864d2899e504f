package shape

import (
	"strconv"
	"strings"
)

// String renders s in a compact type syntax, e.g.
// "struct point{x: s32, y: s32}" or "map<string, list<u8>>". Named
// shapes met a second time print only their name, which keeps recursive
// descriptors finite.
func (s *Shape) String() string {
	var b strings.Builder
	writeShape(&b, s, make(map[*Shape]bool))
	return b.String()
}

func writeShape(b *strings.Builder, s *Shape, seen map[*Shape]bool) {
	if s == nil {
		b.WriteString("void")
		return
	}
	if s.Kind.IsPrimitive() || s.Kind == KindVoid {
		b.WriteString(s.Kind.String())
		return
	}
	if seen[s] {
		if s.Name != "" {
			b.WriteString(s.Name)
		} else {
			b.WriteString("...")
		}
		return
	}
	seen[s] = true
	defer delete(seen, s)

	if s.Text {
		b.WriteString("string")
		return
	}

	switch s.Kind {
	case KindArray:
		b.WriteString("[")
		b.WriteString(strconv.FormatUint(s.Len, 10))
		b.WriteString("]")
		writeShape(b, s.Elem, seen)
	case KindSlice:
		if s.Borrowed {
			b.WriteString("&")
		}
		b.WriteString("[]")
		writeShape(b, s.Elem, seen)
	case KindList:
		b.WriteString("list<")
		writeShape(b, s.Elem, seen)
		b.WriteString(">")
	case KindOptional:
		b.WriteString("?")
		writeShape(b, s.Elem, seen)
	case KindStruct, KindPacked:
		b.WriteString(s.Kind.String())
		if s.Name != "" {
			b.WriteString(" ")
			b.WriteString(s.Name)
		}
		if s.Kind == KindPacked && s.Backing != nil {
			b.WriteString("(")
			b.WriteString(s.Backing.Kind.String())
			b.WriteString(")")
		}
		b.WriteString("{")
		for i, f := range s.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			writeShape(b, f.Shape, seen)
			if s.Kind == KindPacked {
				b.WriteString(":")
				b.WriteString(strconv.Itoa(int(f.Bits)))
			}
		}
		b.WriteString("}")
	case KindEnum, KindErrorSet:
		b.WriteString(s.Kind.String())
		if s.Name != "" {
			b.WriteString(" ")
			b.WriteString(s.Name)
		}
		b.WriteString("{")
		for i, m := range s.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.Name)
			b.WriteString("=")
			b.WriteString(strconv.FormatInt(m.Value, 10))
		}
		b.WriteString("}")
	case KindUnion:
		b.WriteString("union")
		if s.Name != "" {
			b.WriteString(" ")
			b.WriteString(s.Name)
		}
		b.WriteString("{")
		for i, c := range s.Cases {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			if c.Shape != nil && c.Shape.Kind != KindVoid {
				b.WriteString("(")
				writeShape(b, c.Shape, seen)
				b.WriteString(")")
			}
		}
		b.WriteString("}")
	case KindFallible:
		b.WriteString("fallible<")
		writeShape(b, s.Elem, seen)
		b.WriteString(", ")
		if s.Errors != nil && s.Errors.Name != "" {
			b.WriteString(s.Errors.Name)
		} else {
			writeShape(b, s.Errors, seen)
		}
		b.WriteString(">")
	case KindMap:
		b.WriteString(s.Indexing.String())
		b.WriteString("<")
		writeShape(b, s.Key, seen)
		b.WriteString(", ")
		writeShape(b, s.Value, seen)
		b.WriteString(">")
	default:
		b.WriteString(s.Kind.String())
	}
}
