package shapefile

import (
	"strconv"

	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/transcoder"
	"github.com/wippyai/shape-codec/value"
	"gopkg.in/yaml.v3"
)

// ParseValue reads one YAML document as a value of shape s, in the form
// the encoder accepts:
//
//	integers, floats, bools   plain scalars, narrowed to the shape's width
//	string                    scalar
//	bytes                     !!binary scalar, plain string, or a sequence of ints
//	array, slice, list        sequence
//	struct, packed            mapping of field to value
//	optional                  null when absent; {some: value} when the payload is optional too
//	enum, error set           member name
//	union                     case name, or {case: payload}
//	fallible                  {ok: value} or {error: name}
//	map                       mapping of key to value, or a sequence of {key, value}
func ParseValue(data []byte, s *shape.Shape) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.ParseFailed("value", err)
	}
	if doc.Kind == 0 {
		return FromNode(s, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"})
	}
	return FromNode(s, &doc)
}

// FromNode converts a YAML node into a value of shape s.
func FromNode(s *shape.Shape, n *yaml.Node) (any, error) {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, nodeError(n, "empty document")
		}
		n = n.Content[0]
	}
	return fromNode(s, n, nil)
}

func valueError(n *yaml.Node, path []string, s *shape.Shape, format string, args ...any) *errors.Error {
	e := nodeError(n, format, args...)
	e.Path = path
	e.ShapeType = s.String()
	return e
}

func child(path []string, seg string) []string {
	return append(append([]string{}, path...), seg)
}

func fromNode(s *shape.Shape, n *yaml.Node, path []string) (any, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch s.Kind {
	case shape.KindBool:
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, valueError(n, path, s, "%v", err)
		}
		return b, nil

	case shape.KindU8, shape.KindU16, shape.KindU32, shape.KindU64,
		shape.KindS8, shape.KindS16, shape.KindS32, shape.KindS64:
		return integer(s, n, path)

	case shape.KindF32:
		var f float32
		if err := n.Decode(&f); err != nil {
			return nil, valueError(n, path, s, "%v", err)
		}
		return f, nil

	case shape.KindF64:
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, valueError(n, path, s, "%v", err)
		}
		return f, nil

	case shape.KindVoid:
		return struct{}{}, nil

	case shape.KindArray, shape.KindSlice:
		return sequence(s, n, path)

	case shape.KindList:
		items, err := elements(s.Elem, n, path)
		if err != nil {
			return nil, err
		}
		return value.ListOf(items...), nil

	case shape.KindStruct, shape.KindPacked:
		if n.Kind == yaml.SequenceNode && isTuple(s) {
			return tuple(s, n, path)
		}
		if n.Kind != yaml.MappingNode {
			return nil, valueError(n, path, s, "expected a mapping")
		}
		out := make(map[string]any, len(s.Fields))
		for i := 0; i+1 < len(n.Content); i += 2 {
			name := n.Content[i].Value
			f, ok := s.Field(name)
			if !ok {
				return nil, errors.FieldUnknown(errors.PhaseParse, path, name)
			}
			fv, err := fromNode(f.Shape, n.Content[i+1], child(path, name))
			if err != nil {
				return nil, err
			}
			out[name] = fv
		}
		return out, nil

	case shape.KindOptional:
		if isNull(n) {
			return nil, nil
		}
		if s.Elem.Kind != shape.KindOptional {
			return fromNode(s.Elem, n, path)
		}
		if n.Kind != yaml.MappingNode || len(n.Content) != 2 || n.Content[0].Value != "some" {
			return nil, valueError(n, path, s, "expected null or {some: value}")
		}
		inner, err := fromNode(s.Elem, n.Content[1], child(path, "some"))
		if err != nil {
			return nil, err
		}
		return value.Some{Value: inner}, nil

	case shape.KindEnum, shape.KindErrorSet:
		if n.Kind != yaml.ScalarNode {
			return nil, valueError(n, path, s, "expected a member name")
		}
		m, ok := s.Member(n.Value)
		if !ok {
			return nil, valueError(n, path, s, "unknown member %q", n.Value)
		}
		if s.Kind == shape.KindErrorSet {
			return &value.Error{Name: m.Name, Code: uint64(m.Value)}, nil
		}
		return m.Name, nil

	case shape.KindUnion:
		return union(s, n, path)

	case shape.KindFallible:
		return fallible(s, n, path)

	case shape.KindMap:
		return mapping(s, n, path)

	default:
		return nil, errors.Unsupported(errors.PhaseParse, s.Kind.String()+" values")
	}
}

// isTuple reports whether s names its fields by position.
func isTuple(s *shape.Shape) bool {
	if s.Kind != shape.KindStruct || len(s.Fields) == 0 {
		return false
	}
	for i, f := range s.Fields {
		if f.Name != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

func tuple(s *shape.Shape, n *yaml.Node, path []string) (any, error) {
	if len(n.Content) != len(s.Fields) {
		return nil, valueError(n, path, s, "tuple needs %d elements, got %d", len(s.Fields), len(n.Content))
	}
	out := make(map[string]any, len(s.Fields))
	for i, f := range s.Fields {
		fv, err := fromNode(f.Shape, n.Content[i], child(path, f.Name))
		if err != nil {
			return nil, err
		}
		out[f.Name] = fv
	}
	return out, nil
}

func integer(s *shape.Shape, n *yaml.Node, path []string) (any, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, valueError(n, path, s, "expected an integer")
	}
	bits := s.Kind.Bits()
	if s.Kind.IsSigned() {
		v, err := strconv.ParseInt(n.Value, 0, bits)
		if err != nil {
			return nil, valueError(n, path, s, "%v", err)
		}
		switch s.Kind {
		case shape.KindS8:
			return int8(v), nil
		case shape.KindS16:
			return int16(v), nil
		case shape.KindS32:
			return int32(v), nil
		}
		return v, nil
	}
	v, err := strconv.ParseUint(n.Value, 0, bits)
	if err != nil {
		return nil, valueError(n, path, s, "%v", err)
	}
	switch s.Kind {
	case shape.KindU8:
		return uint8(v), nil
	case shape.KindU16:
		return uint16(v), nil
	case shape.KindU32:
		return uint32(v), nil
	}
	return v, nil
}

func sequence(s *shape.Shape, n *yaml.Node, path []string) (any, error) {
	if s.Text {
		var str string
		if err := n.Decode(&str); err != nil {
			return nil, valueError(n, path, s, "%v", err)
		}
		return str, nil
	}
	if s.IsBytes() && n.Kind == yaml.ScalarNode {
		// yaml.v3 decodes !!binary scalars into their raw bytes.
		var str string
		if err := n.Decode(&str); err != nil {
			return nil, valueError(n, path, s, "%v", err)
		}
		return []byte(str), nil
	}
	items, err := elements(s.Elem, n, path)
	if err != nil {
		return nil, err
	}
	if s.Kind == shape.KindArray && uint64(len(items)) != s.Len {
		return nil, valueError(n, path, s, "array needs %d elements, got %d", s.Len, len(items))
	}
	if s.IsBytes() {
		b := make([]byte, len(items))
		for i, it := range items {
			b[i] = it.(uint8)
		}
		return b, nil
	}
	return items, nil
}

func elements(elem *shape.Shape, n *yaml.Node, path []string) ([]any, error) {
	if n.Kind != yaml.SequenceNode {
		if isNull(n) {
			return []any{}, nil
		}
		return nil, nodeError(n, "expected a sequence")
	}
	items := make([]any, len(n.Content))
	for i, en := range n.Content {
		v, err := fromNode(elem, en, child(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func union(s *shape.Shape, n *yaml.Node, path []string) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		c, ok := s.Case(n.Value)
		if !ok {
			return nil, valueError(n, path, s, "unknown case %q", n.Value)
		}
		if c.Shape != nil && c.Shape.Kind != shape.KindVoid {
			return nil, valueError(n, path, s, "case %q needs a payload", c.Name)
		}
		return value.Union{Case: c.Name}, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, valueError(n, path, s, "a union value has exactly one case")
		}
		name := n.Content[0].Value
		c, ok := s.Case(name)
		if !ok {
			return nil, valueError(n.Content[0], path, s, "unknown case %q", name)
		}
		u := value.Union{Case: c.Name}
		if c.Shape != nil {
			v, err := fromNode(c.Shape, n.Content[1], child(path, name))
			if err != nil {
				return nil, err
			}
			u.Value = v
		}
		return u, nil
	default:
		return nil, valueError(n, path, s, "expected a case name or a single-key mapping")
	}
}

func fallible(s *shape.Shape, n *yaml.Node, path []string) (any, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, valueError(n, path, s, "expected {ok: value} or {error: name}")
	}
	body := n.Content[1]
	switch n.Content[0].Value {
	case "ok":
		if s.Elem == nil {
			return value.Fallible{}, nil
		}
		v, err := fromNode(s.Elem, body, path)
		if err != nil {
			return nil, err
		}
		return value.Ok(v), nil
	case "error":
		e, err := fromNode(s.Errors, body, path)
		if err != nil {
			return nil, err
		}
		return value.Fail(e.(*value.Error)), nil
	default:
		return nil, valueError(n.Content[0], path, s, "expected ok or error, got %q", n.Content[0].Value)
	}
}

type container interface {
	Put(key, val any) bool
}

func mapping(s *shape.Shape, n *yaml.Node, path []string) (any, error) {
	if s.MakeContext != nil {
		return nil, errors.Unsupported(errors.PhaseParse, "maps with a context factory")
	}
	ctx := transcoder.DefaultContext(s.Key)
	var m container
	size := len(n.Content)
	if n.Kind == yaml.MappingNode {
		size /= 2
	}
	if s.Indexing == shape.Ordered {
		m = value.NewOrderedMap(ctx, size)
	} else {
		m = value.NewHashMap(ctx, size)
	}

	put := func(kn, vn *yaml.Node, i int) error {
		entryPath := child(path, "["+strconv.Itoa(i)+"]")
		k, err := fromNode(s.Key, kn, entryPath)
		if err != nil {
			return err
		}
		v, err := fromNode(s.Value, vn, entryPath)
		if err != nil {
			return err
		}
		m.Put(k, v)
		return nil
	}

	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if err := put(n.Content[i], n.Content[i+1], i/2); err != nil {
				return nil, err
			}
		}
	case yaml.SequenceNode:
		for i, en := range n.Content {
			kv, err := fields(en, "key", "value")
			if err != nil {
				return nil, err
			}
			if kv["key"] == nil || kv["value"] == nil {
				return nil, valueError(en, path, s, "map entry needs key and value")
			}
			if err := put(kv["key"], kv["value"], i); err != nil {
				return nil, err
			}
		}
	default:
		if !isNull(n) {
			return nil, valueError(n, path, s, "expected a mapping or a sequence of entries")
		}
	}
	return m, nil
}
