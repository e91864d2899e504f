package shapefile

import (
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/value"
	"gopkg.in/yaml.v3"
)

// Marshal renders a decoded value as a YAML document that ParseValue reads
// back to an equal value.
func Marshal(s *shape.Shape, v any) ([]byte, error) {
	n, err := ToNode(s, v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(n)
}

// Plain converts a decoded value into nested maps, slices and scalars
// with no codec types left in it, suitable for any generic encoder.
// Ordered map order is not kept.
func Plain(s *shape.Shape, v any) (any, error) {
	n, err := ToNode(s, v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := n.Decode(&out); err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "plain conversion")
	}
	return out, nil
}

// ToNode builds the YAML form of v. Struct fields keep declaration order
// and ordered maps keep insertion order; hashed map entries are sorted by
// their rendered key so output is stable.
func ToNode(s *shape.Shape, v any) (*yaml.Node, error) {
	return toNode(s, v, nil)
}

func scalar(tag, v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v}
}

func null() *yaml.Node {
	return scalar("!!null", "null")
}

func mismatch(path []string, s *shape.Shape, v any) *errors.Error {
	return errors.New(errors.PhaseParse, errors.KindTypeMismatch).
		Path(path...).
		GoType(goType(v)).
		ShapeType(s.String()).
		Build()
}

func goType(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

func toNode(s *shape.Shape, v any, path []string) (*yaml.Node, error) {
	switch s.Kind {
	case shape.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(path, s, v)
		}
		return scalar("!!bool", strconv.FormatBool(b)), nil

	case shape.KindU8, shape.KindU16, shape.KindU32, shape.KindU64,
		shape.KindS8, shape.KindS16, shape.KindS32, shape.KindS64:
		str, ok := formatInt(v)
		if !ok {
			return nil, mismatch(path, s, v)
		}
		return scalar("!!int", str), nil

	case shape.KindF32, shape.KindF64:
		var f float64
		switch x := v.(type) {
		case float32:
			f = float64(x)
		case float64:
			f = x
		default:
			return nil, mismatch(path, s, v)
		}
		return scalar("!!float", formatFloat(f, s.Kind.Bits())), nil

	case shape.KindVoid:
		return null(), nil

	case shape.KindArray, shape.KindSlice:
		switch x := v.(type) {
		case string:
			if s.Text {
				return scalar("!!str", x), nil
			}
			return scalar("!!binary", base64.StdEncoding.EncodeToString([]byte(x))), nil
		case []byte:
			if s.Text {
				return scalar("!!str", string(x)), nil
			}
			return scalar("!!binary", base64.StdEncoding.EncodeToString(x)), nil
		case []any:
			return seqNode(s.Elem, x, path)
		}
		return nil, mismatch(path, s, v)

	case shape.KindList:
		switch x := v.(type) {
		case *value.List:
			return seqNode(s.Elem, x.Items, path)
		case []any:
			return seqNode(s.Elem, x, path)
		}
		return nil, mismatch(path, s, v)

	case shape.KindStruct, shape.KindPacked:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, mismatch(path, s, v)
		}
		if isTuple(s) {
			items := make([]any, len(s.Fields))
			for i, f := range s.Fields {
				items[i] = m[f.Name]
			}
			return tupleNode(s, items, path)
		}
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range s.Fields {
			fv, present := m[f.Name]
			if !present {
				continue
			}
			fn, err := toNode(f.Shape, fv, child(path, f.Name))
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, scalar("!!str", f.Name), fn)
		}
		return out, nil

	case shape.KindOptional:
		if v == nil {
			return null(), nil
		}
		if some, ok := v.(value.Some); ok {
			v = some.Value
		}
		if s.Elem.Kind != shape.KindOptional {
			return toNode(s.Elem, v, path)
		}
		inner, err := toNode(s.Elem, v, child(path, "some"))
		if err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{scalar("!!str", "some"), inner}}, nil

	case shape.KindEnum:
		name, ok := v.(string)
		if !ok {
			return nil, mismatch(path, s, v)
		}
		return scalar("!!str", name), nil

	case shape.KindErrorSet:
		e, ok := v.(*value.Error)
		if !ok {
			return nil, mismatch(path, s, v)
		}
		return scalar("!!str", e.Name), nil

	case shape.KindUnion:
		var u value.Union
		switch x := v.(type) {
		case value.Union:
			u = x
		case *value.Union:
			u = *x
		default:
			return nil, mismatch(path, s, v)
		}
		c, ok := s.Case(u.Case)
		if !ok {
			return nil, errors.InvalidDiscriminant(errors.PhaseParse, path, u.Case, s.String())
		}
		if c.Shape == nil || c.Shape.Kind == shape.KindVoid {
			return scalar("!!str", c.Name), nil
		}
		pn, err := toNode(c.Shape, u.Value, child(path, c.Name))
		if err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{scalar("!!str", c.Name), pn}}, nil

	case shape.KindFallible:
		var f value.Fallible
		switch x := v.(type) {
		case value.Fallible:
			f = x
		case *value.Fallible:
			f = *x
		default:
			return nil, mismatch(path, s, v)
		}
		if f.Err != nil {
			e, ok := f.Err.(*value.Error)
			if !ok {
				return nil, mismatch(path, s.Errors, f.Err)
			}
			return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{scalar("!!str", "error"), scalar("!!str", e.Name)}}, nil
		}
		pn := null()
		if s.Elem != nil {
			var err error
			if pn, err = toNode(s.Elem, f.Value, path); err != nil {
				return nil, err
			}
		}
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{scalar("!!str", "ok"), pn}}, nil

	case shape.KindMap:
		return mapNode(s, v, path)

	default:
		return nil, errors.Unsupported(errors.PhaseParse, s.Kind.String()+" values")
	}
}

func seqNode(elem *shape.Shape, items []any, path []string) (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for i, it := range items {
		en, err := toNode(elem, it, child(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, en)
	}
	return out, nil
}

func tupleNode(s *shape.Shape, items []any, path []string) (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for i, f := range s.Fields {
		en, err := toNode(f.Shape, items[i], child(path, f.Name))
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, en)
	}
	return out, nil
}

type ranger interface {
	Range(fn func(key, val any) bool)
}

// mapNode renders scalar-keyed maps as a YAML mapping and everything else
// as a sequence of {key, value} entries.
func mapNode(s *shape.Shape, v any, path []string) (*yaml.Node, error) {
	var r ranger
	switch x := v.(type) {
	case *value.HashMap:
		r = x
	case *value.OrderedMap:
		r = x
	default:
		return nil, mismatch(path, s, v)
	}

	var pairs [][2]*yaml.Node
	var err error
	i := 0
	r.Range(func(key, val any) bool {
		entryPath := child(path, "["+strconv.Itoa(i)+"]")
		i++
		var kn, vn *yaml.Node
		if kn, err = toNode(s.Key, key, entryPath); err != nil {
			return false
		}
		if vn, err = toNode(s.Value, val, entryPath); err != nil {
			return false
		}
		pairs = append(pairs, [2]*yaml.Node{kn, vn})
		return true
	})
	if err != nil {
		return nil, err
	}

	flat := scalarKey(s.Key)
	if s.Indexing == shape.Hashed && flat {
		sort.SliceStable(pairs, func(a, b int) bool {
			return pairs[a][0].Value < pairs[b][0].Value
		})
	}

	if flat {
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, p := range pairs {
			out.Content = append(out.Content, p[0], p[1])
		}
		return out, nil
	}
	out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, p := range pairs {
		out.Content = append(out.Content, &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
			scalar("!!str", "key"), p[0],
			scalar("!!str", "value"), p[1],
		}})
	}
	return out, nil
}

func scalarKey(s *shape.Shape) bool {
	switch {
	case s.Kind.IsPrimitive() && s.Kind != shape.KindVoid:
		return true
	case s.Kind == shape.KindEnum, s.Text:
		return true
	}
	return false
}

func formatInt(v any) (string, bool) {
	switch x := v.(type) {
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.FormatInt(int64(x), 10), true
	}
	return "", false
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	for _, c := range s {
		if c == '.' || c == 'e' {
			return s
		}
	}
	return s + ".0"
}
