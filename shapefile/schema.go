package shapefile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"gopkg.in/yaml.v3"
)

// Schema is a parsed schema file. Every type is validated.
type Schema struct {
	Root  *shape.Shape
	Types map[string]*shape.Shape
	// Names lists the types in document order.
	Names []string
}

type file struct {
	Root  string    `yaml:"root"`
	Types yaml.Node `yaml:"types"`
}

var primitives = map[string]func() *shape.Shape{
	"bool":   shape.Bool,
	"u8":     shape.U8,
	"s8":     shape.S8,
	"u16":    shape.U16,
	"s16":    shape.S16,
	"u32":    shape.U32,
	"s32":    shape.S32,
	"u64":    shape.U64,
	"s64":    shape.S64,
	"f32":    shape.F32,
	"f64":    shape.F64,
	"void":   shape.Void,
	"char":   shape.U32,
	"string": shape.String,
	"bytes":  shape.Bytes,
}

// Load reads and parses a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ParseFailed("schema "+path, err)
	}
	return Parse(data)
}

// Parse reads a schema document.
func Parse(data []byte) (*Schema, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.ParseFailed("schema", err)
	}

	b := &builder{
		defs:     make(map[string]*yaml.Node),
		built:    make(map[string]*shape.Shape),
		building: make(map[string]bool),
	}
	sc := &Schema{Types: b.built}

	switch f.Types.Kind {
	case 0:
	case yaml.MappingNode:
		for i := 0; i+1 < len(f.Types.Content); i += 2 {
			key := f.Types.Content[i]
			if _, dup := b.defs[key.Value]; dup {
				return nil, nodeError(key, "type %q defined twice", key.Value)
			}
			if _, ok := primitives[key.Value]; ok {
				return nil, nodeError(key, "type %q shadows a primitive", key.Value)
			}
			b.defs[key.Value] = f.Types.Content[i+1]
			sc.Names = append(sc.Names, key.Value)
		}
	default:
		return nil, nodeError(&f.Types, "types must be a mapping")
	}

	for _, name := range sc.Names {
		s, err := b.ref(name)
		if err != nil {
			return nil, err
		}
		if s.Kind == shape.KindErrorSet {
			continue
		}
		if err := shape.Validate(s); err != nil {
			return nil, err
		}
	}

	if f.Root != "" {
		root, err := b.typeOf(&yaml.Node{Kind: yaml.ScalarNode, Value: f.Root}, "")
		if err != nil {
			return nil, err
		}
		if err := shape.Validate(root); err != nil {
			return nil, err
		}
		sc.Root = root
	}
	return sc, nil
}

// Lookup returns a named type, or a primitive when name is one.
func (s *Schema) Lookup(name string) (*shape.Shape, error) {
	if t, ok := s.Types[name]; ok {
		return t, nil
	}
	if p, ok := primitives[name]; ok {
		return p(), nil
	}
	return nil, errors.NotFound(errors.PhaseParse, "type", name)
}

func nodeError(n *yaml.Node, format string, args ...any) *errors.Error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Detail("line %d: %s", n.Line, fmt.Sprintf(format, args...)).
		Build()
}

type builder struct {
	defs     map[string]*yaml.Node
	built    map[string]*shape.Shape
	building map[string]bool
}

func (b *builder) ref(name string) (*shape.Shape, error) {
	if s, ok := b.built[name]; ok {
		return s, nil
	}
	def, ok := b.defs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseParse, "type", name)
	}
	if b.building[name] {
		return nil, nodeError(def, "type %q refers to itself", name)
	}
	b.building[name] = true
	defer delete(b.building, name)

	s, err := b.typeOf(def, name)
	if err != nil {
		return nil, err
	}
	b.built[name] = s
	return s, nil
}

func (b *builder) typeOf(n *yaml.Node, name string) (*shape.Shape, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return b.typeOf(n.Alias, name)
	case yaml.ScalarNode:
		if p, ok := primitives[n.Value]; ok {
			return p(), nil
		}
		return b.ref(n.Value)
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, nodeError(n, "a composite type has exactly one key, got %d", len(n.Content)/2)
		}
		return b.composite(n.Content[0], n.Content[1], name)
	default:
		return nil, nodeError(n, "unexpected %s in type position", kindName(n.Kind))
	}
}

func (b *builder) composite(key, body *yaml.Node, name string) (*shape.Shape, error) {
	switch key.Value {
	case "array":
		keys, err := fields(body, "len", "of")
		if err != nil {
			return nil, err
		}
		if keys["len"] == nil || keys["of"] == nil {
			return nil, nodeError(body, "array needs len and of")
		}
		var n uint64
		if err := keys["len"].Decode(&n); err != nil {
			return nil, nodeError(keys["len"], "array len: %v", err)
		}
		elem, err := b.typeOf(keys["of"], "")
		if err != nil {
			return nil, err
		}
		return named(shape.Array(n, elem), name), nil

	case "slice", "borrowed":
		elem, err := b.typeOf(body, "")
		if err != nil {
			return nil, err
		}
		if key.Value == "borrowed" {
			return named(shape.BorrowedSlice(elem), name), nil
		}
		return named(shape.Slice(elem), name), nil

	case "struct":
		if body.Kind != yaml.MappingNode {
			return nil, nodeError(body, "struct fields must be a mapping")
		}
		var fs []shape.Field
		for i := 0; i+1 < len(body.Content); i += 2 {
			ft, err := b.typeOf(body.Content[i+1], "")
			if err != nil {
				return nil, err
			}
			fs = append(fs, shape.F(body.Content[i].Value, ft))
		}
		return shape.Struct(name, fs...), nil

	case "tuple":
		if body.Kind != yaml.SequenceNode {
			return nil, nodeError(body, "tuple elements must be a sequence")
		}
		elems := make([]*shape.Shape, len(body.Content))
		for i, en := range body.Content {
			et, err := b.typeOf(en, "")
			if err != nil {
				return nil, err
			}
			elems[i] = et
		}
		return named(shape.Tuple(elems...), name), nil

	case "packed":
		return b.packed(body, name)

	case "optional":
		elem, err := b.typeOf(body, "")
		if err != nil {
			return nil, err
		}
		return named(shape.Optional(elem), name), nil

	case "enum":
		return b.enum(body, name)

	case "union":
		if body.Kind != yaml.MappingNode {
			return nil, nodeError(body, "union cases must be a mapping")
		}
		var cases []shape.Case
		for i := 0; i+1 < len(body.Content); i += 2 {
			var payload *shape.Shape
			if pn := body.Content[i+1]; !isNull(pn) {
				p, err := b.typeOf(pn, "")
				if err != nil {
					return nil, err
				}
				payload = p
			}
			cases = append(cases, shape.C(body.Content[i].Value, payload))
		}
		return shape.TaggedUnion(name, cases...), nil

	case "errors":
		var members []shape.Member
		switch body.Kind {
		case yaml.SequenceNode:
			names := make([]string, len(body.Content))
			for i, m := range body.Content {
				names[i] = m.Value
			}
			members = shape.Ordinals(names...)
		case yaml.MappingNode:
			ms, err := memberTable(body)
			if err != nil {
				return nil, err
			}
			members = ms
		default:
			return nil, nodeError(body, "errors must be a sequence or a mapping")
		}
		return shape.ErrorSet(name, members...), nil

	case "fallible":
		keys, err := fields(body, "ok", "errors")
		if err != nil {
			return nil, err
		}
		if keys["errors"] == nil {
			return nil, nodeError(body, "fallible needs errors")
		}
		errs, err := b.typeOf(keys["errors"], "")
		if err != nil {
			return nil, err
		}
		var ok *shape.Shape
		if on := keys["ok"]; on != nil && !isNull(on) {
			if ok, err = b.typeOf(on, ""); err != nil {
				return nil, err
			}
		}
		return named(shape.Fallible(errs, ok), name), nil

	case "list", "managed":
		elem, err := b.typeOf(body, "")
		if err != nil {
			return nil, err
		}
		if key.Value == "managed" {
			return named(shape.ManagedList(elem), name), nil
		}
		return named(shape.List(elem), name), nil

	case "map":
		keys, err := fields(body, "key", "value", "ordered")
		if err != nil {
			return nil, err
		}
		if keys["key"] == nil || keys["value"] == nil {
			return nil, nodeError(body, "map needs key and value")
		}
		kt, err := b.typeOf(keys["key"], "")
		if err != nil {
			return nil, err
		}
		vt, err := b.typeOf(keys["value"], "")
		if err != nil {
			return nil, err
		}
		ordered := false
		if on := keys["ordered"]; on != nil {
			if err := on.Decode(&ordered); err != nil {
				return nil, nodeError(on, "map ordered: %v", err)
			}
		}
		if ordered {
			return named(shape.OrderedMap(kt, vt), name), nil
		}
		return named(shape.HashMap(kt, vt), name), nil

	default:
		return nil, nodeError(key, "unknown type form %q", key.Value)
	}
}

func (b *builder) packed(body *yaml.Node, name string) (*shape.Shape, error) {
	keys, err := fields(body, "backing", "fields")
	if err != nil {
		return nil, err
	}
	if keys["backing"] == nil || keys["fields"] == nil {
		return nil, nodeError(body, "packed needs backing and fields")
	}
	backing, err := b.typeOf(keys["backing"], "")
	if err != nil {
		return nil, err
	}
	fn := keys["fields"]
	if fn.Kind != yaml.MappingNode {
		return nil, nodeError(fn, "packed fields must be a mapping")
	}
	var fs []shape.Field
	for i := 0; i+1 < len(fn.Content); i += 2 {
		fname, decl := fn.Content[i].Value, fn.Content[i+1]
		f, err := bitField(fname, decl)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return shape.Packed(name, backing, fs...), nil
}

// bitField reads "bool", "uN" or "sN".
func bitField(name string, decl *yaml.Node) (shape.Field, error) {
	v := decl.Value
	if v == "bool" {
		return shape.Flag(name), nil
	}
	if len(v) < 2 || (v[0] != 'u' && v[0] != 's') {
		return shape.Field{}, nodeError(decl, "packed field %q: want bool, uN or sN, got %q", name, v)
	}
	bits, err := strconv.ParseUint(v[1:], 10, 8)
	if err != nil || bits == 0 || bits > 64 {
		return shape.Field{}, nodeError(decl, "packed field %q: bad width %q", name, v)
	}
	if v[0] == 's' {
		return shape.IntBits(name, uint8(bits)), nil
	}
	return shape.UintBits(name, uint8(bits)), nil
}

func (b *builder) enum(body *yaml.Node, name string) (*shape.Shape, error) {
	switch body.Kind {
	case yaml.SequenceNode:
		names := make([]string, len(body.Content))
		for i, m := range body.Content {
			names[i] = m.Value
		}
		return shape.Enum(name, shape.DiscriminantFor(len(names)), shape.Ordinals(names...)...), nil
	case yaml.MappingNode:
		keys, err := fields(body, "backing", "members")
		if err != nil {
			return nil, err
		}
		if keys["members"] == nil {
			return nil, nodeError(body, "enum needs members")
		}
		members, err := memberTable(keys["members"])
		if err != nil {
			return nil, err
		}
		backing := shape.DiscriminantFor(len(members))
		if bn := keys["backing"]; bn != nil {
			if backing, err = b.typeOf(bn, ""); err != nil {
				return nil, err
			}
		}
		return shape.Enum(name, backing, members...), nil
	default:
		return nil, nodeError(body, "enum must be a sequence or a mapping")
	}
}

func memberTable(n *yaml.Node) ([]shape.Member, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nodeError(n, "members must be a mapping of name to value")
	}
	var ms []shape.Member
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v int64
		if err := n.Content[i+1].Decode(&v); err != nil {
			return nil, nodeError(n.Content[i+1], "member %q: %v", n.Content[i].Value, err)
		}
		ms = append(ms, shape.M(n.Content[i].Value, v))
	}
	return ms, nil
}

// fields splits a mapping into its values, rejecting keys outside allowed.
func fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nodeError(n, "expected a mapping with keys %s", strings.Join(allowed, ", "))
	}
	out := make(map[string]*yaml.Node, len(allowed))
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		ok := false
		for _, a := range allowed {
			if a == k {
				ok = true
				break
			}
		}
		if !ok {
			return nil, nodeError(n.Content[i], "unexpected key %q", k)
		}
		out[k] = n.Content[i+1]
	}
	return out, nil
}

func named(s *shape.Shape, name string) *shape.Shape {
	if name == "" {
		return s
	}
	return s.Named(name)
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && (n.Tag == "!!null" || n.Value == "" || n.Value == "~" || n.Value == "null")
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
