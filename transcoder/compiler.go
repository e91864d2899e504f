package transcoder

import (
	"sync"

	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"go.bytecodealliance.org/wit"
)

// Compiler validates shape descriptors and compiles WIT types into them.
// Both results are cached, so a Compiler is meant to be shared; it is safe
// for concurrent use.
type Compiler struct {
	checked  sync.Map // *shape.Shape -> checkResult
	compiled sync.Map // *wit.TypeDef -> *shape.Shape
	uncached bool
}

type checkResult struct {
	err error
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// newValidator returns a Compiler that validates on every Check and
// keeps no shape cache. The package-level functions use it.
func newValidator() *Compiler {
	return &Compiler{uncached: true}
}

// Check validates s once and remembers the outcome. Descriptors are
// immutable, so the cached result stays correct.
func (c *Compiler) Check(s *shape.Shape) error {
	if s == nil || c.uncached {
		return shape.Validate(s)
	}
	if r, ok := c.checked.Load(s); ok {
		return r.(checkResult).err
	}
	err := shape.Validate(s)
	c.checked.Store(s, checkResult{err: err})
	return err
}

// CompileWIT maps a WIT type onto a shape descriptor:
//
//	bool, u8..s64, f32, f64   same-width primitives
//	char                      u32
//	string                    string
//	list<T>                   slice of T
//	record, tuple             struct
//	option<T>                 optional
//	enum                      enum numbered from zero
//	flags                     packed struct of one-bit flags
//	variant                   tagged union
//	result<T, E> (E an enum)  fallible with E as the error set
//	result<T, E>              tagged union of ok and err
//	own<R>, borrow<R>         u32 handle
//
// The resulting shape is validated before it is returned.
func (c *Compiler) CompileWIT(t wit.Type) (*shape.Shape, error) {
	if td, ok := t.(*wit.TypeDef); ok {
		if cached, ok := c.compiled.Load(td); ok {
			return cached.(*shape.Shape), nil
		}
	}
	s, err := c.compile(t, nil)
	if err != nil {
		return nil, err
	}
	if err := c.Check(s); err != nil {
		return nil, err
	}
	if td, ok := t.(*wit.TypeDef); ok {
		actual, _ := c.compiled.LoadOrStore(td, s)
		return actual.(*shape.Shape), nil
	}
	return s, nil
}

func (c *Compiler) compile(t wit.Type, path []string) (*shape.Shape, error) {
	switch t := t.(type) {
	case wit.Bool:
		return shape.Bool(), nil
	case wit.U8:
		return shape.U8(), nil
	case wit.S8:
		return shape.S8(), nil
	case wit.U16:
		return shape.U16(), nil
	case wit.S16:
		return shape.S16(), nil
	case wit.U32:
		return shape.U32(), nil
	case wit.S32:
		return shape.S32(), nil
	case wit.U64:
		return shape.U64(), nil
	case wit.S64:
		return shape.S64(), nil
	case wit.F32:
		return shape.F32(), nil
	case wit.F64:
		return shape.F64(), nil
	case wit.Char:
		return shape.U32(), nil
	case wit.String:
		return shape.String(), nil
	case *wit.TypeDef:
		if cached, ok := c.compiled.Load(t); ok {
			return cached.(*shape.Shape), nil
		}
		return c.compileTypeDef(t, path)
	case nil:
		return nil, nil
	default:
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported WIT type: %T", t).
			Build()
	}
}

func typeDefName(t *wit.TypeDef) string {
	if t.Name != nil {
		return *t.Name
	}
	return ""
}

func (c *Compiler) compileTypeDef(t *wit.TypeDef, path []string) (*shape.Shape, error) {
	name := typeDefName(t)
	switch kind := t.Kind.(type) {
	case *wit.Record:
		fields := make([]shape.Field, 0, len(kind.Fields))
		for _, f := range kind.Fields {
			fs, err := c.compileNonVoid(f.Type, appendPath(path, f.Name))
			if err != nil {
				return nil, err
			}
			fields = append(fields, shape.F(f.Name, fs))
		}
		return shape.Struct(name, fields...), nil

	case *wit.Tuple:
		elems := make([]*shape.Shape, 0, len(kind.Types))
		for i, et := range kind.Types {
			es, err := c.compileNonVoid(et, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			elems = append(elems, es)
		}
		return shape.Tuple(elems...).Named(name), nil

	case *wit.List:
		elem, err := c.compileNonVoid(kind.Type, appendPath(path, "[elem]"))
		if err != nil {
			return nil, err
		}
		return shape.Slice(elem).Named(name), nil

	case *wit.Option:
		elem, err := c.compileNonVoid(kind.Type, appendPath(path, "[some]"))
		if err != nil {
			return nil, err
		}
		return shape.Optional(elem).Named(name), nil

	case *wit.Enum:
		names := make([]string, len(kind.Cases))
		for i, ec := range kind.Cases {
			names[i] = ec.Name
		}
		return shape.Enum(name, shape.DiscriminantFor(len(names)), shape.Ordinals(names...)...), nil

	case *wit.Flags:
		if len(kind.Flags) > 64 {
			return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
				Path(path...).
				Detail("flags type exceeds maximum 64 flags, got %d", len(kind.Flags)).
				Build()
		}
		fields := make([]shape.Field, len(kind.Flags))
		for i, fl := range kind.Flags {
			fields[i] = shape.Flag(fl.Name)
		}
		return shape.Packed(name, flagsBacking(len(fields)), fields...), nil

	case *wit.Variant:
		cases := make([]shape.Case, len(kind.Cases))
		for i, vc := range kind.Cases {
			payload, err := c.compile(vc.Type, appendPath(path, vc.Name))
			if err != nil {
				return nil, err
			}
			cases[i] = shape.C(vc.Name, payload)
		}
		return shape.TaggedUnion(name, cases...), nil

	case *wit.Result:
		return c.compileResult(name, kind, path)

	case *wit.Own, *wit.Borrow:
		return shape.U32(), nil

	case wit.Type:
		return c.compile(kind, path)

	default:
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported TypeDef kind: %T", kind).
			Build()
	}
}

// compileNonVoid compiles a type that must carry a value.
func (c *Compiler) compileNonVoid(t wit.Type, path []string) (*shape.Shape, error) {
	s, err := c.compile(t, path)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.InvalidShape(path, "missing element type")
	}
	return s, nil
}

// compileResult maps result<T, E> to a fallible value when E is an enum:
// its cases become the error set, coded by ordinal.
func (c *Compiler) compileResult(name string, r *wit.Result, path []string) (*shape.Shape, error) {
	ok, err := c.compile(r.OK, appendPath(path, "ok"))
	if err != nil {
		return nil, err
	}
	if en := enumOf(r.Err); en != nil {
		errName := name + ".error"
		if td, isDef := r.Err.(*wit.TypeDef); isDef && td.Name != nil {
			errName = *td.Name
		}
		members := make([]shape.Member, len(en.Cases))
		for i, ec := range en.Cases {
			members[i] = shape.M(ec.Name, int64(i))
		}
		return shape.Fallible(shape.ErrorSet(errName, members...), ok).Named(name), nil
	}
	errShape, err := c.compile(r.Err, appendPath(path, "err"))
	if err != nil {
		return nil, err
	}
	return shape.TaggedUnion(name, shape.C("ok", ok), shape.C("err", errShape)), nil
}

// enumOf unwraps aliases down to an enum definition.
func enumOf(t wit.Type) *wit.Enum {
	for i := 0; i < 16; i++ {
		td, ok := t.(*wit.TypeDef)
		if !ok {
			return nil
		}
		switch k := td.Kind.(type) {
		case *wit.Enum:
			return k
		case wit.Type:
			t = k
		default:
			return nil
		}
	}
	return nil
}

func flagsBacking(n int) *shape.Shape {
	switch {
	case n <= 8:
		return shape.U8()
	case n <= 16:
		return shape.U16()
	case n <= 32:
		return shape.U32()
	default:
		return shape.U64()
	}
}
