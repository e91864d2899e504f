package transcoder

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/value"
	"go.bytecodealliance.org/wit"
)

func named(name string, kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: kind}
}

func anon(kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Kind: kind}
}

func TestCompileWITPrimitives(t *testing.T) {
	tests := []struct {
		in   wit.Type
		want *shape.Shape
	}{
		{wit.Bool{}, shape.Bool()},
		{wit.U8{}, shape.U8()},
		{wit.S8{}, shape.S8()},
		{wit.U16{}, shape.U16()},
		{wit.S16{}, shape.S16()},
		{wit.U32{}, shape.U32()},
		{wit.S32{}, shape.S32()},
		{wit.U64{}, shape.U64()},
		{wit.S64{}, shape.S64()},
		{wit.F32{}, shape.F32()},
		{wit.F64{}, shape.F64()},
		{wit.Char{}, shape.U32()},
		{anon(&wit.Own{}), shape.U32()},
		{anon(&wit.Borrow{}), shape.U32()},
	}
	c := NewCompiler()
	for _, tt := range tests {
		got, err := c.CompileWIT(tt.in)
		if err != nil {
			t.Errorf("%T: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%T compiled to %s, want %s", tt.in, got, tt.want)
		}
	}

	str, err := c.CompileWIT(wit.String{})
	if err != nil {
		t.Fatal(err)
	}
	if str.Kind != shape.KindSlice || !str.Text {
		t.Errorf("string compiled to %s", str)
	}
}

func TestCompileWITComposites(t *testing.T) {
	c := NewCompiler()

	point, err := c.CompileWIT(named("point", &wit.Record{Fields: []wit.Field{
		{Name: "x", Type: wit.S32{}},
		{Name: "y", Type: wit.S32{}},
	}}))
	if err != nil {
		t.Fatal(err)
	}
	if got := point.String(); got != "struct point{x: s32, y: s32}" {
		t.Errorf("record = %s", got)
	}

	pair, err := c.CompileWIT(anon(&wit.Tuple{Types: []wit.Type{wit.U8{}, wit.String{}}}))
	if err != nil {
		t.Fatal(err)
	}
	if pair.Kind != shape.KindStruct || len(pair.Fields) != 2 || pair.Fields[1].Name != "1" {
		t.Errorf("tuple = %s", pair)
	}

	list, _ := c.CompileWIT(anon(&wit.List{Type: wit.U32{}}))
	if list.Kind != shape.KindSlice || list.Elem != shape.U32() {
		t.Errorf("list = %s", list)
	}

	opt, _ := c.CompileWIT(anon(&wit.Option{Type: wit.U64{}}))
	if opt.Kind != shape.KindOptional || opt.Elem != shape.U64() {
		t.Errorf("option = %s", opt)
	}

	nested, err := c.CompileWIT(anon(&wit.Option{Type: anon(&wit.Option{Type: wit.U8{}})}))
	if err != nil {
		t.Fatalf("option<option<u8>>: %v", err)
	}
	if nested.Kind != shape.KindOptional || nested.Elem.Kind != shape.KindOptional || nested.Elem.Elem != shape.U8() {
		t.Errorf("nested option = %s", nested)
	}

	color, _ := c.CompileWIT(named("color", &wit.Enum{Cases: []wit.EnumCase{
		{Name: "red"}, {Name: "green"}, {Name: "blue"},
	}}))
	if m, ok := color.Member("blue"); !ok || m.Value != 2 || color.Backing != shape.U8() {
		t.Errorf("enum = %s", color)
	}

	flags := make([]wit.Flag, 9)
	for i := range flags {
		flags[i] = wit.Flag{Name: string(rune('a' + i))}
	}
	perms, _ := c.CompileWIT(named("perms", &wit.Flags{Flags: flags}))
	if perms.Kind != shape.KindPacked || perms.Backing != shape.U16() || len(perms.Fields) != 9 {
		t.Errorf("flags = %s", perms)
	}

	opt2, _ := c.CompileWIT(named("maybe", &wit.Variant{Cases: []wit.Case{
		{Name: "none"},
		{Name: "some", Type: wit.U32{}},
	}}))
	if got := opt2.String(); got != "union maybe{none, some(u32)}" {
		t.Errorf("variant = %s", got)
	}
}

func TestCompileWITResult(t *testing.T) {
	c := NewCompiler()
	errno := named("errno", &wit.Enum{Cases: []wit.EnumCase{{Name: "access"}, {Name: "exist"}}})

	read, err := c.CompileWIT(named("read", &wit.Result{OK: wit.U32{}, Err: errno}))
	if err != nil {
		t.Fatal(err)
	}
	if read.Kind != shape.KindFallible || read.Errors.Name != "errno" {
		t.Fatalf("result with enum error = %s", read)
	}
	if m, ok := read.Errors.Member("exist"); !ok || m.Value != 1 {
		t.Errorf("error codes = %v", read.Errors.Members)
	}

	inline, _ := c.CompileWIT(named("op", &wit.Result{Err: anon(&wit.Enum{Cases: []wit.EnumCase{{Name: "busy"}}})}))
	if inline.Kind != shape.KindFallible || inline.Elem != nil || inline.Errors.Name != "op.error" {
		t.Errorf("anonymous error enum = %s", inline)
	}

	other, _ := c.CompileWIT(named("parse", &wit.Result{OK: wit.U8{}, Err: wit.String{}}))
	if other.Kind != shape.KindUnion {
		t.Fatalf("result with string error = %s", other)
	}
	if _, ok := other.Case("err"); !ok {
		t.Error("union is missing the err case")
	}
}

func TestCompileWITUnsupported(t *testing.T) {
	c := NewCompiler()

	flags := make([]wit.Flag, 65)
	for i := range flags {
		flags[i] = wit.Flag{Name: "f" + string(rune('0'+i%10)) + string(rune('a'+i/10))}
	}
	_, err := c.CompileWIT(anon(&wit.Flags{Flags: flags}))
	requireKind(t, err, errors.PhaseCompile, errors.KindUnsupported)

	_, err = c.CompileWIT(anon(&wit.List{}))
	requireKind(t, err, errors.PhaseCompile, errors.KindInvalidShape)
}

func TestCompileWITCaches(t *testing.T) {
	c := NewCompiler()
	td := named("pair", &wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U8{}}})
	a, err := c.CompileWIT(td)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := c.CompileWIT(td)
	if a != b {
		t.Error("repeated compilation returned a new shape")
	}
}

func TestWITRoundTrip(t *testing.T) {
	errno := named("errno", &wit.Enum{Cases: []wit.EnumCase{{Name: "access"}, {Name: "exist"}}})
	entry := named("entry", &wit.Record{Fields: []wit.Field{
		{Name: "name", Type: wit.String{}},
		{Name: "tags", Type: anon(&wit.List{Type: wit.String{}})},
		{Name: "size", Type: anon(&wit.Option{Type: wit.U64{}})},
		{Name: "status", Type: anon(&wit.Result{OK: wit.U8{}, Err: errno})},
	}})

	in := map[string]any{
		"name":   "a.txt",
		"tags":   []any{"x", "y"},
		"size":   uint64(12),
		"status": value.Fail(&value.Error{Name: "exist", Code: 1}),
	}

	var buf bytes.Buffer
	if err := NewEncoder().EncodeWIT(&buf, entry, in); err != nil {
		t.Fatal(err)
	}
	out, err := NewDecoder().DecodeWIT(&buf, entry, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out, valueOpts); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}
