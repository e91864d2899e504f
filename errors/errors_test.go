package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseEncode,
				Kind:      KindTypeMismatch,
				Path:      []string{"user", "address", "zip"},
				GoType:    "string",
				ShapeType: "u32",
				Detail:    "cannot convert",
			},
			contains: []string{"[encode]", "type_mismatch", "user.address.zip", "string", "u32", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindEndOfInput,
			},
			contains: []string{"[decode]", "end_of_input"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindAllocation,
				Detail: "budget exhausted",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[decode]", "allocation", "budget exhausted", "caused by", "underlying error"},
		},
		{
			name: "index path",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindInvalidDiscriminant,
				Path:  []string{"orders", "[3]", "status"},
			},
			contains: []string{"orders[3].status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindIO,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not follow cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindEndOfInput,
		Path:  []string{"foo"},
	}

	if !errors.Is(err, ErrEndOfInput) {
		t.Error("Is should match sentinel with same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindEndOfInput}) {
		t.Error("Is should not match different phase")
	}
	if errors.Is(err, ErrInvalidDiscriminant) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, ErrEndOfInput) {
		t.Error("errors.Is should match through fmt wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEncode, KindTypeMismatch).
		Path("user", "name").
		GoType("string").
		ShapeType("u32").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "u32", "string").
		Build()

	if err.Phase != PhaseEncode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseEncode)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.ShapeType != "u32" {
		t.Errorf("ShapeType = %v, want 'u32'", err.ShapeType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected u32, got string" {
		t.Errorf("Detail = %v", err.Detail)
	}

	plain := New(PhaseParse, KindInvalidData).Detail("no args %d", []any{}...).Build()
	if plain.Detail != "no args %d" {
		t.Errorf("Detail without args should be kept verbatim, got %q", plain.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseEncode, []string{"field"}, "int", "string")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
		if err.GoType != "int" || err.ShapeType != "string" {
			t.Errorf("GoType=%v ShapeType=%v", err.GoType, err.ShapeType)
		}
	})

	t.Run("EndOfInput", func(t *testing.T) {
		err := EndOfInput([]string{"len"}, 8, 3)
		if !errors.Is(err, ErrEndOfInput) {
			t.Errorf("EndOfInput should match sentinel, got %v", err)
		}
		if !strings.Contains(err.Detail, "need 8") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseDecode, 1024, 8)
		if !errors.Is(err, ErrAllocation) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("FieldMissing", func(t *testing.T) {
		err := FieldMissing(PhaseEncode, []string{"record"}, "name")
		if err.Kind != KindFieldMissing {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldMissing)
		}
	})

	t.Run("InvalidDiscriminant", func(t *testing.T) {
		err := InvalidDiscriminant(PhaseDecode, []string{"status"}, uint64(5), "enum")
		if !errors.Is(err, ErrInvalidDiscriminant) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidDiscriminant)
		}
		if err.Value != uint64(5) {
			t.Errorf("Value = %v, want 5", err.Value)
		}
	})

	t.Run("InvalidErrorCode", func(t *testing.T) {
		err := InvalidErrorCode([]string{"result"}, 9, "errorset")
		if !errors.Is(err, ErrInvalidErrorCode) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidErrorCode)
		}
	})

	t.Run("InvalidShape", func(t *testing.T) {
		err := InvalidShape([]string{"point"}, "duplicate field %q", "x")
		if err.Phase != PhaseCompile || err.Kind != KindInvalidShape {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if err.Detail != `duplicate field "x"` {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseCompile, "resource types")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseEncode, []string{"val"}, 300, "u8")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != 300 {
			t.Errorf("Value = %v, want 300", err.Value)
		}
	})

	t.Run("IO", func(t *testing.T) {
		cause := errors.New("disk full")
		err := IO(PhaseEncode, nil, cause)
		if !errors.Is(err, cause) {
			t.Error("IO error should unwrap to cause")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseParse, "type", "point")
		if !strings.Contains(err.Error(), `type "point" not found`) {
			t.Errorf("Error() = %q", err.Error())
		}
	})
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		want string
		path []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a.b", []string{"a", "b"}},
		{"a[0].b", []string{"a", "[0]", "b"}},
		{"[2][1]", []string{"[2]", "[1]"}},
	}
	for _, tc := range tests {
		if got := JoinPath(tc.path); got != tc.want {
			t.Errorf("JoinPath(%v) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
