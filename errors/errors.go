package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile Phase = "compile" // shape construction and validation
	PhaseEncode  Phase = "encode"  // value to bytes
	PhaseDecode  Phase = "decode"  // bytes to value
	PhaseParse   Phase = "parse"   // schema and value documents
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch        Kind = "type_mismatch"
	KindEndOfInput          Kind = "end_of_input"
	KindInvalidDiscriminant Kind = "invalid_discriminant"
	KindInvalidErrorCode    Kind = "invalid_error_code"
	KindAllocation          Kind = "allocation"
	KindInvalidData         Kind = "invalid_data"
	KindInvalidShape        Kind = "invalid_shape"
	KindUnsupported         Kind = "unsupported"
	KindFieldMissing        Kind = "field_missing"
	KindFieldUnknown        Kind = "field_unknown"
	KindOverflow            Kind = "overflow"
	KindIO                  Kind = "io"
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
)

// Sentinels for errors.Is. Matching compares Phase and Kind only.
var (
	ErrEndOfInput          = &Error{Phase: PhaseDecode, Kind: KindEndOfInput}
	ErrInvalidDiscriminant = &Error{Phase: PhaseDecode, Kind: KindInvalidDiscriminant}
	ErrInvalidErrorCode    = &Error{Phase: PhaseDecode, Kind: KindInvalidErrorCode}
	ErrAllocation          = &Error{Phase: PhaseDecode, Kind: KindAllocation}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	GoType    string
	ShapeType string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(JoinPath(e.Path))
	}

	if e.GoType != "" || e.ShapeType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ShapeType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", shape ")
			b.WriteString(e.ShapeType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("shape ")
			b.WriteString(e.ShapeType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ShapeType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// JoinPath renders a field path, attaching index segments ("[3]") to the
// preceding segment instead of separating them with a dot.
func JoinPath(path []string) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 && !strings.HasPrefix(p, "[") {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ShapeType sets the shape description
func (b *Builder) ShapeType(t string) *Builder {
	b.err.ShapeType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, shapeType string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindTypeMismatch,
		Path:      path,
		GoType:    goType,
		ShapeType: shapeType,
	}
}

// EndOfInput reports a read that came up short of a primitive's width
func EndOfInput(path []string, want, got int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindEndOfInput,
		Path:   path,
		Detail: fmt.Sprintf("need %d bytes, have %d", want, got),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, available uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to reserve %d bytes (%d available)", size, available),
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// InvalidDiscriminant creates an invalid discriminant error for enums, unions and flags
func InvalidDiscriminant(phase Phase, path []string, disc any, shapeType string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindInvalidDiscriminant,
		Path:      path,
		ShapeType: shapeType,
		Detail:    fmt.Sprintf("discriminant %v is not a member", disc),
		Value:     disc,
	}
}

// InvalidErrorCode creates an error for a code outside an error set
func InvalidErrorCode(path []string, code uint64, shapeType string) *Error {
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindInvalidErrorCode,
		Path:      path,
		ShapeType: shapeType,
		Detail:    fmt.Sprintf("error code %d is not in the set", code),
		Value:     code,
	}
}

// InvalidShape reports a descriptor that violates its construction contract
func InvalidShape(path []string, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindInvalidShape,
		Path:   path,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindOverflow,
		Path:      path,
		ShapeType: targetType,
		Detail:    fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:     value,
	}
}

// FieldUnknown creates an unknown field error
func FieldUnknown(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Detail: fmt.Sprintf("unknown field %q", fieldName),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// IO wraps a sink or source failure
func IO(phase Phase, path []string, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindIO,
		Path:  path,
		Cause: cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
