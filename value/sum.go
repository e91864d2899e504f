package value

import "fmt"

// Union is a tagged union value with exactly one active case.
type Union struct {
	Value any
	Case  string
}

func (u Union) String() string {
	if u.Value == nil {
		return "." + u.Case
	}
	return fmt.Sprintf(".%s = %v", u.Case, u.Value)
}

// Some marks a present optional whose payload is itself optional, so
// Some{nil} (present, inner absent) differs from nil (absent). Decode
// produces it only in that case; encode accepts it for any optional.
type Some struct {
	Value any
}

func (s Some) String() string {
	return fmt.Sprintf("some(%v)", s.Value)
}

// Fallible holds either a payload or an error from the shape's error set.
type Fallible struct {
	Value any
	Err   error
}

// Ok returns a successful Fallible.
func Ok(v any) Fallible {
	return Fallible{Value: v}
}

// Fail returns a failed Fallible.
func Fail(err error) Fallible {
	return Fallible{Err: err}
}

// IsError reports whether the error branch is active.
func (f Fallible) IsError() bool {
	return f.Err != nil
}

// Error is a member of an error set. Code is filled in on decode from the
// set's stable code table; encoders look members up by Name.
type Error struct {
	Name string
	Code uint64
}

// NewError returns an error-set member by name.
func NewError(name string) *Error {
	return &Error{Name: name}
}

func (e *Error) Error() string {
	return "error." + e.Name
}

// Is matches members by name so decoded errors compare equal to the
// values callers construct with NewError.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Name == e.Name
}
