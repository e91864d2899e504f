// Package errors is the structured error type shared by every package of
// the codec.
//
// An Error records the Phase that failed (compile, encode, decode, parse),
// a Kind, and the field path down to the failing value, for example
// "user.tags[3]". Shape and Go type names are attached when known.
//
//	err := errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
//		Path("user", "age").
//		GoType("string").
//		ShapeType("u32").
//		Build()
//
// Decode failures match the package sentinels through errors.Is, which
// compares Phase and Kind only:
//
//	if errors.Is(err, errors.ErrEndOfInput) { ... }
//
// Causes, such as a failing sink, are kept and reachable through Unwrap.
package errors
