// Package value defines the runtime values that the transcoder produces
// for shapes Go has no native form for: tagged unions, fallible values,
// error-set members, growable lists and associative containers. Some marks
// a present optional whose payload may itself be absent.
//
// Scalars, structs and sequences use plain Go values (uint32, string,
// []any, map[string]any); see the transcoder package documentation for
// the full mapping.
//
// Lists and maps decoded by the transcoder own their storage. When their
// shape binds the allocator, Release returns the reservation to it.
package value
