// Package transcoder encodes Go values to, and decodes them from, the
// shape-directed wire format.
//
// Every call walks a *shape.Shape tree. Dispatch is on the shape kind
// alone; the value is never inspected to decide what to write:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ value ←→ [Dispatcher] ←→ primitive │ aggregate │ sum type    │
//	│                          sequence  │ list      │ container   │
//	└──────────────────────────────────────────────────────────────┘
//
// # Wire Format
//
//	Shape       Encoding
//	──────────────────────────────────────────────────────────────
//	bool        1 byte, 0 or 1 (decode: non-zero is true)
//	uN/sN/fN    N/8 bytes little-endian, floats bit for bit
//	void        nothing
//	array       elements, no prefix
//	slice       u64 length, elements
//	struct      fields in declaration order
//	packed      backing integer
//	optional    0x00 | 0x01 value
//	enum        member value in the backing integer
//	union       tag enum, active payload
//	fallible    0x00 value | 0x01 error code
//	list        u64 length, elements
//	map         [context] u64 count, (key value)*, hashed: 0x00
//
// # Values
//
//	Shape       Go value produced by Decode
//	──────────────────────────────────────────────────────────────
//	bool        bool
//	uN/sN       uint8..uint64 / int8..int64
//	fN          float32 / float64
//	void        struct{}{}
//	array/slice []any; []byte for u8 elements; string for Text slices
//	struct      map[string]any (also encodes from []any, positionally)
//	packed      map[string]any of bool and integer fields
//	optional    nil or the inner value; value.Some when the inner shape is
//	            optional too
//	enum        member name
//	union       value.Union
//	fallible    value.Fallible; an error is *value.Error
//	list        *value.List
//	map         *value.HashMap or *value.OrderedMap
//
// Encode is lenient about numeric types: any Go integer, or integral
// float, in range of the target width is accepted.
//
// # Allocation
//
// Decode charges slices, lists and containers to the supplied Allocator
// before allocating them. When a decode fails, everything it reserved is
// freed before the error is returned. A successful decode transfers the
// reservations to the value; Release returns them.
//
// # Thread Safety
//
// Encoder, Decoder, Codec and Compiler are safe for concurrent use. Each
// call keeps its state on its own stack.
package transcoder
