// Package shapecodec provides a schema-driven binary codec.
//
// A value is encoded according to a shape descriptor that both sides know
// in advance. Nothing on the wire describes the type: no headers, no
// version numbers, no field tags. The only markers are the presence,
// discriminant and sentinel bytes that the shape itself defines.
//
// # Architecture Overview
//
//	shapecodec/          Root package with Sink, Source and Allocator contracts
//	├── shape/           Shape descriptors, constructors and validation
//	├── value/           Runtime values: unions, fallibles, lists, maps
//	├── transcoder/      Recursive encoder/decoder and buffer helpers
//	├── shapefile/       YAML schema files and value documents
//	├── wasmmem/         Sink/Source over WebAssembly linear memory
//	├── errors/          Structured error types for debugging
//	└── cmd/wirecat/     Command line encoder/decoder
//
// # Quick Start
//
//	point := shape.Struct("point",
//	    shape.F("x", shape.S32()),
//	    shape.F("y", shape.S32()),
//	)
//
//	data, err := transcoder.EncodeToBuffer(point, map[string]any{"x": 1, "y": -2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := transcoder.DecodeFromBuffer(data, point, shapecodec.Heap)
//
// # Wire Format
//
// Multi-byte scalars are little-endian. Lengths and counts are u64.
// Presence, error and sentinel flags are single bytes holding 0 or 1.
// The encoding of a value is the concatenation defined by its shape tree.
//
// # Thread Safety
//
// Encoders, decoders and validated shapes are safe for concurrent use.
// Each call keeps its own state; a shared Allocator must itself be safe
// for concurrent use (Heap and Budget are).
package shapecodec
