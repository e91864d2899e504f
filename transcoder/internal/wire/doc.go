// Package wire provides the low-level helpers shared by the encoder and
// decoder: numeric coercion of loosely typed Go values, fixed-width
// little-endian scalar access, checked arithmetic and decode limits.
//
// This package is internal to the transcoder.
package wire
