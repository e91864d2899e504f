// Package shape defines shape descriptors: the static description of a
// value's wire layout that both sides of an exchange agree on ahead of
// time.
//
// A descriptor is a tree of *Shape nodes built with the constructors in
// this package:
//
//	point := shape.Struct("point",
//	    shape.F("x", shape.S32()),
//	    shape.F("y", shape.S32()),
//	)
//	status := shape.Enum("status", shape.U8(), shape.Ordinals("idle", "busy")...)
//	errs := shape.ErrorSet("io", shape.M("timeout", 1), shape.M("closed", 2))
//	reply := shape.Fallible(errs, point)
//
// Descriptors are immutable once built. Validate checks the construction
// contract (member widths, union completeness, packed bit budgets, error
// set placement and the absence of cycles) and is run by the transcoder
// before any byte is produced or consumed.
//
// Primitive constructors return shared singletons. Constructors that take
// options (WithContext, Named) return copies.
package shape
