package wire

import (
	"math"
	"reflect"
)

// CoerceToUint64 accepts any Go integer, or an integral float, that is
// non-negative. Values decoded from YAML or JSON arrive as int or float64.
func CoerceToUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint:
		return uint64(v), true
	case int8:
		if v >= 0 {
			return uint64(v), true
		}
	case int16:
		if v >= 0 {
			return uint64(v), true
		}
	case int32:
		if v >= 0 {
			return uint64(v), true
		}
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case float64:
		if v >= 0 && v < float64(math.MaxUint64) && v == math.Trunc(v) {
			return uint64(v), true
		}
	case float32:
		f := float64(v)
		if f >= 0 && f < float64(math.MaxUint64) && f == math.Trunc(f) {
			return uint64(f), true
		}
	default:
		return coerceKind(value, func(rv reflect.Value) (uint64, bool) {
			switch rv.Kind() {
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
				return rv.Uint(), true
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				if i := rv.Int(); i >= 0 {
					return uint64(i), true
				}
			}
			return 0, false
		})
	}
	return 0, false
}

// CoerceToInt64 accepts any Go integer, or an integral float, that fits an
// int64.
func CoerceToInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case float64:
		if v >= math.MinInt64 && v < math.MaxInt64 && v == math.Trunc(v) {
			return int64(v), true
		}
	case float32:
		f := float64(v)
		if f >= math.MinInt64 && f < math.MaxInt64 && f == math.Trunc(f) {
			return int64(f), true
		}
	default:
		return coerceKind(value, func(rv reflect.Value) (int64, bool) {
			switch rv.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				return rv.Int(), true
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
				if u := rv.Uint(); u <= math.MaxInt64 {
					return int64(u), true
				}
			}
			return 0, false
		})
	}
	return 0, false
}

// CoerceToFloat64 accepts any Go number.
func CoerceToFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

// coerceKind handles named integer types (type Port uint16) by their
// underlying kind.
func coerceKind[T any](value any, fn func(reflect.Value) (T, bool)) (T, bool) {
	var zero T
	if value == nil {
		return zero, false
	}
	return fn(reflect.ValueOf(value))
}

// FitsUnsigned reports whether v fits in an unsigned integer of the given
// bit width.
func FitsUnsigned(v uint64, bits int) bool {
	return bits >= 64 || v < 1<<uint(bits)
}

// FitsSigned reports whether v fits in a two's-complement integer of the
// given bit width.
func FitsSigned(v int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	limit := int64(1) << uint(bits-1)
	return v >= -limit && v < limit
}

// SignExtend interprets the low bits of v as a two's-complement integer.
func SignExtend(v uint64, bits int) int64 {
	shift := uint(64 - bits)
	return int64(v<<shift) >> shift
}
