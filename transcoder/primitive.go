package transcoder

import (
	"math"

	"github.com/wippyai/shape-codec/errors"
	"github.com/wippyai/shape-codec/shape"
	"github.com/wippyai/shape-codec/transcoder/internal/wire"
)

// encodePrimitive writes a fixed-width scalar little-endian. Floats are
// written bit for bit; NaN payloads and signed zero survive.
func (st *encodeState) encodePrimitive(s *shape.Shape, v any, path []string) error {
	k := s.Kind
	switch k {
	case shape.KindBool:
		b, ok := v.(bool)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), "bool")
		}
		if b {
			return st.writeFlag(1, path)
		}
		return st.writeFlag(0, path)

	case shape.KindF32:
		f, ok := v.(float32)
		if !ok {
			f64, isNum := wire.CoerceToFloat64(v)
			if !isNum {
				return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), "f32")
			}
			f = float32(f64)
		}
		return st.writeUint(k, uint64(math.Float32bits(f)), path)

	case shape.KindF64:
		f, ok := wire.CoerceToFloat64(v)
		if !ok {
			return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), "f64")
		}
		return st.writeUint(k, math.Float64bits(f), path)
	}

	if k.IsSigned() {
		i, ok := wire.CoerceToInt64(v)
		if !ok || !wire.FitsSigned(i, k.Bits()) {
			return numberError(path, v, k.String())
		}
		return st.writeUint(k, uint64(i), path)
	}
	u, ok := wire.CoerceToUint64(v)
	if !ok || !wire.FitsUnsigned(u, k.Bits()) {
		return numberError(path, v, k.String())
	}
	return st.writeUint(k, u, path)
}

func (st *decodeState) decodePrimitive(k shape.Kind, path []string) (any, error) {
	bits, err := st.readUint(k, path)
	if err != nil {
		return nil, err
	}
	switch k {
	case shape.KindBool:
		return bits != 0, nil
	case shape.KindF32:
		return math.Float32frombits(uint32(bits)), nil
	case shape.KindF64:
		return math.Float64frombits(bits), nil
	}
	return intValue(k, bits), nil
}

// intValue converts raw little-endian bits to the Go integer type of k.
func intValue(k shape.Kind, bits uint64) any {
	switch k {
	case shape.KindU8:
		return uint8(bits)
	case shape.KindS8:
		return int8(bits)
	case shape.KindU16:
		return uint16(bits)
	case shape.KindS16:
		return int16(bits)
	case shape.KindU32:
		return uint32(bits)
	case shape.KindS32:
		return int32(bits)
	case shape.KindU64:
		return bits
	case shape.KindS64:
		return int64(bits)
	}
	return bits
}

// signedValue interprets raw backing bits as the member value domain of an
// enum or error set.
func signedValue(k shape.Kind, bits uint64) int64 {
	if k.IsSigned() {
		return wire.SignExtend(bits, k.Bits())
	}
	return int64(bits)
}
