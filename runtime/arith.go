package runtime

import (
	"math"
	"math/big"
	"math/bits"
)

// Numeric tower: arithmetic between the built-in numeric
// representations with exact promotion. int64 arithmetic detects
// overflow by sign-bit analysis of the operands and the naive result,
// and only then recomputes in big.Int by correcting the wrapped value
// with ±2^64. Everything here is a pure function of its operands.

const bit63 = uint64(1) << 63

// big2_64 is 2^64; the correction applied to a wrapped int64 result.
var big2_64 = new(big.Int).Lsh(big.NewInt(1), 64)

// big2_63 is 2^63, the magnitude of -math.MinInt64.
var big2_63 = new(big.Int).Lsh(big.NewInt(1), 63)

// narrowResult returns an int32 when r fits, else an int64. Keeping
// results in the narrow representation preserves the common fast case.
func narrowResult(r int64) Object {
	if r >= math.MinInt32 && r <= math.MaxInt32 {
		return int32(r)
	}
	return r
}

// normalizeBig shrinks a big.Int result back into int32/int64 when it
// fits. Handler implementations call this so the representation of a
// value depends only on its magnitude, never on its history.
func normalizeBig(z *big.Int) Object {
	if z.IsInt64() {
		return narrowResult(z.Int64())
	}
	return z
}

// intAdd adds two wide integers, promoting on overflow.
func intAdd(v, w int64) Object {
	r := v + w
	if (uint64(v)^uint64(w))&bit63 != 0 {
		// Signs were opposite: the result is in range.
		return narrowResult(r)
	}
	if (uint64(v)^uint64(r))&bit63 == 0 {
		// Result sign matches the (common) operand sign.
		return narrowResult(r)
	}
	return correctWrapped(r)
}

// intSub subtracts two wide integers, promoting on overflow.
func intSub(v, w int64) Object {
	r := v - w
	if (uint64(v)^uint64(w))&bit63 == 0 {
		// Signs were the same: the result is in range.
		return narrowResult(r)
	}
	if (uint64(v)^uint64(r))&bit63 == 0 {
		// Result sign matches the first operand.
		return narrowResult(r)
	}
	return correctWrapped(r)
}

// correctWrapped adjusts a wrapped naive result by ±2^64.
func correctWrapped(r int64) Object {
	z := big.NewInt(r)
	if r < 0 {
		// Wrapped negative: the true value is r + 2^64.
		return z.Add(z, big2_64)
	}
	// Wrapped positive: the true value is r - 2^64.
	return z.Sub(z, big2_64)
}

// intMul multiplies two wide integers. A leading-zero count on the
// absolute values proves, in the common case, that the product cannot
// leave the wide range; otherwise the product is formed in big.Int.
func intMul(v, w int64) Object {
	if v == 0 || w == 0 {
		return int32(0)
	}
	// |v| <= 2^(64-zv) even when v == math.MinInt64.
	zv := bits.LeadingZeros64(absU64(v) - 1)
	zw := bits.LeadingZeros64(absU64(w) - 1)
	if zv+zw >= 66 {
		// |v||w| <= 2^(128-(zv+zw)) <= 2^62: cannot wrap.
		return narrowResult(v * w)
	}
	z := new(big.Int).Mul(big.NewInt(v), big.NewInt(w))
	return normalizeBig(z)
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(-v) // wraps correctly for MinInt64
	}
	return uint64(v)
}

// intNeg negates a wide integer; only -MinInt64 escapes the range.
func intNeg(v int64) Object {
	if v == math.MinInt64 {
		return new(big.Int).Set(big2_63)
	}
	return narrowResult(-v)
}

// intTrueDiv implements true division: the result is always a float,
// regardless of divisibility. Conversion of very large operands to
// float64 is lossy; that is documented behaviour, not a defect.
func intTrueDiv(v, w int64) Object {
	return float64(v) / float64(w)
}

// intFloorDiv divides rounding toward negative infinity. Division by
// zero follows host semantics; the surrounding interpreter is expected
// to guard the divisor. The only overflowing case is MinInt64 // -1.
func intFloorDiv(v, w int64) Object {
	if v == math.MinInt64 && w == -1 {
		return new(big.Int).Set(big2_63)
	}
	q := v / w
	if (v < 0) != (w < 0) && q*w != v {
		q--
	}
	return narrowResult(q)
}

// intMod computes the remainder with the sign of the divisor,
// consistent with floor division: v == (v//w)*w + (v%w).
func intMod(v, w int64) Object {
	r := v % w
	if r != 0 && (r < 0) != (w < 0) {
		r += w
	}
	return narrowResult(r)
}

// bigAdd, bigSub, bigMul operate in arbitrary precision and normalize
// the result back down when it fits.
func bigAdd(v, w *big.Int) Object { return normalizeBig(new(big.Int).Add(v, w)) }
func bigSub(v, w *big.Int) Object { return normalizeBig(new(big.Int).Sub(v, w)) }
func bigMul(v, w *big.Int) Object { return normalizeBig(new(big.Int).Mul(v, w)) }

// bigTrueDiv converts both operands to float64. For magnitudes beyond
// the float range this yields ±Inf rather than an error.
func bigTrueDiv(v, w *big.Int) Object {
	fv, _ := new(big.Float).SetInt(v).Float64()
	fw, _ := new(big.Float).SetInt(w).Float64()
	return fv / fw
}

// bigFloorDiv floors like intFloorDiv but in arbitrary precision.
func bigFloorDiv(v, w *big.Int) Object {
	q, m := new(big.Int).QuoRem(v, w, new(big.Int))
	if m.Sign() != 0 && (m.Sign() < 0) != (w.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return normalizeBig(q)
}

// bigMod follows the divisor's sign, matching intMod.
func bigMod(v, w *big.Int) Object {
	m := new(big.Int).Rem(v, w)
	if m.Sign() != 0 && (m.Sign() < 0) != (w.Sign() < 0) {
		m.Add(m, w)
	}
	return normalizeBig(m)
}

// bigToFloat converts for mixed big/float arithmetic (lossy for very
// large magnitudes, by the same documented rule as int64).
func bigToFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
