// Package mathx holds small numeric helpers shared by the panel logic.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// InRange reports lo <= v && v <= hi (order-insensitive).
func InRange[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// Map re-maps v from [inLo, inHi] to [outLo, outHi] with integer math,
// truncating toward zero. A degenerate input range returns outLo.
func Map[T constraints.Integer](v, inLo, inHi, outLo, outHi T) T {
	if inHi == inLo {
		return outLo
	}
	return (v-inLo)*(outHi-outLo)/(inHi-inLo) + outLo
}
