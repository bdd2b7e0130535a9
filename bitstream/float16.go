package bitstream

import "math"

// float64ToFloat16Bits converts x to the bit pattern of an IEEE-754
// binary16 value, saturating to +-Inf if x is out of representable range.
// This keeps the format's invariant that every finite write succeeds: a
// write never fails merely because the destination width is too narrow
// for the magnitude of the value.
func float64ToFloat16Bits(x float64) uint16 {
	sign := uint16(0)
	if math.Signbit(x) {
		sign = 1
	}
	if math.IsNaN(x) {
		return (sign << 15) | 0x7E00 // quiet NaN
	}

	ax := math.Abs(x)
	if math.IsInf(ax, 1) {
		return (sign << 15) | 0x7C00
	}
	if ax == 0 {
		return sign << 15
	}

	// ax = frac1 * 2^e1, frac1 in [1,2): frexp gives [0.5,1), rescale by one.
	frac, exp := math.Frexp(ax)
	frac1 := frac * 2
	e1 := exp - 1

	const bias = 15
	if e1 > bias {
		// Overflow: saturate to signed infinity rather than failing.
		return (sign << 15) | 0x7C00
	}

	if e1 >= -14 {
		mantissa := uint32(math.Round((frac1 - 1) * 1024))
		biasedExp := uint32(e1 + bias)
		if mantissa == 1024 {
			mantissa = 0
			biasedExp++
		}
		if biasedExp >= 31 {
			return (sign << 15) | 0x7C00
		}
		return (sign << 15) | uint16(biasedExp)<<10 | uint16(mantissa)
	}

	// Subnormal range, or underflow to zero if too far below it.
	shift := -14 - e1
	if shift > 24 {
		return sign << 15
	}
	mantissa := uint32(math.Round(frac1 / math.Pow(2, float64(shift)) * 1024))
	if mantissa >= 1024 {
		return (sign << 15) | (1 << 10) // rounds up into the smallest normal
	}
	return (sign << 15) | uint16(mantissa)
}

// float16BitsToFloat64 expands an IEEE-754 binary16 bit pattern to its
// float64 value.
func float16BitsToFloat64(bits uint16) float64 {
	sign := uint64(bits>>15) & 1
	exp := int((bits >> 10) & 0x1F)
	frac := uint64(bits & 0x3FF)

	switch {
	case exp == 0x1F:
		if frac != 0 {
			return math.NaN()
		}
		if sign == 1 {
			return math.Inf(-1)
		}
		return math.Inf(1)
	case exp == 0:
		if frac == 0 {
			if sign == 1 {
				return math.Copysign(0, -1)
			}
			return 0
		}
		// Subnormal binary16: value = frac * 2^-24, signed.
		v := float64(frac) * math.Pow(2, -24)
		if sign == 1 {
			v = -v
		}
		return v
	default:
		bits64 := (sign << 63) | (uint64(exp-15+1023) << 52) | (frac << 42)
		return math.Float64frombits(bits64)
	}
}
