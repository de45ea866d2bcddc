// Package siunit scales a raw byte or line count into the [1.0, 1000.0)
// range used by the display formatter for the transferred-count and
// rate components.
package siunit

import "math"

// belowUnity and aboveUnity are the prefix alphabets on either side of the
// anchor (a plain space, meaning "no prefix").
const belowUnity = "yzafpnum"
const aboveUnity = "kMGTPEZY"

// Scaled is a value already reduced into [1.0, 1000.0) plus the prefix
// letter that describes the scale factor applied ("" for no prefix).
type Scaled struct {
	Value  float64
	Prefix string
}

// Scale reduces v into [1.0, 1000.0), using ratio (1024 for byte-valued
// quantities, 1000 for line-valued quantities) as the step between
// successive prefixes. A value of 0 returns an empty prefix. A value in
// [1000, ratio) cannot be brought into that range (one division would
// take it below 1.0) and is returned unscaled with no prefix. The caller
// is responsible for bounding the *result* at 100,000 before
// formatting; bounding here, before scaling, would make a 1MiB transfer
// display as "97.7k" instead of "1M".
func Scale(v float64, ratio float64) Scaled {
	if v == 0 {
		return Scaled{Value: 0, Prefix: ""}
	}

	neg := v < 0
	if neg {
		v = -v
	}

	steps := 0
	for v >= 1000.0 {
		v /= ratio
		steps++
		if steps >= len(aboveUnity) {
			break
		}
	}
	for v > 0 && v < 1.0 {
		v *= ratio
		steps--
		if -steps >= len(belowUnity) {
			break
		}
	}

	prefix := ""
	switch {
	case steps > 0:
		prefix = string(aboveUnity[steps-1])
	case steps < 0:
		prefix = string(belowUnity[len(belowUnity)+steps])
	}

	if neg {
		v = -v
	}
	return Scaled{Value: v, Prefix: prefix}
}

// Clamp restricts a percentage-like value to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
