// Package numeric parses the integer/decimal scalars with an optional
// SI-like suffix (K/M/G/T, powers of 1024) used by the --size, --rate-limit
// and --buffer-size flags.
package numeric

import "strings"

// shiftChunk is the largest shift applied in one step, to avoid overflowing
// a 64-bit shift on pathological input (e.g. "999999999T").
const shiftChunk = 30

// ParseCount parses a byte string such as "10M", "1.5G" or "4096" into an
// integer count. Leading non-digit characters are skipped; a fractional
// part of up to four digits is honored; trailing spaces/tabs are skipped
// before an optional case-insensitive suffix letter (K/M/G/T, powers of
// 1024). Missing or unparseable input yields 0.
func ParseCount(s string) int64 {
	i := 0
	n := len(s)

	for i < n && (s[i] < '0' || s[i] > '9') {
		i++
	}

	var intPart int64
	for i < n && s[i] >= '0' && s[i] <= '9' {
		intPart = intPart*10 + int64(s[i]-'0')
		i++
	}

	var fracPart int64
	var fracDigits int
	if i < n && (s[i] == '.' || s[i] == ',') {
		i++
		for i < n && s[i] >= '0' && s[i] <= '9' && fracDigits < 4 {
			fracPart = fracPart*10 + int64(s[i]-'0')
			fracDigits++
			i++
		}
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}

	for i < n && (s[i] == ' ' || s[i] == '\t') {
		i++
	}

	shift := 0
	if i < n {
		switch s[i] {
		case 'k', 'K':
			shift = 10
		case 'm', 'M':
			shift = 20
		case 'g', 'G':
			shift = 30
		case 't', 'T':
			shift = 40
		}
	}

	result := applyShift(intPart, shift)
	if fracDigits > 0 {
		divisor := pow10(fracDigits)
		fracShifted := applyShift(fracPart, shift)
		result += fracShifted / divisor
	}
	return result
}

// applyShift multiplies v by 2^shift, in chunks of at most shiftChunk bits
// at a time so no single shift overflows a 64-bit operand.
func applyShift(v int64, shift int) int64 {
	for shift > 0 {
		step := shift
		if step > shiftChunk {
			step = shiftChunk
		}
		v <<= uint(step)
		shift -= step
	}
	return v
}

func pow10(n int) int64 {
	r := int64(1)
	for ; n > 0; n-- {
		r *= 10
	}
	return r
}

// ParseReal parses the same digit/fractional scan as ParseCount but returns
// a float64 and never applies a suffix shift. Used for interval-style
// arguments that accept fractional seconds but no K/M/G/T suffix.
func ParseReal(s string) float64 {
	i := 0
	n := len(s)

	for i < n && (s[i] < '0' || s[i] > '9') {
		i++
	}

	var intPart float64
	for i < n && s[i] >= '0' && s[i] <= '9' {
		intPart = intPart*10 + float64(s[i]-'0')
		i++
	}

	var frac float64
	var scale float64 = 1
	if i < n && (s[i] == '.' || s[i] == ',') {
		i++
		for i < n && s[i] >= '0' && s[i] <= '9' {
			frac = frac*10 + float64(s[i]-'0')
			scale *= 10
			i++
		}
	}

	return intPart + frac/scale
}

// TrimSuffixLetter reports whether s ends in a recognized SI suffix letter,
// used by the option parser to validate user-supplied size/rate strings
// before handing them to ParseCount.
func TrimSuffixLetter(s string) (trimmed string, hasSuffix bool) {
	if s == "" {
		return s, false
	}
	last := s[len(s)-1]
	switch last {
	case 'k', 'K', 'm', 'M', 'g', 'G', 't', 'T':
		return strings.TrimSuffix(s, string(last)), true
	default:
		return s, false
	}
}
