package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Decimal is the normalized (exponent, mantissa) pair from spec.md §3:
// value = mantissa * 10^exponent, with the invariant that mantissa is
// never divisible by 10 unless it is exactly zero (in which case exponent
// is also zero). Equality is structural (both fields compared directly).
type Decimal struct {
	Exponent int32
	Mantissa int64
}

// MinExponent and MaxExponent bound the wire representation (spec.md §3).
const (
	MinExponent = -63
	MaxExponent = 63
)

// Normalize divides out trailing factors of 10 from mantissa, folding them
// into exponent, until mantissa is no longer a multiple of 10 (or is zero).
func Normalize(mantissa int64, exponent int32) Decimal {
	if mantissa == 0 {
		return Decimal{}
	}
	for mantissa%10 == 0 {
		mantissa /= 10
		exponent++
	}
	return Decimal{Exponent: exponent, Mantissa: mantissa}
}

func (d Decimal) normalized() Decimal { return Normalize(d.Mantissa, d.Exponent) }

// InRange reports whether the exponent lies within the wire-legal range.
func (d Decimal) InRange() bool {
	return d.Exponent >= MinExponent && d.Exponent <= MaxExponent
}

// String renders the decimal as a plain decimal literal, e.g. 942755 with
// exponent 2 renders "94275500"; exponent -2 renders "9427.55".
func (d Decimal) String() string {
	d = d.normalized()
	neg := d.Mantissa < 0
	m := d.Mantissa
	if neg {
		m = -m
	}
	digits := strconv.FormatInt(m, 10)

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	switch {
	case d.Exponent >= 0:
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat("0", int(d.Exponent)))
	case -d.Exponent >= len(digits):
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -int(d.Exponent)-len(digits)))
		sb.WriteString(digits)
	default:
		cut := len(digits) + int(d.Exponent)
		sb.WriteString(digits[:cut])
		sb.WriteByte('.')
		sb.WriteString(digits[cut:])
	}
	return sb.String()
}

// ParseDecimal parses a plain decimal literal (as found in a FAST XML
// template's initial-value attribute) into a normalized Decimal. Used by
// the template compiler when validating [S3] initial-value literals.
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Decimal{}, fmt.Errorf("empty decimal literal")
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return Decimal{}, fmt.Errorf("invalid decimal literal")
	}

	intPart, fracPart, hasFrac := s, "", false
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart, hasFrac = s[:idx], s[idx+1:], true
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return Decimal{}, fmt.Errorf("invalid decimal literal %q", s)
		}
	}
	for _, c := range fracPart {
		if c < '0' || c > '9' {
			return Decimal{}, fmt.Errorf("invalid decimal literal %q", s)
		}
	}
	if hasFrac && fracPart == "" {
		return Decimal{}, fmt.Errorf("invalid decimal literal %q", s)
	}

	digits := intPart + fracPart
	exponent := -int32(len(fracPart))

	mantissa, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimal literal out of range %q: %w", s, err)
	}
	if neg {
		mantissa = -mantissa
	}

	d := Normalize(mantissa, exponent)
	if !d.InRange() {
		return Decimal{}, fmt.Errorf("decimal exponent %d out of range [-63,63]", d.Exponent)
	}
	return d, nil
}
