package value

import (
	"fmt"
	"math"
)

// ApplyIncrement produces value+1 of the same integral kind (spec.md §4.2).
// It is an error to call this for a non-integral kind; callers are expected
// to have already rejected that combination at compile time ([S2]).
func ApplyIncrement(v Value) (Value, error) {
	switch v.Kind {
	case UInt32:
		return NewUInt32(uint32(v.U) + 1), nil
	case UInt64:
		return NewUInt64(v.U + 1), nil
	case Int32:
		return NewInt32(int32(v.I) + 1), nil
	case Int64:
		return NewInt64(v.I + 1), nil
	default:
		return Value{}, fmt.Errorf("increment not defined for kind %s", v.Kind)
	}
}

// ApplyIntDelta combines a base value of an integral kind with a signed
// delta, producing a value of the same kind. For Int32 the combined value
// is range-checked against the 32-bit domain ([ERR D2]).
func ApplyIntDelta(base Value, delta int64) (Value, error) {
	switch base.Kind {
	case UInt32:
		return NewUInt32(uint32(int64(base.U) + delta)), nil
	case UInt64:
		return NewUInt64(uint64(int64(base.U) + delta)), nil
	case Int32:
		combined := base.I + delta
		if combined < math.MinInt32 || combined > math.MaxInt32 {
			return Value{}, fmt.Errorf("[D2] int32 delta out of range: %d", combined)
		}
		return NewInt32(int32(combined)), nil
	case Int64:
		return NewInt64(base.I + delta), nil
	default:
		return Value{}, fmt.Errorf("integer delta not defined for kind %s", base.Kind)
	}
}

// FindIntDelta is the encoder-side inverse of ApplyIntDelta: the delta
// required to move from base to cur.
func FindIntDelta(cur, base Value) (int64, error) {
	if cur.Kind != base.Kind {
		return 0, fmt.Errorf("kind mismatch in delta discovery: %s vs %s", cur.Kind, base.Kind)
	}
	switch cur.Kind {
	case UInt32, UInt64:
		return int64(cur.U) - int64(base.U), nil
	case Int32, Int64:
		return cur.I - base.I, nil
	default:
		return 0, fmt.Errorf("integer delta not defined for kind %s", cur.Kind)
	}
}

// StringTailDelta applies a (sub, diff) byte/char delta to base, per the
// removal rule in spec.md §4.2: sub >= 0 removes sub characters from the
// end of base before appending diff; sub < 0 removes (-sub-1) characters
// from the front of base before prepending diff.
func StringTailDelta(base string, sub int64, diff string) (string, error) {
	result, err := bytesTailDelta([]byte(base), sub, []byte(diff))
	if err != nil {
		return "", err
	}
	return string(result), nil
}

// BytesTailDelta is the byte-slice analogue of StringTailDelta.
func BytesTailDelta(base []byte, sub int64, diff []byte) ([]byte, error) {
	return bytesTailDelta(base, sub, diff)
}

func bytesTailDelta(base []byte, sub int64, diff []byte) ([]byte, error) {
	if sub >= 0 {
		remove := int(sub)
		if remove > len(base) {
			return nil, fmt.Errorf("[D7] delta removal count %d exceeds base length %d", remove, len(base))
		}
		out := make([]byte, 0, len(base)-remove+len(diff))
		out = append(out, base[:len(base)-remove]...)
		out = append(out, diff...)
		return out, nil
	}
	remove := int(-sub - 1)
	if remove > len(base) {
		return nil, fmt.Errorf("[D7] delta removal count %d exceeds base length %d", remove, len(base))
	}
	out := make([]byte, 0, len(base)-remove+len(diff))
	out = append(out, diff...)
	out = append(out, base[remove:]...)
	return out, nil
}

// FindStringDelta is the encoder-side inverse: given cur and base, find
// the shortest-subtractable (sub, diff) pair. Ties between a front-removal
// and a back-removal encoding prefer the back (append) form.
func FindStringDelta(cur, base string) (sub int64, diff string) {
	s, d := findBytesDelta([]byte(cur), []byte(base))
	return s, string(d)
}

// FindBytesDelta is the byte-slice analogue of FindStringDelta.
func FindBytesDelta(cur, base []byte) (sub int64, diff []byte) {
	return findBytesDelta(cur, base)
}

func findBytesDelta(cur, base []byte) (int64, []byte) {
	// Back (append) form: keep the longest common PREFIX of base and cur,
	// remove the rest of base from the end, append what's left of cur.
	prefix := 0
	for prefix < len(cur) && prefix < len(base) && cur[prefix] == base[prefix] {
		prefix++
	}
	backSub := int64(len(base) - prefix)
	backDiff := append([]byte(nil), cur[prefix:]...)

	// Front (prepend) form: keep the longest common SUFFIX of base and cur,
	// remove the rest of base from the front, prepend what's left of cur.
	suffix := 0
	for suffix < len(cur) && suffix < len(base) && cur[len(cur)-1-suffix] == base[len(base)-1-suffix] {
		suffix++
	}
	frontRemove := len(base) - suffix
	frontSub := int64(-frontRemove - 1)
	frontDiff := append([]byte(nil), cur[:len(cur)-suffix]...)

	// Prefer whichever transmits less; ties go to the back form.
	if len(frontDiff) < len(backDiff) {
		return frontSub, frontDiff
	}
	return backSub, backDiff
}

// ApplyTail replaces a suffix of base of length min(|base|,|tail|) with tail.
func ApplyTail(base, tail string) string {
	return string(applyBytesTail([]byte(base), []byte(tail)))
}

// ApplyBytesTail is the byte-slice analogue of ApplyTail.
func ApplyBytesTail(base, tail []byte) []byte {
	return applyBytesTail(base, tail)
}

func applyBytesTail(base, tail []byte) []byte {
	keep := len(base) - len(tail)
	if keep < 0 {
		keep = 0
	}
	out := make([]byte, 0, keep+len(tail))
	out = append(out, base[:keep]...)
	out = append(out, tail...)
	return out
}

// FindTail is the encoder-side inverse of ApplyTail: it is a dynamic error
// for cur to be shorter than base, since tail cannot shorten.
func FindTail(cur, base string) (string, error) {
	t, err := findBytesTail([]byte(cur), []byte(base))
	if err != nil {
		return "", err
	}
	return string(t), nil
}

// FindBytesTail is the byte-slice analogue of FindTail.
func FindBytesTail(cur, base []byte) ([]byte, error) {
	return findBytesTail(cur, base)
}

func findBytesTail(cur, base []byte) ([]byte, error) {
	switch {
	case len(cur) > len(base):
		return append([]byte(nil), cur...), nil
	case len(cur) < len(base):
		return nil, fmt.Errorf("tail cannot shorten base (|cur|=%d < |base|=%d)", len(cur), len(base))
	default:
		common := 0
		for common < len(cur) && cur[common] == base[common] {
			common++
		}
		return append([]byte(nil), cur[common:]...), nil
	}
}
