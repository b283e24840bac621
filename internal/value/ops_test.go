package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyIncrement(t *testing.T) {
	v, err := ApplyIncrement(NewUInt32(41))
	require.NoError(t, err)
	assert.True(t, v.Equal(NewUInt32(42)))

	_, err = ApplyIncrement(NewAscii("x"))
	assert.Error(t, err)
}

func TestIntDeltaRoundTrip(t *testing.T) {
	base := NewInt32(10)
	cur := NewInt32(-7)
	delta, err := FindIntDelta(cur, base)
	require.NoError(t, err)
	got, err := ApplyIntDelta(base, delta)
	require.NoError(t, err)
	assert.True(t, got.Equal(cur))
}

func TestIntDeltaInt32OutOfRange(t *testing.T) {
	base := NewInt32(2000000000)
	_, err := ApplyIntDelta(base, 2000000000)
	assert.Error(t, err)
}

func TestStringDeltaExamples(t *testing.T) {
	// FAST 1.1 appendix scenario 4 values: "GEH6" -> "GEM6" -> "ESM6" -> "RSESM6".
	cases := []struct{ base, cur string }{
		{"GEH6", "GEM6"},
		{"GEM6", "ESM6"},
		{"ESM6", "RSESM6"},
	}
	for _, tc := range cases {
		sub, diff := FindStringDelta(tc.cur, tc.base)
		got, err := StringTailDelta(tc.base, sub, diff)
		require.NoError(t, err)
		assert.Equal(t, tc.cur, got, "round trip for %q -> %q", tc.base, tc.cur)
	}
}

func TestStringDeltaPrefersBackFormOnTie(t *testing.T) {
	sub, diff := FindStringDelta("ABC", "ABD")
	got, err := StringTailDelta("ABD", sub, diff)
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)

	// "ABA" -> "A" is a tie: both forms send an empty diff, and the back
	// form (remove 2 from the end) wins over the front form (sub -3).
	sub, diff = FindStringDelta("A", "ABA")
	assert.Equal(t, int64(2), sub)
	assert.Equal(t, "", diff)
}

func TestStringDeltaRemovalExceedsBase(t *testing.T) {
	_, err := StringTailDelta("ab", 5, "x")
	assert.Error(t, err)
}

func TestTailSemantics(t *testing.T) {
	base := "CMEFUT"
	tail := "XYZ"
	got := ApplyTail(base, tail)
	assert.Equal(t, "CMEXYZ", got)

	found, err := FindTail("CMEXYZ", base)
	require.NoError(t, err)
	assert.Equal(t, ApplyTail(base, found), "CMEXYZ")
}

func TestTailCannotShorten(t *testing.T) {
	_, err := FindTail("ab", "abcdef")
	assert.Error(t, err)
}

func TestTailEqualLengthStripsCommonPrefix(t *testing.T) {
	tail, err := FindTail("GEM6", "GEH6")
	require.NoError(t, err)
	assert.Equal(t, "M6", tail)
	assert.Equal(t, "GEM6", ApplyTail("GEH6", tail))
}
