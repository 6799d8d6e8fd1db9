package ids

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestJoinKeys(t *testing.T) {
	got := JoinKeys([]byte{0xaa}, []byte{0xbb, 0xcc})
	assert.Equal(t, ID{0xaa, '-', '-', '-', 0xbb, 0xcc}, got)
	assert.Equal(t, ID{0xaa}, JoinKeys([]byte{0xaa}))
	assert.Empty(t, JoinKeys())
}

func TestCompoundKeyNesting(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5}

	assert.Equal(t, JoinKeys(a, b), CompoundKey(a, b))
	assert.Equal(t, JoinKeys(a, b, b), CompoundKey(CompoundKey(a, b), b))
}

func TestJoinKeysSeparatorCollision(t *testing.T) {
	// parts that carry the separator are not distinguishable
	left := JoinKeys([]byte("a---b"), []byte("c"))
	right := JoinKeys([]byte("a"), []byte("b---c"))
	assert.Equal(t, left, right)
}

func TestJoinKeysEdgeDashCollision(t *testing.T) {
	// a trailing or leading dash shifts the split point
	left := JoinKeys([]byte("a-"), []byte("b"))
	right := JoinKeys([]byte("a"), []byte("-b"))
	assert.Equal(t, left, right)
}

// separable reports whether p can sit next to Separator without the split
// point becoming ambiguous.
func separable(p []byte) bool {
	if bytes.Contains(p, Separator) {
		return false
	}
	return p[0] != '-' && p[len(p)-1] != '-'
}

func TestJoinKeysInjective(t *testing.T) {
	part := rapid.SliceOfN(rapid.Byte(), 1, 48).Filter(separable)

	rapid.Check(t, func(rt *rapid.T) {
		a1 := part.Draw(rt, "a1")
		b1 := part.Draw(rt, "b1")
		a2 := rapid.SampledFrom([][]byte{a1, part.Draw(rt, "a2")}).Draw(rt, "a2pick")
		b2 := rapid.SampledFrom([][]byte{b1, part.Draw(rt, "b2")}).Draw(rt, "b2pick")

		same := bytes.Equal(a1, a2) && bytes.Equal(b1, b2)
		if JoinKeys(a1, b1).Equal(JoinKeys(a2, b2)) != same {
			rt.Fatalf("JoinKeys(%x, %x) vs JoinKeys(%x, %x): equal keys must mean equal parts", a1, b1, a2, b2)
		}
	})
}

func TestJoinKeysAsText(t *testing.T) {
	assert.Equal(t, "0xabc-3-1", JoinKeysAsText("0xabc", "3", "1"))
}

func TestDayNumber(t *testing.T) {
	launch := uint64(time.Date(2020, 12, 17, 0, 0, 0, 0, time.UTC).Unix())
	assert.Equal(t, int32(0), DayNumber(launch))
	assert.Equal(t, int32(0), DayNumber(launch+86399))
	assert.Equal(t, int32(1), DayNumber(launch+86400))

	start, end := DayBounds(launch + 3600)
	assert.Equal(t, launch, start)
	assert.Equal(t, launch+86400, end)
}

func TestDayKeySameDay(t *testing.T) {
	entity := []byte{0x01}
	ts := uint64(1700000000)
	assert.Equal(t, DayKey(entity, ts), DayKey(entity, ts+10))
	assert.NotEqual(t, DayKey(entity, ts), DayKey(entity, ts+86400))
}
