package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanEven(t *testing.T) {
	segments := Plan(1000, 4)
	require.Len(t, segments, 4)
	assert.Equal(t, Segment{Start: 0, End: 250}, segments[0])
	assert.Equal(t, Segment{Start: 250, End: 500}, segments[1])
	assert.Equal(t, Segment{Start: 500, End: 750}, segments[2])
	assert.Equal(t, Segment{Start: 750, End: 1000}, segments[3])
}

func TestPlanLastAbsorbsRemainder(t *testing.T) {
	segments := Plan(10, 4)
	require.Len(t, segments, 4)
	assert.Equal(t, int64(2), segments[0].Length())
	assert.Equal(t, int64(2), segments[1].Length())
	assert.Equal(t, int64(2), segments[2].Length())
	assert.Equal(t, int64(4), segments[3].Length())
}

func TestPlanProperties(t *testing.T) {
	sizes := []int64{1, 7, 100, 999, 1000, 1 << 20, 1<<20 + 3}
	counts := []int{1, 2, 3, 4, 7, 8, 16, 64}
	for _, size := range sizes {
		for _, n := range counts {
			segments := Plan(size, n)
			require.NotEmpty(t, segments)
			var sum, prev int64
			for i, s := range segments {
				assert.Equal(t, prev, s.Start, "size=%d n=%d segment %d contiguous", size, n, i)
				assert.Greater(t, s.End, s.Start)
				sum += s.Length()
				prev = s.End
			}
			assert.Equal(t, size, sum, "size=%d n=%d lengths sum to total", size, n)
			assert.Equal(t, size, segments[len(segments)-1].End)
		}
	}
}

func TestPlanDegenerate(t *testing.T) {
	assert.Nil(t, Plan(0, 4))
	assert.Nil(t, Plan(100, 0))
	assert.Nil(t, Plan(-1, 4))

	single := Plan(100, 1)
	require.Len(t, single, 1)
	assert.Equal(t, Segment{Start: 0, End: 100}, single[0])

	// More segments than bytes collapses to one segment per byte.
	tiny := Plan(3, 8)
	require.Len(t, tiny, 3)
}

func TestRangeHeader(t *testing.T) {
	assert.Equal(t, "bytes=0-98", Segment{Start: 0, End: 99}.RangeHeader())
	assert.Equal(t, "bytes=42-42", Segment{Start: 42, End: 43}.RangeHeader())
	assert.Equal(t, "bytes=250-499", Segment{Start: 250, End: 500}.RangeHeader())
}

func TestBitmapRoundTrip(t *testing.T) {
	b := NewBitmap(10)
	assert.False(t, b.AllComplete(10))
	b.SetComplete(0)
	b.SetComplete(3)
	b.SetComplete(9)

	restored := BitmapFromBytes(b.Bytes(10), 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, b.IsComplete(i), restored.IsComplete(i), "bit %d", i)
	}
	assert.Equal(t, 3, restored.CountComplete(10))
}

func TestBitmapAllComplete(t *testing.T) {
	b := NewBitmap(5)
	for i := 0; i < 5; i++ {
		assert.False(t, b.AllComplete(5))
		b.SetComplete(i)
	}
	assert.True(t, b.AllComplete(5))
}

func TestBitmapFromBytesTolerant(t *testing.T) {
	// Extra bytes ignored on serialize.
	b := BitmapFromBytes([]byte{0xFF, 0xFF}, 8)
	assert.True(t, b.AllComplete(8))
	assert.Len(t, b.Bytes(8), 1)

	// Short blob treated as incomplete tail.
	short := BitmapFromBytes([]byte{0xFF}, 16)
	assert.True(t, short.IsComplete(7))
	assert.False(t, short.IsComplete(8))
}

func TestBitmapSelectsOnlyIncomplete(t *testing.T) {
	segments := Plan(1000, 4)
	b := NewBitmap(4)
	b.SetComplete(0)
	b.SetComplete(2)

	var remaining []int
	for i := range segments {
		if !b.IsComplete(i) {
			remaining = append(remaining, i)
		}
	}
	assert.Equal(t, []int{1, 3}, remaining)
}
