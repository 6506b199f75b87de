package interval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/protoglot/protoglot/internal/interval"
)

func TestInsertDisjointRangesSucceed(t *testing.T) {
	t.Parallel()
	var o interval.Occupancy[int32]

	assert.True(t, o.Insert(0, 9))
	assert.True(t, o.Insert(30, 39))
	assert.True(t, o.Insert(10, 29))
}

func TestInsertOverlappingRangeFails(t *testing.T) {
	t.Parallel()
	var o interval.Occupancy[int32]

	require := assert.New(t)
	require.True(o.Insert(10, 20))

	require.False(o.Insert(20, 25), "shares endpoint 20")
	require.False(o.Insert(5, 10), "shares endpoint 10")
	require.False(o.Insert(12, 15), "fully contained")
	require.False(o.Insert(0, 100), "fully contains")
}

func TestInsertAdjacentRangesSucceed(t *testing.T) {
	t.Parallel()
	var o interval.Occupancy[int32]

	assert.True(t, o.Insert(0, 9))
	assert.True(t, o.Insert(10, 19), "adjacent, not overlapping")
}

func TestContains(t *testing.T) {
	t.Parallel()
	var o interval.Occupancy[int32]
	o.Insert(10, 20)
	o.Insert(100, 200)

	assert.True(t, o.Contains(10))
	assert.True(t, o.Contains(15))
	assert.True(t, o.Contains(20))
	assert.True(t, o.Contains(150))

	assert.False(t, o.Contains(9))
	assert.False(t, o.Contains(21))
	assert.False(t, o.Contains(50))
}

func TestInsertPanicsOnInvertedRange(t *testing.T) {
	t.Parallel()
	var o interval.Occupancy[int32]
	assert.Panics(t, func() { o.Insert(5, 4) })
}
