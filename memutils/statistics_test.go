package memutils_test

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/minios/arenakit/memutils"
	"github.com/stretchr/testify/require"
)

func TestDetailedStatisticsAccumulate(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	require.Equal(t, math.MaxInt, stats.AllocationSizeMin)
	require.Equal(t, math.MaxInt, stats.UnusedRangeSizeMin)

	stats.BlockCount = 1
	stats.BlockBytes = 1000
	stats.AddAllocation(100)
	stats.AddAllocation(300)
	stats.AddUnusedRange(200)
	stats.AddUnusedRange(400)

	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, 400, stats.AllocationBytes)
	require.Equal(t, 600, stats.UnusedBytes())
	require.Equal(t, 100, stats.AllocationSizeMin)
	require.Equal(t, 300, stats.AllocationSizeMax)
	require.Equal(t, 200, stats.UnusedRangeSizeMin)
	require.Equal(t, 400, stats.LargestUnusedRange())
	require.InDelta(t, 1-400.0/600.0, stats.ExternalFragmentation(), 0.0001)

	var other memutils.DetailedStatistics
	other.Clear()
	other.BlockCount = 1
	other.BlockBytes = 500
	other.AddAllocation(50)
	other.AddUnusedRange(450)

	stats.AddDetailedStatistics(&other)
	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      2,
			BlockBytes:      1500,
			AllocationCount: 3,
			AllocationBytes: 450,
		},
		UnusedRangeCount:   3,
		AllocationSizeMin:  50,
		AllocationSizeMax:  300,
		UnusedRangeSizeMin: 200,
		UnusedRangeSizeMax: 450,
	}, stats)
}

func TestExternalFragmentationWhenFull(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	stats.BlockBytes = 100
	stats.AddAllocation(100)

	require.Equal(t, 0.0, stats.ExternalFragmentation())
}

func TestCheckPositive(t *testing.T) {
	require.NoError(t, memutils.CheckPositive(1, "size", memutils.ErrInvalidSize))

	err := memutils.CheckPositive(0, "size", memutils.ErrInvalidSize)
	require.True(t, errors.Is(err, memutils.ErrInvalidSize))
	require.Contains(t, err.Error(), "size is 0")

	err = memutils.CheckPositive(-4, "capacity", memutils.ErrInvalidCapacity)
	require.True(t, errors.Is(err, memutils.ErrInvalidCapacity))
}

func TestPercent(t *testing.T) {
	require.Equal(t, 0.0, memutils.Percent(5, 0))
	require.Equal(t, 50.0, memutils.Percent(5, 10))
}
