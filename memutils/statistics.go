package memutils

import "math"

// Statistics is a coarse summary of one or more arenas: how many bytes they manage and how
// many of those bytes are currently handed out
type Statistics struct {
	// BlockCount is the number of arenas summed into these statistics
	BlockCount int
	// AllocationCount is the number of live allocations
	AllocationCount int
	// BlockBytes is the total capacity in bytes
	BlockBytes int
	// AllocationBytes is the number of bytes held by live allocations
	AllocationBytes int
}

// Clear resets the statistics so that they can be populated again
func (s *Statistics) Clear() {
	s.BlockCount = 0
	s.AllocationCount = 0
	s.BlockBytes = 0
	s.AllocationBytes = 0
}

// UnusedBytes is the number of bytes that are not held by any allocation
func (s *Statistics) UnusedBytes() int {
	return s.BlockBytes - s.AllocationBytes
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.BlockCount += other.BlockCount
	s.AllocationCount += other.AllocationCount
	s.BlockBytes += other.BlockBytes
	s.AllocationBytes += other.AllocationBytes
}

// DetailedStatistics extends Statistics with the shape of the ledger: how many free ranges
// exist and how large the allocations and free ranges are
type DetailedStatistics struct {
	Statistics
	UnusedRangeCount   int
	AllocationSizeMin  int
	AllocationSizeMax  int
	UnusedRangeSizeMin int
	UnusedRangeSizeMax int
}

// Clear resets the statistics so that they can be populated again. Minimums are reset to
// math.MaxInt so that the first range added replaces them.
func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UnusedRangeCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxInt
	s.UnusedRangeSizeMax = 0
}

func (s *DetailedStatistics) AddUnusedRange(size int) {
	s.UnusedRangeCount++

	if size < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = size
	}

	if size > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

// LargestUnusedRange is the size of the biggest free range, which bounds the largest allocation
// that can currently succeed
func (s *DetailedStatistics) LargestUnusedRange() int {
	return s.UnusedRangeSizeMax
}

// ExternalFragmentation reports how much of the unused memory lies outside the largest free range,
// from 0 (all free memory is contiguous) to 1
func (s *DetailedStatistics) ExternalFragmentation() float64 {
	unused := s.UnusedBytes()
	if unused <= 0 {
		return 0
	}

	return 1 - float64(s.UnusedRangeSizeMax)/float64(unused)
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.UnusedRangeCount += other.UnusedRangeCount

	if other.UnusedRangeSizeMin < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = other.UnusedRangeSizeMin
	}

	if other.UnusedRangeSizeMax > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = other.UnusedRangeSizeMax
	}

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}
