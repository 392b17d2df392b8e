package metadata

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/minios/arenakit/memutils"
	"golang.org/x/exp/slices"
)

// DefaultSplitThreshold is the split threshold used when NewFirstFitBlockMetadata receives zero
const DefaultSplitThreshold int = 64

// FirstFitBlockMetadata is a BlockMetadata implementation that keeps the arena as a single vector
// of regions ordered by offset, covering the whole arena with no gaps.
//
// Allocations are placed in the lowest-offset free region that is large enough to hold them. When
// the chosen region is at least splitThreshold bytes larger than the request, the leftover bytes are
// split off into a new free region; otherwise the whole region is handed out. Freed regions are
// merged with their free neighbors immediately, so no two adjacent regions are ever both free.
type FirstFitBlockMetadata struct {
	BlockMetadataBase

	splitThreshold  int
	sumFreeSize     int
	allocationCount int
	suballocations  []Suballocation
	ownerBytes      *swiss.Map[Owner, int]
}

var _ BlockMetadata = &FirstFitBlockMetadata{}

// NewFirstFitBlockMetadata creates a new FirstFitBlockMetadata. splitThreshold is the minimum number
// of leftover bytes for which a free region will be split; if it is zero or less, DefaultSplitThreshold
// is used.
func NewFirstFitBlockMetadata(splitThreshold int) *FirstFitBlockMetadata {
	if splitThreshold <= 0 {
		splitThreshold = DefaultSplitThreshold
	}

	return &FirstFitBlockMetadata{
		splitThreshold: splitThreshold,
	}
}

// Init prepares this structure for allocations and sizes the block in bytes based on the parameter size.
// Any existing ledger is discarded.
func (m *FirstFitBlockMetadata) Init(size int) {
	m.BlockMetadataBase.Init(size)
	m.sumFreeSize = size
	m.allocationCount = 0
	m.suballocations = append(m.suballocations[:0], Suballocation{
		Offset: 0,
		Size:   size,
		Owner:  NoOwner,
	})
	m.ownerBytes = swiss.NewMap[Owner, int](42)
}

// SplitThreshold returns the minimum number of leftover bytes for which a free region is split
func (m *FirstFitBlockMetadata) SplitThreshold() int { return m.splitThreshold }

// SumFreeSize returns the number of free bytes of memory in the block.
func (m *FirstFitBlockMetadata) SumFreeSize() int { return m.sumFreeSize }

func (m *FirstFitBlockMetadata) AllocationCount() int { return m.allocationCount }

func (m *FirstFitBlockMetadata) FreeRegionsCount() int {
	return len(m.suballocations) - m.allocationCount
}

func (m *FirstFitBlockMetadata) RegionCount() int { return len(m.suballocations) }

// IsEmpty will return true if this block has no live suballocations
func (m *FirstFitBlockMetadata) IsEmpty() bool { return m.allocationCount == 0 }

func (m *FirstFitBlockMetadata) OwnerUsage(owner Owner) int {
	bytes, _ := m.ownerBytes.Get(owner)
	return bytes
}

// Validate performs internal consistency checks on the metadata: the regions must tile the whole
// block in offset order, no two free regions may be adjacent, and the cached free size, allocation
// count and per-owner usage must match the regions.
func (m *FirstFitBlockMetadata) Validate() error {
	if len(m.suballocations) == 0 {
		return errors.New("the ledger has no regions")
	}

	if m.sumFreeSize < 0 || m.sumFreeSize > m.Size() {
		return errors.Errorf("invalid metadata free size %d for a block of size %d", m.sumFreeSize, m.Size())
	}

	ownerBytes := swiss.NewMap[Owner, int](uint32(m.ownerBytes.Count() + 1))
	var offset, sumFreeSize, allocationCount int
	prevFree := false

	for index, suballoc := range m.suballocations {
		if suballoc.Offset != offset {
			return errors.Errorf("region at index %d has offset %d, but the previous region ended at %d", index, suballoc.Offset, offset)
		}

		if suballoc.Size <= 0 {
			return errors.Errorf("region at offset %d has invalid size %d", suballoc.Offset, suballoc.Size)
		}

		if suballoc.Allocated {
			if suballoc.Owner == NoOwner {
				return errors.Errorf("region at offset %d is allocated but has no owner", suballoc.Offset)
			}

			allocationCount++
			held, _ := ownerBytes.Get(suballoc.Owner)
			ownerBytes.Put(suballoc.Owner, held+suballoc.Size)
			prevFree = false
		} else {
			if suballoc.Owner != NoOwner {
				return errors.Errorf("region at offset %d is free but lists owner %d", suballoc.Offset, suballoc.Owner)
			}

			if prevFree {
				return errors.Errorf("free region at offset %d was not merged with the free region before it", suballoc.Offset)
			}

			sumFreeSize += suballoc.Size
			prevFree = true
		}

		offset = suballoc.End()
	}

	if offset != m.Size() {
		return errors.Errorf("regions end at offset %d, but the block is %d bytes", offset, m.Size())
	}

	if sumFreeSize != m.sumFreeSize {
		return errors.Errorf("counted %d free bytes, but metadata indicates we should have %d", sumFreeSize, m.sumFreeSize)
	}

	if allocationCount != m.allocationCount {
		return errors.Errorf("counted %d allocations, but metadata indicates we should have %d", allocationCount, m.allocationCount)
	}

	if ownerBytes.Count() != m.ownerBytes.Count() {
		return errors.Errorf("counted %d owners holding memory, but metadata indicates we should have %d", ownerBytes.Count(), m.ownerBytes.Count())
	}

	var ownerErr error
	m.ownerBytes.Iter(func(owner Owner, bytes int) bool {
		counted, _ := ownerBytes.Get(owner)
		if counted != bytes {
			ownerErr = errors.Errorf("counted %d bytes held by owner %d, but metadata indicates it should hold %d", counted, owner, bytes)
			return true
		}
		return false
	})

	return ownerErr
}

// VisitAllRegions will call the provided callback once for each allocation and free region in
// the block, in ascending offset order.
func (m *FirstFitBlockMetadata) VisitAllRegions(handleBlock func(offset int, size int, owner Owner, free bool) error) error {
	for _, suballoc := range m.suballocations {
		err := handleBlock(suballoc.Offset, suballoc.Size, suballoc.Owner, !suballoc.Allocated)
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *FirstFitBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += m.Size()

	for _, suballoc := range m.suballocations {
		if suballoc.Allocated {
			stats.AddAllocation(suballoc.Size)
		} else {
			stats.AddUnusedRange(suballoc.Size)
		}
	}
}

func (m *FirstFitBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.AllocationCount += m.allocationCount
	stats.BlockBytes += m.Size()
	stats.AllocationBytes += m.Size() - m.sumFreeSize
}

// Clear instantly frees all allocations
func (m *FirstFitBlockMetadata) Clear() {
	m.Init(m.Size())
}

// BlockJsonData populates a json object with information about this block
func (m *FirstFitBlockMetadata) BlockJsonData(json *jwriter.ObjectState) {
	m.BlockMetadataBase.BlockJsonData(json, m.sumFreeSize, m.allocationCount, m.FreeRegionsCount())
	json.Name("SplitThreshold").Int(m.splitThreshold)
}

// PrintDetailedMap adds a Regions array to the json object with one entry per region, in offset order
func (m *FirstFitBlockMetadata) PrintDetailedMap(json *jwriter.ObjectState) {
	arrayState := json.Name("Regions").Array()
	defer arrayState.End()

	for _, suballoc := range m.suballocations {
		if suballoc.Allocated {
			m.printDetailedMapAllocation(&arrayState, suballoc.Offset, suballoc.Size, suballoc.Owner)
		} else {
			m.printDetailedMapUnusedRange(&arrayState, suballoc.Offset, suballoc.Size)
		}
	}
}

// CreateAllocationRequest finds the first free region, in offset order, that can hold allocSize bytes.
func (m *FirstFitBlockMetadata) CreateAllocationRequest(allocSize int) (bool, AllocationRequest, error) {
	if allocSize <= 0 {
		return false, AllocationRequest{}, errors.Wrapf(memutils.ErrInvalidSize, "requested %d bytes", allocSize)
	}

	// Early return: the aggregate check is cheaper than the scan
	if allocSize > m.sumFreeSize {
		return false, AllocationRequest{}, nil
	}

	for index, suballoc := range m.suballocations {
		if suballoc.Allocated || suballoc.Size < allocSize {
			continue
		}

		request := AllocationRequest{
			Offset:        suballoc.Offset,
			Size:          suballoc.Size,
			RequestedSize: allocSize,
			AlgorithmData: uint64(index),
		}

		if suballoc.Size-allocSize >= m.splitThreshold {
			request.Size = allocSize
			request.Split = true
		}

		return true, request, nil
	}

	return false, AllocationRequest{}, nil
}

// Alloc commits an AllocationRequest produced by CreateAllocationRequest
func (m *FirstFitBlockMetadata) Alloc(request AllocationRequest, owner Owner) error {
	if owner == NoOwner {
		return errors.Wrap(memutils.ErrInvalidOwner, "attempted to commit an allocation request without an owner")
	}

	index := int(request.AlgorithmData)
	if index < 0 || index >= len(m.suballocations) {
		return errors.Errorf("allocation request refers to region %d, but the ledger only has %d regions", index, len(m.suballocations))
	}

	suballoc := m.suballocations[index]
	if suballoc.Allocated || suballoc.Offset != request.Offset {
		return errors.Errorf("allocation request for offset %d no longer refers to a free region", request.Offset)
	}

	if request.Size <= 0 || request.Size > suballoc.Size {
		return errors.Errorf("allocation request for %d bytes does not fit in the %d-byte region at offset %d", request.Size, suballoc.Size, suballoc.Offset)
	}

	m.suballocations[index] = Suballocation{
		Offset:    suballoc.Offset,
		Size:      request.Size,
		Allocated: true,
		Owner:     owner,
	}

	if request.Size < suballoc.Size {
		m.suballocations = slices.Insert(m.suballocations, index+1, Suballocation{
			Offset: suballoc.Offset + request.Size,
			Size:   suballoc.Size - request.Size,
			Owner:  NoOwner,
		})
	}

	m.sumFreeSize -= request.Size
	m.allocationCount++
	held, _ := m.ownerBytes.Get(owner)
	m.ownerBytes.Put(owner, held+request.Size)

	return nil
}

// Free releases the allocation that begins at offset and merges it with any free neighbors
func (m *FirstFitBlockMetadata) Free(offset int) (Suballocation, error) {
	index, found := m.findRegion(offset)
	if !found {
		err := errors.Wrapf(memutils.ErrNotFound, "address %d", offset)
		if offset >= 0 && offset < m.Size() {
			err = errors.Mark(err, memutils.ErrInvalidAddress)
		}
		return Suballocation{}, err
	}

	suballoc := m.suballocations[index]
	if !suballoc.Allocated {
		return Suballocation{}, errors.Wrapf(memutils.ErrDoubleFree, "region at address %d", offset)
	}

	m.release(index)
	m.mergeNeighbors(index)

	return suballoc, nil
}

// FreeOwner releases every allocation held by owner and then merges free regions in one pass
func (m *FirstFitBlockMetadata) FreeOwner(owner Owner) []Suballocation {
	if owner == NoOwner || !m.ownerBytes.Has(owner) {
		return nil
	}

	var released []Suballocation
	for index, suballoc := range m.suballocations {
		if suballoc.Allocated && suballoc.Owner == owner {
			released = append(released, suballoc)
			m.release(index)
		}
	}

	m.coalesce()
	return released
}

// findRegion performs a binary search for the region beginning exactly at offset
func (m *FirstFitBlockMetadata) findRegion(offset int) (int, bool) {
	index := sort.Search(len(m.suballocations), func(i int) bool {
		return m.suballocations[i].Offset >= offset
	})

	return index, index < len(m.suballocations) && m.suballocations[index].Offset == offset
}

// release marks a region free without merging it
func (m *FirstFitBlockMetadata) release(index int) {
	suballoc := &m.suballocations[index]

	held, _ := m.ownerBytes.Get(suballoc.Owner)
	held -= suballoc.Size
	if held <= 0 {
		m.ownerBytes.Delete(suballoc.Owner)
	} else {
		m.ownerBytes.Put(suballoc.Owner, held)
	}

	m.sumFreeSize += suballoc.Size
	m.allocationCount--

	suballoc.Allocated = false
	suballoc.Owner = NoOwner
}

// mergeNeighbors merges the free region at index with the regions on either side of it, if they
// are free. The rest of the ledger must already be fully merged.
func (m *FirstFitBlockMetadata) mergeNeighbors(index int) {
	if index+1 < len(m.suballocations) && !m.suballocations[index+1].Allocated {
		m.suballocations[index].Size += m.suballocations[index+1].Size
		m.suballocations = slices.Delete(m.suballocations, index+1, index+2)
	}

	if index > 0 && !m.suballocations[index-1].Allocated {
		m.suballocations[index-1].Size += m.suballocations[index].Size
		m.suballocations = slices.Delete(m.suballocations, index, index+1)
	}
}

// coalesce merges every run of adjacent free regions in a single left-to-right pass
func (m *FirstFitBlockMetadata) coalesce() {
	if len(m.suballocations) < 2 {
		return
	}

	merged := m.suballocations[:1]
	for _, suballoc := range m.suballocations[1:] {
		last := &merged[len(merged)-1]
		if !last.Allocated && !suballoc.Allocated {
			last.Size += suballoc.Size
			continue
		}

		merged = append(merged, suballoc)
	}

	m.suballocations = merged
}
