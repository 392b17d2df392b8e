package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/minios/arenakit/memutils"
)

// BlockMetadata represents the ledger of a single flat arena of memory. It manages
// suballocations within the arena, allowing allocations to be requested and freed, as well as
// enumerated and queried.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. It discards any existing ledger and
	// replaces it with a single free region of size bytes.
	Init(size int)
	// Size retrieves the size in bytes that the block was initialized with
	Size() int

	// Validate performs internal consistency checks on the metadata. These checks may be expensive, depending
	// on the implementation. When the implementation is functioning correctly, it should not be possible
	// for this method to return an error, but this may assist in diagnosing issues with the implementation.
	Validate() error
	// AllocationCount returns the number of suballocations currently live in the implementation.
	AllocationCount() int
	// FreeRegionsCount returns the number of unique regions of free memory in the block. Adjacent
	// regions of free memory are always merged, so they are never counted separately.
	FreeRegionsCount() int
	// RegionCount returns the number of ledger entries, allocated and free
	RegionCount() int
	// SumFreeSize returns the number of free bytes of memory in the block.
	SumFreeSize() int
	// OwnerUsage returns the number of bytes held by live allocations belonging to owner
	OwnerUsage(owner Owner) int

	// IsEmpty will return true if this block has no live suballocations
	IsEmpty() bool

	// VisitAllRegions will call the provided callback once for each allocation and free region in
	// the block, in ascending offset order. If the callback returns an error, iteration stops and the
	// error is returned.
	VisitAllRegions(handleBlock func(offset int, size int, owner Owner, free bool) error) error

	// AddDetailedStatistics sums this block's allocation statistics into the statistics currently present
	// in the provided memutils.DetailedStatistics object.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this block's allocation statistics into the statistics currently present in the
	// provided memutils.Statistics object.
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all allocations
	Clear()
	// BlockJsonData populates a json object with summary information about this block
	BlockJsonData(json *jwriter.ObjectState)
	// PrintDetailedMap populates a json object with an array describing every region of the block
	PrintDetailedMap(json *jwriter.ObjectState)

	// CreateAllocationRequest retrieves an AllocationRequest object indicating where and how the implementation
	// would prefer to allocate the requested memory. That object can be passed to Alloc to commit the
	// allocation.
	//
	// The boolean return value is false, with a nil error, when no free region can hold allocSize bytes.
	// An error is returned only when allocSize is not a positive number of bytes.
	CreateAllocationRequest(allocSize int) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest object, creating the suballocation within the block based
	// on the data described in the AllocationRequest. The implementation must return an error if the
	// allocation is no longer valid- i.e. the requested free region no longer exists, is not free,
	// offset has changed, is no longer large enough to support the request, etc.
	Alloc(request AllocationRequest, owner Owner) error

	// Free frees the suballocation beginning at offset, causing it to become a free region once again,
	// and returns the suballocation as it was before it was freed.
	//
	// The implementation must return an error wrapping memutils.ErrNotFound if no region begins at offset,
	// and an error wrapping memutils.ErrDoubleFree if that region is already free.
	Free(offset int) (Suballocation, error)
	// FreeOwner frees every suballocation belonging to owner and returns them as they were before
	// they were freed, in ascending offset order.
	FreeOwner(owner Owner) []Suballocation
}

// BlockMetadataBase is a simple struct that provides a few shared utilities for BlockMetadata
// implementations in the memutils module.
type BlockMetadataBase struct {
	size int
}

// Init prepares this structure for allocations and sizes the block in bytes based on the parameter size.
func (m *BlockMetadataBase) Init(size int) {
	m.size = size
}

// Size returns the size of the block in bytes
func (m *BlockMetadataBase) Size() int { return m.size }

// BlockJsonData populates a json object with information about this block
func (m *BlockMetadataBase) BlockJsonData(json *jwriter.ObjectState, unusedBytes, allocationCount, unusedRangeCount int) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("UnusedBytes").Int(unusedBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
}

func (m *BlockMetadataBase) printDetailedMapUnusedRange(json *jwriter.ArrayState, offset, size int) {
	obj := json.Object()
	defer obj.End()

	obj.Name("Offset").Int(offset)
	obj.Name("Type").String(SuballocationFree.String())
	obj.Name("Size").Int(size)
}

func (m *BlockMetadataBase) printDetailedMapAllocation(json *jwriter.ArrayState, offset, size int, owner Owner) {
	obj := json.Object()
	defer obj.End()

	obj.Name("Offset").Int(offset)
	obj.Name("Type").String(SuballocationAllocated.String())
	obj.Name("Size").Int(size)
	obj.Name("Owner").Int(int(owner))
}
