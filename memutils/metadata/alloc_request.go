package metadata

// AllocationRequest is a type returned from BlockMetadata.CreateAllocationRequest which indicates where and how
// the metadata intends to allocate new memory. It can be committed to the metadata with BlockMetadata.Alloc
// as long as the metadata has not been changed in the meantime.
type AllocationRequest struct {
	// Offset is the address of the free block that was chosen, and of the resulting allocation
	Offset int
	// Size is the total size of the allocation. It is larger than RequestedSize when the leftover
	// space in the chosen block was too small to split off.
	Size int
	// RequestedSize is the size that was passed to CreateAllocationRequest
	RequestedSize int
	// Split is true when the chosen block will be divided into an allocated block and a free remainder
	Split bool

	// AlgorithmData is arbitrary data used by the BlockMetadata implementation for internal
	// purposes
	AlgorithmData uint64
}

// InternalFragmentation is the number of bytes handed to the allocation beyond what was requested
func (r AllocationRequest) InternalFragmentation() int {
	return r.Size - r.RequestedSize
}
