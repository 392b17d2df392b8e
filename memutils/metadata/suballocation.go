package metadata

// Owner identifies the process on whose behalf a block was allocated. The ledger treats it as
// opaque and only compares it for equality.
type Owner int

const (
	// NoOwner is the owner of every free block. It cannot be used to allocate.
	NoOwner Owner = -1
)

type SuballocationType uint32

const (
	SuballocationFree SuballocationType = iota
	SuballocationAllocated
)

var suballocationTypeMapping = map[SuballocationType]string{
	SuballocationFree:      "FREE",
	SuballocationAllocated: "ALLOCATED",
}

func (s SuballocationType) String() string {
	str, ok := suballocationTypeMapping[s]
	if !ok {
		return "unknown SuballocationType"
	}

	return str
}

// Suballocation is a single entry in the ledger: a contiguous range of the arena that is either
// free or held by one owner
type Suballocation struct {
	Offset    int
	Size      int
	Allocated bool
	Owner     Owner
}

func (s Suballocation) Type() SuballocationType {
	if s.Allocated {
		return SuballocationAllocated
	}

	return SuballocationFree
}

// End is the offset of the first byte after this suballocation
func (s Suballocation) End() int {
	return s.Offset + s.Size
}
