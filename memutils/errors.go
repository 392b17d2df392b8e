package memutils

import "github.com/cockroachdb/errors"

var (
	// ErrNotInitialized is returned by every arena operation made before the arena has been
	// initialized or after it has been shut down
	ErrNotInitialized = errors.New("arena is not initialized")
	// ErrInvalidCapacity is returned when an arena is initialized with a capacity that is not a
	// positive number of bytes
	ErrInvalidCapacity = errors.New("arena capacity must be a positive number of bytes")
	// ErrInvalidSize is returned when an allocation of zero or fewer bytes is requested
	ErrInvalidSize = errors.New("allocation size must be a positive number of bytes")
	// ErrInvalidOwner is returned when an allocation is requested on behalf of metadata.NoOwner
	ErrInvalidOwner = errors.New("allocations must have an owner")
	// ErrOutOfMemory is returned when an allocation requests more bytes than are free in the arena
	ErrOutOfMemory = errors.New("not enough free memory in the arena")
	// ErrFragmented is returned when enough bytes are free in the arena to satisfy an allocation, but
	// no single free region is large enough to hold it
	ErrFragmented = errors.New("no free region is large enough for the allocation")
	// ErrNotFound is returned when freeing an address at which no block begins
	ErrNotFound = errors.New("no block begins at the address")
	// ErrInvalidAddress marks ErrNotFound errors for addresses that fall within the arena but
	// in the middle of a block
	ErrInvalidAddress = errors.New("address is not the start of a block")
	// ErrDoubleFree is returned when freeing a block that is already free
	ErrDoubleFree = errors.New("block is already free")
)
