package arena

import (
	"github.com/minios/arenakit/memutils"
	"github.com/minios/arenakit/memutils/metadata"
)

// Owner identifies the process on whose behalf memory is allocated
type Owner = metadata.Owner

// NoOwner is the owner of free memory. It cannot be used to allocate.
const NoOwner = metadata.NoOwner

// The errors returned by arena operations. Use errors.Is to test for them, since they are
// usually wrapped with details about the failed request.
var (
	ErrNotInitialized  = memutils.ErrNotInitialized
	ErrInvalidCapacity = memutils.ErrInvalidCapacity
	ErrInvalidSize     = memutils.ErrInvalidSize
	ErrInvalidOwner    = memutils.ErrInvalidOwner
	ErrOutOfMemory     = memutils.ErrOutOfMemory
	ErrFragmented      = memutils.ErrFragmented
	ErrNotFound        = memutils.ErrNotFound
	ErrInvalidAddress  = memutils.ErrInvalidAddress
	ErrDoubleFree      = memutils.ErrDoubleFree
)
