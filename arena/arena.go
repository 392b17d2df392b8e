package arena

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/minios/arenakit/arena/internal/utils"
	"github.com/minios/arenakit/memutils"
	"github.com/minios/arenakit/memutils/metadata"
	"golang.org/x/exp/slog"
)

// Arena hands out regions of a fixed-size range of addresses on behalf of owners, placing each
// allocation in the first free block large enough to hold it. An Arena is safe for concurrent use
// unless it was created with CreateExternallySynchronized.
type Arena struct {
	logger         *slog.Logger
	mutex          utils.OptionalRWMutex
	createFlags    CreateFlags
	splitThreshold int
	callbacks      memoryCallbacks

	// nil when the arena has not been initialized or has been shut down
	metadata metadata.BlockMetadata
}

// Initialize discards the arena's current ledger, if any, and replaces it with a single free
// block of capacity bytes. Allocations that were live in the old ledger are reported to the
// logger as unreleased memory.
func (a *Arena) Initialize(capacity int) error {
	a.logger.Debug("Arena::Initialize", slog.Int("capacity", capacity))

	err := memutils.CheckPositive(capacity, "capacity", ErrInvalidCapacity)
	if err != nil {
		return err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.metadata != nil {
		a.logUnreleasedMemory()
	}

	md := metadata.NewFirstFitBlockMetadata(a.splitThreshold)
	md.Init(capacity)
	memutils.DebugValidate(md)

	a.metadata = md
	return nil
}

// Flags returns the CreateFlags the arena was created with
func (a *Arena) Flags() CreateFlags {
	return a.createFlags
}

// IsInitialized returns true if the arena can currently serve requests
func (a *Arena) IsInitialized() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.metadata != nil
}

// Capacity returns the size in bytes of the arena
func (a *Arena) Capacity() (int, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return 0, ErrNotInitialized
	}

	return a.metadata.Size(), nil
}

// Allocate reserves size bytes for owner and returns the address of the new allocation. The
// allocation is placed in the lowest-addressed free block that can hold it, and may be slightly
// larger than size if the leftover space in that block was too small to split off.
//
// On failure the returned address is -1 and the arena is unchanged. The returned error wraps
// ErrInvalidSize, ErrInvalidOwner, ErrOutOfMemory (fewer than size bytes are free),
// ErrFragmented (enough bytes are free, but not in a single block) or ErrNotInitialized.
func (a *Arena) Allocate(size int, owner Owner) (int, error) {
	a.logger.Debug("Arena::Allocate", slog.Int("size", size), slog.Int("owner", int(owner)))

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.metadata == nil {
		return -1, errors.Wrap(ErrNotInitialized, "attempted to allocate")
	}

	if size <= 0 {
		return -1, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}

	if owner == NoOwner {
		return -1, errors.Wrapf(ErrInvalidOwner, "requested %d bytes for owner %d", size, owner)
	}

	freeBytes := a.metadata.SumFreeSize()
	if size > freeBytes {
		return -1, errors.Wrapf(ErrOutOfMemory, "requested %d bytes, but only %d are free", size, freeBytes)
	}

	success, request, err := a.metadata.CreateAllocationRequest(size)
	if err != nil {
		return -1, err
	}

	if !success {
		return -1, errors.Wrapf(ErrFragmented, "requested %d bytes, and %d are free, but they are split across %d regions",
			size, freeBytes, a.metadata.FreeRegionsCount())
	}

	err = a.metadata.Alloc(request, owner)
	if err != nil {
		return -1, err
	}
	memutils.DebugValidate(a.metadata)

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Allocated",
		slog.Int("address", request.Offset),
		slog.Int("size", request.Size),
		slog.Int("owner", int(owner)),
	)
	a.callbacks.Allocate(owner, request.Offset, request.Size)

	return request.Offset, nil
}

// Free releases the allocation that begins at address, merging it with any free neighbors.
//
// The returned error wraps ErrNotFound if no block begins at address (additionally marked
// ErrInvalidAddress when address falls inside the arena), ErrDoubleFree if the block at address
// is already free, or ErrNotInitialized.
func (a *Arena) Free(address int) error {
	a.logger.Debug("Arena::Free", slog.Int("address", address))

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.metadata == nil {
		return errors.Wrap(ErrNotInitialized, "attempted to free")
	}

	released, err := a.metadata.Free(address)
	if err != nil {
		return err
	}
	memutils.DebugValidate(a.metadata)

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Freed",
		slog.Int("address", released.Offset),
		slog.Int("size", released.Size),
		slog.Int("owner", int(released.Owner)),
	)
	a.callbacks.Free(released.Owner, released.Offset, released.Size)

	return nil
}

// FreeOwner releases every allocation held by owner and returns the number of bytes released.
// An owner that holds no memory is not an error; 0 is returned.
func (a *Arena) FreeOwner(owner Owner) (int, error) {
	a.logger.Debug("Arena::FreeOwner", slog.Int("owner", int(owner)))

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.metadata == nil {
		return 0, errors.Wrap(ErrNotInitialized, "attempted to free owner memory")
	}

	released := a.metadata.FreeOwner(owner)
	memutils.DebugValidate(a.metadata)

	var freedBytes int
	for _, suballoc := range released {
		freedBytes += suballoc.Size
		a.callbacks.Free(suballoc.Owner, suballoc.Offset, suballoc.Size)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Freed owner memory",
		slog.Int("owner", int(owner)),
		slog.Int("blocks", len(released)),
		slog.Int("size", freedBytes),
	)

	return freedBytes, nil
}

// OwnerUsage returns the number of bytes currently held by owner
func (a *Arena) OwnerUsage(owner Owner) (int, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return 0, ErrNotInitialized
	}

	return a.metadata.OwnerUsage(owner), nil
}

// Validate checks the arena's ledger for internal consistency. It should never return an error
// other than ErrNotInitialized; any other error indicates a bug in the arena.
func (a *Arena) Validate() error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return ErrNotInitialized
	}

	return a.metadata.Validate()
}

// Shutdown discards the arena's ledger. Allocations that are still live are reported to the
// logger as unreleased memory. Every operation other than Initialize fails with
// ErrNotInitialized afterwards. Shutting down an arena that is not initialized does nothing.
func (a *Arena) Shutdown() {
	a.logger.Debug("Arena::Shutdown")

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.metadata == nil {
		return
	}

	a.logUnreleasedMemory()
	a.metadata = nil
}

func (a *Arena) logUnreleasedMemory() {
	if a.metadata.IsEmpty() {
		return
	}

	_ = a.metadata.VisitAllRegions(func(offset int, size int, owner Owner, free bool) error {
		if free {
			return nil
		}

		a.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed allocation",
			slog.Int("address", offset),
			slog.Int("size", size),
			slog.Int("owner", int(owner)),
		)
		return nil
	})
}
