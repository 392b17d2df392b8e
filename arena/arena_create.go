package arena

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/minios/arenakit/arena/internal/utils"
	"github.com/minios/arenakit/memutils/metadata"
	"golang.org/x/exp/slog"
)

const (
	// DefaultCapacity is the value that is used as the arena capacity when none is provided via
	// CreateOptions. It is equal to 1Mb.
	DefaultCapacity int = 1024 * 1024
)

// CreateOptions contains optional settings when creating an arena
type CreateOptions struct {
	// Flags indicates specific arena behaviors to activate or deactivate
	Flags CreateFlags
	// Capacity is the fixed size of the arena in bytes. If it is left at 0, DefaultCapacity is used.
	Capacity int
	// SplitThreshold is the minimum number of leftover bytes for which a free block will be split
	// when an allocation is placed in it. Smaller leftovers are handed to the allocation along with
	// the requested bytes. If it is left at 0, metadata.DefaultSplitThreshold is used.
	SplitThreshold int

	// MemoryCallbacks is an optional set of callbacks that will be executed when memory is
	// allocated from or released to the arena
	MemoryCallbacks *MemoryCallbackOptions
}

// New creates and initializes a new Arena
//
// logger - The logger that arena operations are reported to. If nil, log output is discarded.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Arena, error) {
	if options.Capacity < 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "CreateOptions.Capacity is %d", options.Capacity)
	}

	if options.SplitThreshold < 0 {
		return nil, errors.Newf("CreateOptions.SplitThreshold must not be negative, but it is %d", options.SplitThreshold)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	capacity := options.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	splitThreshold := options.SplitThreshold
	if splitThreshold == 0 {
		splitThreshold = metadata.DefaultSplitThreshold
	}

	arena := &Arena{
		logger:         logger,
		createFlags:    options.Flags,
		splitThreshold: splitThreshold,
		mutex:          utils.NewOptionalRWMutex(options.Flags&CreateExternallySynchronized == 0),
	}
	arena.callbacks = memoryCallbacks{
		Callbacks: options.MemoryCallbacks,
		Arena:     arena,
	}

	logger.Debug("Arena::New",
		slog.Int("Capacity", capacity),
		slog.Int("SplitThreshold", splitThreshold),
		slog.String("Flags", options.Flags.String()),
	)

	err := arena.Initialize(capacity)
	if err != nil {
		return nil, err
	}

	return arena, nil
}
