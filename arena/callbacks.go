package arena

// AllocateCallback is called after an allocation has been placed in the arena
type AllocateCallback func(
	arena *Arena,
	owner Owner,
	address int,
	size int,
	userData any,
)

// FreeCallback is called after an allocation has been released, either by Arena.Free or as one
// of the blocks released by Arena.FreeOwner
type FreeCallback func(
	arena *Arena,
	owner Owner,
	address int,
	size int,
	userData any,
)

// MemoryCallbackOptions is an optional set of callbacks that are executed when memory is
// allocated from or released to the arena. Callbacks run while the arena is locked, so they
// must not call back into the arena.
type MemoryCallbackOptions struct {
	Allocate AllocateCallback
	Free     FreeCallback
	UserData any
}

type memoryCallbacks struct {
	Callbacks *MemoryCallbackOptions
	Arena     *Arena
}

func (c *memoryCallbacks) Allocate(owner Owner, address, size int) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.Arena, owner, address, size, c.Callbacks.UserData)
	}
}

func (c *memoryCallbacks) Free(owner Owner, address, size int) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.Arena, owner, address, size, c.Callbacks.UserData)
	}
}
