package ring

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// arenaBase is the synthetic bus address of the first arena buffer. Keeping
// it well away from zero makes stray zero addresses in descriptors obvious.
const arenaBase uint64 = 0x8000_0000

// ErrArenaSizeInvalid is returned when the arena geometry is invalid.
var ErrArenaSizeInvalid = errors.New("arena size is invalid")

// Arena is the buffer pool the ring slots index into. Every buffer has the
// same size and a fixed position for the whole lifetime of the arena, so a
// buffer index maps to a stable bus address. Buffer 0 is the reserved
// placeholder: slots that were never given a real buffer resolve to it.
type Arena struct {
	mem     []byte
	free    func() error
	numBufs uint32
	bufSize uint32

	// The sync counters are atomic because the tx and rx reconcilers of a
	// queue pair may run on different goroutines.
	syncedForDevice atomic.Uint64
	syncedForCPU    atomic.Uint64
}

// ArenaStats counts the DMA synchronization calls performed on the arena.
type ArenaStats struct {
	SyncedForDevice uint64
	SyncedForCPU    uint64
}

// NewArena allocates an arena of numBufs buffers of bufSize bytes each.
// Call [Arena.Close] to release the memory again.
func NewArena(numBufs, bufSize uint32) (*Arena, error) {
	if numBufs < 2 {
		return nil, fmt.Errorf("%w: need at least the placeholder and one real buffer", ErrArenaSizeInvalid)
	}
	if bufSize == 0 {
		return nil, fmt.Errorf("%w: buffer size is zero", ErrArenaSizeInvalid)
	}

	mem, free, err := allocRegion(int(numBufs) * int(bufSize))
	if err != nil {
		return nil, fmt.Errorf("allocate arena memory: %w", err)
	}

	return &Arena{
		mem:     mem,
		free:    free,
		numBufs: numBufs,
		bufSize: bufSize,
	}, nil
}

// Close releases the arena memory.
func (a *Arena) Close() error {
	if a.free != nil {
		err := a.free()
		a.free = nil
		return err
	}
	return nil
}

// NumBufs returns the number of buffers in the arena, the placeholder
// included.
func (a *Arena) NumBufs() uint32 {
	return a.numBufs
}

// BufSize returns the size of each buffer in bytes.
func (a *Arena) BufSize() uint32 {
	return a.bufSize
}

// Base returns the bus address of the placeholder buffer. A slot whose
// buffer resolves here has no usable buffer behind it.
func (a *Arena) Base() uint64 {
	return arenaBase
}

// Resolve maps a slot's buffer index to its bus address. Out-of-range
// indexes resolve to the placeholder, mirroring how the hardware-facing
// lookup clamps bad indexes instead of faulting.
func (a *Arena) Resolve(bufIdx uint32) uint64 {
	if bufIdx >= a.numBufs {
		bufIdx = 0
	}
	return arenaBase + uint64(bufIdx)*uint64(a.bufSize)
}

// Slice returns the memory behind a bus address previously produced by
// [Arena.Resolve]. length is clamped to the end of the arena.
func (a *Arena) Slice(addr uint64, length uint32) []byte {
	if addr < arenaBase {
		return nil
	}
	start := addr - arenaBase
	if start >= uint64(len(a.mem)) {
		return nil
	}
	end := start + uint64(length)
	if end > uint64(len(a.mem)) {
		end = uint64(len(a.mem))
	}
	return a.mem[start:end]
}

// SyncForDevice makes length bytes at addr visible to the device before a
// descriptor referencing them is published. Plain memory needs no cache
// maintenance here, the call is kept so the reconcilers express the DMA
// contract and tests can observe it.
func (a *Arena) SyncForDevice(addr uint64, length uint32) {
	_ = addr
	_ = length
	a.syncedForDevice.Add(1)
}

// SyncForCPU makes length bytes at addr visible to the external consumer
// after the device wrote them.
func (a *Arena) SyncForCPU(addr uint64, length uint32) {
	_ = addr
	_ = length
	a.syncedForCPU.Add(1)
}

// Stats returns the DMA synchronization counters.
func (a *Arena) Stats() ArenaStats {
	return ArenaStats{
		SyncedForDevice: a.syncedForDevice.Load(),
		SyncedForCPU:    a.syncedForCPU.Load(),
	}
}
