package ring

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// headerSize is the number of bytes reserved at the start of the ring memory
// for the head/cur/tail indexes.
const headerSize = 16

// Size is the number of bytes needed to store a [Ring] with the given slot
// count in memory.
func Size(numSlots int) int {
	return headerSize + slotSize*numSlots
}

// ringAlignment is the minimum alignment of a [Ring] in memory, so that the
// 64-bit slot fields stay naturally aligned.
const ringAlignment = 8

// Ring is the circular slot array shared with the external
// consumer/producer. The external side writes head (and cur), the reconciler
// writes tail; each slot is owned by exactly one side at a time, determined
// by its position relative to those indexes.
//
// Because the size of the ring depends on the slot count, we cannot define a
// Go struct with a static size that maps to the memory of the ring. Instead,
// this struct only contains pointers to the corresponding memory areas.
type Ring struct {
	initialized bool

	// head is the index up to which the external side wants data moved.
	head *uint32
	// cur is the external side's wakeup point. The reconcilers never read
	// it, it is carried for the external scheduler only.
	cur *uint32
	// tail is the index up to which data is confirmed available to the
	// external side.
	tail *uint32
	// slots wraps around at the slot count.
	slots []Slot

	free func() error
}

// New creates a slot ring that uses the given underlying memory. The length
// of the memory slice must match the size needed for the ring (see [Size])
// for the given slot count.
func New(numSlots int, mem []byte) *Ring {
	ringSize := Size(numSlots)
	if len(mem) != ringSize {
		panic(fmt.Sprintf("memory size (%v) does not match required size "+
			"for slot ring: %v", len(mem), ringSize))
	}

	return &Ring{
		initialized: true,
		head:        (*uint32)(unsafe.Pointer(&mem[0])),
		cur:         (*uint32)(unsafe.Pointer(&mem[4])),
		tail:        (*uint32)(unsafe.Pointer(&mem[8])),
		slots:       unsafe.Slice((*Slot)(unsafe.Pointer(&mem[headerSize])), numSlots),
	}
}

// Alloc allocates fresh memory for a slot ring with the given slot count and
// lays a ring out over it. Call [Ring.Close] to release the memory again.
func Alloc(numSlots int) (*Ring, error) {
	if err := CheckNumSlots(numSlots); err != nil {
		return nil, err
	}

	mem, free, err := allocRegion(Size(numSlots))
	if err != nil {
		return nil, fmt.Errorf("allocate ring memory: %w", err)
	}

	r := New(numSlots, mem)
	r.free = free
	return r, nil
}

// Close releases the ring memory when the ring was created with [Alloc].
func (r *Ring) Close() error {
	if r.free != nil {
		err := r.free()
		r.free = nil
		return err
	}
	return nil
}

// NumSlots returns the number of slots in the ring.
func (r *Ring) NumSlots() uint32 {
	return uint32(len(r.slots))
}

// Slot returns the slot at index i. The caller must respect slot ownership,
// no index check is performed here.
func (r *Ring) Slot(i uint32) *Slot {
	return &r.slots[i]
}

// Head returns the external side's head index. The load is atomic because
// the external side may run on another core; it carries no ordering
// obligations beyond that (the external side must not touch a slot once its
// index was passed to us via head).
func (r *Ring) Head() uint32 {
	return atomic.LoadUint32(r.head)
}

// SetHead publishes a new head index on behalf of the external side.
func (r *Ring) SetHead(v uint32) {
	atomic.StoreUint32(r.head, v)
}

// Cur returns the external side's wakeup point.
func (r *Ring) Cur() uint32 {
	return atomic.LoadUint32(r.cur)
}

// SetCur publishes a new wakeup point on behalf of the external side.
func (r *Ring) SetCur(v uint32) {
	atomic.StoreUint32(r.cur, v)
}

// Tail returns the index up to which slots were handed to the external side.
func (r *Ring) Tail() uint32 {
	return atomic.LoadUint32(r.tail)
}

// SetTail publishes a new tail index. The atomic store orders the slot
// writes of the current reconcile pass before the index becomes visible.
func (r *Ring) SetTail(v uint32) {
	atomic.StoreUint32(r.tail, v)
}
