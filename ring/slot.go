package ring

// SlotFlag is a flag that describes a [Slot].
type SlotFlag uint16

const (
	// SlotBufChanged signals that the external side swapped the buffer
	// behind this slot since the last reconcile pass.
	SlotBufChanged SlotFlag = 1 << iota
	// SlotReport asks the hardware for an explicit completion report for
	// this slot, instead of the throttled default.
	SlotReport
	// SlotMoreFrag marks a slot as a non-final fragment of a multi-slot
	// packet.
	SlotMoreFrag
)

// slotSize is the number of bytes needed to store a [Slot] in memory.
const slotSize = 16

// Slot describes one buffer transfer to or from the external
// consumer/producer. The buffer itself lives in an [Arena] and is referenced
// by index, never by pointer, so the same slot layout works across the
// process boundary the ring memory may be shared over.
type Slot struct {
	// BufIdx is the arena index of the buffer behind this slot. Index 0 is
	// the reserved placeholder buffer and never carries packet data.
	BufIdx uint32
	// Len is the number of payload bytes in the buffer.
	Len uint16
	// Flags that describe this slot.
	Flags SlotFlag
	// Ptr is opaque to this package and reserved for the external side.
	Ptr uint64
}
