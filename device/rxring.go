package device

import "encoding/binary"

// RxRing is the receive descriptor ring as the driver sees it. The driver
// writes buffer addresses into descriptors (read format), the hardware
// writes packet metadata back into the same memory (writeback format); the
// DD status bit says which format a descriptor currently holds.
type RxRing struct {
	desc  []byte
	count uint32

	// Tail is the doorbell register publishing the last usable descriptor.
	Tail Register
	// NextToClean is the driver-owned cursor trailing the hardware's
	// writebacks.
	NextToClean uint32
	// DBuf is the programmed receive buffer length in 128-byte granules,
	// set from the queue context at ring reset.
	DBuf uint32

	writes uint64
}

// NewRxRing allocates descriptor memory for count descriptors.
func NewRxRing(count uint32, tail Register) *RxRing {
	return &RxRing{
		desc:  make([]byte, int(count)*RxDescSize),
		count: count,
		Tail:  tail,
	}
}

// Ready reports whether the ring exists and its descriptor memory is
// allocated.
func (r *RxRing) Ready() bool {
	return r != nil && r.desc != nil
}

// Count returns the number of descriptors in the ring.
func (r *RxRing) Count() uint32 {
	return r.count
}

// WriteDesc hands descriptor i back to the hardware: the buffer address is
// set and the writeback quadword, the status bits included, is cleared.
func (r *RxRing) WriteDesc(i uint32, addr uint64) {
	off := int(i) * RxDescSize
	binary.LittleEndian.PutUint64(r.desc[off:], addr)
	binary.LittleEndian.PutUint64(r.desc[off+8:], 0)
	r.writes++
}

// DescAddr returns the buffer address of descriptor i. Only valid before
// the hardware wrote the descriptor back.
func (r *RxRing) DescAddr(i uint32) uint64 {
	return binary.LittleEndian.Uint64(r.desc[int(i)*RxDescSize:])
}

// Status0 returns the first writeback status word of descriptor i.
func (r *RxRing) Status0(i uint32) uint16 {
	return binary.LittleEndian.Uint16(r.desc[int(i)*RxDescSize+8:])
}

// PktLen returns the packet length the hardware reported for descriptor i.
func (r *RxRing) PktLen(i uint32) uint16 {
	return binary.LittleEndian.Uint16(r.desc[int(i)*RxDescSize+4:])
}

// Writeback stores packet metadata into descriptor i the way the hardware
// does. Only the device side writes here.
func (r *RxRing) Writeback(i uint32, pktLen, status uint16) {
	off := int(i) * RxDescSize
	binary.LittleEndian.PutUint16(r.desc[off+4:], pktLen)
	binary.LittleEndian.PutUint16(r.desc[off+8:], status)
}

// DescWrites returns the cumulative number of driver descriptor writes.
func (r *RxRing) DescWrites() uint64 {
	return r.writes
}

// Reset zeroes the descriptor memory and the cleanup cursor. Used at ring
// reinit, when the hardware queue restarts at position 0.
func (r *RxRing) Reset() {
	clear(r.desc)
	r.NextToClean = 0
}
