package device

import "encoding/binary"

// TxRing is the transmit descriptor ring as the driver sees it: descriptor
// memory, the tail doorbell and the cleanup cursor. The memory holds one
// extra descriptor-sized entry past the ring: the hardware writes the index
// of the next descriptor it will process there (head writeback), which is
// how transmit completions are observed.
type TxRing struct {
	desc  []byte
	count uint32

	// Tail is the doorbell register publishing the producer position.
	Tail Register
	// NextToClean is the driver-owned cursor trailing the hardware's
	// completion reports.
	NextToClean uint32

	writes uint64
}

// NewTxRing allocates descriptor memory for count descriptors plus the head
// writeback sentinel.
func NewTxRing(count uint32, tail Register) *TxRing {
	return &TxRing{
		desc:  make([]byte, (int(count)+1)*TxDescSize),
		count: count,
		Tail:  tail,
	}
}

// Ready reports whether the ring exists and its descriptor memory is
// allocated.
func (r *TxRing) Ready() bool {
	return r != nil && r.desc != nil
}

// Count returns the number of descriptors in the ring.
func (r *TxRing) Count() uint32 {
	return r.count
}

// WriteDesc fills descriptor i with a buffer address and a pre-packed
// second quadword (see [TxQW1]).
func (r *TxRing) WriteDesc(i uint32, addr, qw1 uint64) {
	off := int(i) * TxDescSize
	binary.LittleEndian.PutUint64(r.desc[off:], addr)
	binary.LittleEndian.PutUint64(r.desc[off+8:], qw1)
	r.writes++
}

// DescAddr returns the buffer address of descriptor i.
func (r *TxRing) DescAddr(i uint32) uint64 {
	return binary.LittleEndian.Uint64(r.desc[int(i)*TxDescSize:])
}

// DescQW1 returns the second quadword of descriptor i.
func (r *TxRing) DescQW1(i uint32) uint64 {
	return binary.LittleEndian.Uint64(r.desc[int(i)*TxDescSize+8:])
}

// HWTail reads the hardware's completion-reported position from the
// writeback sentinel past the last descriptor.
func (r *TxRing) HWTail() uint32 {
	return binary.LittleEndian.Uint32(r.desc[int(r.count)*TxDescSize:])
}

// SetHWTail stores the completion position into the writeback sentinel.
// Only the device side writes here.
func (r *TxRing) SetHWTail(v uint32) {
	binary.LittleEndian.PutUint32(r.desc[int(r.count)*TxDescSize:], v)
}

// DescWrites returns the cumulative number of descriptor writes, for tests
// asserting that a pass touched no descriptors.
func (r *TxRing) DescWrites() uint64 {
	return r.writes
}

// Reset zeroes the descriptor memory, the writeback sentinel and the
// cleanup cursor. Used at ring reinit, when the hardware queue restarts at
// position 0.
func (r *TxRing) Reset() {
	clear(r.desc)
	r.NextToClean = 0
}
