package device

// Descriptor geometry and bit positions follow the ice datapath format. All
// multi-byte descriptor fields are little-endian on the wire.
const (
	// TxDescSize is the size of one transmit descriptor in bytes: a buffer
	// address quadword followed by a command/type/offset/size quadword.
	TxDescSize = 16
	// RxDescSize is the size of one 32-byte flex receive descriptor.
	RxDescSize = 32

	// TxCmdShift is the position of the command flags in the second
	// transmit quadword.
	TxCmdShift = 4
	// TxBufSzShift is the position of the buffer size field in the second
	// transmit quadword.
	TxBufSzShift = 34
	// txBufSzMask is the width of the buffer size field.
	txBufSzMask = 0x3fff

	// DBufShift is the granule shift of the buffer length field in the
	// receive queue context: lengths are programmed in units of 128 bytes.
	DBufShift = 7
)

// Transmit command flags, pre-shift.
const (
	// TxCmdEOP marks the final descriptor of a packet.
	TxCmdEOP uint64 = 0x1
	// TxCmdRS asks the hardware to report completion for this descriptor.
	TxCmdRS uint64 = 0x2
)

// Receive writeback status bits.
const (
	// RxStatusDD is set by the hardware when a descriptor was written back.
	RxStatusDD uint16 = 1 << 0
	// RxStatusEOF is set on the final descriptor of a received packet.
	RxStatusEOF uint16 = 1 << 1
)

// TxQW1 packs a buffer length and unshifted command flags into the second
// transmit descriptor quadword.
func TxQW1(length uint16, cmd uint64) uint64 {
	return (uint64(length)&txBufSzMask)<<TxBufSzShift | cmd<<TxCmdShift
}

// TxQW1Len extracts the buffer length from a transmit quadword.
func TxQW1Len(qw1 uint64) uint16 {
	return uint16(qw1 >> TxBufSzShift & txBufSzMask)
}

// TxQW1Cmd extracts the unshifted command flags from a transmit quadword.
func TxQW1Cmd(qw1 uint64) uint64 {
	return qw1 >> TxCmdShift & 0xfff
}
