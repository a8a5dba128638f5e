package device

import "sync/atomic"

// simReg is a doorbell register backed by memory, counting every write.
type simReg struct {
	v      atomic.Uint32
	writes atomic.Int64
}

func (r *simReg) Write(v uint32) {
	r.v.Store(v)
	r.writes.Add(1)
}

// Frame is one packet fragment the simulated NIC consumed from the transmit
// ring.
type Frame struct {
	Addr uint64
	Len  uint16
	// EOP is set when this descriptor completed a packet.
	EOP bool
	// RS is set when the descriptor asked for a completion report.
	RS bool
}

// Sim is a software stand-in for one NIC queue pair. It owns the descriptor
// rings and the tail registers; the reconcilers drive it exactly like real
// hardware, through descriptor memory and doorbells only.
//
// Sim performs work when told to ([Sim.CompleteTx], [Sim.Deliver]), so tests
// control precisely how far the "hardware" has progressed. It is not safe
// for concurrent use with the reconcilers of the same queue; the external
// scheduler contract already serializes them.
type Sim struct {
	count uint32

	tx     *TxRing
	rx     *RxRing
	txTail simReg
	rxTail simReg

	// txNext is the consumer position in the TX ring.
	txNext uint32
	// rxNext is the producer position in the RX ring.
	rxNext uint32

	sent  []Frame
	slice func(addr uint64, length uint32) []byte

	onRxInterrupt func()
}

// NewSim creates a simulated queue pair with count descriptors per ring.
// slice resolves bus addresses to payload memory and may be nil when the
// simulation only needs to track metadata.
func NewSim(count uint32, slice func(addr uint64, length uint32) []byte) *Sim {
	s := &Sim{
		count: count,
		slice: slice,
	}
	s.tx = NewTxRing(count, &s.txTail)
	s.rx = NewRxRing(count, &s.rxTail)
	return s
}

// TxRing returns the transmit ring backed by this simulation.
func (s *Sim) TxRing() *TxRing {
	return s.tx
}

// RxRing returns the receive ring backed by this simulation.
func (s *Sim) RxRing() *RxRing {
	return s.rx
}

// SetRxInterrupt installs the callback invoked after packets were delivered
// into the receive ring, standing in for the queue's interrupt vector.
func (s *Sim) SetRxInterrupt(fn func()) {
	s.onRxInterrupt = fn
}

// TxDoorbells returns how often the transmit tail register was written.
func (s *Sim) TxDoorbells() int64 {
	return s.txTail.writes.Load()
}

// RxDoorbells returns how often the receive tail register was written.
func (s *Sim) RxDoorbells() int64 {
	return s.rxTail.writes.Load()
}

// Sent returns every frame consumed from the transmit ring so far.
func (s *Sim) Sent() []Frame {
	return s.sent
}

// CompleteTx consumes all descriptors published via the transmit doorbell
// and reports the new completion position through the writeback sentinel.
// It returns the number of descriptors consumed.
func (s *Sim) CompleteTx() int {
	return s.CompleteTxN(-1)
}

// CompleteTxN consumes at most max published descriptors (all of them when
// max is negative) and updates the writeback sentinel.
func (s *Sim) CompleteTxN(max int) int {
	tail := s.txTail.v.Load()
	n := 0
	for s.txNext != tail {
		if max >= 0 && n >= max {
			break
		}
		qw1 := s.tx.DescQW1(s.txNext)
		cmd := TxQW1Cmd(qw1)
		s.sent = append(s.sent, Frame{
			Addr: s.tx.DescAddr(s.txNext),
			Len:  TxQW1Len(qw1),
			EOP:  cmd&TxCmdEOP != 0,
			RS:   cmd&TxCmdRS != 0,
		})
		s.txNext = (s.txNext + 1) % s.count
		n++
	}
	if n > 0 {
		s.tx.SetHWTail(s.txNext)
	}
	return n
}

// RxSpace returns how many receive descriptors the simulation may still
// write into, honoring the published tail.
func (s *Sim) RxSpace() uint32 {
	return (s.rxTail.v.Load() + s.count - s.rxNext) % s.count
}

// Deliver writes one received packet into the ring, one fragment length per
// descriptor, setting DD on every fragment and EOF on the last. It reports
// false without side effects when the ring lacks space. The receive
// interrupt callback fires after a successful delivery.
func (s *Sim) Deliver(frags ...uint16) bool {
	if uint32(len(frags)) > s.RxSpace() {
		return false
	}

	for i, fragLen := range frags {
		addr := s.rx.DescAddr(s.rxNext)
		if s.slice != nil {
			// Touch the payload so zero-copy consumers see real data.
			buf := s.slice(addr, uint32(fragLen))
			for j := range buf {
				buf[j] = byte(j)
			}
		}
		status := RxStatusDD
		if i == len(frags)-1 {
			status |= RxStatusEOF
		}
		s.rx.Writeback(s.rxNext, fragLen, status)
		s.rxNext = (s.rxNext + 1) % s.count
	}

	if s.onRxInterrupt != nil {
		s.onRxInterrupt()
	}
	return true
}

// Reset restarts both simulated queues at position 0 and clears the rings,
// mirroring a hardware queue reinit. The consumed-frame log is kept.
func (s *Sim) Reset() {
	s.txNext = 0
	s.rxNext = 0
	s.txTail.v.Store(0)
	s.rxTail.v.Store(0)
	s.tx.Reset()
	s.rx.Reset()
}
