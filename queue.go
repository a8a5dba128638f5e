package zring

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zring-io/zring/device"
	"github.com/zring-io/zring/ring"
)

// Direction selects one half of a queue pair.
type Direction int

const (
	TX Direction = iota
	RX
)

func (d Direction) String() string {
	if d == TX {
		return "tx"
	}
	return "rx"
}

// queue is the reconciliation state shared by both directions: the slot
// ring, the arena behind it, and the three driver-owned indexes. A queue is
// mutated only by its reconciler (single writer) and by the external side
// advancing head; the two never write the same field.
type queue struct {
	l    *logrus.Logger
	name string
	ifp  *Interface

	ring  *ring.Ring
	arena *ring.Arena
	num   uint32

	// hwOfs is the constant translation offset between the slot ring and
	// the NIC ring index spaces, fixed at the last reset.
	hwOfs uint32
	// hwCur is the cursor: the index up to which slot ownership was
	// already transferred to the hardware side.
	hwCur uint32
	// hwTail is the index up to which data is confirmed available to the
	// external side.
	hwTail uint32
	// hwBufLen is the programmed hardware buffer size for this direction.
	hwBufLen uint32

	metrics    *queueMetrics
	unavailLog *logLimiter
}

func newQueue(l *logrus.Logger, ifp *Interface, name string, r *ring.Ring, arena *ring.Arena, bufLen uint32) queue {
	return queue{
		l:          l,
		name:       name,
		ifp:        ifp,
		ring:       r,
		arena:      arena,
		num:        r.NumSlots(),
		hwBufLen:   bufLen,
		metrics:    newQueueMetrics(name),
		unavailLog: newLogLimiter(time.Second),
	}
}

// Ring returns the slot ring shared with the external side.
func (q *queue) Ring() *ring.Ring {
	return q.ring
}

// Arena returns the buffer arena the slots index into.
func (q *queue) Arena() *ring.Arena {
	return q.arena
}

// NumSlots returns the slot count of the ring pair.
func (q *queue) NumSlots() uint32 {
	return q.num
}

// BufLen returns the programmed hardware buffer size.
func (q *queue) BufLen() uint32 {
	return q.hwBufLen
}

// ringUnavailable reports the missing-ring condition, logging at a bounded
// rate so a wedged scheduler cannot flood the log.
func (q *queue) ringUnavailable() error {
	if q.unavailLog.Allow() {
		q.l.WithField("ring", q.name).Error("NIC ring is missing or uninitialized")
	}
	return ErrRingUnavailable
}

// requestReinit reports cause to the scheduler wrapped in
// [ErrReinitRequested]. The reconciler performs no inline retry; the
// scheduler is expected to reset the ring pair before the next call.
func (q *queue) requestReinit(cause error) error {
	q.metrics.reinits.Inc(1)
	q.l.WithField("ring", q.name).WithError(cause).Warn("Requesting ring reinit")
	return fmt.Errorf("%w: %w", ErrReinitRequested, cause)
}

// TxQueue is the transmit half of a queue pair.
type TxQueue struct {
	queue
	nic *device.TxRing
}

// NewTxQueue binds a slot ring to a transmit descriptor ring. The queue is
// unusable until the first [TxQueue.Reset].
func NewTxQueue(l *logrus.Logger, ifp *Interface, name string, r *ring.Ring, arena *ring.Arena, nic *device.TxRing) *TxQueue {
	return &TxQueue{
		queue: newQueue(l, ifp, name, r, arena, arena.BufSize()),
		nic:   nic,
	}
}

// Reset discards all in-flight state and re-anchors the index translation:
// the hardware queue restarts at position 0 while the slot ring keeps its
// position, so the new offset is the slot ring's current head. On a ring
// with every slot free the tail sits one behind the cursor.
func (q *TxQueue) Reset() {
	lim := q.num - 1
	head := q.ring.Head() % q.num

	q.hwOfs = head
	q.hwCur = head
	q.hwTail = ring.Prev(head, lim)
	q.ring.SetHead(head)
	q.ring.SetCur(head)
	q.ring.SetTail(q.hwTail)
	q.nic.Reset()

	q.l.WithFields(logrus.Fields{
		"ring":  q.name,
		"hwofs": q.hwOfs,
	}).Debug("TX ring reset")
}

// RxQueue is the receive half of a queue pair.
type RxQueue struct {
	queue
	nic *device.RxRing

	// pendIntr is set by the interrupt vector and cleared once the import
	// phase ran, so a reconcile pass does not contend with an in-flight
	// interrupt handler.
	pendIntr atomic.Bool
}

// NewRxQueue binds a slot ring to a receive descriptor ring with the given
// hardware buffer size. The queue is unusable until the first
// [RxQueue.Reset].
func NewRxQueue(l *logrus.Logger, ifp *Interface, name string, r *ring.Ring, arena *ring.Arena, nic *device.RxRing, bufLen uint32) *RxQueue {
	return &RxQueue{
		queue: newQueue(l, ifp, name, r, arena, bufLen),
		nic:   nic,
	}
}

// NoteInterrupt records that the queue's interrupt vector fired. Wire it to
// the device's receive interrupt.
func (q *RxQueue) NoteInterrupt() {
	q.pendIntr.Store(true)
}

// Reset discards all in-flight state, re-anchors the index translation,
// programs every descriptor with its slot's buffer address and publishes all
// but one of them, so reception can restart immediately while the
// keep-one-slot rule holds from the first doorbell on. The programmed buffer
// size is reflected into the queue context.
func (q *RxQueue) Reset() {
	lim := q.num - 1
	head := q.ring.Head() % q.num

	q.hwOfs = head
	q.hwCur = head
	q.hwTail = head
	q.ring.SetHead(head)
	q.ring.SetCur(head)
	q.ring.SetTail(head)
	q.nic.Reset()
	q.nic.DBuf = q.hwBufLen >> device.DBufShift
	q.pendIntr.Store(false)

	// Every descriptor gets its slot's buffer address, the last one
	// included: the published tail keeps it out of the hardware window for
	// now, but after a full ring revolution the window wraps onto it and
	// it must not hold a stale address.
	for i := uint32(0); i < q.num; i++ {
		si := ring.NICToUser(i, q.hwOfs, q.num)
		addr := q.arena.Resolve(q.ring.Slot(si).BufIdx)
		q.nic.WriteDesc(i, addr)
		q.arena.SyncForDevice(addr, q.hwBufLen)
	}

	device.Wmb()
	q.nic.Tail.Write(lim)

	q.l.WithFields(logrus.Fields{
		"ring":  q.name,
		"hwofs": q.hwOfs,
	}).Debug("RX ring reset")
}
