package zring

import (
	"github.com/zring-io/zring/device"
	"github.com/zring-io/zring/ring"
)

// Sync reconciles the receive descriptor ring and the slot ring: it imports
// newly completed receive descriptors into slots and hands the buffers of
// released slots back to the hardware for reuse.
//
// force runs the import phase even while an interrupt is pending; the
// interrupt path passes true, polling schedulers pass false and skip the
// import when the interrupt handler has not been drained yet.
//
// The external scheduler guarantees a single invocation at a time for this
// queue and direction; the method takes no locks. An administratively down
// interface is a benign no-op, not an error.
func (q *RxQueue) Sync(force bool) error {
	if !q.ifp.Running() {
		return nil
	}

	rxr := q.nic
	if !rxr.Ready() {
		return q.ringUnavailable()
	}

	lim := q.num - 1
	head := q.ring.Head()
	if head > lim {
		return q.requestReinit(ErrIndexOutOfRange)
	}

	// First part: import newly received packets.
	//
	// Walk the descriptors the hardware wrote back, starting at the
	// cleanup cursor, and mirror them into slots. The externally visible
	// tail moves only once a descriptor closes a packet, so a
	// multi-fragment packet is never exposed half-done.
	if force || !q.pendIntr.Load() {
		nic := rxr.NextToClean
		nm := ring.NICToUser(nic, q.hwOfs, q.num)
		ntail := lim + 1
		complete := false

		var n int64
		for ; ; n++ {
			if complete {
				ntail = nm
				complete = false
			}

			status := rxr.Status0(nic)
			if status&device.RxStatusDD == 0 {
				break
			}

			slot := q.ring.Slot(nm)
			slot.Len = rxr.PktLen(nic)
			if status&device.RxStatusEOF == 0 {
				slot.Flags = ring.SlotMoreFrag
			} else {
				slot.Flags = 0
				complete = true
			}
			q.arena.SyncForCPU(q.arena.Resolve(slot.BufIdx), uint32(slot.Len))

			nm = ring.Next(nm, lim)
			nic = ring.Next(nic, lim)
		}
		if n > 0 {
			rxr.NextToClean = nic
			if ntail <= lim {
				q.hwTail = ntail
				q.ring.SetTail(ntail)
			}
			q.metrics.imported.Inc(n)
		}
		q.pendIntr.Store(false)
	}

	// Second part: skip past the slots the external side released
	// (cursor up to head, excluded) and make their buffers available for
	// reception again.
	nm := q.hwCur
	if nm != head {
		nic := ring.UserToNIC(nm, q.hwOfs, q.num)

		var n int64
		for ; nm != head; n++ {
			slot := q.ring.Slot(nm)
			addr := q.arena.Resolve(slot.BufIdx)
			if addr == q.arena.Base() {
				return q.requestReinit(ErrBadBuffer)
			}

			// Arena buffers never move; a swapped buffer only changes
			// the index resolved above.
			slot.Flags &^= ring.SlotBufChanged

			rxr.WriteDesc(nic, addr)
			q.arena.SyncForDevice(addr, q.hwBufLen)

			nm = ring.Next(nm, lim)
			nic = ring.Next(nic, lim)
		}
		q.hwCur = head
		q.metrics.refilled.Inc(n)

		// The hardware must always be one slot short of the cursor, or a
		// full ring would be indistinguishable from an empty one.
		nic = ring.Prev(nic, lim)

		device.Wmb()
		rxr.Tail.Write(nic)
		q.metrics.doorbells.Inc(1)
	}

	return nil
}
