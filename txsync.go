package zring

import (
	"github.com/zring-io/zring/device"
	"github.com/zring-io/zring/ring"
)

// Sync reconciles the slot ring and the transmit descriptor ring: it pushes
// every packet the external producer queued between the cursor and head out
// to the hardware, then reclaims the buffers of completed transmissions.
//
// The external scheduler guarantees a single invocation at a time for this
// queue and direction; the method takes no locks. A missing carrier is a
// benign no-op, not an error.
func (q *TxQueue) Sync() error {
	if !q.ifp.LinkUp() {
		return nil
	}

	txr := q.nic
	if !txr.Ready() {
		return q.ringUnavailable()
	}

	lim := q.num - 1
	head := q.ring.Head()

	// Completion interrupts on every packet are expensive, so ask for a
	// report twice per ring revolution and wherever the producer insists.
	reportFrequency := q.num >> 1

	// First part: process new packets to send.
	//
	// nm is the current index in the slot ring, nic the corresponding
	// index in the NIC ring. The two differ by the offset fixed at the
	// last reset, when the NIC ring restarted at 0 and the slot ring kept
	// its position.
	nm := q.hwCur
	if nm != head {
		nic := ring.UserToNIC(nm, q.hwOfs, q.num)

		var n int64
		for ; nm != head; n++ {
			slot := q.ring.Slot(nm)
			length := slot.Len
			addr := q.arena.Resolve(slot.BufIdx)

			var cmd uint64
			if slot.Flags&ring.SlotMoreFrag == 0 {
				cmd |= device.TxCmdEOP
				if slot.Flags&ring.SlotReport != 0 || nic == 0 || nic == reportFrequency {
					cmd |= device.TxCmdRS
				}
			}
			// Arena buffers never move, so a changed buffer needs no
			// remap, only the address below picks up the new index.
			slot.Flags &^= ring.SlotReport | ring.SlotBufChanged | ring.SlotMoreFrag

			q.arena.SyncForDevice(addr, uint32(length))
			txr.WriteDesc(nic, addr, device.TxQW1(length, cmd))

			nm = ring.Next(nm, lim)
			nic = ring.Next(nic, lim)
		}
		q.hwCur = head
		q.metrics.sent.Inc(n)

		// The device must never observe the new producer position before
		// the descriptor contents.
		device.Wmb()
		txr.Tail.Write(nic)
		q.metrics.doorbells.Inc(1)
	}

	// Second part: reclaim buffers for completed transmissions. The
	// hardware reports its position through the writeback sentinel; every
	// slot behind it goes back to the external side, made visible first.
	nic := txr.HWTail()
	if nic != txr.NextToClean {
		nm = ring.NICToUser(nic, q.hwOfs, q.num)
		txr.NextToClean = nic

		var n int64
		for tosync := ring.Next(q.hwTail, lim); tosync != nm; tosync = ring.Next(tosync, lim) {
			slot := q.ring.Slot(tosync)
			q.arena.SyncForCPU(q.arena.Resolve(slot.BufIdx), uint32(slot.Len))
			n++
		}
		q.metrics.reclaimed.Inc(n)

		// The reported position itself is still owned by the hardware.
		q.hwTail = ring.Prev(nm, lim)
		q.ring.SetTail(q.hwTail)
	}

	return nil
}
