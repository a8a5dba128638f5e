package zring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zring-io/zring/device"
	"github.com/zring-io/zring/ring"
)

func TestRxSync_ResetPublishesAllButOne(t *testing.T) {
	a := newTestAdapter(t, 8)
	q := a.RxQueue(0)
	sim := a.Sim(0)

	// Reset programmed every descriptor but published all except one.
	assert.Equal(t, uint64(8), q.nic.DescWrites())
	assert.Equal(t, uint32(7), sim.RxSpace())
	assert.Equal(t, int64(1), sim.RxDoorbells())

	// The withheld descriptor already carries its slot's buffer address,
	// ready for when the hardware window wraps onto it.
	assert.Equal(t, a.Arena().Resolve(q.Ring().Slot(7).BufIdx), q.nic.DescAddr(7))

	// The programmed buffer length reached the queue context in granules.
	assert.Equal(t, uint32(2048>>device.DBufShift), q.nic.DBuf)
}

func TestRxSync_ImportsCompletedPackets(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)
	sim := a.Sim(0)
	r := q.Ring()

	require.True(t, sim.Deliver(100))
	require.True(t, sim.Deliver(60))
	require.NoError(t, q.Sync(true))

	assert.Equal(t, uint32(2), r.Tail())
	assert.Equal(t, uint16(100), r.Slot(0).Len)
	assert.Equal(t, uint16(60), r.Slot(1).Len)
	assert.Zero(t, r.Slot(0).Flags)
	assert.Zero(t, r.Slot(1).Flags)
}

func TestRxSync_MultiFragmentPacket(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)
	sim := a.Sim(0)
	r := q.Ring()

	require.True(t, sim.Deliver(2048, 2048, 500))
	require.NoError(t, q.Sync(true))

	assert.Equal(t, uint32(3), r.Tail())
	assert.Equal(t, ring.SlotMoreFrag, r.Slot(0).Flags)
	assert.Equal(t, ring.SlotMoreFrag, r.Slot(1).Flags)
	assert.Zero(t, r.Slot(2).Flags)
	assert.Equal(t, uint16(500), r.Slot(2).Len)
}

func TestRxSync_PartialPacketStaysHidden(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)
	rxr := q.nic

	// The hardware wrote back two fragments but the packet is not closed
	// yet: nothing may become visible to the external side.
	rxr.Writeback(0, 2048, device.RxStatusDD)
	rxr.Writeback(1, 2048, device.RxStatusDD)
	require.NoError(t, q.Sync(true))

	assert.Equal(t, uint32(0), q.Ring().Tail())
	assert.Equal(t, uint32(2), rxr.NextToClean)

	// The closing fragment arrives, the whole packet appears at once.
	rxr.Writeback(2, 100, device.RxStatusDD|device.RxStatusEOF)
	require.NoError(t, q.Sync(true))
	assert.Equal(t, uint32(3), q.Ring().Tail())
}

func TestRxSync_InterruptGatesPolledImport(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)
	sim := a.Sim(0)

	// Deliver fires the interrupt callback, so a polled pass must leave
	// the import to the interrupt path.
	require.True(t, sim.Deliver(100))
	require.NoError(t, q.Sync(false))
	assert.Equal(t, uint32(0), q.Ring().Tail())

	// The interrupt path forces the import and clears the latch.
	require.NoError(t, q.Sync(true))
	assert.Equal(t, uint32(1), q.Ring().Tail())

	// A writeback that arrives without an interrupt is picked up by the
	// next polled pass.
	q.nic.Writeback(1, 100, device.RxStatusDD|device.RxStatusEOF)
	require.NoError(t, q.Sync(false))
	assert.Equal(t, uint32(2), q.Ring().Tail())
}

func TestRxSync_RefillKeepsOneSlot(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)
	sim := a.Sim(0)
	r := q.Ring()

	for i := 0; i < 3; i++ {
		require.True(t, sim.Deliver(100))
	}
	require.NoError(t, q.Sync(true))
	require.Equal(t, uint32(3), r.Tail())

	// The external side consumes everything and releases the slots.
	r.SetHead(3)
	r.SetCur(3)

	writesBefore := q.nic.DescWrites()
	require.NoError(t, q.Sync(false))

	assert.Equal(t, uint64(3), q.nic.DescWrites()-writesBefore)
	// The hardware stays one descriptor short of the cursor.
	assert.Equal(t, uint32(7), sim.RxSpace())
}

func TestRxSync_RefillClearsBufChanged(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)
	sim := a.Sim(0)
	r := q.Ring()

	require.True(t, sim.Deliver(100))
	require.NoError(t, q.Sync(true))

	slot := r.Slot(0)
	slot.Flags |= ring.SlotBufChanged
	r.SetHead(1)
	r.SetCur(1)

	require.NoError(t, q.Sync(false))
	assert.Zero(t, slot.Flags&ring.SlotBufChanged)
	assert.Equal(t, a.Arena().Resolve(slot.BufIdx), q.nic.DescAddr(0))
}

func TestRxSync_PlaceholderBufferRequestsReinit(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)
	sim := a.Sim(0)
	r := q.Ring()

	require.True(t, sim.Deliver(100))
	require.NoError(t, q.Sync(true))

	// The external side hands back a slot without a real buffer behind it.
	r.Slot(0).BufIdx = 0
	r.SetHead(1)
	r.SetCur(1)

	writesBefore := q.nic.DescWrites()
	refilledBefore := q.metrics.refilled.Count()
	reinitsBefore := q.metrics.reinits.Count()

	err := q.Sync(false)
	assert.ErrorIs(t, err, ErrReinitRequested)
	assert.ErrorIs(t, err, ErrBadBuffer)

	// The bad slot reached no descriptor and nothing was handed over.
	assert.Equal(t, writesBefore, q.nic.DescWrites())
	assert.Equal(t, refilledBefore, q.metrics.refilled.Count())
	assert.Equal(t, int64(1), q.metrics.reinits.Count()-reinitsBefore)
}

func TestRxSync_HeadOutOfRangeRequestsReinit(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)

	q.Ring().SetHead(8)
	err := q.Sync(true)
	assert.ErrorIs(t, err, ErrReinitRequested)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	// A reset recovers the pair.
	q.Reset()
	assert.Equal(t, uint32(0), q.Ring().Head())
	require.NoError(t, q.Sync(true))
}

func TestRxSync_AdminDownIsBenign(t *testing.T) {
	a := newTestAdapter(t, 8)
	q := a.RxQueue(0)
	sim := a.Sim(0)

	// Interface is administratively down; completed descriptors stay put.
	require.True(t, sim.Deliver(100))
	importedBefore := q.metrics.imported.Count()

	require.NoError(t, q.Sync(true))
	assert.Equal(t, uint32(0), q.Ring().Tail())
	assert.Equal(t, importedBefore, q.metrics.imported.Count())

	a.Interface().Up()
	require.NoError(t, q.Sync(true))
	assert.Equal(t, uint32(1), q.Ring().Tail())
}

func TestRxSync_UnavailableRing(t *testing.T) {
	l := newTestLogger()
	ifp := NewInterface(l, "sim0")
	ifp.Up()

	r, err := ring.Alloc(8)
	require.NoError(t, err)
	defer r.Close()
	arena, err := ring.NewArena(16, 2048)
	require.NoError(t, err)
	defer arena.Close()

	q := NewRxQueue(l, ifp, "sim0.rx.0", r, arena, nil, 2048)
	assert.ErrorIs(t, q.Sync(true), ErrRingUnavailable)
}

func TestRxSync_FullRingRevolution(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)
	sim := a.Sim(0)
	r := q.Ring()

	// The hardware fills the whole published window and the external side
	// consumes all of it.
	for i := 0; i < 7; i++ {
		require.True(t, sim.Deliver(100))
	}
	require.NoError(t, q.Sync(true))
	require.Equal(t, uint32(7), r.Tail())

	r.SetHead(7)
	r.SetCur(7)
	require.NoError(t, q.Sync(false))
	require.Equal(t, uint32(7), sim.RxSpace())

	// The wrap descriptor is inside the hardware window now and must
	// carry a real buffer address, not whatever a partial reset left.
	wrapAddr := q.nic.DescAddr(7)
	assert.NotZero(t, wrapAddr)
	assert.Equal(t, a.Arena().Resolve(r.Slot(7).BufIdx), wrapAddr)

	// A delivery across the wrap lands in that buffer and surfaces a slot
	// whose memory the hardware actually wrote.
	require.True(t, sim.Deliver(42))
	require.NoError(t, q.Sync(true))
	assert.Equal(t, uint32(0), r.Tail())
	assert.Equal(t, uint16(42), r.Slot(7).Len)

	buf := a.Arena().Slice(a.Arena().Resolve(r.Slot(7).BufIdx), 42)
	require.Len(t, buf, 42)
	assert.Equal(t, byte(1), buf[1])
	assert.Equal(t, byte(41), buf[41])
}

func TestRxSync_TranslationSurvivesReset(t *testing.T) {
	a := newTestAdapter(t, 8)
	a.Interface().Up()
	q := a.RxQueue(0)
	sim := a.Sim(0)
	r := q.Ring()

	// Move the ring forward so head sits mid-ring, then reset: the slot
	// ring keeps its position while the hardware restarts at 0.
	for i := 0; i < 3; i++ {
		require.True(t, sim.Deliver(100))
	}
	require.NoError(t, q.Sync(true))
	r.SetHead(3)
	r.SetCur(3)
	require.NoError(t, q.Sync(false))

	sim.Reset()
	q.Reset()
	assert.Equal(t, uint32(3), r.Head())

	// Descriptor 0 now belongs to slot 3.
	require.True(t, sim.Deliver(42))
	require.NoError(t, q.Sync(true))
	assert.Equal(t, uint32(4), r.Tail())
	assert.Equal(t, uint16(42), r.Slot(3).Len)
}
