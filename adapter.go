package zring

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/zring-io/zring/config"
	"github.com/zring-io/zring/device"
	"github.com/zring-io/zring/ring"
	"github.com/zring-io/zring/util"
)

// Adapter owns the full queue set of one simulated NIC: the buffer arena,
// the slot rings shared with the external side, the descriptor rings and
// the mode controller. Build one with [Attach].
type Adapter struct {
	l   *logrus.Logger
	ifp *Interface

	arena *ring.Arena
	ctrl  *Controller

	tx   []*TxQueue
	rx   []*RxQueue
	sims []*device.Sim

	rings []*ring.Ring
}

// Attach builds an adapter from config. Recognized keys:
//
//	interface.name    name used in logs and metrics (default "ice0")
//	ring.num_slots    slots per ring, a power of two (default 1024)
//	ring.num_queues   queue pairs (default 1)
//	ring.rx_buf_size  hardware receive buffer size (default 2048)
//
// A reload callback is registered so ring.rx_buf_size changes apply through
// the mode controller on SIGHUP.
func Attach(l *logrus.Logger, c *config.C) (*Adapter, error) {
	ifName := c.GetString("interface.name", "ice0")
	numSlots := c.GetInt("ring.num_slots", 1024)
	numQueues := c.GetInt("ring.num_queues", 1)
	rxBufSize := c.GetUint32("ring.rx_buf_size", 2048)

	if err := ring.CheckNumSlots(numSlots); err != nil {
		return nil, util.NewContextualError(
			"Invalid ring.num_slots", m{"num_slots": numSlots}, err)
	}
	if numQueues < 1 {
		return nil, util.NewContextualError(
			"Invalid ring.num_queues", m{"num_queues": numQueues}, ErrInvalidConfig)
	}

	granule := uint32(1) << device.DBufShift
	rxBufSize &^= granule - 1
	if rxBufSize < 1024 || rxBufSize > 16384-granule {
		return nil, util.NewContextualError(
			"Invalid ring.rx_buf_size", m{"rx_buf_size": rxBufSize}, ErrInvalidConfig)
	}

	// Buffer 0 is the placeholder; every slot of every ring gets its own
	// buffer behind it.
	numBufs := uint32(1) + uint32(numQueues)*2*uint32(numSlots)
	arena, err := ring.NewArena(numBufs, rxBufSize)
	if err != nil {
		return nil, util.ContextualizeIfNeeded("Failed to allocate buffer arena", err)
	}

	a := &Adapter{
		l:     l,
		ifp:   NewInterface(l, ifName),
		arena: arena,
	}

	nextBuf := uint32(1)
	seed := func(r *ring.Ring) {
		for i := uint32(0); i < r.NumSlots(); i++ {
			r.Slot(i).BufIdx = nextBuf
			nextBuf++
		}
	}

	for qi := 0; qi < numQueues; qi++ {
		txr, err := ring.Alloc(numSlots)
		if err != nil {
			a.Close()
			return nil, util.ContextualizeIfNeeded("Failed to allocate tx slot ring", err)
		}
		a.rings = append(a.rings, txr)
		seed(txr)

		rxr, err := ring.Alloc(numSlots)
		if err != nil {
			a.Close()
			return nil, util.ContextualizeIfNeeded("Failed to allocate rx slot ring", err)
		}
		a.rings = append(a.rings, rxr)
		seed(rxr)

		sim := device.NewSim(uint32(numSlots), arena.Slice)
		a.sims = append(a.sims, sim)

		txq := NewTxQueue(l, a.ifp,
			fmt.Sprintf("%s.tx.%d", ifName, qi), txr, arena, sim.TxRing())
		rxq := NewRxQueue(l, a.ifp,
			fmt.Sprintf("%s.rx.%d", ifName, qi), rxr, arena, sim.RxRing(), rxBufSize)
		sim.SetRxInterrupt(rxq.NoteInterrupt)

		a.tx = append(a.tx, txq)
		a.rx = append(a.rx, rxq)
	}

	a.ctrl = NewController(l, a.ifp, a.tx, a.rx)

	c.RegisterReloadCallback(a.reloadConfig)

	l.WithFields(logrus.Fields{
		"interface":   ifName,
		"num_queues":  numQueues,
		"num_slots":   numSlots,
		"rx_buf_size": rxBufSize,
	}).Info("Adapter attached")

	return a, nil
}

type m = map[string]any

func (a *Adapter) reloadConfig(c *config.C) {
	if !c.HasChanged("ring.rx_buf_size") {
		return
	}

	bufSize := c.GetUint32("ring.rx_buf_size", 2048)
	for qi := range a.rx {
		if err := a.ctrl.Configure(RX, qi, bufSize); err != nil {
			a.l.WithField("rx_buf_size", bufSize).WithError(err).
				Error("Failed to apply new rx buffer size")
			return
		}
	}
	a.l.WithField("rx_buf_size", bufSize).
		Info("New rx buffer size staged, takes effect at next ring reset")
}

// Interface returns the adapter's interface handle.
func (a *Adapter) Interface() *Interface {
	return a.ifp
}

// Controller returns the mode controller for this adapter.
func (a *Adapter) Controller() *Controller {
	return a.ctrl
}

// Arena returns the buffer arena shared by all queues.
func (a *Adapter) Arena() *ring.Arena {
	return a.arena
}

// NumQueues returns the number of queue pairs.
func (a *Adapter) NumQueues() int {
	return len(a.tx)
}

// TxQueue returns the transmit queue at index i.
func (a *Adapter) TxQueue(i int) *TxQueue {
	return a.tx[i]
}

// RxQueue returns the receive queue at index i.
func (a *Adapter) RxQueue(i int) *RxQueue {
	return a.rx[i]
}

// Sim returns the simulated NIC behind queue pair i.
func (a *Adapter) Sim(i int) *device.Sim {
	return a.sims[i]
}

// Close releases all ring and arena memory. The adapter must not be used
// afterwards.
func (a *Adapter) Close() error {
	var firstErr error
	for _, r := range a.rings {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.rings = nil
	if a.arena != nil {
		if err := a.arena.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.arena = nil
	}
	return firstErr
}
