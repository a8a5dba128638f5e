package zring

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zring-io/zring/device"
)

const (
	// busyBackoff is the pause between attempts to take the toggle flag,
	// in the same range the driver sleeps while holding off a concurrent
	// reconfiguration.
	busyBackoff = time.Millisecond
	// busyAttempts bounds the spin; past it the caller gets
	// [ErrModeToggleBusy] and should retry.
	busyAttempts = 50
)

// Controller governs entry into and exit from zero-copy mode for one
// interface's queue set. Enable is reference-counted: only the first Enter
// and the last Exit actually quiesce the interface and toggle ring
// ownership. Toggles exclude each other through a busy flag, never a
// blocking lock, because they may run in contexts that must not sleep
// indefinitely.
type Controller struct {
	l   *logrus.Logger
	ifp *Interface

	busy atomic.Bool
	// users is only mutated while the busy flag is held; the atomic lets
	// observers read it without taking the flag.
	users atomic.Int32

	tx []*TxQueue
	rx []*RxQueue
}

// NewController binds a controller to an interface and its queues.
func NewController(l *logrus.Logger, ifp *Interface, tx []*TxQueue, rx []*RxQueue) *Controller {
	return &Controller{
		l:   l,
		ifp: ifp,
		tx:  tx,
		rx:  rx,
	}
}

// acquire takes the toggle flag, spinning with a fixed backoff. The
// returned release must run on every exit path, or the interface would be
// locked out of mode changes for good.
func (c *Controller) acquire() (release func(), err error) {
	for i := 0; i < busyAttempts; i++ {
		if c.busy.CompareAndSwap(false, true) {
			return func() { c.busy.Store(false) }, nil
		}
		time.Sleep(busyBackoff)
	}
	return nil, ErrModeToggleBusy
}

// Enter switches the interface's queue set into zero-copy mode. The first
// caller brings the interface down if it was running, flips ring ownership,
// resets every ring pair and brings the interface back up; later callers
// only take a reference.
func (c *Controller) Enter() error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	if c.users.Add(1) > 1 {
		return nil
	}

	wasRunning := c.ifp.Running()
	if wasRunning {
		c.ifp.Down()
	}

	c.ifp.setNative(true)
	for _, q := range c.tx {
		q.Reset()
	}
	for _, q := range c.rx {
		q.Reset()
	}

	if wasRunning {
		c.ifp.Up()
	}
	return nil
}

// Exit drops one reference to zero-copy mode. The last caller quiesces the
// interface and returns ring ownership to the ordinary data path.
func (c *Controller) Exit() error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	if c.users.Load() == 0 {
		return nil
	}
	if c.users.Add(-1) > 0 {
		return nil
	}

	wasRunning := c.ifp.Running()
	if wasRunning {
		c.ifp.Down()
	}

	c.ifp.setNative(false)

	if wasRunning {
		c.ifp.Up()
	}
	return nil
}

// Users returns the current reference count, for observability only. It is
// safe to call concurrently with toggles.
func (c *Controller) Users() int {
	return int(c.users.Load())
}

// Configure validates and applies a hardware buffer size for one direction
// of one queue. Receive sizes are programmed in 128-byte granules and must
// land in [1024, 16384) after truncation; transmit sizes pass through
// unvalidated, the hardware has no transmit buffer length register. The new
// size takes effect at the next ring reset.
func (c *Controller) Configure(dir Direction, queue int, bufSize uint32) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	if dir == TX {
		if queue >= len(c.tx) {
			return fmt.Errorf("%w: no such queue %d", ErrInvalidConfig, queue)
		}
		c.tx[queue].hwBufLen = bufSize
		return nil
	}

	if queue >= len(c.rx) {
		return fmt.Errorf("%w: no such queue %d", ErrInvalidConfig, queue)
	}

	granule := uint32(1) << device.DBufShift
	target := bufSize &^ (granule - 1)
	if target < 1024 || target > 16384-granule {
		return fmt.Errorf("%w: rx buffer size %d not in [1024, 16384) after %d-byte alignment",
			ErrInvalidConfig, bufSize, granule)
	}

	c.rx[queue].hwBufLen = target
	return nil
}
