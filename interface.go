package zring

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Interface tracks the administrative and link state of the network
// interface a queue set belongs to. The reconcilers read it on every pass;
// the mode controller toggles it around ownership changes.
type Interface struct {
	l    *logrus.Logger
	name string

	adminUp atomic.Bool
	linkUp  atomic.Bool
	native  atomic.Bool
}

// NewInterface returns an interface handle that is administratively down
// with link up, the state a freshly attached adapter starts in.
func NewInterface(l *logrus.Logger, name string) *Interface {
	ifp := &Interface{l: l, name: name}
	ifp.linkUp.Store(true)
	return ifp
}

// Name returns the interface name.
func (ifp *Interface) Name() string {
	return ifp.name
}

// Up brings the interface administratively up.
func (ifp *Interface) Up() {
	if !ifp.adminUp.Swap(true) {
		ifp.l.WithField("interface", ifp.name).Info("Interface up")
	}
}

// Down brings the interface administratively down. No packets are processed
// by either data path while down.
func (ifp *Interface) Down() {
	if ifp.adminUp.Swap(false) {
		ifp.l.WithField("interface", ifp.name).Info("Interface down")
	}
}

// Running reports whether the interface is administratively up.
func (ifp *Interface) Running() bool {
	return ifp.adminUp.Load()
}

// LinkUp reports whether the carrier is present.
func (ifp *Interface) LinkUp() bool {
	return ifp.linkUp.Load()
}

// SetLink changes the carrier state, standing in for the PHY callback.
func (ifp *Interface) SetLink(up bool) {
	ifp.linkUp.Store(up)
}

// Native reports whether the zero-copy path owns the rings.
func (ifp *Interface) Native() bool {
	return ifp.native.Load()
}

func (ifp *Interface) setNative(on bool) {
	ifp.native.Store(on)
	ifp.l.WithField("interface", ifp.name).
		WithField("native", on).
		Info("Ring ownership changed")
}
