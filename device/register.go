package device

import "sync/atomic"

// Register is a single device doorbell register. Writing the tail register
// is the only mechanism to signal new work to the device; implementations
// must make the write visible to the device immediately.
//
// Callers must issue [Wmb] before the write so the device never observes an
// updated position with stale descriptor contents.
type Register interface {
	Write(v uint32)
}

var wmbSink atomic.Uint64

// Wmb orders all descriptor-memory writes issued before it ahead of any
// register write issued after it. The atomic read-modify-write compiles to a
// full memory barrier on the architectures this runs on.
func Wmb() {
	wmbSink.Add(1)
}
