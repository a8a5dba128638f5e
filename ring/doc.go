// Package ring implements the user-facing side of a zero-copy packet queue:
// a fixed-size slot ring laid out over one raw memory region, the buffer
// arena its slots point into, and the index translation between the ring's
// index space and the NIC descriptor ring's index space.
// This package does not make assumptions about the hardware that consumes the
// matching descriptor ring. It only lays out the memory and provides methods
// to interact with it.
package ring
