// Package device implements the hardware-facing side of a zero-copy packet
// queue for an ice-class NIC: the little-endian descriptor ring layouts, the
// tail-register doorbell port and the completion sentinel the hardware
// writes back. A software simulation of the NIC ([Sim]) backs the test suite
// and the bench binary; nothing in the reconcilers knows whether the
// registers end in real hardware or in the simulation.
package device
