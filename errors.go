package zring

import "errors"

var (
	// ErrRingUnavailable is returned when a NIC ring is missing or its
	// descriptor memory is unallocated. The condition is recoverable, the
	// scheduler should simply retry on the next event.
	ErrRingUnavailable = errors.New("nic ring is unavailable")

	// ErrBadBuffer is returned when a slot's buffer resolved to the
	// reserved placeholder during receive refill. It always arrives
	// wrapped in [ErrReinitRequested].
	ErrBadBuffer = errors.New("slot buffer is the placeholder buffer")

	// ErrIndexOutOfRange is returned when the external head index is
	// outside the ring. It always arrives wrapped in [ErrReinitRequested].
	ErrIndexOutOfRange = errors.New("head index out of range")

	// ErrReinitRequested asks the external scheduler to reset the ring
	// pair before the next reconcile attempt. It is a request, not a
	// failure of the interface.
	ErrReinitRequested = errors.New("ring reinit requested")

	// ErrInvalidConfig is returned when a requested setting violates the
	// hardware's constraints, such as a receive buffer size outside the
	// supported range. The ring is left untouched.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrModeToggleBusy is returned when another mode toggle is in
	// flight. The caller should retry; the toggle itself did not fail.
	ErrModeToggleBusy = errors.New("mode toggle in progress")
)
