package ring

import (
	"errors"
	"fmt"
)

// ErrNumSlotsInvalid is returned when a ring slot count is invalid.
var ErrNumSlotsInvalid = errors.New("slot count is invalid")

// CheckNumSlots checks if the given value would be a valid slot count for a
// ring and returns an [ErrNumSlotsInvalid], if not.
func CheckNumSlots(numSlots int) error {
	if numSlots <= 0 {
		return fmt.Errorf("%w: %d is too small", ErrNumSlotsInvalid, numSlots)
	}

	// The slot count must always be a power of 2 so that ring indexes wrap
	// cleanly against the hardware's descriptor count.
	if numSlots&(numSlots-1) != 0 {
		return fmt.Errorf("%w: %d is not a power of 2", ErrNumSlotsInvalid, numSlots)
	}

	// 8192 descriptors is the deepest queue the hardware family supports.
	if numSlots > 8192 {
		return fmt.Errorf("%w: %d is larger than the maximum possible slot count 8192",
			ErrNumSlotsInvalid, numSlots)
	}

	return nil
}
