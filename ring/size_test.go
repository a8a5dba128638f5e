package ring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zring-io/zring/ring"
)

func TestCheckNumSlots(t *testing.T) {
	tests := []struct {
		name        string
		numSlots    int
		containsErr string
	}{
		{
			name:        "negative",
			numSlots:    -1,
			containsErr: "too small",
		},
		{
			name:        "zero",
			numSlots:    0,
			containsErr: "too small",
		},
		{
			name:        "not a power of 2",
			numSlots:    24,
			containsErr: "not a power of 2",
		},
		{
			name:        "too large",
			numSlots:    16384,
			containsErr: "larger than the maximum",
		},
		{
			name:     "valid 8",
			numSlots: 8,
		},
		{
			name:     "valid 1024",
			numSlots: 1024,
		},
		{
			name:     "valid 8192",
			numSlots: 8192,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ring.CheckNumSlots(tt.numSlots)
			if tt.containsErr != "" {
				assert.ErrorContains(t, err, tt.containsErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
