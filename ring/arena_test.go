package ring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zring-io/zring/ring"
)

func TestArena_Resolve(t *testing.T) {
	a, err := ring.NewArena(4, 2048)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, a.Base(), a.Resolve(0))
	assert.Equal(t, a.Base()+2048, a.Resolve(1))
	assert.Equal(t, a.Base()+3*2048, a.Resolve(3))

	// Out-of-range indexes clamp to the placeholder.
	assert.Equal(t, a.Base(), a.Resolve(4))
	assert.Equal(t, a.Base(), a.Resolve(0xffffffff))
}

func TestArena_Slice(t *testing.T) {
	a, err := ring.NewArena(4, 64)
	require.NoError(t, err)
	defer a.Close()

	buf := a.Slice(a.Resolve(2), 64)
	require.Len(t, buf, 64)
	buf[0] = 0xaa

	again := a.Slice(a.Resolve(2), 64)
	assert.Equal(t, byte(0xaa), again[0])

	// Addresses outside the arena yield nothing.
	assert.Nil(t, a.Slice(a.Base()-1, 1))
	assert.Nil(t, a.Slice(a.Base()+4*64, 1))
}

func TestArena_SyncCounters(t *testing.T) {
	a, err := ring.NewArena(2, 64)
	require.NoError(t, err)
	defer a.Close()

	a.SyncForDevice(a.Resolve(1), 64)
	a.SyncForDevice(a.Resolve(1), 64)
	a.SyncForCPU(a.Resolve(1), 64)

	st := a.Stats()
	assert.Equal(t, uint64(2), st.SyncedForDevice)
	assert.Equal(t, uint64(1), st.SyncedForCPU)
}

func TestNewArena_Invalid(t *testing.T) {
	_, err := ring.NewArena(1, 64)
	assert.ErrorIs(t, err, ring.ErrArenaSizeInvalid)

	_, err = ring.NewArena(4, 0)
	assert.ErrorIs(t, err, ring.ErrArenaSizeInvalid)
}
