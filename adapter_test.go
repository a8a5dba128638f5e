package zring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zring-io/zring/config"
	"github.com/zring-io/zring/device"
)

func TestAttach_RejectsBadConfig(t *testing.T) {
	l := newTestLogger()

	cases := []struct {
		name string
		yaml string
	}{
		{"num_slots not power of two", "ring:\n  num_slots: 3\n"},
		{"num_slots too large", "ring:\n  num_slots: 16384\n"},
		{"num_queues zero", "ring:\n  num_queues: 0\n"},
		{"rx_buf_size too small", "ring:\n  rx_buf_size: 512\n"},
		{"rx_buf_size too large", "ring:\n  rx_buf_size: 32768\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := config.NewC(l)
			require.NoError(t, c.LoadString(tc.yaml))
			a, err := Attach(l, c)
			assert.Error(t, err)
			assert.Nil(t, a)
		})
	}
}

func TestAttach_SeedsDistinctBuffers(t *testing.T) {
	l := newTestLogger()
	c := config.NewC(l)
	require.NoError(t, c.LoadString("ring:\n  num_slots: 8\n  num_queues: 2\n"))

	a, err := Attach(l, c)
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, 2, a.NumQueues())

	// Every slot across every ring owns its own buffer and none of them
	// is the placeholder.
	seen := map[uint32]string{}
	check := func(name string, bufIdx uint32) {
		assert.NotZero(t, bufIdx, "%s has the placeholder buffer", name)
		if prev, dup := seen[bufIdx]; dup {
			t.Errorf("buffer %d shared by %s and %s", bufIdx, prev, name)
		}
		seen[bufIdx] = name
		assert.NotEqual(t, a.Arena().Base(), a.Arena().Resolve(bufIdx))
	}

	for qi := 0; qi < a.NumQueues(); qi++ {
		txr := a.TxQueue(qi).Ring()
		rxr := a.RxQueue(qi).Ring()
		for i := uint32(0); i < txr.NumSlots(); i++ {
			check("tx", txr.Slot(i).BufIdx)
			check("rx", rxr.Slot(i).BufIdx)
		}
	}
	assert.Len(t, seen, 32)
}

func TestAdapter_ReloadAppliesRxBufSize(t *testing.T) {
	l := newTestLogger()
	c := config.NewC(l)
	require.NoError(t, c.LoadString("ring:\n  num_slots: 8\n  rx_buf_size: 2048\n"))

	a, err := Attach(l, c)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Controller().Enter())

	require.NoError(t, c.ReloadConfigString("ring:\n  num_slots: 8\n  rx_buf_size: 4096\n"))

	q := a.RxQueue(0)
	assert.Equal(t, uint32(4096), q.BufLen())

	// The new size reaches the hardware at the next reset.
	a.Sim(0).Reset()
	q.Reset()
	assert.Equal(t, uint32(4096>>device.DBufShift), q.nic.DBuf)
}

func TestMain_ConfigTest(t *testing.T) {
	l := newTestLogger()
	c := config.NewC(l)
	require.NoError(t, c.LoadString("ring:\n  num_slots: 8\n"))

	a, err := Main(c, true, "test", l)
	require.NoError(t, err)
	assert.Nil(t, a)

	c = config.NewC(l)
	require.NoError(t, c.LoadString("ring:\n  num_slots: 13\n"))
	_, err = Main(c, true, "test", l)
	assert.Error(t, err)
}
