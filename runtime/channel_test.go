package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSendReceiveFIFO(t *testing.T) {
	c := ChannelNew(4)
	require.True(t, c.Send(1))
	require.True(t, c.Send(2))

	v, ok := c.Receive()
	require.True(t, ok)
	assert.EqualValues(t, 1, v)

	v, ok = c.Receive()
	require.True(t, ok)
	assert.EqualValues(t, 2, v)
}

func TestChannelZeroCapacityTreatedAsOne(t *testing.T) {
	c := ChannelNew(0)
	require.True(t, c.TrySend(42))
	assert.False(t, c.TrySend(43), "a capacity-0 channel must behave as capacity 1")
}

func TestChannelTrySendFailsWhenFull(t *testing.T) {
	c := ChannelNew(1)
	require.True(t, c.TrySend(1))
	assert.False(t, c.TrySend(2))
}

func TestChannelReceiveOnClosedEmptyReturnsImmediately(t *testing.T) {
	c := ChannelNew(1)
	c.Close()

	done := make(chan struct{})
	go func() {
		v, ok := c.Receive()
		assert.False(t, ok)
		assert.Zero(t, v)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Receive on a closed, empty channel must not block")
	}
}

func TestChannelCloseDrainsBufferedValuesFirst(t *testing.T) {
	c := ChannelNew(2)
	require.True(t, c.Send(7))
	c.Close()

	v, ok := c.Receive()
	require.True(t, ok)
	assert.EqualValues(t, 7, v)

	_, ok = c.Receive()
	assert.False(t, ok)
}

func TestChannelSendAfterCloseFails(t *testing.T) {
	c := ChannelNew(1)
	c.Close()
	assert.False(t, c.Send(1))
}

func TestChannelTryReceiveEmptyNonBlocking(t *testing.T) {
	c := ChannelNew(1)
	_, ok := c.TryReceive()
	assert.False(t, ok)
}

func TestChannelBlockingSendUnblocksOnReceive(t *testing.T) {
	c := ChannelNew(1)
	require.True(t, c.Send(1))

	done := make(chan struct{})
	go func() {
		assert.True(t, c.Send(2))
		close(done)
	}()

	v, ok := c.Receive()
	require.True(t, ok)
	assert.EqualValues(t, 1, v)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked Send must unblock once the buffer has room")
	}
	assert.Equal(t, 1, c.Len())
}
