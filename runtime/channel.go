package runtime

import "sync"

// Channel is a bounded FIFO guarded by a mutex and two condition
// variables, not-empty and not-full (§3.8, §4.6).
type Channel struct {
	header HeapHeader
	handle int64

	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf      []int64
	capacity int
	closed   bool
}

func (c *Channel) Header() *HeapHeader { return &c.header }
func (c *Channel) Handle() int64       { return c.handle }

// ChannelNew creates a channel with the given capacity; zero is
// treated as one, per §4.6.
func ChannelNew(capacity int) *Channel {
	if capacity < 1 {
		capacity = 1
	}
	c := &Channel{
		header:   HeapHeader{refcount: 1, tag: TagChannel},
		capacity: capacity,
	}
	c.notEmpty = sync.NewCond(&c.mu)
	c.notFull = sync.NewCond(&c.mu)
	c.handle = registerObject(c)
	return c
}

// Send blocks while the buffer is full and the channel is open. It
// returns true on success, false if the channel was (or became)
// closed before the value could be enqueued (§4.6).
func (c *Channel) Send(v int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.buf) >= c.capacity && !c.closed {
		c.notFull.Wait()
	}
	if c.closed {
		return false
	}
	c.buf = append(c.buf, v)
	c.notEmpty.Signal()
	return true
}

// TrySend never blocks; it reports false immediately if the buffer is
// full or the channel is closed.
func (c *Channel) TrySend(v int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.buf) >= c.capacity {
		return false
	}
	c.buf = append(c.buf, v)
	c.notEmpty.Signal()
	return true
}

// Receive blocks while the buffer is empty and the channel is open. It
// returns (value, true) on success, or (0, false) once the channel is
// closed and drained — the two-word option interface §4.6/§9's
// resolved Open Question calls for, rather than an in-band zero
// sentinel (§8 property 6: receive on a closed, empty channel returns
// immediately without blocking).
func (c *Channel) Receive() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.buf) == 0 && !c.closed {
		c.notEmpty.Wait()
	}
	if len(c.buf) == 0 {
		return 0, false
	}
	v := c.buf[0]
	c.buf = c.buf[1:]
	c.notFull.Signal()
	return v, true
}

// TryReceive never blocks; it reports ok=false immediately if the
// buffer is empty, closed or not.
func (c *Channel) TryReceive() (v int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 {
		return 0, false
	}
	v = c.buf[0]
	c.buf = c.buf[1:]
	c.notFull.Signal()
	return v, true
}

// Close marks the channel closed and wakes every blocked sender and
// receiver; subsequent sends fail and subsequent receives drain
// remaining items before also failing (§4.6).
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.notEmpty.Broadcast()
	c.notFull.Broadcast()
}

// Len returns the number of buffered items, for tests.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}
