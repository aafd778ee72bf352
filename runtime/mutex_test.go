package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexLockUnlockRoundTrip(t *testing.T) {
	m := MutexNew(10)
	v := m.Lock()
	assert.EqualValues(t, 10, v)
	m.Unlock(20)

	v = m.Lock()
	assert.EqualValues(t, 20, v)
	m.Unlock(20)
}

func TestMutexTryLockFailsWhileHeld(t *testing.T) {
	m := MutexNew(1)
	m.Lock()

	_, ok := m.TryLock()
	assert.False(t, ok)
	m.Unlock(1)

	v, ok := m.TryLock()
	require.True(t, ok)
	assert.EqualValues(t, 1, v)
	m.Unlock(1)
}

func TestMutexSerializesConcurrentIncrements(t *testing.T) {
	m := MutexNew(0)
	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := m.Lock()
			m.Unlock(v + 1)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, n, m.Lock())
}
