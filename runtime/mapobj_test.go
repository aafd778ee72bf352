package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSetGetContains(t *testing.T) {
	m := MapNew(16)
	m.Set(1, 100)

	assert.True(t, m.Contains(1))
	v, ok := m.Get(1)
	require.True(t, ok)
	assert.EqualValues(t, 100, v)
	assert.False(t, m.Contains(2))
}

func TestMapSetTypedDecrefsDisplacedAndIncrefsNew(t *testing.T) {
	a := NewArena()
	m := MapNew(16)

	old := StringNew(a, "old")
	MapSetTyped(m, 1, old.Handle(), ClassString)
	assert.EqualValues(t, 2, old.Header().Refcount(), "installing into an empty slot still increfs the new value")

	fresh := StringNew(a, "fresh")
	MapSetTyped(m, 1, fresh.Handle(), ClassString)
	assert.Nil(t, objectFromSlot(old.Handle()), "replacing a value must decref the one displaced")
	assert.EqualValues(t, 2, fresh.Header().Refcount())
}

func TestMapDeleteReturnsPreviousValue(t *testing.T) {
	m := MapNew(16)
	m.Set(5, 50)

	v, ok := m.Delete(5)
	require.True(t, ok)
	assert.EqualValues(t, 50, v)
	assert.False(t, m.Contains(5))

	_, ok = m.Delete(5)
	assert.False(t, ok)
}

func TestMapKeysSnapshot(t *testing.T) {
	m := MapNew(16)
	m.Set(1, 1)
	m.Set(2, 2)
	m.Set(3, 3)

	keys := m.Keys()
	assert.ElementsMatch(t, []int64{1, 2, 3}, keys)
}
