package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayPushGet(t *testing.T) {
	a := NewArena()
	arr := ArrayNew(a, 4)
	arr.Push(10)
	arr.Push(20)

	require.Equal(t, 2, arr.Len())
	assert.EqualValues(t, 10, arr.Get(0))
	assert.EqualValues(t, 20, arr.Get(1))
}

func TestArraySetDecrefsDisplacedValue(t *testing.T) {
	a := NewArena()
	arr := ArrayNew(a, 4)

	old := StringNew(a, "old")
	arr.Push(old.Handle())

	ArraySet(arr, 0, 0, ClassString)
	assert.Nil(t, objectFromSlot(old.Handle()), "ArraySet must decref the value it displaces")
}

func TestArraySetIncrefsNewHeapValue(t *testing.T) {
	a := NewArena()
	arr := ArrayNew(a, 4)
	arr.Push(0)

	fresh := StringNew(a, "fresh")
	ArraySet(arr, 0, fresh.Handle(), ClassString)
	assert.EqualValues(t, 2, fresh.Header().Refcount(), "ArraySet must incref the value it installs")
}

func TestArraySetOnNonHeapClassSkipsRefcounting(t *testing.T) {
	a := NewArena()
	arr := ArrayNew(a, 4)
	arr.Push(5)
	assert.NotPanics(t, func() { ArraySet(arr, 0, 9, ClassNone) })
	assert.EqualValues(t, 9, arr.Get(0))
}
