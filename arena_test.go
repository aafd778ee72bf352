package naml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArenaAllocTracksLiveNodes(t *testing.T) {
	a := NewArena()
	node := ArenaAlloc[IntLiteral](a)
	assert.NotNil(t, node)

	live, resets := a.Stats()
	assert.Equal(t, 1, live)
	assert.Equal(t, 0, resets)
}

func TestArenaAllocSliceCopyTracksLength(t *testing.T) {
	a := NewArena()
	out := ArenaAllocSliceCopy(a, []int{1, 2, 3})
	assert.Equal(t, []int{1, 2, 3}, out)

	live, _ := a.Stats()
	assert.Equal(t, 3, live)
}

func TestArenaAllocSliceCopyOfEmptyReturnsNil(t *testing.T) {
	a := NewArena()
	out := ArenaAllocSliceCopy(a, []int{})
	assert.Nil(t, out)
}

func TestArenaResetClearsCountersAndBumpsResetCount(t *testing.T) {
	a := NewArena()
	ArenaAlloc[IntLiteral](a)
	a.Reset()

	live, resets := a.Stats()
	assert.Equal(t, 0, live)
	assert.Equal(t, 1, resets)
}
