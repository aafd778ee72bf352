package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShadowStackPushPopOrder(t *testing.T) {
	s := newShadowStack(4)
	s.Push(ShadowFrame{FunctionName: "a"})
	s.Push(ShadowFrame{FunctionName: "b"})

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].FunctionName)
	assert.Equal(t, "b", snap[1].FunctionName)

	s.Pop()
	snap = s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].FunctionName)
}

func TestShadowStackPopOnEmptyIsNoop(t *testing.T) {
	s := newShadowStack(4)
	assert.NotPanics(t, func() { s.Pop() })
	assert.Empty(t, s.Snapshot())
}

func TestShadowStackOverflowDropsOldestFrame(t *testing.T) {
	s := newShadowStack(2)
	s.Push(ShadowFrame{FunctionName: "first"})
	s.Push(ShadowFrame{FunctionName: "second"})
	s.Push(ShadowFrame{FunctionName: "third"})

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "second", snap[0].FunctionName)
	assert.Equal(t, "third", snap[1].FunctionName)
}

func TestPushFramePopFrameStackTraceViaWorkerID(t *testing.T) {
	id := WorkerID(2001)
	defer ReleaseWorker(id)

	PushFrame(id, ShadowFrame{FunctionName: "outer", Line: 10})
	PushFrame(id, ShadowFrame{FunctionName: "inner", Line: 20})

	trace := StackTrace(id)
	require.Len(t, trace, 2)
	assert.Equal(t, "inner", trace[1].FunctionName)

	PopFrame(id)
	trace = StackTrace(id)
	require.Len(t, trace, 1)
	assert.Equal(t, "outer", trace[0].FunctionName)
}
