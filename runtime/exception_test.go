package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetExceptionCurrentExceptionRoundTrip(t *testing.T) {
	id := WorkerID(1001)
	defer ReleaseWorker(id)

	exc := &Struct{}
	SetException(id, exc, 7)

	got, typeID := CurrentException(id)
	assert.Same(t, exc, got)
	assert.EqualValues(t, 7, typeID)
	assert.True(t, HasPendingException(id))
}

func TestClearExceptionPointerKeepsTypeID(t *testing.T) {
	id := WorkerID(1002)
	defer ReleaseWorker(id)

	SetException(id, &Struct{}, 3)
	ClearExceptionPointer(id)

	got, typeID := CurrentException(id)
	assert.Nil(t, got)
	assert.EqualValues(t, 3, typeID)
	assert.True(t, HasPendingException(id), "type id alone still marks a pending exception")
}

func TestClearExceptionResetsBothFields(t *testing.T) {
	id := WorkerID(1003)
	defer ReleaseWorker(id)

	SetException(id, &Struct{}, 3)
	ClearException(id)

	got, typeID := CurrentException(id)
	assert.Nil(t, got)
	assert.Zero(t, typeID)
	assert.False(t, HasPendingException(id))
}

func TestReleaseWorkerDropsState(t *testing.T) {
	id := WorkerID(1004)
	SetException(id, &Struct{}, 9)
	ReleaseWorker(id)

	// stateFor lazily recreates a fresh entry, so the exception must be gone.
	_, typeID := CurrentException(id)
	assert.Zero(t, typeID)
	ReleaseWorker(id)
}
