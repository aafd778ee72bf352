package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestABITableCoversEveryDeclaredSymbolCategory(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	for _, name := range []string{
		"arena_alloc", "string_new", "string_from_cstr", "string_incref", "string_decref",
		"bytes_new", "bytes_from", "bytes_len", "bytes_get", "bytes_set",
		"bytes_incref", "bytes_decref", "bytes_to_string", "string_to_bytes",
		"array_new", "array_push", "array_get", "array_set", "array_len", "array_incref", "array_decref",
		"map_new", "map_set", "map_set_string", "map_set_array", "map_set_map", "map_set_struct",
		"map_get", "map_contains", "map_iter_init", "map_iter_next", "map_incref", "map_decref",
		"struct_new", "struct_set_field", "struct_get_field", "struct_incref", "struct_decref",
		"channel_new", "channel_send", "channel_receive", "channel_try_send", "channel_try_receive",
		"channel_close", "channel_is_closed", "channel_len", "channel_incref", "channel_decref",
		"mutex_new", "mutex_lock", "mutex_unlock", "mutex_try_lock", "mutex_get", "mutex_set",
		"mutex_incref", "mutex_decref",
		"exception_set", "exception_set_typed", "exception_get", "exception_get_type_id",
		"exception_is_type", "exception_check", "exception_clear", "exception_clear_ptr",
		"stack_pop", "stack_capture", "stack_format", "stack_clear",
		"wait_all", "active_tasks", "sleep", "worker_count",
		"decode_error_new", "path_error_new", "panic_unwrap",
	} {
		_, ok := table[name]
		assert.True(t, ok, "ABITable missing entry for %q", name)
	}
}

func TestABITableArrayRoundTrip(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	newArr := table["array_new"].(func(int64) int64)
	push := table["array_push"].(func(int64, int64))
	get := table["array_get"].(func(int64, int64) int64)
	length := table["array_len"].(func(int64) int64)

	h := newArr(4)
	push(h, 42)
	assert.EqualValues(t, 1, length(h))
	assert.EqualValues(t, 42, get(h, 0))
}

func TestABITableMapRoundTrip(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	newMap := table["map_new"].(func(int64) int64)
	set := table["map_set"].(func(int64, int64, int64))
	get := table["map_get"].(func(int64, int64) int64)
	contains := table["map_contains"].(func(int64, int64) int64)

	h := newMap(16)
	set(h, 1, 99)
	assert.EqualValues(t, 1, contains(h, 1))
	assert.EqualValues(t, 99, get(h, 1))
	assert.EqualValues(t, 0, contains(h, 2))
}

func TestABITableChannelSendReceiveViaClose(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	newChan := table["channel_new"].(func(int64) int64)
	send := table["channel_send"].(func(int64, int64) int64)
	closeFn := table["channel_close"].(func(int64))
	isClosed := table["channel_is_closed"].(func(int64) int64)
	clen := table["channel_len"].(func(int64) int64)

	h := newChan(2)
	require.EqualValues(t, 1, send(h, 7))
	assert.EqualValues(t, 1, clen(h))

	closeFn(h)
	assert.EqualValues(t, 1, isClosed(h))
}

func TestABITableMutexLockUnlock(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	newMutex := table["mutex_new"].(func(int64) int64)
	lock := table["mutex_lock"].(func(int64) int64)
	unlock := table["mutex_unlock"].(func(int64, int64))

	h := newMutex(5)
	v := lock(h)
	assert.EqualValues(t, 5, v)
	unlock(h, 6)

	v2 := lock(h)
	assert.EqualValues(t, 6, v2)
}

func TestABITableExceptionCheckClearUsesWorkerZero(t *testing.T) {
	a := NewArena()
	table := ABITable(a)
	defer ReleaseWorker(WorkerID(0))

	check := table["exception_check"].(func() int64)
	clear := table["exception_clear"].(func())

	assert.EqualValues(t, 0, check())
	SetException(WorkerID(0), &Struct{}, 11)
	assert.EqualValues(t, 1, check())
	clear()
	assert.EqualValues(t, 0, check())
}

func TestABITableStructNewSetFieldGetFieldRoundTrip(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	newStruct := table["struct_new"].(func(int64, int64) int64)
	setField := table["struct_set_field"].(func(int64, int64, int64))
	getField := table["struct_get_field"].(func(int64, int64) int64)

	h := newStruct(42, 2)
	setField(h, 0, 100)
	setField(h, 1, 200)
	assert.EqualValues(t, 100, getField(h, 0))
	assert.EqualValues(t, 200, getField(h, 1))
}

func TestABITableChannelReceiveBlocksThenDrains(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	newChan := table["channel_new"].(func(int64) int64)
	send := table["channel_send"].(func(int64, int64) int64)
	receive := table["channel_receive"].(func(int64) (int64, int64))
	tryReceive := table["channel_try_receive"].(func(int64) (int64, int64))
	closeFn := table["channel_close"].(func(int64))

	h := newChan(2)
	require.EqualValues(t, 1, send(h, 9))
	v, ok := receive(h)
	assert.EqualValues(t, 9, v)
	assert.EqualValues(t, 1, ok)

	closeFn(h)
	v, ok = tryReceive(h)
	assert.EqualValues(t, 0, v)
	assert.EqualValues(t, 0, ok)
}

func TestABITableMutexTryLockGetSet(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	newMutex := table["mutex_new"].(func(int64) int64)
	tryLock := table["mutex_try_lock"].(func(int64) (int64, int64))
	unlock := table["mutex_unlock"].(func(int64, int64))
	get := table["mutex_get"].(func(int64) int64)
	set := table["mutex_set"].(func(int64, int64))

	h := newMutex(1)
	v, ok := tryLock(h)
	assert.EqualValues(t, 1, v)
	assert.EqualValues(t, 1, ok)
	unlock(h, 2)

	set(h, 5)
	assert.EqualValues(t, 5, get(h))
}

func TestABITableMapSetStringAndIterate(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	newMap := table["map_new"].(func(int64) int64)
	setString := table["map_set_string"].(func(int64, int64, int64))
	iterInit := table["map_iter_init"].(func(int64) int64)
	iterNext := table["map_iter_next"].(func(int64) (int64, int64, int64))

	h := newMap(4)
	str := StringNew(a, "hello")
	setString(h, 1, str.handle)

	it := iterInit(h)
	k, v, ok := iterNext(it)
	assert.EqualValues(t, 1, k)
	assert.EqualValues(t, str.handle, v)
	assert.EqualValues(t, 1, ok)

	_, _, ok = iterNext(it)
	assert.EqualValues(t, 0, ok)
}

func TestABITableArraySetOverwritesSlot(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	newArr := table["array_new"].(func(int64) int64)
	push := table["array_push"].(func(int64, int64))
	set := table["array_set"].(func(int64, int64, int64))
	get := table["array_get"].(func(int64, int64) int64)

	h := newArr(4)
	push(h, 1)
	set(h, 0, 99)
	assert.EqualValues(t, 99, get(h, 0))
}

func TestABITableBytesGetSetAndStringRoundTrip(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	bytesFrom := table["bytes_from"].(func(int64, int64) int64)
	set := table["bytes_set"].(func(int64, int64, int64))
	get := table["bytes_get"].(func(int64, int64) int64)
	bytesToString := table["bytes_to_string"].(func(int64) int64)
	stringToBytes := table["string_to_bytes"].(func(int64) int64)

	bh := bytesFrom(0, 1)
	set(bh, 0, 'A')
	assert.EqualValues(t, 'A', get(bh, 0))

	strHandle := StringNew(a, "roundtrip").handle
	viaBytes := stringToBytes(strHandle)
	viaString := bytesToString(viaBytes)
	backStr := objectFromSlot(viaString).(*Str)
	assert.Equal(t, "roundtrip", backStr.String())
}

func TestABITableExceptionSetGetTypeIDAndIsType(t *testing.T) {
	a := NewArena()
	table := ABITable(a)
	defer ReleaseWorker(WorkerID(0))

	setTyped := table["exception_set_typed"].(func(int64, int64))
	get := table["exception_get"].(func() int64)
	getTypeID := table["exception_get_type_id"].(func() int64)
	isType := table["exception_is_type"].(func(int64) int64)
	clearPtr := table["exception_clear_ptr"].(func())

	desc := &StructDescriptor{TypeID: 7}
	st := StructNew(a, desc)
	setTyped(st.handle, 7)

	assert.EqualValues(t, st.handle, get())
	assert.EqualValues(t, 7, getTypeID())
	assert.EqualValues(t, 1, isType(7))
	assert.EqualValues(t, 0, isType(8))

	clearPtr()
	assert.EqualValues(t, 0, get())
	assert.EqualValues(t, 7, getTypeID())
}

func TestABITableSleepAndWorkerCount(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	sleep := table["sleep"].(func(int64))
	workerCount := table["worker_count"].(func() int64)

	sleep(1)
	assert.Greater(t, workerCount(), int64(0))
}

func TestABITableStackCaptureFormatClear(t *testing.T) {
	a := NewArena()
	table := ABITable(a)
	defer ReleaseWorker(WorkerID(0))

	capture := table["stack_capture"].(func() int64)
	format := table["stack_format"].(func(int64) int64)
	clear := table["stack_clear"].(func())

	PushFrame(WorkerID(0), ShadowFrame{FunctionName: "main", File: "main.naml", Line: 3})
	h := capture()
	strHandle := format(h)
	str := objectFromSlot(strHandle).(*Str)
	assert.Contains(t, str.String(), "main (main.naml:3)")

	clear()
	assert.Empty(t, StackTrace(WorkerID(0)))
}

func TestABITableDecodeErrorAndPathErrorNew(t *testing.T) {
	a := NewArena()
	table := ABITable(a)

	decodeErrorNew := table["decode_error_new"].(func(int64, int64) int64)
	pathErrorNew := table["path_error_new"].(func(int64) int64)
	getField := table["struct_get_field"].(func(int64, int64) int64)

	msg := StringNew(a, "bad byte").handle
	h := decodeErrorNew(msg, 4)
	assert.EqualValues(t, msg, getField(h, 0))
	assert.EqualValues(t, 4, getField(h, 1))

	h2 := pathErrorNew(msg)
	assert.EqualValues(t, msg, getField(h2, 0))
}

func TestABITablePanicUnwrapPanics(t *testing.T) {
	a := NewArena()
	table := ABITable(a)
	panicUnwrap := table["panic_unwrap"].(func(int64))

	assert.Panics(t, func() { panicUnwrap(0) })
}
