package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrefDecrefBalance(t *testing.T) {
	a := NewArena()
	s := StringNew(a, "hello")
	require.EqualValues(t, 1, s.Header().Refcount())

	s.Header().Incref()
	assert.EqualValues(t, 2, s.Header().Refcount())

	Decref(s, ClassNone)
	assert.EqualValues(t, 1, s.Header().Refcount())
}

func TestDecrefToZeroUnregistersHandle(t *testing.T) {
	a := NewArena()
	s := StringNew(a, "bye")
	handle := s.Handle()
	require.NotNil(t, objectFromSlot(handle))

	Decref(s, ClassNone)
	assert.Nil(t, objectFromSlot(handle), "an object whose refcount hit zero must be unregistered")
}

func TestDecrefRecursesIntoArrayElements(t *testing.T) {
	a := NewArena()
	inner := StringNew(a, "nested")
	arr := ArrayNew(a, 4)
	arr.Push(inner.Handle())
	inner.Header().Incref() // array now co-owns inner, mirroring codegen's ArraySet

	Decref(arr, ClassString)
	assert.Nil(t, objectFromSlot(inner.Handle()), "destroying an array must decref its heap-typed elements")
}

func TestDecrefRecursesIntoStructFields(t *testing.T) {
	a := NewArena()
	inner := StringNew(a, "field value")
	desc := &StructDescriptor{TypeID: 1, Fields: []FieldDescriptor{{Class: ClassString}}}
	st := StructNew(a, desc)
	st.SetFieldRaw(0, inner.Handle())
	inner.Header().Incref()

	Decref(st, ClassNone)
	assert.Nil(t, objectFromSlot(inner.Handle()))
}

func TestDecrefSkipsWeakStructFields(t *testing.T) {
	a := NewArena()
	inner := StringNew(a, "cycle breaker")
	desc := &StructDescriptor{TypeID: 1, Fields: []FieldDescriptor{{Class: ClassString, Weak: true}}}
	st := StructNew(a, desc)
	st.SetFieldRaw(0, inner.Handle())

	Decref(st, ClassNone)
	assert.NotNil(t, objectFromSlot(inner.Handle()), "a weak field must not be decref'd on destroy")
}

func TestStructAndMapShareHeapTag(t *testing.T) {
	assert.Equal(t, TagStruct, TagMap)
}
