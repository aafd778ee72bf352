package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructFieldRoundTrip(t *testing.T) {
	a := NewArena()
	desc := &StructDescriptor{TypeID: 1, Fields: []FieldDescriptor{{Class: ClassNone}}}
	s := StructNew(a, desc)
	s.SetFieldRaw(0, 42)
	assert.EqualValues(t, 42, s.Field(0))
}

func TestSetFieldRefcountDiscipline(t *testing.T) {
	a := NewArena()
	desc := &StructDescriptor{TypeID: 1, Fields: []FieldDescriptor{{Class: ClassString}}}
	s := StructNew(a, desc)

	first := StringNew(a, "first")
	SetField(s, 0, first.Handle())
	assert.EqualValues(t, 2, first.Header().Refcount())

	second := StringNew(a, "second")
	SetField(s, 0, second.Handle())
	assert.Nil(t, objectFromSlot(first.Handle()))
	assert.EqualValues(t, 2, second.Header().Refcount())
}

func TestIsBuiltinException(t *testing.T) {
	assert.True(t, IsBuiltinException(BuiltinTypeIDBase))
	assert.True(t, IsBuiltinException(BuiltinTypeIDBase+5))
	assert.False(t, IsBuiltinException(BuiltinTypeIDBase-1))
}

func TestStructNewSizingMatchesFieldCount(t *testing.T) {
	a := NewArena()
	desc := &StructDescriptor{TypeID: 1, Fields: make([]FieldDescriptor, 3)}
	s := StructNew(a, desc)
	require.Len(t, s.fields, 3)
}
