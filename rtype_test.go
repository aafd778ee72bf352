package naml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTypePrimitivesNonHeap(t *testing.T) {
	for _, prim := range []PrimitiveKind{PrimitiveInt, PrimitiveUint, PrimitiveFloat, PrimitiveBool, PrimitiveUnit} {
		_, ok := ClassifyType(&Type{Kind: TypeKindPrimitive, Primitive: prim})
		assert.Falsef(t, ok, "%s should not be heap-classified", prim)
	}
}

func TestClassifyTypeStringAndBytesAreHeap(t *testing.T) {
	class, ok := ClassifyType(&Type{Kind: TypeKindPrimitive, Primitive: PrimitiveString})
	assert.True(t, ok)
	assert.Equal(t, HeapClassString, class.Kind)

	class, ok = ClassifyType(&Type{Kind: TypeKindPrimitive, Primitive: PrimitiveBytes})
	assert.True(t, ok)
	assert.Equal(t, HeapClassBytes, class.Kind)
}

func TestClassifyTypeArrayOfHeapElement(t *testing.T) {
	elem := &Type{Kind: TypeKindPrimitive, Primitive: PrimitiveString}
	arr := &Type{Kind: TypeKindArray, Elem: elem}

	class, ok := ClassifyType(arr)
	assert.True(t, ok)
	assert.Equal(t, HeapClassArray, class.Kind)
	if assert.NotNil(t, class.Element) {
		assert.Equal(t, HeapClassString, class.Element.Kind)
	}
}

func TestClassifyTypeArrayOfNonHeapElement(t *testing.T) {
	elem := &Type{Kind: TypeKindPrimitive, Primitive: PrimitiveInt}
	arr := &Type{Kind: TypeKindArray, Elem: elem}

	class, ok := ClassifyType(arr)
	assert.True(t, ok)
	assert.Equal(t, HeapClassArray, class.Kind)
	assert.Nil(t, class.Element)
}

func TestClassifyTypeStructAndEnumShareHeapClass(t *testing.T) {
	structClass, ok := ClassifyType(&Type{Kind: TypeKindStruct})
	assert.True(t, ok)
	enumClass, ok := ClassifyType(&Type{Kind: TypeKindEnum})
	assert.True(t, ok)
	assert.Equal(t, HeapClassStruct, structClass.Kind)
	assert.Equal(t, HeapClassStruct, enumClass.Kind)
}

func TestClassifyTypeMutexAndRWLockShareHeapClass(t *testing.T) {
	mutexClass, ok := ClassifyType(&Type{Kind: TypeKindMutex})
	assert.True(t, ok)
	rwClass, ok := ClassifyType(&Type{Kind: TypeKindRWLock})
	assert.True(t, ok)
	assert.Equal(t, HeapClassMutex, mutexClass.Kind)
	assert.Equal(t, HeapClassMutex, rwClass.Kind)
}

func TestIsHeapAllocated(t *testing.T) {
	assert.True(t, IsHeapAllocated(&Type{Kind: TypeKindPrimitive, Primitive: PrimitiveString}))
	assert.False(t, IsHeapAllocated(&Type{Kind: TypeKindPrimitive, Primitive: PrimitiveInt}))
}
