package naml

// Type is a resolved type as the type checker produces it, distinct
// from the syntactic TypeExpr the parser emits (§3.4). Codegen never
// consumes a TypeExpr directly; it always goes through the annotations
// map (annotations.go) to reach a Type.
type Type struct {
	Kind      TypeKind
	Primitive PrimitiveKind // valid when Kind == TypeKindPrimitive

	Elem  *Type // Array, FixedArray, Option, Channel, Mutex, RWLock element/inner
	Key   *Type // Map key
	Value *Type // Map value

	FixedSize int // FixedArray size

	Name Symbol // Struct, Enum, Interface name

	Params []*Type // Function params
	Return *Type   // Function return

	Struct *StructDescriptor // populated when Kind == TypeKindStruct
	Enum   *EnumDescriptor   // populated when Kind == TypeKindEnum
}

// TypeKind discriminates the Type sum type.
type TypeKind int

const (
	TypeKindPrimitive TypeKind = iota
	TypeKindArray
	TypeKindFixedArray
	TypeKindOption
	TypeKindMap
	TypeKindChannel
	TypeKindMutex
	TypeKindRWLock
	TypeKindStruct
	TypeKindEnum
	TypeKindInterface
	TypeKindFunction
)

// StructFieldDescriptor describes one field of a resolved struct, in
// declaration order.
type StructFieldDescriptor struct {
	Name   Symbol
	Type   *Type
	Offset int  // byte offset within the struct's field block, 8 * index
	Weak   bool // true for a cycle-breaking field a future collector may skip when tracing (§9)
}

// StructDescriptor is the fully resolved shape of a struct type,
// carrying field order and types rather than just a name (§3.4).
type StructDescriptor struct {
	TypeID uint32
	Name   Symbol
	Fields []StructFieldDescriptor
}

// EnumVariantDescriptor is one resolved variant: its small-integer
// tag and the resolved types of its payload fields, in order.
type EnumVariantDescriptor struct {
	Name    Symbol
	Tag     int32
	Payload []StructFieldDescriptor
}

// EnumDescriptor is the fully resolved shape of an enum type.
type EnumDescriptor struct {
	TypeID   uint32
	Name     Symbol
	Variants []EnumVariantDescriptor
}

// Reserved type_id range for built-in exception struct descriptors
// (§3.6), numbered exactly as namlc's codegen/cranelift/excepts.rs
// registers them rather than in declaration order — 0xFFFF_0002 is
// reserved for the internal stack_frame struct, not an exception, so
// the exception ids are not contiguous.
const (
	BuiltinTypeIDIOError         uint32 = 0xFFFF_0001
	BuiltinTypeIDStackFrame      uint32 = 0xFFFF_0002
	BuiltinTypeIDDecodeError     uint32 = 0xFFFF_0003
	BuiltinTypeIDPathError       uint32 = 0xFFFF_0004
	BuiltinTypeIDNetworkError    uint32 = 0xFFFF_0005
	BuiltinTypeIDTimeoutError    uint32 = 0xFFFF_0006
	BuiltinTypeIDEnvError        uint32 = 0xFFFF_0007
	BuiltinTypeIDOSError         uint32 = 0xFFFF_0008
	BuiltinTypeIDProcessError    uint32 = 0xFFFF_0009
	BuiltinTypeIDDBError         uint32 = 0xFFFF_000A
	BuiltinTypeIDEncodeError     uint32 = 0xFFFF_000B
	BuiltinTypeIDScheduleError   uint32 = 0xFFFF_000C
	BuiltinTypeIDPermissionError uint32 = 0xFFFF_000D
	BuiltinTypeIDTlsError        uint32 = 0xFFFF_000E
)

// HeapClass classifies a resolved Type for refcount emission
// purposes (§3.4). Non-heap primitives have no HeapClass; ClassifyType
// returns ok=false for those.
type HeapClass struct {
	Kind    HeapClassKind
	Element *HeapClass // Array element class, nil if the element is not itself heap-allocated
	Value   *HeapClass // Map value class, nil if the value is not itself heap-allocated
	Inner   *HeapClass // Option inner class
}

// HeapClassKind discriminates HeapClass.
type HeapClassKind int

const (
	HeapClassString HeapClassKind = iota
	HeapClassBytes
	HeapClassArray
	HeapClassMap
	HeapClassStruct
	HeapClassOption
	HeapClassChannel
	HeapClassMutex
)

// ClassifyType derives t's HeapClass. ok is false for types that carry
// no heap allocation (primitives other than string/bytes), matching
// §3.4's "non-heap primitives map to no heap class".
func ClassifyType(t *Type) (class HeapClass, ok bool) {
	switch t.Kind {
	case TypeKindPrimitive:
		switch t.Primitive {
		case PrimitiveString:
			return HeapClass{Kind: HeapClassString}, true
		case PrimitiveBytes:
			return HeapClass{Kind: HeapClassBytes}, true
		default:
			return HeapClass{}, false
		}
	case TypeKindArray, TypeKindFixedArray:
		var elem *HeapClass
		if ec, ok := ClassifyType(t.Elem); ok {
			elem = &ec
		}
		return HeapClass{Kind: HeapClassArray, Element: elem}, true
	case TypeKindMap:
		var val *HeapClass
		if vc, ok := ClassifyType(t.Value); ok {
			val = &vc
		}
		return HeapClass{Kind: HeapClassMap, Value: val}, true
	case TypeKindStruct, TypeKindEnum:
		return HeapClass{Kind: HeapClassStruct}, true
	case TypeKindOption:
		inner, ok := ClassifyType(t.Elem)
		if !ok {
			return HeapClass{}, false
		}
		return HeapClass{Kind: HeapClassOption, Inner: &inner}, true
	case TypeKindChannel:
		return HeapClass{Kind: HeapClassChannel}, true
	case TypeKindMutex, TypeKindRWLock:
		return HeapClass{Kind: HeapClassMutex}, true
	default:
		return HeapClass{}, false
	}
}

// IsHeapAllocated reports whether t's values require incref/decref at
// all, per §4.4's reference counting discipline.
func IsHeapAllocated(t *Type) bool {
	_, ok := ClassifyType(t)
	return ok
}
