package runtime

// Reserved type_id range for built-in exception struct descriptors
// (§3.6): BuiltinTypeIDBase equals naml.BuiltinTypeIDIOError, the
// lowest reserved id, so the runtime and the
// compiler agree on where user type_ids stop and built-in exception
// type_ids begin, without the runtime importing the compiler package.
// DecodeError/PathError additionally get their own constants here,
// matching namlc's codegen/cranelift/excepts.rs registration order
// exactly, because the ABI's decode_error_new/path_error_new
// constructors need a concrete descriptor to allocate against.
const (
	BuiltinTypeIDBase        uint32 = 0xFFFF_0001
	BuiltinTypeIDDecodeError uint32 = 0xFFFF_0003
	BuiltinTypeIDPathError   uint32 = 0xFFFF_0004
)

// decodeErrorDescriptor/pathErrorDescriptor back decode_error_new and
// path_error_new: their field layout mirrors excepts.rs's StructDef
// entries (DecodeError{message: string, position: int},
// PathError{message: string}).
var (
	decodeErrorDescriptor = &StructDescriptor{
		TypeID: BuiltinTypeIDDecodeError,
		Fields: []FieldDescriptor{{Class: ClassString}, {Class: ClassNone}},
	}
	pathErrorDescriptor = &StructDescriptor{
		TypeID: BuiltinTypeIDPathError,
		Fields: []FieldDescriptor{{Class: ClassString}},
	}
)

// FieldDescriptor describes one field of a struct descriptor: its
// declaration-order slot and, for refcounting, the HeapClass of
// whatever it may hold (ClassNone for non-heap primitives).
type FieldDescriptor struct {
	Class HeapClass
	Weak  bool // cycle-breaking field; destroy skips it rather than recursing through it (§9)
}

// StructDescriptor is the runtime-side shape of a struct type: a
// stable type_id and the HeapClass of each field in declaration order
// (§3.6's "type_id identifies a struct descriptor").
type StructDescriptor struct {
	TypeID uint32
	Fields []FieldDescriptor
}

// Struct is the heap layout for a naml struct or enum value (enums
// are lowered to a struct whose first field holds the variant tag;
// §3.6, §4.5.1).
type Struct struct {
	header     HeapHeader
	Descriptor *StructDescriptor
	fields     []int64
	arena      *Arena
	handle     int64
	buf        []byte
}

func (s *Struct) Header() *HeapHeader { return &s.header }
func (s *Struct) Handle() int64       { return s.handle }
func (s *Struct) backing() []byte     { return s.buf }

// StructNew allocates a struct of desc's shape with every field
// initialized to zero, refcount 1. Size follows §4.5.1's "24 +
// 8*field_count bytes" contract (16-byte header + type_id/field_count
// words + one 8-byte slot per field).
func StructNew(arena *Arena, desc *StructDescriptor) *Struct {
	n := len(desc.Fields)
	buf := arena.Alloc(24 + 8*n)
	st := &Struct{
		header:     HeapHeader{refcount: 1, tag: TagStruct},
		Descriptor: desc,
		fields:     make([]int64, n),
		arena:      arena,
	}
	st.handle = registerObject(st)
	st.buf = buf
	return st
}

// TypeID returns the struct descriptor's type_id.
func (s *Struct) TypeID() uint32 { return s.Descriptor.TypeID }

// Field returns the raw value of field i.
func (s *Struct) Field(i int) int64 { return s.fields[i] }

// SetFieldRaw overwrites field i without any refcount bookkeeping —
// used during construction, before the struct is observable to more
// than one owner.
func (s *Struct) SetFieldRaw(i int, v int64) { s.fields[i] = v }

// SetField is the typed per-field setter: decrefs the value previously
// at i (per its declared HeapClass) before installing newVal, and
// increfs newVal, per §4.4.
func SetField(s *Struct, i int, newVal int64) {
	f := s.Descriptor.Fields[i]
	if f.Class != ClassNone && !f.Weak {
		decrefSlot(s.fields[i], f.Class)
		increfSlot(newVal, f.Class)
	}
	s.fields[i] = newVal
}

// IsBuiltinException reports whether typeID falls in the reserved
// exception type_id range (§3.6).
func IsBuiltinException(typeID uint32) bool {
	return typeID >= BuiltinTypeIDBase
}
