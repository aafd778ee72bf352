// Package codegen lowers a naml AST, combined with the type
// annotations map (naml.TypeDatabase), into a low-level SSA IR module
// (§4.5). The emission target is github.com/llir/llvm's ir.Module —
// the same SSA backend the domain stack's sibling language repos
// (dshills-alas, malphas-lang-malphas-lang, sentra-language-sentra)
// reach for rather than hand-rolling machine code — instead of the
// teacher's (clarete/langlang) text-emitting gen_go.go, whose visitor
// shape this package otherwise follows closely.
package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// RuntimeSymbols holds every §6.1 runtime ABI entry point as a
// declared extern against a *ir.Module, the way the teacher's gen_go.go
// embeds parser.go/value.go/errors.go as library text to splice into
// generated output — here the "library" is a set of symbol
// declarations the JIT linker resolves calls against instead of
// embedded source.
type RuntimeSymbols struct {
	module *ir.Module

	// Arena
	ArenaAlloc     *ir.Func
	ArenaGetTLSPtr *ir.Func

	// String
	StringNew       *ir.Func
	StringFromCStr  *ir.Func
	StringIncref    *ir.Func
	StringDecref    *ir.Func

	// Bytes
	BytesNew       *ir.Func
	BytesFrom      *ir.Func
	BytesLen       *ir.Func
	BytesGet       *ir.Func
	BytesSet       *ir.Func
	BytesIncref    *ir.Func
	BytesDecref    *ir.Func
	BytesToString  *ir.Func
	StringToBytes  *ir.Func

	// Array
	ArrayNew     *ir.Func
	ArrayPush    *ir.Func
	ArrayGet     *ir.Func
	ArraySet     *ir.Func
	ArrayLen     *ir.Func
	ArrayIncref  *ir.Func
	ArrayDecref  *ir.Func

	// Map
	MapNew       *ir.Func
	MapSet       *ir.Func
	MapSetString *ir.Func
	MapSetArray  *ir.Func
	MapSetMap    *ir.Func
	MapSetStruct *ir.Func
	MapGet       *ir.Func
	MapContains  *ir.Func
	MapIterInit  *ir.Func
	MapIterNext  *ir.Func
	MapIncref    *ir.Func
	MapDecref    *ir.Func

	// Struct
	StructNew      *ir.Func
	StructSetField *ir.Func
	StructGetField *ir.Func
	StructIncref   *ir.Func
	StructDecref   *ir.Func

	// Channel
	ChannelNew         *ir.Func
	ChannelSend        *ir.Func
	ChannelReceive     *ir.Func
	ChannelTrySend     *ir.Func
	ChannelTryReceive  *ir.Func
	ChannelClose       *ir.Func
	ChannelIsClosed    *ir.Func
	ChannelLen         *ir.Func
	ChannelIncref      *ir.Func
	ChannelDecref      *ir.Func

	// Mutex
	MutexNew     *ir.Func
	MutexLock    *ir.Func
	MutexUnlock  *ir.Func
	MutexGet     *ir.Func
	MutexSet     *ir.Func
	MutexTryLock *ir.Func
	MutexIncref  *ir.Func
	MutexDecref  *ir.Func

	// Exception
	ExceptionSet      *ir.Func
	ExceptionSetTyped *ir.Func
	ExceptionGet      *ir.Func
	ExceptionGetTypeID *ir.Func
	ExceptionIsType   *ir.Func
	ExceptionCheck    *ir.Func
	ExceptionClear    *ir.Func
	ExceptionClearPtr *ir.Func

	// Stack trace
	StackPush   *ir.Func
	StackPop    *ir.Func
	StackCapture *ir.Func
	StackFormat *ir.Func
	StackClear  *ir.Func

	// Scheduler
	Spawn            *ir.Func
	SpawnClosure     *ir.Func
	WaitAll          *ir.Func
	ActiveTasks      *ir.Func
	Sleep            *ir.Func
	AllocClosureData *ir.Func
	WorkerCount      *ir.Func

	// Built-in exception constructors
	DecodeErrorNew *ir.Func
	PathErrorNew   *ir.Func

	panicUnwrap *ir.Func
}

func extern(m *ir.Module, name string, ret types.Type, params ...types.Type) *ir.Func {
	irParams := make([]*ir.Param, len(params))
	for i, p := range params {
		irParams[i] = ir.NewParam("", p)
	}
	return m.NewFunc(name, ret, irParams...)
}

// word types, named the way §6.2's lowered calling convention spells
// them out: every naml value collapses to one machine word.
var (
	wordI8  = types.I8
	wordI64 = types.I64
	wordF64 = types.Double
	wordPtr = types.NewPointer(types.I8)
)

// DeclareRuntimeSymbols declares every §6.1 ABI entry point as an
// extern against m and returns the resolved table. Call this once per
// module before lowering any function bodies.
func DeclareRuntimeSymbols(m *ir.Module) *RuntimeSymbols {
	s := &RuntimeSymbols{module: m}

	s.ArenaAlloc = extern(m, "arena_alloc", wordPtr, wordI64)
	s.ArenaGetTLSPtr = extern(m, "arena_get_tls_ptr", wordPtr)

	s.StringNew = extern(m, "string_new", wordI64, wordPtr, wordI64)
	s.StringFromCStr = extern(m, "string_from_cstr", wordI64, wordPtr)
	s.StringIncref = extern(m, "string_incref", types.Void, wordI64)
	s.StringDecref = extern(m, "string_decref", types.Void, wordI64)

	s.BytesNew = extern(m, "bytes_new", wordI64, wordI64)
	s.BytesFrom = extern(m, "bytes_from", wordI64, wordPtr, wordI64)
	s.BytesLen = extern(m, "bytes_len", wordI64, wordI64)
	s.BytesGet = extern(m, "bytes_get", wordI8, wordI64, wordI64)
	s.BytesSet = extern(m, "bytes_set", types.Void, wordI64, wordI64, wordI8)
	s.BytesIncref = extern(m, "bytes_incref", types.Void, wordI64)
	s.BytesDecref = extern(m, "bytes_decref", types.Void, wordI64)
	s.BytesToString = extern(m, "bytes_to_string", wordI64, wordI64)
	s.StringToBytes = extern(m, "string_to_bytes", wordI64, wordI64)

	s.ArrayNew = extern(m, "array_new", wordI64, wordI64)
	s.ArrayPush = extern(m, "array_push", types.Void, wordI64, wordI64)
	s.ArrayGet = extern(m, "array_get", wordI64, wordI64, wordI64)
	s.ArraySet = extern(m, "array_set", types.Void, wordI64, wordI64, wordI64)
	s.ArrayLen = extern(m, "array_len", wordI64, wordI64)
	s.ArrayIncref = extern(m, "array_incref", types.Void, wordI64)
	s.ArrayDecref = extern(m, "array_decref", types.Void, wordI64)

	s.MapNew = extern(m, "map_new", wordI64, wordI64)
	s.MapSet = extern(m, "map_set", types.Void, wordI64, wordI64, wordI64)
	s.MapSetString = extern(m, "map_set_string", types.Void, wordI64, wordI64, wordI64)
	s.MapSetArray = extern(m, "map_set_array", types.Void, wordI64, wordI64, wordI64)
	s.MapSetMap = extern(m, "map_set_map", types.Void, wordI64, wordI64, wordI64)
	s.MapSetStruct = extern(m, "map_set_struct", types.Void, wordI64, wordI64, wordI64)
	s.MapGet = extern(m, "map_get", wordI64, wordI64, wordI64)
	s.MapContains = extern(m, "map_contains", wordI8, wordI64, wordI64)
	s.MapIterInit = extern(m, "map_iter_init", wordI64, wordI64)
	s.MapIterNext = extern(m, "map_iter_next", wordI8, wordI64, wordPtr, wordPtr)
	s.MapIncref = extern(m, "map_incref", types.Void, wordI64)
	s.MapDecref = extern(m, "map_decref", types.Void, wordI64)

	s.StructNew = extern(m, "struct_new", wordI64, wordI64, wordI64)
	s.StructSetField = extern(m, "struct_set_field", types.Void, wordI64, wordI64, wordI64)
	// struct_get_field is not in §6.1's (explicitly non-exhaustive) ABI
	// list, but reading a field back is required to lower field access
	// at all, so it's declared here alongside its write-side sibling.
	s.StructGetField = extern(m, "struct_get_field", wordI64, wordI64, wordI64)
	s.StructIncref = extern(m, "struct_incref", types.Void, wordI64)
	s.StructDecref = extern(m, "struct_decref", types.Void, wordI64)

	s.ChannelNew = extern(m, "channel_new", wordI64, wordI64)
	s.ChannelSend = extern(m, "channel_send", wordI8, wordI64, wordI64)
	s.ChannelReceive = extern(m, "channel_receive", wordI64, wordI64, wordPtr)
	s.ChannelTrySend = extern(m, "channel_try_send", wordI8, wordI64, wordI64)
	s.ChannelTryReceive = extern(m, "channel_try_receive", wordI8, wordI64, wordPtr)
	s.ChannelClose = extern(m, "channel_close", types.Void, wordI64)
	s.ChannelIsClosed = extern(m, "channel_is_closed", wordI8, wordI64)
	s.ChannelLen = extern(m, "channel_len", wordI64, wordI64)
	s.ChannelIncref = extern(m, "channel_incref", types.Void, wordI64)
	s.ChannelDecref = extern(m, "channel_decref", types.Void, wordI64)

	s.MutexNew = extern(m, "mutex_new", wordI64, wordI64)
	s.MutexLock = extern(m, "mutex_lock", wordI64, wordI64)
	s.MutexUnlock = extern(m, "mutex_unlock", types.Void, wordI64, wordI64)
	s.MutexGet = extern(m, "mutex_get", wordI64, wordI64)
	s.MutexSet = extern(m, "mutex_set", types.Void, wordI64, wordI64)
	s.MutexTryLock = extern(m, "mutex_try_lock", wordI8, wordI64, wordPtr)
	s.MutexIncref = extern(m, "mutex_incref", types.Void, wordI64)
	s.MutexDecref = extern(m, "mutex_decref", types.Void, wordI64)

	s.ExceptionSet = extern(m, "exception_set", types.Void, wordI64)
	s.ExceptionSetTyped = extern(m, "exception_set_typed", types.Void, wordI64, wordI64)
	s.ExceptionGet = extern(m, "exception_get", wordI64)
	s.ExceptionGetTypeID = extern(m, "exception_get_type_id", wordI64)
	s.ExceptionIsType = extern(m, "exception_is_type", wordI8, wordI64)
	s.ExceptionCheck = extern(m, "exception_check", wordI8)
	s.ExceptionClear = extern(m, "exception_clear", types.Void)
	s.ExceptionClearPtr = extern(m, "exception_clear_ptr", types.Void)

	s.StackPush = extern(m, "stack_push", types.Void, wordPtr, wordPtr, wordI64)
	s.StackPop = extern(m, "stack_pop", types.Void)
	s.StackCapture = extern(m, "stack_capture", wordI64)
	s.StackFormat = extern(m, "stack_format", wordI64, wordI64)
	s.StackClear = extern(m, "stack_clear", types.Void)

	s.Spawn = extern(m, "spawn", types.Void, wordPtr)
	s.SpawnClosure = extern(m, "spawn_closure", types.Void, wordPtr, wordPtr, wordI64)
	s.WaitAll = extern(m, "wait_all", types.Void)
	s.ActiveTasks = extern(m, "active_tasks", wordI64)
	s.Sleep = extern(m, "sleep", types.Void, wordI64)
	s.AllocClosureData = extern(m, "alloc_closure_data", wordPtr, wordI64)
	s.WorkerCount = extern(m, "worker_count", wordI64)

	s.DecodeErrorNew = extern(m, "decode_error_new", wordI64, wordI64, wordI64)
	s.PathErrorNew = extern(m, "path_error_new", wordI64, wordI64)

	s.panicUnwrap = extern(m, "panic_unwrap", types.Void, wordI64)

	return s
}

// PanicUnwrap returns the extern naml's forced-unwrap operators
// (`m[k]!`) call on a missing value (§4.5.1).
func (s *RuntimeSymbols) PanicUnwrap() *ir.Func { return s.panicUnwrap }
