package naml

import (
	"fmt"

	"github.com/pkg/errors"
)

// errUnannotatedSpan is returned by the type-annotations query when
// codegen asks for a span the checker never visited. It signals a
// compiler bug, never a user-facing diagnostic.
var errUnannotatedSpan = errors.New("naml: no type annotation recorded for span")

// Stage identifies which compiler phase produced a CompileError, per
// §7's parse/type/codegen taxonomy.
type Stage int

const (
	StageParse Stage = iota
	StageType
	StageCodegen
)

func (s Stage) String() string {
	switch s {
	case StageParse:
		return "parse"
	case StageType:
		return "type"
	case StageCodegen:
		return "codegen"
	default:
		return "unknown"
	}
}

// ParseErrorKind enumerates §7's Parse-stage error kinds.
type ParseErrorKind int

const (
	ParseExpectedToken ParseErrorKind = iota
	ParseExpectedIdentifier
	ParseExpectedExpression
	ParseExpectedType
	ParseExpectedStatement
	ParseUnexpectedToken
	ParseUnexpectedEOF
	ParseUnclosedDelimiter
	ParseInvalidNumber
	ParseInvalidEscape
)

// TypeErrorKind enumerates §7's Type-stage error kinds.
type TypeErrorKind int

const (
	TypeMismatch TypeErrorKind = iota
	TypeUndefinedVariable
	TypeUndefinedType
	TypeUndefinedFunction
	TypeUndefinedField
	TypeUndefinedMethod
	TypeDuplicateDefinition
	TypeInvalidOperation
	TypeInferenceFailure
	TypeWrongArgCount
	TypeNotCallable
	TypeNotIndexable
	TypeNotIterable
	TypeImmutableAssignment
	TypePlatformMismatch
	TypeMissingReturn
	TypeUnreachableCode
	TypeBreakOutsideLoop
	TypeContinueOutsideLoop
	TypeAwaitOutsideAsync
)

// CodegenErrorKind enumerates §7's Codegen-stage error kinds.
type CodegenErrorKind int

const (
	CodegenUnsupportedFeature CodegenErrorKind = iota
	CodegenJITCompile
	CodegenIO
)

// CompileError is a single diagnostic produced during parsing, type
// checking, or codegen. Parse and type errors are accumulated per
// compilation unit by a Diagnostics collector (diagnostics.go) rather
// than returned immediately; codegen errors are fatal on first
// occurrence (§7's propagation policy).
type CompileError struct {
	Stage   Stage
	Kind    int // one of ParseErrorKind/TypeErrorKind/CodegenErrorKind, per Stage
	Message string
	Span    Span
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s error: %s @ %s", e.Stage, e.Message, e.Span)
}

// NewParseError builds a Stage=Parse CompileError.
func NewParseError(kind ParseErrorKind, message string, span Span) *CompileError {
	return &CompileError{Stage: StageParse, Kind: int(kind), Message: message, Span: span}
}

// NewTypeError builds a Stage=Type CompileError.
func NewTypeError(kind TypeErrorKind, message string, span Span) *CompileError {
	return &CompileError{Stage: StageType, Kind: int(kind), Message: message, Span: span}
}

// NewCodegenError builds a Stage=Codegen CompileError. Codegen errors
// are raised the moment the SSA emitter hits them. Panics inside the
// emitter are not recovered anywhere in this repository, so nothing
// passes them through sanitizeIRPanic.
func NewCodegenError(kind CodegenErrorKind, message string, span Span) *CompileError {
	return &CompileError{Stage: StageCodegen, Kind: int(kind), Message: message, Span: span}
}

// sanitizeIRPanic rewrites common llir/llvm panic messages into
// user-facing prose, per §7's "synthesized sanitized message when the
// SSA emitter panics". Unrecognized messages pass through unchanged
// with a generic prefix.
func sanitizeIRPanic(recovered any) string {
	msg := fmt.Sprint(recovered)
	switch {
	case contains(msg, "type mismatch"):
		return "internal codegen error: an operand's IR type did not match the instruction signature"
	case contains(msg, "index out of range"):
		return "internal codegen error: a generated basic block or argument list was accessed out of bounds"
	case contains(msg, "nil pointer"):
		return "internal codegen error: an expected lowered value was missing"
	default:
		return "internal codegen error: " + msg
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// The runtime exception family below mirrors §7's Runtime taxonomy:
// language-visible structs a compiled program can throw and catch.
// Each also implements error so the Go-side runtime package
// (runtime.Panic, host-call shims) can surface them uniformly before
// they are translated into their heap-struct representation by
// codegen's exception lowering (§4.5.3).

// IOError reports a failed filesystem operation.
type IOError struct {
	Path string
	Code int
}

func (e *IOError) Error() string { return fmt.Sprintf("IOError: %s (code %d)", e.Path, e.Code) }

// DecodeError reports a failed decode (UTF-8, hex, base64, ...).
type DecodeError struct {
	Message  string
	Position int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("DecodeError: %s at %d", e.Message, e.Position)
}

// EncodeError reports a failed encode.
type EncodeError struct{ Message string }

func (e *EncodeError) Error() string { return "EncodeError: " + e.Message }

// PathError reports an invalid or malformed filesystem path.
type PathError struct{ Message string }

func (e *PathError) Error() string { return "PathError: " + e.Message }

// NetworkError reports a failed network operation.
type NetworkError struct {
	Message string
	Code    int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("NetworkError: %s (code %d)", e.Message, e.Code)
}

// TimeoutError reports an operation exceeding its deadline.
type TimeoutError struct {
	Message   string
	TimeoutMs int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("TimeoutError: %s (%dms)", e.Message, e.TimeoutMs)
}

// PermissionError reports an access-control failure.
type PermissionError struct {
	Path string
	Code int
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("PermissionError: %s (code %d)", e.Path, e.Code)
}

// EnvError reports a missing or invalid environment variable.
type EnvError struct {
	Message string
	Key     string
}

func (e *EnvError) Error() string { return fmt.Sprintf("EnvError: %s (%s)", e.Message, e.Key) }

// OSError reports a generic operating-system failure not covered by a
// more specific kind.
type OSError struct {
	Message string
	Code    int
}

func (e *OSError) Error() string { return fmt.Sprintf("OSError: %s (code %d)", e.Message, e.Code) }

// ProcessError reports a failed subprocess spawn or wait.
type ProcessError struct {
	Message string
	Code    int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("ProcessError: %s (code %d)", e.Message, e.Code)
}

// DBError reports a failed database operation.
type DBError struct {
	Message string
	Code    int
}

func (e *DBError) Error() string { return fmt.Sprintf("DBError: %s (code %d)", e.Message, e.Code) }

// ScheduleError reports a scheduler-level failure (e.g. spawn after
// shutdown).
type ScheduleError struct{ Message string }

func (e *ScheduleError) Error() string { return "ScheduleError: " + e.Message }

// TlsError reports a failed TLS handshake or certificate validation.
type TlsError struct{ Message string }

func (e *TlsError) Error() string { return "TlsError: " + e.Message }
