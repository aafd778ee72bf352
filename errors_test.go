package naml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileErrorMessageIncludesStageAndSpan(t *testing.T) {
	err := NewTypeError(TypeMismatch, "expected int, got string", Span{Start: 3, End: 8, FileID: 1})
	assert.Equal(t, StageType, err.Stage)
	assert.Contains(t, err.Error(), "type error")
	assert.Contains(t, err.Error(), "3..8")
}

func TestStageStringMapping(t *testing.T) {
	assert.Equal(t, "parse", StageParse.String())
	assert.Equal(t, "type", StageType.String())
	assert.Equal(t, "codegen", StageCodegen.String())
	assert.Equal(t, "unknown", Stage(99).String())
}

func TestSanitizeIRPanicRecognizesKnownMessages(t *testing.T) {
	assert.Contains(t, sanitizeIRPanic("type mismatch: expected i64"), "operand's IR type")
	assert.Contains(t, sanitizeIRPanic("index out of range [3] with length 2"), "out of bounds")
	assert.Contains(t, sanitizeIRPanic("nil pointer dereference"), "missing")
	assert.Contains(t, sanitizeIRPanic("something unexpected"), "internal codegen error: something unexpected")
}

func TestRuntimeErrorTypesFormatMessages(t *testing.T) {
	var err error = &IOError{Path: "/tmp/x", Code: 2}
	assert.Contains(t, err.Error(), "/tmp/x")

	err = &DecodeError{Message: "bad byte", Position: 4}
	assert.Contains(t, err.Error(), "bad byte")

	err = &ScheduleError{Message: "shutting down"}
	assert.Equal(t, "ScheduleError: shutting down", err.Error())
}
