package naml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticsAccumulatesInOrder(t *testing.T) {
	d := NewDiagnostics()
	assert.False(t, d.HasErrors())

	d.Add(NewParseError(ParseUnexpectedEOF, "unexpected EOF", Span{}))
	d.Add(NewTypeError(TypeMismatch, "bad type", Span{}))

	require.True(t, d.HasErrors())
	require.Len(t, d.Errors(), 2)
	assert.Equal(t, StageParse, d.Errors()[0].Stage)
	assert.Equal(t, StageType, d.Errors()[1].Stage)
}

func TestDiagnosticsCountForStage(t *testing.T) {
	d := NewDiagnostics()
	d.Add(NewParseError(ParseUnexpectedEOF, "a", Span{}))
	d.Add(NewParseError(ParseInvalidNumber, "b", Span{}))
	d.Add(NewTypeError(TypeMismatch, "c", Span{}))

	assert.Equal(t, 2, d.CountForStage(StageParse))
	assert.Equal(t, 1, d.CountForStage(StageType))
	assert.Equal(t, 0, d.CountForStage(StageCodegen))
}
