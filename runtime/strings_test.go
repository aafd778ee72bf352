package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringNewRoundTrip(t *testing.T) {
	a := NewArena()
	s := StringNew(a, "hello world")
	assert.Equal(t, "hello world", s.String())
	assert.Equal(t, 11, s.Len())
}

func TestUtf8EncodeDecodeRoundTrip(t *testing.T) {
	original := "héllo wörld"
	decoded, err := Utf8Decode(Utf8Encode(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestUtf8DecodeRejectsInvalidBytes(t *testing.T) {
	_, err := Utf8Decode([]byte{0xff, 0xfe, 0xfd})
	assert.Error(t, err)
}

func TestStringNewKeepsTrailingNUL(t *testing.T) {
	a := NewArena()
	s := StringNew(a, "abc")
	require.GreaterOrEqual(t, cap(s.buf), len(s.data)+1)
	assert.Zero(t, s.buf[len(s.data)])
}
