package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesNewRoundTrip(t *testing.T) {
	a := NewArena()
	b := BytesNew(a, []byte{1, 2, 3})
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []byte{1, 2, 3}, b.Data())
}

func TestBytesGetSetRoundTrip(t *testing.T) {
	a := NewArena()
	b := BytesNew(a, []byte{1, 2, 3})
	b.Set(1, 0x42)
	assert.Equal(t, byte(0x42), b.Get(1))
}

func TestBytesToStringStringToBytesRoundTrip(t *testing.T) {
	original := "round trip me"
	decoded, err := BytesToString(StringToBytes(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestHexEncodeDecodeRoundTrip(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	decoded, err := HexDecode(HexEncode(data))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestHexDecodeRejectsInvalidInput(t *testing.T) {
	_, err := HexDecode("not hex!!")
	assert.Error(t, err)
}

func TestBase64EncodeDecodeRoundTrip(t *testing.T) {
	data := []byte("naml runtime payload")
	decoded, err := Base64Decode(Base64Encode(data))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestBase64DecodeRejectsInvalidInput(t *testing.T) {
	_, err := Base64Decode("not base64 !!! ###")
	assert.Error(t, err)
}
