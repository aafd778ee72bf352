package runtime

import (
	"encoding/base64"
	"encoding/hex"
)

// Bytes is the heap layout for a naml `bytes` value — identical to
// Str's layout but semantically a byte array rather than text (§3.6).
type Bytes struct {
	header HeapHeader
	data   []byte
	arena  *Arena
	handle int64
	buf    []byte
}

func (b *Bytes) Header() *HeapHeader { return &b.header }
func (b *Bytes) Handle() int64       { return b.handle }
func (b *Bytes) backing() []byte     { return b.buf }

// BytesNew allocates a new Bytes copying src, with refcount 1.
func BytesNew(arena *Arena, src []byte) *Bytes {
	buf := arena.Alloc(len(src))
	copy(buf, src)
	b := &Bytes{
		header: HeapHeader{refcount: 1, tag: TagBytes},
		data:   buf[:len(src):len(src)],
		arena:  arena,
	}
	b.handle = registerObject(b)
	b.buf = buf
	return b
}

// Len returns the byte length.
func (b *Bytes) Len() int { return len(b.data) }

// Data returns the raw bytes. Callers must not mutate the result.
func (b *Bytes) Data() []byte { return b.data }

// Get returns the raw byte at index i.
func (b *Bytes) Get(i int) byte { return b.data[i] }

// Set overwrites the byte at index i.
func (b *Bytes) Set(i int, v byte) { b.data[i] = v }

// BytesToString reinterprets valid UTF-8 bytes as a string, satisfying
// §8's `bytes_to_string(string_to_bytes(s)) == s` round-trip law.
func BytesToString(b []byte) (string, error) { return Utf8Decode(b) }

// StringToBytes returns s's underlying bytes.
func StringToBytes(s string) []byte { return []byte(s) }

// HexEncode returns the lowercase hex encoding of b.
func HexEncode(b []byte) string { return hex.EncodeToString(b) }

// HexDecode decodes a hex string, satisfying §8's
// `hex_decode(hex_encode(b)) == b` round-trip law.
func HexDecode(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	return b, nil
}

// Base64Encode returns the standard base64 encoding of b.
func Base64Encode(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// Base64Decode decodes a base64 string, satisfying §8's
// `base64_decode(base64_encode(b)) == b` round-trip law.
func Base64Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	return b, nil
}
