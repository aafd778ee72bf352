package runtime

import "unicode/utf8"

// Str is the heap layout for a naml `string` value (§3.6): length,
// capacity, and inline UTF-8 bytes. Unlike C strings it is not
// required to be null-terminated, but a trailing zero byte is kept
// when the backing buffer has room so a pointer to Str.data can be
// handed to a C-ABI extern expecting a NUL-terminated `char*`.
type Str struct {
	header HeapHeader
	data   []byte
	arena  *Arena
	handle int64
	buf    []byte // the arena allocation data is a subslice of
}

func (s *Str) Header() *HeapHeader { return &s.header }
func (s *Str) Handle() int64       { return s.handle }
func (s *Str) backing() []byte     { return s.buf }

// StringNew allocates a new Str copying s's bytes, returning it with
// refcount 1 (§3.6 "Lifecycle").
func StringNew(arena *Arena, s string) *Str {
	need := len(s) + 1 // +1 for the optional trailing NUL
	buf := arena.Alloc(need)
	n := copy(buf, s)
	if n < len(buf) {
		buf[n] = 0
	}
	str := &Str{
		header: HeapHeader{refcount: 1, tag: TagString},
		data:   buf[:len(s):len(s)],
		arena:  arena,
	}
	str.handle = registerObject(str)
	str.buf = buf
	return str
}

// Len returns the string's length in bytes.
func (s *Str) Len() int { return len(s.data) }

// Bytes returns the string's raw UTF-8 bytes. Callers must not mutate
// the returned slice.
func (s *Str) Bytes() []byte { return s.data }

// String renders the Go-visible form, used by tests and host-call
// shims, not by compiled naml code itself.
func (s *Str) String() string { return string(s.data) }

// Utf8Decode validates b as UTF-8 and returns the equivalent string,
// satisfying §8's `utf8_decode(utf8_encode(s)) == s` round-trip law.
func Utf8Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", &DecodeError{Message: "invalid UTF-8 sequence", Position: firstInvalidByte(b)}
	}
	return string(b), nil
}

// Utf8Encode returns s's UTF-8 bytes.
func Utf8Encode(s string) []byte { return []byte(s) }

func firstInvalidByte(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(b)
}
