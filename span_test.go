package naml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanMergeCommutative(t *testing.T) {
	a := Span{Start: 5, End: 10, FileID: 1}
	b := Span{Start: 3, End: 8, FileID: 1}
	assert.Equal(t, a.Merge(b), b.Merge(a))
}

func TestSpanMergeAssociative(t *testing.T) {
	a := Span{Start: 0, End: 4, FileID: 1}
	b := Span{Start: 3, End: 9, FileID: 1}
	c := Span{Start: 8, End: 20, FileID: 1}
	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
}

func TestSpanMergeDummyAdoptsOtherFileID(t *testing.T) {
	merged := DummySpan.Merge(Span{Start: 1, End: 2, FileID: 7})
	assert.Equal(t, uint32(7), merged.FileID)
}

func TestSpanLen(t *testing.T) {
	s := Span{Start: 10, End: 25}
	assert.Equal(t, uint32(15), s.Len())
}

func TestSourceFileLocationAt(t *testing.T) {
	src := []byte("line one\nline two\nline three")
	f := NewSourceFile(0, "test.naml", src)

	loc := f.LocationAt(0)
	assert.Equal(t, 1, loc.Line)
	assert.Equal(t, 1, loc.Column)

	loc = f.LocationAt(9) // first byte of "line two"
	assert.Equal(t, 2, loc.Line)
	assert.Equal(t, 1, loc.Column)

	loc = f.LocationAt(len(src))
	assert.Equal(t, 3, loc.Line)
}

func TestSourceFileText(t *testing.T) {
	src := []byte("hello world")
	f := NewSourceFile(0, "test.naml", src)
	assert.Equal(t, "hello", f.Text(Span{Start: 0, End: 5}))
	assert.Equal(t, "world", f.Text(Span{Start: 6, End: 11}))
}
