package naml

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Span is a half-open byte range within a single source file. It is
// value-typed and cheaply copied; every AST node carries one.
type Span struct {
	Start  uint32
	End    uint32
	FileID uint32
}

// DummySpan is used for synthetic nodes that have no real source
// location (builtin declarations, desugared expressions, ...).
var DummySpan = Span{}

// IsDummy reports whether this span was never assigned a real range.
func (s Span) IsDummy() bool { return s == DummySpan }

// Merge returns the smallest span covering both a and b. It is
// associative and commutative in its result: Merge(a, b) == Merge(b, a)
// and Merge(Merge(a, b), c) == Merge(a, Merge(b, c)).
func (s Span) Merge(other Span) Span {
	start, end := s.Start, s.End
	if other.Start < start {
		start = other.Start
	}
	if other.End > end {
		end = other.End
	}
	fileID := s.FileID
	if s.IsDummy() {
		fileID = other.FileID
	}
	return Span{Start: start, End: end, FileID: fileID}
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() uint32 { return s.End - s.Start }

// String renders a byte-offset range for diagnostics that have no
// SourceFile at hand to resolve line/column from.
func (s Span) String() string {
	if s.Start == s.End {
		return fmt.Sprintf("%d", s.Start)
	}
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Location is a 1-based (line, column) position plus the byte cursor it
// was derived from.
type Location struct {
	Line   int
	Column int
	Cursor int
}

// SourceFile caches the byte offset of every line start in an input so
// that offset -> (line, col) resolves in O(log n) instead of rescanning
// the file on every lookup.
type SourceFile struct {
	ID        uint32
	Path      string
	input     []byte
	lineStart []int
}

// NewSourceFile indexes input once at construction time.
func NewSourceFile(id uint32, path string, input []byte) *SourceFile {
	lineStart := make([]int, 1, 64)
	lineStart[0] = 0
	for i, b := range input {
		if b == '\n' {
			lineStart = append(lineStart, i+1)
		}
	}
	return &SourceFile{ID: id, Path: path, input: input, lineStart: lineStart}
}

// Bytes returns the raw file contents.
func (f *SourceFile) Bytes() []byte { return f.input }

// LocationAt converts a byte cursor into a (line, column) pair. Columns
// are rune-based and 1-indexed; lookup is a binary search over the
// cached line-start table.
func (f *SourceFile) LocationAt(cursor int) Location {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(f.input) {
		cursor = len(f.input)
	}
	lineIdx := sort.Search(len(f.lineStart), func(i int) bool {
		return f.lineStart[i] > cursor
	}) - 1
	if lineIdx < 0 {
		lineIdx = 0
	}
	lineStart := f.lineStart[lineIdx]
	col := utf8.RuneCount(f.input[lineStart:cursor]) + 1
	return Location{Line: lineIdx + 1, Column: col, Cursor: cursor}
}

// LocationRange converts a Span into a pair of Locations within this
// file. Callers are responsible for only calling this with spans whose
// FileID matches f.ID.
func (f *SourceFile) LocationRange(s Span) (start, end Location) {
	return f.LocationAt(int(s.Start)), f.LocationAt(int(s.End))
}

// Text returns the substring of the file covered by the span.
func (f *SourceFile) Text(s Span) string {
	return string(f.input[s.Start:s.End])
}
