package naml

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternRoundTrip(t *testing.T) {
	in := NewInterner()
	sym := in.Intern("hello")
	assert.Equal(t, "hello", in.Resolve(sym))
}

func TestInternDeduplicates(t *testing.T) {
	in := NewInterner()
	a := in.Intern("world")
	b := in.Intern("world")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, in.Len())
}

func TestInternDistinctStringsGetDistinctSymbols(t *testing.T) {
	in := NewInterner()
	a := in.Intern("foo")
	b := in.Intern("bar")
	assert.NotEqual(t, a, b)
}

func TestInternResolveUnknownPanics(t *testing.T) {
	in := NewInterner()
	require.Panics(t, func() { in.Resolve(Symbol(99)) })
}

func TestInternConcurrentUse(t *testing.T) {
	in := NewInterner()
	var wg sync.WaitGroup
	names := []string{"a", "b", "c", "d", "e"}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		name := names[i%len(names)]
		go func() {
			defer wg.Done()
			in.Intern(name)
		}()
	}
	wg.Wait()
	assert.Equal(t, len(names), in.Len())
}
