package naml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprTypeInfoRoundTrip(t *testing.T) {
	db := NewTypeDatabase()
	span := Span{Start: 0, End: 4, FileID: 1}
	info := ExprTypeInfo{Type: &Type{}, IsLValue: true}

	db.SetExprTypeInfo(span, info)
	got, err := db.ExprTypeInfoAt(span)
	require.NoError(t, err)
	assert.True(t, got.IsLValue)
}

func TestExprTypeInfoAtUnannotatedSpanFails(t *testing.T) {
	db := NewTypeDatabase()
	_, err := db.ExprTypeInfoAt(Span{Start: 99, End: 100, FileID: 1})
	assert.Error(t, err)
}

func TestMonomorphizationRoundTrip(t *testing.T) {
	db := NewTypeDatabase()
	db.RecordMonomorphization("identity__int", Monomorphization{GenericName: Symbol(1), TypeArgs: []*Type{{}}})

	m, ok := db.Monomorphization("identity__int")
	require.True(t, ok)
	assert.Equal(t, Symbol(1), m.GenericName)

	_, ok = db.Monomorphization("does_not_exist")
	assert.False(t, ok)
}

func TestCallSiteTargetRoundTrip(t *testing.T) {
	db := NewTypeDatabase()
	span := Span{Start: 10, End: 20, FileID: 2}
	db.RecordCallSite(span, "identity__string")

	target, ok := db.CallSiteTarget(span)
	require.True(t, ok)
	assert.Equal(t, "identity__string", target)
}

func TestGetCachesComputedValue(t *testing.T) {
	db := NewTypeDatabase()
	calls := 0
	q := &Query[int, int]{
		Name: "double",
		Compute: func(db *TypeDatabase, key int) (int, error) {
			calls++
			return key * 2, nil
		},
	}

	v1, err := Get(db, q, 21)
	require.NoError(t, err)
	assert.Equal(t, 42, v1)

	v2, err := Get(db, q, 21)
	require.NoError(t, err)
	assert.Equal(t, 42, v2)
	assert.Equal(t, 1, calls, "second Get for the same key must hit the cache")
}

func TestInvalidatePropagatesToDependents(t *testing.T) {
	db := NewTypeDatabase()
	base := &Query[int, int]{
		Name: "base",
		Compute: func(db *TypeDatabase, key int) (int, error) {
			return key, nil
		},
	}
	derived := &Query[int, int]{
		Name: "derived",
		Compute: func(db *TypeDatabase, key int) (int, error) {
			v, err := Get(db, base, key)
			return v + 1, err
		},
	}

	v, err := Get(db, derived, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	Invalidate(db, base, 1)

	// recomputing derived after invalidating base must not panic and
	// must recompute rather than serve a stale cached value.
	v2, err := Get(db, derived, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v2)
}

func TestSetInputBumpsRevision(t *testing.T) {
	db := NewTypeDatabase()
	before := db.Revision()
	q := &Query[int, int]{Name: "input", Compute: func(db *TypeDatabase, key int) (int, error) { return 0, nil }}
	SetInput(db, q, 1, 7)
	assert.Greater(t, db.Revision(), before)

	v, err := Get(db, q, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
