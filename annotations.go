package naml

import "sync"

// QueryKey constrains the key types usable with Query/Get/SetInput.
type QueryKey interface {
	comparable
}

// Query names a cached computation from a key to a value, with
// automatic dependency tracking against whatever other queries it
// calls Get on. K and V must be comparable/any respectively so results
// can live in TypeDatabase's single untyped cache.
type Query[K QueryKey, V any] struct {
	Name    string
	Compute func(db *TypeDatabase, key K) (V, error)
}

type queryID struct {
	queryName string
	key       any
}

type cachedValue struct {
	value    any
	err      error
	revision int
}

// TypeDatabase is the incremental store backing the §3.5 type
// annotations map, monomorphization ledger, and call-site ledger. A
// single TypeDatabase serves one compilation unit; type checking and
// codegen run as queries against it, so a later AST edit only
// recomputes the annotations that actually depend on the changed
// span.
type TypeDatabase struct {
	mu sync.RWMutex

	revision int
	cache    map[queryID]cachedValue
	deps     map[queryID][]queryID
	rdeps    map[queryID][]queryID

	activeQuery *queryID

	// monomorphizations maps a mangled specialization name to the
	// generic function it came from and the type arguments used.
	monomorphizations map[string]Monomorphization

	// callSites maps a call expression's span to the mangled name of
	// the specialization codegen should call there.
	callSites map[Span]string
}

// ExprTypeInfo is the value stored per expression span in the type
// annotations map (§3.5).
type ExprTypeInfo struct {
	Type       *Type
	IsLValue   bool
	NeedsClone bool
}

// Monomorphization records one generic-function specialization: the
// original generic function's name and the concrete type arguments it
// was instantiated with (§4.5.4).
type Monomorphization struct {
	GenericName Symbol
	TypeArgs    []*Type
}

// NewTypeDatabase creates an empty TypeDatabase.
func NewTypeDatabase() *TypeDatabase {
	return &TypeDatabase{
		cache:             make(map[queryID]cachedValue),
		deps:              make(map[queryID][]queryID),
		rdeps:             make(map[queryID][]queryID),
		monomorphizations: make(map[string]Monomorphization),
		callSites:         make(map[Span]string),
	}
}

// Revision returns the current database revision, incremented on
// every SetInput; Invalidate evicts cached results without changing it.
func (db *TypeDatabase) Revision() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.revision
}

// Get executes q for key, returning a cached result when valid or
// computing and caching a new one. Nested Get calls made from within
// q.Compute are recorded as dependencies of q, so Invalidate can
// correctly evict everything downstream of a changed input.
func Get[K QueryKey, V any](db *TypeDatabase, q *Query[K, V], key K) (V, error) {
	id := queryID{queryName: q.Name, key: key}

	db.mu.Lock()
	if db.activeQuery != nil {
		parent := *db.activeQuery
		db.deps[parent] = append(db.deps[parent], id)
		db.rdeps[id] = append(db.rdeps[id], parent)
	}
	if cached, ok := db.cache[id]; ok {
		db.mu.Unlock()
		if cached.err != nil {
			var zero V
			return zero, cached.err
		}
		return cached.value.(V), nil
	}
	prevActive := db.activeQuery
	db.activeQuery = &id
	db.deps[id] = nil
	db.mu.Unlock()

	value, err := q.Compute(db, key)

	db.mu.Lock()
	db.activeQuery = prevActive
	db.cache[id] = cachedValue{value: value, err: err, revision: db.revision}
	db.mu.Unlock()

	return value, err
}

// SetInput stores value directly, bumps the revision, and invalidates
// every query that transitively depended on the previous value.
func SetInput[K QueryKey, V any](db *TypeDatabase, q *Query[K, V], key K, value V) {
	id := queryID{queryName: q.Name, key: key}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.revision++
	db.cache[id] = cachedValue{value: value, revision: db.revision}
	db.invalidateDependents(id)
}

// Invalidate forces key's result, and everything depending on it, to
// be recomputed on next Get.
func Invalidate[K QueryKey, V any](db *TypeDatabase, q *Query[K, V], key K) {
	id := queryID{queryName: q.Name, key: key}

	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.cache, id)
	db.invalidateDependents(id)
}

// invalidateDependents must be called with db.mu held.
func (db *TypeDatabase) invalidateDependents(id queryID) {
	for _, dep := range db.rdeps[id] {
		delete(db.cache, dep)
		db.invalidateDependents(dep)
	}
}

// exprTypeInfoQuery backs the Span -> ExprTypeInfo annotations map
// named in §3.5. The checker populates it via SetExprTypeInfo once
// per expression, after which codegen reads it through
// ExprTypeInfoAt.
var exprTypeInfoQuery = &Query[Span, ExprTypeInfo]{
	Name: "ExprTypeInfo",
	Compute: func(db *TypeDatabase, key Span) (ExprTypeInfo, error) {
		return ExprTypeInfo{}, errUnannotatedSpan
	},
}

// SetExprTypeInfo records the resolved type, lvalue-ness, and
// clone-need for the expression at span. Called by the type checker
// once per expression node as it descends the tree.
func (db *TypeDatabase) SetExprTypeInfo(span Span, info ExprTypeInfo) {
	SetInput(db, exprTypeInfoQuery, span, info)
}

// ExprTypeInfoAt returns the annotation recorded for span. Codegen
// calls this for every expression it lowers; a miss means the checker
// never ran over that span, which is a compiler bug rather than a
// user-facing error.
func (db *TypeDatabase) ExprTypeInfoAt(span Span) (ExprTypeInfo, error) {
	return Get(db, exprTypeInfoQuery, span)
}

// RecordMonomorphization adds mangled to the monomorphization ledger,
// associating it with the generic function and type arguments it was
// instantiated from (§3.5, §4.5.4).
func (db *TypeDatabase) RecordMonomorphization(mangled string, m Monomorphization) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.monomorphizations[mangled] = m
}

// Monomorphization looks up a previously recorded specialization by
// its mangled name.
func (db *TypeDatabase) Monomorphization(mangled string) (Monomorphization, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.monomorphizations[mangled]
	return m, ok
}

// RecordCallSite associates a call expression's span with the mangled
// specialization name codegen should emit a call to there.
func (db *TypeDatabase) RecordCallSite(span Span, mangled string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.callSites[span] = mangled
}

// CallSiteTarget returns the mangled name recorded for a call site, if
// any. A generic function call always has one by the time codegen
// runs; a non-generic call does not need one.
func (db *TypeDatabase) CallSiteTarget(span Span) (string, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.callSites[span]
	return m, ok
}
