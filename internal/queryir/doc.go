// Package queryir provides the abstract predicate representation that sits
// between validated filter instances and query backends.
//
// ARCHITECTURE:
//
//	[filter Instance] → Filter/Sort → [Query accumulator] → [SQL backend]
//	                                                      → [Plan (in-memory)]
//
// The compiler never builds query text. It folds each validated field into
// a backend-neutral Predicate or OrderKey and hands it to a Query
// accumulator, which decides how to realise it. This keeps filter schemas
// independent of the storage engine.
//
// SEALED PREDICATES:
//
// Predicate is a sealed interface using the marker method pattern. Only
// Compare and AnyOf implement it, so backends can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Compare:
//	    // column <op> value
//	case AnyOf:
//	    // (p1 OR p2 OR ...)
//	}
//
// ACCUMULATORS:
//
// Query is deliberately open: any backend may implement it. Implementations
// must be immutable, returning a new Query from Filter and OrderBy rather
// than mutating the receiver, so a base query can be shared across requests.
// Successive Filter calls combine conjunctively; OrderBy keys apply in the
// order they are added.
//
// Plan is the in-memory accumulator used by tests, the CLI and golden
// snapshots.
//
// COLUMNS:
//
// Predicates reference storage through Column{Table, Name}, never through
// request field names. A prefixed filter schema and its unprefixed original
// therefore produce identical predicates.
package queryir
