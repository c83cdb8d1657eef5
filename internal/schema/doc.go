// Package schema declares what a filter schema may contain.
//
// An Entity describes the queryable attributes of a stored record. A
// Definition declares, once, which of those attributes a request may filter,
// search and order by. Field names follow the grammar
//
//	{prefix__}attribute{__operator}
//
// and are parsed into a FieldRef when the Definition is declared, so a
// misspelt operator or attribute fails at startup rather than on the first
// request that uses it.
//
// Definitions are immutable after Define returns and safe to share between
// goroutines. WithPrefix derives a namespaced copy for nesting one schema
// inside another.
package schema
