package queryir

import (
	"fmt"

	"github.com/roach88/sift/internal/ir"
)

// Query is the accumulator contract the compiler folds into.
//
// Filter adds a predicate (combined conjunctively with earlier ones) and
// OrderBy appends a sort key. Both return a new Query; the receiver is
// left unchanged.
type Query interface {
	Filter(p Predicate) Query
	OrderBy(k OrderKey) Query
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only Compare and AnyOf implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Comparison identifies how a column is compared with a value.
type Comparison int

const (
	Eq Comparison = iota
	Ne
	Gt
	Gte
	Lt
	Lte
	In
	NotIn
	IsNull
	IsNotNull
	Like
	ILike
	IsNot
)

var comparisonNames = [...]string{
	Eq:        "eq",
	Ne:        "ne",
	Gt:        "gt",
	Gte:       "gte",
	Lt:        "lt",
	Lte:       "lte",
	In:        "in",
	NotIn:     "not_in",
	IsNull:    "is_null",
	IsNotNull: "is_not_null",
	Like:      "like",
	ILike:     "ilike",
	IsNot:     "is_not",
}

func (c Comparison) String() string {
	if c >= 0 && int(c) < len(comparisonNames) {
		return comparisonNames[c]
	}
	return fmt.Sprintf("comparison(%d)", int(c))
}

// Unary reports whether the comparison ignores its value.
func (c Comparison) Unary() bool {
	return c == IsNull || c == IsNotNull
}

// Column identifies the storage location of an entity attribute.
type Column struct {
	Table string // Entity table (e.g., "users")
	Name  string // Column name within the table
}

func (c Column) String() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// Compare represents a single column comparison.
//
// Semantics:
//
//	<column> <op> <value>
//
// Value is ir.List for In/NotIn, nil for IsNull/IsNotNull, and an already
// wrapped pattern ("%v%") for Like/ILike.
//
// Example:
//
//	Compare{Column: Column{"users", "age"}, Op: Gte, Value: ir.Int(18)}
//
// Translates to SQL:
//
//	"users"."age" >= ?
type Compare struct {
	Column Column
	Op     Comparison
	Value  ir.Value
}

func (Compare) predicateNode() {}

// AnyOf represents a disjunction: at least one predicate must hold.
//
// Used for search, which matches a term against several columns:
//
//	AnyOf{Predicates: []Predicate{
//	  Compare{Column{"users", "name"}, ILike, ir.String("%bob%")},
//	  Compare{Column{"users", "email"}, ILike, ir.String("%bob%")},
//	}}
//
// An empty AnyOf matches nothing.
type AnyOf struct {
	Predicates []Predicate
}

func (AnyOf) predicateNode() {}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderKey is one (column, direction) sort key.
type OrderKey struct {
	Column    Column
	Direction Direction
}

func (k OrderKey) String() string {
	return k.Column.String() + " " + string(k.Direction)
}
