// Package operator holds the fixed registry of field-name operator suffixes.
//
// A filter field named "age__gte" compares the "age" attribute using the
// "gte" operator. Each operator maps to a queryir.Comparison and a value
// transform applied just before the predicate is built.
package operator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/queryir"
)

// Separator joins prefix, attribute and operator in a field name.
const Separator = "__"

// Transform maps a validated field value to the comparison and value of the predicate.
// elem is the attribute type, used when a comma string must become a typed list.
type Transform func(v ir.Value, elem ir.Type) (queryir.Comparison, ir.Value, error)

// Operator is one registry entry.
type Operator struct {
	Suffix     string
	Comparison queryir.Comparison
	transform  Transform
}

// Apply runs the operator's transform on v.
func (o Operator) Apply(v ir.Value, elem ir.Type) (queryir.Comparison, ir.Value, error) {
	if o.transform == nil {
		return o.Comparison, v, nil
	}
	return o.transform(v, elem)
}

// Name returns the suffix, or "eq" for the implicit equality operator.
func (o Operator) Name() string {
	if o.Suffix == "" {
		return "eq"
	}
	return o.Suffix
}

// Takes reports how a field using this operator must be declared.
type Takes int

const (
	TakesScalar Takes = iota // one value of the attribute type
	TakesList                // a list of the attribute type
	TakesBool                // a boolean flag
	TakesText                // a string, attribute must be a string
)

// Takes describes the value shape this operator expects.
func (o Operator) Takes() Takes {
	switch o.Comparison {
	case queryir.In, queryir.NotIn:
		return TakesList
	case queryir.IsNull, queryir.IsNotNull:
		return TakesBool
	case queryir.Like, queryir.ILike:
		return TakesText
	}
	return TakesScalar
}

var registry = map[string]Operator{
	"":       {Suffix: "", Comparison: queryir.Eq},
	"neq":    {Suffix: "neq", Comparison: queryir.Ne},
	"gt":     {Suffix: "gt", Comparison: queryir.Gt},
	"gte":    {Suffix: "gte", Comparison: queryir.Gte},
	"lt":     {Suffix: "lt", Comparison: queryir.Lt},
	"lte":    {Suffix: "lte", Comparison: queryir.Lte},
	"in":     {Suffix: "in", Comparison: queryir.In, transform: splitList(queryir.In)},
	"not_in": {Suffix: "not_in", Comparison: queryir.NotIn, transform: splitList(queryir.NotIn)},
	"isnull": {Suffix: "isnull", Comparison: queryir.IsNull, transform: nullCheck},
	"like":   {Suffix: "like", Comparison: queryir.Like, transform: wrapPattern(queryir.Like)},
	"ilike":  {Suffix: "ilike", Comparison: queryir.ILike, transform: wrapPattern(queryir.ILike)},
	"not":    {Suffix: "not", Comparison: queryir.IsNot},
}

// Lookup returns the operator registered for suffix ("" is equality).
func Lookup(suffix string) (Operator, bool) {
	op, ok := registry[suffix]
	return op, ok
}

// Suffixes lists the registered non-empty suffixes, sorted.
func Suffixes() []string {
	out := make([]string, 0, len(registry))
	for s := range registry {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}

// Split breaks a field name into base and operator suffix at the last separator.
// It does not consult the registry: "age__between" yields ("age", "between").
func Split(name string) (base, suffix string) {
	i := strings.LastIndex(name, Separator)
	if i <= 0 || i+len(Separator) == len(name) {
		return name, ""
	}
	return name[:i], name[i+len(Separator):]
}

// splitList turns a comma-separated string into a typed list.
// Values that already are lists pass through.
func splitList(cmp queryir.Comparison) Transform {
	return func(v ir.Value, elem ir.Type) (queryir.Comparison, ir.Value, error) {
		switch val := v.(type) {
		case ir.List:
			return cmp, val, nil
		case ir.String:
			list, err := ir.CoerceList(elem, string(val))
			if err != nil {
				return cmp, nil, err
			}
			return cmp, list, nil
		case nil, ir.Null:
			return cmp, nil, fmt.Errorf("%s requires a value", cmp)
		default:
			return cmp, ir.List{val}, nil
		}
	}
}

// nullCheck selects is-null or is-not-null from a boolean and discards the value.
func nullCheck(v ir.Value, _ ir.Type) (queryir.Comparison, ir.Value, error) {
	b, ok := v.(ir.Bool)
	if !ok {
		return queryir.IsNull, nil, fmt.Errorf("isnull requires a bool, got %T", v)
	}
	if b {
		return queryir.IsNull, nil, nil
	}
	return queryir.IsNotNull, nil, nil
}

// wrapPattern renders v as a contains pattern: %v%.
func wrapPattern(cmp queryir.Comparison) Transform {
	return func(v ir.Value, _ ir.Type) (queryir.Comparison, ir.Value, error) {
		if ir.IsNull(v) {
			return cmp, nil, fmt.Errorf("%s requires a value", cmp)
		}
		return cmp, ir.String("%" + v.String() + "%"), nil
	}
}
