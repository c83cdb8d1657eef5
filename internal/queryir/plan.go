package queryir

import (
	"slices"
	"strings"

	"github.com/roach88/sift/internal/ir"
)

// Plan is an immutable in-memory Query that records what was folded into it.
//
// The zero value is an empty plan, ready to use.
type Plan struct {
	where []Predicate
	order []OrderKey
}

// Filter returns a copy of the plan with p appended to its conjunction.
func (p Plan) Filter(pred Predicate) Query {
	return Plan{
		where: append(slices.Clip(p.where), pred),
		order: p.order,
	}
}

// OrderBy returns a copy of the plan with k appended to its sort keys.
func (p Plan) OrderBy(k OrderKey) Query {
	return Plan{
		where: p.where,
		order: append(slices.Clip(p.order), k),
	}
}

// Predicates returns the recorded predicates in the order they were added.
func (p Plan) Predicates() []Predicate {
	return slices.Clone(p.where)
}

// Order returns the recorded sort keys in the order they were added.
func (p Plan) Order() []OrderKey {
	return slices.Clone(p.order)
}

// Empty reports whether nothing was folded into the plan.
func (p Plan) Empty() bool {
	return len(p.where) == 0 && len(p.order) == 0
}

// String renders the plan for humans:
//
//	WHERE users.age >= 18
//	  AND (users.name ILIKE "%bo%" OR users.email ILIKE "%bo%")
//	ORDER BY users.age desc
func (p Plan) String() string {
	var b strings.Builder
	for i, pred := range p.where {
		if i == 0 {
			b.WriteString("WHERE ")
		} else {
			b.WriteString("\n  AND ")
		}
		b.WriteString(Format(pred))
	}
	if len(p.order) > 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("ORDER BY ")
		for i, k := range p.order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k.String())
		}
	}
	return b.String()
}

// Snapshot returns a canonical-JSON friendly description of the plan.
func (p Plan) Snapshot() map[string]any {
	where := make([]any, len(p.where))
	for i, pred := range p.where {
		where[i] = snapshotPredicate(pred)
	}
	order := make([]any, len(p.order))
	for i, k := range p.order {
		order[i] = map[string]any{
			"column":    k.Column.String(),
			"direction": string(k.Direction),
		}
	}
	return map[string]any{"where": where, "order": order}
}

func snapshotPredicate(pred Predicate) any {
	switch p := pred.(type) {
	case Compare:
		out := map[string]any{
			"column": p.Column.String(),
			"op":     p.Op.String(),
		}
		if p.Value != nil {
			out["value"] = p.Value
		}
		return out
	case AnyOf:
		alts := make([]any, len(p.Predicates))
		for i, sub := range p.Predicates {
			alts[i] = snapshotPredicate(sub)
		}
		return map[string]any{"any": alts}
	}
	return nil
}

var opSymbols = map[Comparison]string{
	Eq:        "=",
	Ne:        "!=",
	Gt:        ">",
	Gte:       ">=",
	Lt:        "<",
	Lte:       "<=",
	In:        "IN",
	NotIn:     "NOT IN",
	IsNull:    "IS NULL",
	IsNotNull: "IS NOT NULL",
	Like:      "LIKE",
	ILike:     "ILIKE",
	IsNot:     "IS NOT",
}

// Format renders a single predicate for humans.
func Format(pred Predicate) string {
	switch p := pred.(type) {
	case Compare:
		sym, ok := opSymbols[p.Op]
		if !ok {
			sym = p.Op.String()
		}
		if p.Op.Unary() {
			return p.Column.String() + " " + sym
		}
		return p.Column.String() + " " + sym + " " + formatValue(p.Value)
	case AnyOf:
		parts := make([]string, len(p.Predicates))
		for i, sub := range p.Predicates {
			parts[i] = Format(sub)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
	return "<invalid>"
}

func formatValue(v ir.Value) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}
