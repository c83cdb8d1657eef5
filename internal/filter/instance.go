// Package filter validates raw request parameters against a schema
// Definition and compiles the result into query predicates.
//
// Validate produces an Instance in two passes: per-field coercion (all
// failures collected), then ordering checks against the entity. Filter and
// Sort fold a valid Instance into any queryir.Query accumulator.
package filter

import (
	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/queryir"
	"github.com/roach88/sift/internal/schema"
)

// FieldValue is the validated value of one field: Scalar, List or Nested.
type FieldValue interface {
	fieldValue()
}

// Scalar holds a single coerced value.
type Scalar struct{ Value ir.Value }

func (Scalar) fieldValue() {}

// List holds a coerced list.
type List struct{ Values ir.List }

func (List) fieldValue() {}

// Nested holds the instance of a nested schema.
type Nested struct{ Instance *Instance }

func (Nested) fieldValue() {}

// Entry pairs a declared field with its value.
type Entry struct {
	Field *schema.FieldDecl
	Value FieldValue
}

// Instance is a validated schema instance. Immutable.
type Instance struct {
	def      *schema.Definition
	values   map[string]FieldValue // supplied, non-null
	supplied map[string]bool       // supplied, including explicit nulls
}

func newInstance(def *schema.Definition) *Instance {
	return &Instance{
		def:      def,
		values:   make(map[string]FieldValue),
		supplied: make(map[string]bool),
	}
}

func (in *Instance) set(name string, v FieldValue) {
	in.supplied[name] = true
	if v != nil {
		in.values[name] = v
	}
}

// Definition returns the schema the instance was validated against.
func (in *Instance) Definition() *schema.Definition { return in.def }

// IsSet reports whether the request supplied the field, even as null.
func (in *Instance) IsSet(name string) bool { return in.supplied[name] }

// Get returns the field's value: the supplied value, else the declared
// default. A field supplied as null has no value and ignores its default.
func (in *Instance) Get(name string) (FieldValue, bool) {
	if v, ok := in.values[name]; ok {
		return v, true
	}
	if in.supplied[name] {
		return nil, false
	}
	f, ok := in.def.Field(name)
	if !ok {
		return nil, false
	}
	def, ok := f.Default()
	if !ok {
		return nil, false
	}
	if list, isList := def.(ir.List); isList {
		return List{Values: list}, true
	}
	return Scalar{Value: def}, true
}

// FilteringFields returns the explicitly supplied, non-null fields other
// than the ordering field, in declaration order. Defaults are not included.
func (in *Instance) FilteringFields() []Entry {
	var out []Entry
	for _, f := range in.def.Fields() {
		if f.Role() == schema.RoleOrdering {
			continue
		}
		if v, ok := in.values[f.Name()]; ok {
			out = append(out, Entry{Field: f, Value: v})
		}
	}
	return out
}

// OrderTerm is one parsed ordering token.
type OrderTerm struct {
	Attribute string
	Direction queryir.Direction
}

// OrderSpec is the ordered list of sort terms. Nil means ordering is unset.
type OrderSpec []OrderTerm

// OrderingValues returns the parsed ordering: the supplied value or the
// declared default. It fails with ErrNoOrderingField when the schema has no
// ordering field.
func (in *Instance) OrderingValues() (OrderSpec, error) {
	f, ok := in.def.Ordering()
	if !ok {
		return nil, ErrNoOrderingField
	}
	v, ok := in.Get(f.Name())
	if !ok {
		return nil, nil
	}
	list, ok := v.(List)
	if !ok {
		return nil, nil
	}
	spec := make(OrderSpec, 0, len(list.Values))
	for _, tok := range list.Values {
		name, dir := schema.SplitSigil(tok.String())
		spec = append(spec, OrderTerm{Attribute: name, Direction: dir})
	}
	return spec, nil
}

// Snapshot returns the supplied values keyed by declared name, in a
// canonical-JSON friendly form. Explicit nulls appear as null.
func (in *Instance) Snapshot() map[string]any {
	out := make(map[string]any, len(in.supplied))
	for name := range in.supplied {
		switch v := in.values[name].(type) {
		case Scalar:
			out[name] = v.Value
		case List:
			out[name] = v.Values
		case Nested:
			out[name] = v.Instance.Snapshot()
		default:
			out[name] = nil
		}
	}
	return out
}
