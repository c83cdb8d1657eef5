package filter

import (
	"fmt"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/operator"
	"github.com/roach88/sift/internal/queryir"
	"github.com/roach88/sift/internal/schema"
)

// Filter folds every filtering field into q, left to right in declaration
// order, and returns the resulting query. The instance is not modified.
//
//   - nested instances fold onto the same accumulator
//   - the search field becomes an AnyOf of ilike over the searchable fields
//   - every other field becomes one Compare built from its FieldRef
func (in *Instance) Filter(q queryir.Query) (queryir.Query, error) {
	entity := in.def.Entity()
	for _, e := range in.FilteringFields() {
		ext := in.def.ExternalName(e.Field.Name())

		switch e.Field.Role() {
		case schema.RoleNested:
			nested, ok := e.Value.(Nested)
			if !ok {
				return q, fmt.Errorf("%s: nested field holds %T", ext, e.Value)
			}
			var err error
			if q, err = nested.Instance.Filter(q); err != nil {
				return q, err
			}

		case schema.RoleSearch:
			pred, err := in.searchPredicate(e.Value)
			if err != nil {
				return q, fmt.Errorf("%s: %w", ext, err)
			}
			q = q.Filter(pred)

		case schema.RoleFilter:
			pred, err := comparePredicate(entity, e.Field, e.Value)
			if err != nil {
				return q, fmt.Errorf("%s: %w", ext, err)
			}
			q = q.Filter(pred)
		}
	}
	return q, nil
}

func comparePredicate(entity *schema.Entity, f *schema.FieldDecl, fv FieldValue) (queryir.Predicate, error) {
	var v ir.Value
	switch val := fv.(type) {
	case Scalar:
		v = val.Value
	case List:
		v = val.Values
	default:
		return nil, fmt.Errorf("unexpected value %T", fv)
	}

	ref := f.Ref()
	cmp, out, err := ref.Operator.Apply(v, ref.Attribute.Type)
	if err != nil {
		return nil, err
	}
	return queryir.Compare{
		Column: entity.Column(ref.Attribute),
		Op:     cmp,
		Value:  out,
	}, nil
}

func (in *Instance) searchPredicate(fv FieldValue) (queryir.Predicate, error) {
	c := in.def.Constants()
	if len(c.SearchableFields) == 0 {
		return nil, ErrSearchNotConfigured
	}
	term, ok := fv.(Scalar)
	if !ok {
		return nil, fmt.Errorf("unexpected value %T", fv)
	}

	ilike, _ := operator.Lookup("ilike")
	cmp, pattern, err := ilike.Apply(term.Value, ir.TypeString)
	if err != nil {
		return nil, err
	}

	alts := queryir.AnyOf{Predicates: make([]queryir.Predicate, 0, len(c.SearchableFields))}
	for _, name := range c.SearchableFields {
		attr, ok := c.Entity.Attribute(name)
		if !ok {
			return nil, fmt.Errorf("searchable field %q is not an attribute of %s", name, c.Entity.Name)
		}
		alts.Predicates = append(alts.Predicates, queryir.Compare{
			Column: c.Entity.Column(attr),
			Op:     cmp,
			Value:  pattern,
		})
	}
	return alts, nil
}

// Sort appends the ordering keys to q, left to right. When ordering is
// unset q is returned unchanged. It fails with ErrNoOrderingField when the
// schema declares no ordering field.
func (in *Instance) Sort(q queryir.Query) (queryir.Query, error) {
	spec, err := in.OrderingValues()
	if err != nil {
		return q, err
	}
	entity := in.def.Entity()
	for _, term := range spec {
		attr, ok := entity.Attribute(term.Attribute)
		if !ok {
			return q, fmt.Errorf("ordering field %q is not an attribute of %s", term.Attribute, entity.Name)
		}
		q = q.OrderBy(queryir.OrderKey{Column: entity.Column(attr), Direction: term.Direction})
	}
	return q, nil
}
