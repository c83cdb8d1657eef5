package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/sift/internal/ir"
)

// Validate checks that a predicate tree is well formed before a backend
// renders it. It reports every problem found, joined with errors.Join.
//
// Rules:
//  1. Compare must name a column
//  2. In/NotIn carry an ir.List
//  3. IsNull/IsNotNull carry no value; every other comparison carries one
//  4. Like/ILike carry an ir.String pattern
//  5. AnyOf may not contain nil predicates
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) error {
	v := &validator{}
	v.validatePredicate(p, "predicate")
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validatePredicate(p Predicate, path string) {
	switch pred := p.(type) {
	case nil:
		v.addError("%s: nil predicate", path)
	case Compare:
		v.validateCompare(pred, path)
	case AnyOf:
		for i, sub := range pred.Predicates {
			v.validatePredicate(sub, fmt.Sprintf("%s.any[%d]", path, i))
		}
	default:
		v.addError("%s: unknown predicate type %T", path, p)
	}
}

func (v *validator) validateCompare(c Compare, path string) {
	if c.Column.Name == "" {
		v.addError("%s: comparison without column", path)
	}

	switch c.Op {
	case In, NotIn:
		if _, ok := c.Value.(ir.List); !ok {
			v.addError("%s: %s on %s requires a list, got %T", path, c.Op, c.Column, c.Value)
		}
	case IsNull, IsNotNull:
		if c.Value != nil {
			v.addError("%s: %s on %s takes no value", path, c.Op, c.Column)
		}
	case Like, ILike:
		if _, ok := c.Value.(ir.String); !ok {
			v.addError("%s: %s on %s requires a string pattern, got %T", path, c.Op, c.Column, c.Value)
		}
	case Eq, Ne, Gt, Gte, Lt, Lte, IsNot:
		if c.Value == nil {
			v.addError("%s: %s on %s requires a value", path, c.Op, c.Column)
		} else if _, isList := c.Value.(ir.List); isList {
			v.addError("%s: %s on %s cannot compare with a list", path, c.Op, c.Column)
		}
	default:
		v.addError("%s: unknown comparison %s", path, c.Op)
	}
}
