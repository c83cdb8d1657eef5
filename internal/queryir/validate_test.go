package queryir

import (
	"testing"

	"github.com/roach88/sift/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	preds := []Predicate{
		Compare{Column: usersName, Op: Eq, Value: ir.String("Bob")},
		Compare{Column: usersAge, Op: In, Value: ir.List{ir.Int(1)}},
		Compare{Column: usersAge, Op: NotIn, Value: ir.List{}},
		Compare{Column: usersAge, Op: IsNull},
		Compare{Column: usersName, Op: ILike, Value: ir.String("%b%")},
		Compare{Column: usersName, Op: IsNot, Value: ir.String("x")},
		AnyOf{Predicates: []Predicate{
			Compare{Column: usersName, Op: Like, Value: ir.String("%b%")},
		}},
		AnyOf{},
	}

	for _, p := range preds {
		assert.NoError(t, Validate(p), Format(p))
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		pred    Predicate
		message string
	}{
		{"nil", nil, "nil predicate"},
		{"no column", Compare{Op: Eq, Value: ir.Int(1)}, "without column"},
		{"in scalar", Compare{Column: usersAge, Op: In, Value: ir.Int(1)}, "requires a list"},
		{"isnull with value", Compare{Column: usersAge, Op: IsNull, Value: ir.Bool(true)}, "takes no value"},
		{"like int", Compare{Column: usersAge, Op: Like, Value: ir.Int(1)}, "string pattern"},
		{"eq without value", Compare{Column: usersAge, Op: Eq}, "requires a value"},
		{"eq with list", Compare{Column: usersAge, Op: Eq, Value: ir.List{}}, "cannot compare with a list"},
		{"unknown op", Compare{Column: usersAge, Op: Comparison(42), Value: ir.Int(1)}, "unknown comparison"},
		{"nested nil", AnyOf{Predicates: []Predicate{nil}}, "predicate.any[0]: nil predicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.pred)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	err := Validate(AnyOf{Predicates: []Predicate{
		Compare{Column: usersAge, Op: In, Value: ir.Int(1)},
		Compare{Op: Eq, Value: ir.Int(1)},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "any[0]")
	assert.Contains(t, err.Error(), "any[1]")
}
