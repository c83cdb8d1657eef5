package queryir

import (
	"testing"

	"github.com/roach88/sift/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usersName  = Column{Table: "users", Name: "name"}
	usersAge   = Column{Table: "users", Name: "age"}
	usersEmail = Column{Table: "users", Name: "email"}
)

func TestComparisonString(t *testing.T) {
	assert.Equal(t, "eq", Eq.String())
	assert.Equal(t, "not_in", NotIn.String())
	assert.Equal(t, "is_not", IsNot.String())
	assert.Equal(t, "comparison(99)", Comparison(99).String())
	assert.True(t, IsNull.Unary())
	assert.False(t, Eq.Unary())
}

func TestPredicate_Sealed(t *testing.T) {
	preds := []Predicate{
		Compare{Column: usersName, Op: Eq, Value: ir.String("Bob")},
		AnyOf{},
	}
	for _, p := range preds {
		switch p.(type) {
		case Compare, AnyOf:
		default:
			t.Fatalf("unexpected predicate %T", p)
		}
	}
}

func TestPlan_Immutable(t *testing.T) {
	base := Plan{}
	a := base.Filter(Compare{Column: usersName, Op: Eq, Value: ir.String("a")}).(Plan)
	b := a.Filter(Compare{Column: usersAge, Op: Gt, Value: ir.Int(1)}).(Plan)
	c := a.Filter(Compare{Column: usersAge, Op: Lt, Value: ir.Int(9)}).(Plan)

	assert.True(t, base.Empty())
	assert.Len(t, a.Predicates(), 1)
	require.Len(t, b.Predicates(), 2)
	require.Len(t, c.Predicates(), 2)
	assert.Equal(t, Gt, b.Predicates()[1].(Compare).Op)
	assert.Equal(t, Lt, c.Predicates()[1].(Compare).Op)

	sorted := a.OrderBy(OrderKey{Column: usersAge, Direction: Desc}).(Plan)
	assert.Empty(t, a.Order())
	assert.Equal(t, []OrderKey{{Column: usersAge, Direction: Desc}}, sorted.Order())
}

func TestPlan_String(t *testing.T) {
	var q Query = Plan{}
	q = q.Filter(Compare{Column: usersAge, Op: Gte, Value: ir.Int(18)})
	q = q.Filter(AnyOf{Predicates: []Predicate{
		Compare{Column: usersName, Op: ILike, Value: ir.String("%bo%")},
		Compare{Column: usersEmail, Op: ILike, Value: ir.String("%bo%")},
	}})
	q = q.Filter(Compare{Column: usersEmail, Op: IsNull})
	q = q.OrderBy(OrderKey{Column: usersAge, Direction: Desc})
	q = q.OrderBy(OrderKey{Column: usersName, Direction: Asc})

	expected := "WHERE users.age >= 18\n" +
		"  AND (users.name ILIKE \"%bo%\" OR users.email ILIKE \"%bo%\")\n" +
		"  AND users.email IS NULL\n" +
		"ORDER BY users.age desc, users.name asc"
	assert.Equal(t, expected, q.(Plan).String())
}

func TestPlan_StringOrderOnly(t *testing.T) {
	q := Plan{}.OrderBy(OrderKey{Column: usersAge, Direction: Asc})
	assert.Equal(t, "ORDER BY users.age asc", q.(Plan).String())
	assert.Equal(t, "", Plan{}.String())
}

func TestPlan_Snapshot(t *testing.T) {
	q := Plan{}.
		Filter(Compare{Column: usersAge, Op: In, Value: ir.List{ir.Int(1), ir.Int(2)}}).
		Filter(Compare{Column: usersName, Op: IsNotNull}).
		OrderBy(OrderKey{Column: usersAge, Direction: Asc})

	data, err := ir.MarshalCanonical(q.(Plan).Snapshot())
	require.NoError(t, err)
	assert.Equal(t,
		`{"order":[{"column":"users.age","direction":"asc"}],"where":[{"column":"users.age","op":"in","value":[1,2]},{"column":"users.name","op":"is_not_null"}]}`,
		string(data))
}

func TestColumnString(t *testing.T) {
	assert.Equal(t, "users.age", usersAge.String())
	assert.Equal(t, "age", Column{Name: "age"}.String())
}
