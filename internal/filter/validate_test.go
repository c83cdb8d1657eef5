package filter

import (
	"testing"
	"time"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/schema"
	"github.com/roach88/sift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userFilter() *schema.Definition {
	return testutil.UserFilter(testutil.Users())
}

func postFilter() *schema.Definition {
	return testutil.PostFilter(testutil.Posts(), testutil.Users())
}

func requireValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	require.Error(t, err)
	ve, ok := AsValidationError(err)
	require.True(t, ok, "expected *ValidationError, got %T: %v", err, err)
	return ve
}

func TestValidate_Scalars(t *testing.T) {
	in, err := Validate(userFilter(), map[string]any{
		"name":         "Bob",
		"age__gte":     "18",
		"active":       "true",
		"created__gte": "2024-02-01",
	})
	require.NoError(t, err)

	v, ok := in.Get("name")
	require.True(t, ok)
	assert.Equal(t, Scalar{Value: ir.String("Bob")}, v)

	v, _ = in.Get("age__gte")
	assert.Equal(t, Scalar{Value: ir.Int(18)}, v)

	v, _ = in.Get("active")
	assert.Equal(t, Scalar{Value: ir.Bool(true)}, v)

	v, _ = in.Get("created__gte")
	assert.Equal(t, Scalar{Value: ir.Time(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))}, v)

	assert.True(t, in.IsSet("name"))
	assert.False(t, in.IsSet("age"))
}

func TestValidate_ListFromCommaString(t *testing.T) {
	in, err := Validate(userFilter(), map[string]any{"age__in": "1,2,3"})
	require.NoError(t, err)

	v, _ := in.Get("age__in")
	assert.Equal(t, List{Values: ir.List{ir.Int(1), ir.Int(2), ir.Int(3)}}, v)
}

func TestValidate_ListFromSequence(t *testing.T) {
	in, err := Validate(userFilter(), map[string]any{"age__in": []string{"4", "5"}})
	require.NoError(t, err)

	v, _ := in.Get("age__in")
	assert.Equal(t, List{Values: ir.List{ir.Int(4), ir.Int(5)}}, v)
}

func TestValidate_SingleElementSequenceForScalar(t *testing.T) {
	in, err := Validate(userFilter(), map[string]any{"age": []string{"30"}})
	require.NoError(t, err)
	v, _ := in.Get("age")
	assert.Equal(t, Scalar{Value: ir.Int(30)}, v)

	_, err = Validate(userFilter(), map[string]any{"age": []string{"30", "31"}})
	ve := requireValidationError(t, err)
	assert.True(t, ve.Has(KindTypeCoercion))
}

func TestValidate_UnknownField(t *testing.T) {
	_, err := Validate(userFilter(), map[string]any{"bogus": "1"})
	ve := requireValidationError(t, err)

	assert.Equal(t, StageCoercion, ve.Stage)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, FieldError{Kind: KindUnknownField, Field: "bogus", Message: "unknown field"}, ve.Errors[0])
}

func TestValidate_AggregatesFirstPass(t *testing.T) {
	_, err := Validate(userFilter(), map[string]any{
		"age":      "x",
		"age__gte": "y",
		"zeta":     1,
		"alpha":    2,
		"order_by": "zzz",
	})
	ve := requireValidationError(t, err)

	assert.Equal(t, StageCoercion, ve.Stage)
	require.Len(t, ve.Errors, 4, "ordering is not checked when coercion fails")
	assert.Equal(t, "age", ve.Errors[0].Field)
	assert.Equal(t, KindTypeCoercion, ve.Errors[0].Kind)
	assert.Equal(t, "age__gte", ve.Errors[1].Field)
	assert.Equal(t, FieldError{Kind: KindUnknownField, Field: "alpha", Message: "unknown field"}, ve.Errors[2])
	assert.Equal(t, "zeta", ve.Errors[3].Field)
	assert.Contains(t, err.Error(), "UserFilter: 4 validation errors")
}

func TestValidate_InvalidOrdering(t *testing.T) {
	_, err := Validate(userFilter(), map[string]any{"order_by": "zzz,name,aaa"})
	ve := requireValidationError(t, err)

	assert.Equal(t, StageSemantic, ve.Stage)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, FieldError{
		Kind:    KindInvalidOrdering,
		Field:   "order_by",
		Names:   []string{"aaa", "zzz"},
		Message: "Invalid ordering fields: aaa, zzz",
	}, ve.Errors[0])
}

func TestValidate_InvalidOrderingSingle(t *testing.T) {
	_, err := Validate(userFilter(), map[string]any{"order_by": "zzz,name"})
	ve := requireValidationError(t, err)

	invalid := ve.ByKind(KindInvalidOrdering)
	require.Len(t, invalid, 1)
	assert.Equal(t, []string{"zzz"}, invalid[0].Names)
}

func TestValidate_DuplicateOrdering(t *testing.T) {
	_, err := Validate(userFilter(), map[string]any{"order_by": "name,-name"})
	ve := requireValidationError(t, err)

	assert.Equal(t, StageSemantic, ve.Stage)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, FieldError{
		Kind:    KindDuplicateOrdering,
		Field:   "order_by",
		Names:   []string{"name"},
		Message: "Duplicated ordering fields: name",
	}, ve.Errors[0])
}

func TestValidate_InvalidAndDuplicateTogether(t *testing.T) {
	_, err := Validate(userFilter(), map[string]any{"order_by": "zzz,age,-age"})
	ve := requireValidationError(t, err)

	assert.True(t, ve.Has(KindInvalidOrdering))
	assert.True(t, ve.Has(KindDuplicateOrdering))
	assert.Len(t, ve.Errors, 2)
}

func TestValidate_OrderingNormalization(t *testing.T) {
	in, err := Validate(userFilter(), map[string]any{"order_by": " name , ,-age"})
	require.NoError(t, err)

	spec, err := in.OrderingValues()
	require.NoError(t, err)
	assert.Equal(t, OrderSpec{
		{Attribute: "name", Direction: "asc"},
		{Attribute: "age", Direction: "desc"},
	}, spec)
}

func TestValidate_EmptyOrderingIsUnset(t *testing.T) {
	for _, raw := range []any{"", " , ", []string{}} {
		in, err := Validate(userFilter(), map[string]any{"order_by": raw})
		require.NoError(t, err)

		spec, err := in.OrderingValues()
		require.NoError(t, err)
		assert.Nil(t, spec)
		assert.True(t, in.IsSet("order_by"))
	}
}

func TestValidate_OrderingWrongType(t *testing.T) {
	_, err := Validate(userFilter(), map[string]any{"order_by": 5})
	ve := requireValidationError(t, err)
	assert.True(t, ve.Has(KindTypeCoercion))
}

func TestValidate_ExplicitNull(t *testing.T) {
	in, err := Validate(userFilter(), map[string]any{"name": nil, "age": "3"})
	require.NoError(t, err)

	assert.True(t, in.IsSet("name"))
	_, ok := in.Get("name")
	assert.False(t, ok)

	entries := in.FilteringFields()
	require.Len(t, entries, 1)
	assert.Equal(t, "age", entries[0].Field.Name())
}

func TestValidate_FilteringFieldsOrderAndExclusions(t *testing.T) {
	in, err := Validate(userFilter(), map[string]any{
		"search":   "bo",
		"order_by": "name",
		"age__lt":  "40",
		"name":     "Bob",
	})
	require.NoError(t, err)

	var names []string
	for _, e := range in.FilteringFields() {
		names = append(names, e.Field.Name())
	}
	assert.Equal(t, []string{"name", "age__lt", "search"}, names)
}

func TestValidate_DefaultsAreNotSupplied(t *testing.T) {
	in, err := Validate(postFilter(), map[string]any{})
	require.NoError(t, err)

	assert.Empty(t, in.FilteringFields())
	assert.False(t, in.IsSet("order_by"))

	spec, err := in.OrderingValues()
	require.NoError(t, err)
	assert.Equal(t, OrderSpec{{Attribute: "id", Direction: "desc"}}, spec)
}

func TestValidate_NullOrderingIgnoresDefault(t *testing.T) {
	in, err := Validate(postFilter(), map[string]any{"order_by": ""})
	require.NoError(t, err)

	spec, err := in.OrderingValues()
	require.NoError(t, err)
	assert.Nil(t, spec)
}

func TestValidate_NoOrderingField(t *testing.T) {
	def := schema.MustDefine("AgeOnly", schema.Constants{Entity: testutil.Users()}, schema.Field{Name: "age"})
	in, err := Validate(def, map[string]any{"age": 3})
	require.NoError(t, err)

	_, err = in.OrderingValues()
	assert.ErrorIs(t, err, ErrNoOrderingField)

	_, err = Validate(def, map[string]any{"order_by": "age"})
	ve := requireValidationError(t, err)
	assert.True(t, ve.Has(KindUnknownField))
}

func TestValidate_Required(t *testing.T) {
	def := schema.MustDefine("Req", schema.Constants{Entity: testutil.Users()},
		schema.Field{Name: "age", Required: true},
		schema.Field{Name: "name"},
	)

	_, err := Validate(def, map[string]any{"name": "x"})
	ve := requireValidationError(t, err)
	assert.Equal(t, []FieldError{{Kind: KindMissingField, Field: "age", Message: "field required"}}, ve.Errors)

	_, err = Validate(def, map[string]any{"age": "1"})
	assert.NoError(t, err)
}

func TestValidate_NestedFlatKeys(t *testing.T) {
	in, err := Validate(postFilter(), map[string]any{
		"author__name":     "Bob",
		"author__order_by": "-age",
		"published":        "1",
	})
	require.NoError(t, err)

	v, ok := in.Get("author")
	require.True(t, ok)
	nested := v.(Nested).Instance

	name, _ := nested.Get("name")
	assert.Equal(t, Scalar{Value: ir.String("Bob")}, name)
	assert.Equal(t, "author", nested.Definition().Prefix())

	pub, _ := in.Get("published")
	assert.Equal(t, Scalar{Value: ir.Bool(true)}, pub)
}

func TestValidate_NestedNativeMap(t *testing.T) {
	in, err := Validate(postFilter(), map[string]any{
		"author": map[string]any{"author__age__gte": 20},
	})
	require.NoError(t, err)

	v, ok := in.Get("author")
	require.True(t, ok)
	age, _ := v.(Nested).Instance.Get("age__gte")
	assert.Equal(t, Scalar{Value: ir.Int(20)}, age)
}

func TestValidate_NestedAbsent(t *testing.T) {
	in, err := Validate(postFilter(), map[string]any{"published": true})
	require.NoError(t, err)
	assert.False(t, in.IsSet("author"))
}

func TestValidate_NestedErrorsUseExternalNames(t *testing.T) {
	_, err := Validate(postFilter(), map[string]any{
		"author__age":      "old",
		"author__order_by": "nope",
		"author":           map[string]any{"name": "x"},
	})
	ve := requireValidationError(t, err)

	var fields []string
	for _, fe := range ve.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"author__age", "name"}, fields)
}

func TestValidate_NestedOrderingChecked(t *testing.T) {
	_, err := Validate(postFilter(), map[string]any{"author__order_by": "nope"})
	ve := requireValidationError(t, err)

	assert.Equal(t, StageSemantic, ve.Stage)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, "author__order_by", ve.Errors[0].Field)
	assert.Equal(t, []string{"nope"}, ve.Errors[0].Names)
}

func TestValidate_NestedNotAnObject(t *testing.T) {
	_, err := Validate(postFilter(), map[string]any{"author": "Bob"})
	ve := requireValidationError(t, err)
	assert.Equal(t, "author", ve.Errors[0].Field)
	assert.Equal(t, KindTypeCoercion, ve.Errors[0].Kind)
}

func TestValidate_PrefixedSchemaRejectsBareNames(t *testing.T) {
	prefixed, err := schema.WithPrefix("user", userFilter())
	require.NoError(t, err)

	_, err = Validate(prefixed, map[string]any{"name": "Bob"})
	ve := requireValidationError(t, err)
	assert.True(t, ve.Has(KindUnknownField))

	in, err := Validate(prefixed, map[string]any{"user__name": "Bob"})
	require.NoError(t, err)
	v, _ := in.Get("name")
	assert.Equal(t, Scalar{Value: ir.String("Bob")}, v)
}

func TestInstanceSnapshot(t *testing.T) {
	in, err := Validate(postFilter(), map[string]any{
		"author__age__in": "1,2",
		"published":       nil,
	})
	require.NoError(t, err)

	data, err := ir.MarshalCanonical(in.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, `{"author":{"age__in":[1,2]},"published":null}`, string(data))
}
