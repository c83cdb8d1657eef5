package transport

import (
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/roach88/sift/internal/filter"
	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/queryir"
	"github.com/roach88/sift/internal/schema"
	"github.com/roach88/sift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	userFilter = testutil.UserFilter(testutil.Users())
	postFilter = testutil.PostFilter(testutil.Posts(), testutil.Users())
)

func bind(t *testing.T, def *schema.Definition, query string, opts ...Option) (*Request, error) {
	t.Helper()
	values, err := url.ParseQuery(query)
	require.NoError(t, err)
	return ShadowOf(def).Bind(values, opts...)
}

func plan(t *testing.T, r *Request) queryir.Plan {
	t.Helper()
	q, err := r.Filter(queryir.Plan{})
	require.NoError(t, err)
	q, err = r.Sort(q)
	require.NoError(t, err)
	return q.(queryir.Plan)
}

func requireRequestError(t *testing.T, err error) *RequestError {
	t.Helper()
	require.Error(t, err)
	re, ok := AsRequestError(err)
	require.True(t, ok, "expected *RequestError, got %T: %v", err, err)
	return re
}

func TestShadow_ListFieldsBecomeStrings(t *testing.T) {
	s := ShadowOf(userFilter)

	p, ok := s.Param("age__in")
	require.True(t, ok)
	assert.Equal(t, ir.TypeString, p.Type)
	assert.False(t, p.Required)

	p, ok = s.Param("age__gt")
	require.True(t, ok)
	assert.Equal(t, ir.TypeInt, p.Type)

	p, ok = s.Param("email__isnull")
	require.True(t, ok)
	assert.Equal(t, ir.TypeBool, p.Type)

	p, ok = s.Param("order_by")
	require.True(t, ok)
	assert.Equal(t, ir.TypeString, p.Type)
	assert.Nil(t, p.Default)
}

func TestShadow_NestedAndDefaults(t *testing.T) {
	s := ShadowOf(postFilter)

	var names []string
	for _, p := range s.Params() {
		names = append(names, p.Name)
	}
	assert.Equal(t, postFilter.Keys()[:2], names[:2])
	assert.Contains(t, names, "author__name")
	assert.Contains(t, names, "author__order_by")
	assert.NotContains(t, names, "author", "nested fields are flattened")

	p, ok := s.Param("order_by")
	require.True(t, ok)
	require.NotNil(t, p.Default)
	assert.Equal(t, "-id", *p.Default)
	assert.Equal(t, "PostFilter", p.Schema)

	p, ok = s.Param("author__name")
	require.True(t, ok)
	assert.Equal(t, "UserFilter", p.Schema)
}

func TestShadow_Memoized(t *testing.T) {
	first := ShadowOf(userFilter)

	var wg sync.WaitGroup
	got := make([]*Shadow, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = ShadowOf(userFilter)
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		assert.Same(t, first, s)
	}
}

func TestShadow_ConcurrentFirstUse(t *testing.T) {
	def := schema.MustDefine("Fresh", schema.Constants{Entity: testutil.Users()}, schema.Field{Name: "age"})

	var wg sync.WaitGroup
	got := make([]*Shadow, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = ShadowOf(def)
		}(i)
	}
	wg.Wait()

	for _, s := range got[1:] {
		assert.Same(t, got[0], s)
	}
}

func TestBind_RepeatedListValuesJoined(t *testing.T) {
	r, err := bind(t, userFilter, "age__in=30&age__in=35")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"age__in": "30,35"}, r.Values())

	assert.Equal(t, []queryir.Predicate{
		queryir.Compare{
			Column: queryir.Column{Table: "users", Name: "age"},
			Op:     queryir.In,
			Value:  ir.List{ir.Int(30), ir.Int(35)},
		},
	}, plan(t, r).Predicates())
}

func TestBind_ScalarTakesLastValue(t *testing.T) {
	r, err := bind(t, userFilter, "name=Alice&name=Bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", r.Values()["name"])
}

func TestBind_DefaultsFilled(t *testing.T) {
	r, err := bind(t, postFilter, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"order_by": "-id"}, r.Values())

	in, err := r.Instance()
	require.NoError(t, err)
	assert.True(t, in.IsSet("order_by"), "shadow defaults count as supplied")

	assert.Equal(t, []queryir.OrderKey{
		{Column: queryir.Column{Table: "posts", Name: "id"}, Direction: queryir.Desc},
	}, plan(t, r).Order())
}

func TestBind_UnknownRejectedByDefault(t *testing.T) {
	_, err := bind(t, userFilter, "bogus=1&name=Bob")
	re := requireRequestError(t, err)

	assert.Equal(t, http.StatusUnprocessableEntity, re.StatusCode())
	require.Len(t, re.Report.Errors, 1)
	assert.Equal(t, filter.KindUnknownField, re.Report.Errors[0].Kind)
	assert.Equal(t, "bogus", re.Report.Errors[0].Field)
}

func TestBind_IgnoreUnknown(t *testing.T) {
	r, err := bind(t, userFilter, "bogus=1&name=Bob", IgnoreUnknown())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "Bob"}, r.Values())
}

func TestBind_WireTypeErrorsCollected(t *testing.T) {
	_, err := bind(t, userFilter, "age__gt=abc&email__isnull=maybe&zzz=1")
	re := requireRequestError(t, err)

	var fields []string
	for _, fe := range re.Report.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"age__gt", "email__isnull", "zzz"}, fields)
	assert.Equal(t, filter.StageCoercion, re.Report.Stage)
}

func TestRequest_RevalidationFailureIsRequestError(t *testing.T) {
	r, err := bind(t, userFilter, "order_by=zzz,-zzz")
	require.NoError(t, err, "the shadow only sees a string")

	_, err = r.Filter(queryir.Plan{})
	re := requireRequestError(t, err)
	assert.Equal(t, filter.StageSemantic, re.Report.Stage)
	assert.True(t, re.Report.Has(filter.KindInvalidOrdering))
	assert.True(t, re.Report.Has(filter.KindDuplicateOrdering))

	_, err = r.Sort(queryir.Plan{})
	assert.True(t, IsRequestError(err))
}

func TestRequest_MatchesDirectValidation(t *testing.T) {
	query := "name__ilike=al&age__gte=20&id__not_in=3,4&active=yes&search=example&order_by=-age,name"
	r, err := bind(t, userFilter, query)
	require.NoError(t, err)

	values, err := url.ParseQuery(query)
	require.NoError(t, err)
	raw := make(map[string]any, len(values))
	for k, v := range values {
		raw[k] = v[0]
	}
	in, err := filter.Validate(userFilter, raw)
	require.NoError(t, err)
	q, err := in.Filter(queryir.Plan{})
	require.NoError(t, err)
	q, err = in.Sort(q)
	require.NoError(t, err)

	assert.Equal(t, q.(queryir.Plan), plan(t, r))
}

func TestIsRequestError(t *testing.T) {
	assert.False(t, IsRequestError(nil))
	assert.False(t, IsRequestError(filter.ErrNoOrderingField))
	assert.True(t, IsRequestError(&RequestError{Report: &filter.ValidationError{Schema: "S"}}))
}

func TestRequest_Apply(t *testing.T) {
	r, err := bind(t, userFilter, "name=Bob&order_by=-age")
	require.NoError(t, err)
	q, err := r.Apply(queryir.Plan{})
	require.NoError(t, err)
	assert.Equal(t, plan(t, r), q.(queryir.Plan))
}

func TestRequest_ApplyWithoutOrderingField(t *testing.T) {
	def := schema.MustDefine("AgeOnly", schema.Constants{Entity: testutil.Users()}, schema.Field{Name: "age"})
	r, err := bind(t, def, "age=30")
	require.NoError(t, err)

	q, err := r.Apply(queryir.Plan{})
	require.NoError(t, err)
	p := q.(queryir.Plan)
	assert.Len(t, p.Predicates(), 1)
	assert.Empty(t, p.Order())
}
