package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	e := usersEntity(t)
	require.NoError(t, r.AddEntity(e))
	assert.Error(t, r.AddEntity(e))

	got, ok := r.Entity("users")
	require.True(t, ok)
	assert.Same(t, e, got)

	d := userFilter(t, e)
	require.NoError(t, r.Add(d))
	assert.Error(t, r.Add(d))

	other := MustDefine("AgeFilter", Constants{Entity: e}, Field{Name: "age"})
	require.NoError(t, r.Add(other))

	def, ok := r.Get("UserFilter")
	require.True(t, ok)
	assert.Same(t, d, def)

	_, ok = r.Get("Missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"AgeFilter", "UserFilter"}, r.Names())
	assert.Equal(t, []string{"users"}, r.EntityNames())
}
