package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/querysql"
	"github.com/roach88/sift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestOpen_PragmasApplied(t *testing.T) {
	s := createTestStore(t)

	var fk int
	require.NoError(t, s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
	assert.Equal(t, querysql.SQLite, s.Dialect())
}

func TestOpen_BadPostgresDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "://not a dsn")
	assert.Error(t, err)
}

func TestList_Unfiltered(t *testing.T) {
	s := createTestStore(t)
	rows := run(t, s, testutil.UserFilter(testutil.Users()), map[string]any{})

	assert.Equal(t, []any{ir.Int(1), ir.Int(2), ir.Int(3), ir.Int(4)}, column(rows, "id"))

	alice := rows[0]
	assert.Equal(t, ir.String("Alice"), alice["name"])
	assert.Equal(t, ir.Bool(true), alice["active"])
	assert.Equal(t, ir.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), alice["created"])
	assert.Equal(t, ir.Null{}, rows[2]["email"])
}

func TestList_Filters(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		expected []any
	}{
		{"eq", map[string]any{"name": "Bob"}, []any{ir.Int(2)}},
		{"neq", map[string]any{"name__neq": "Bob"}, []any{ir.Int(1), ir.Int(3), ir.Int(4)}},
		{"gt", map[string]any{"age__gt": "25"}, []any{ir.Int(1), ir.Int(3)}},
		{"lte", map[string]any{"age__lte": "25"}, []any{ir.Int(2), ir.Int(4)}},
		{"in", map[string]any{"age__in": "30,35"}, []any{ir.Int(1), ir.Int(3)}},
		{"not in", map[string]any{"id__not_in": "1,2"}, []any{ir.Int(3), ir.Int(4)}},
		{"isnull", map[string]any{"email__isnull": "true"}, []any{ir.Int(3)}},
		{"is not null", map[string]any{"email__isnull": "false"}, []any{ir.Int(1), ir.Int(2), ir.Int(4)}},
		{"like", map[string]any{"name__like": "a"}, []any{ir.Int(3), ir.Int(4)}},
		{"ilike", map[string]any{"name__ilike": "A"}, []any{ir.Int(1), ir.Int(3), ir.Int(4)}},
		{"is not keeps nulls", map[string]any{"email__not": "bob@example.com"}, []any{ir.Int(1), ir.Int(3), ir.Int(4)}},
		{"bool", map[string]any{"active": "false"}, []any{ir.Int(3)}},
		{"time", map[string]any{"created__gte": "2024-03-01T00:00:00Z"}, []any{ir.Int(3), ir.Int(4)}},
		{"search", map[string]any{"search": "SAMPLE"}, []any{ir.Int(4)}},
		{"conjunction", map[string]any{"age": "25", "search": "bo"}, []any{ir.Int(2)}},
	}

	s := createTestStore(t)
	def := testutil.UserFilter(testutil.Users())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, column(run(t, s, def, tt.raw), "id"))
		})
	}
}

func TestList_Ordering(t *testing.T) {
	s := createTestStore(t)
	def := testutil.UserFilter(testutil.Users())

	rows := run(t, s, def, map[string]any{"order_by": "-age"})
	assert.Equal(t, []any{ir.Int(3), ir.Int(1), ir.Int(2), ir.Int(4)}, column(rows, "id"), "ties broken by key")

	rows = run(t, s, def, map[string]any{"order_by": "age,-name"})
	assert.Equal(t, []any{ir.Int(4), ir.Int(2), ir.Int(1), ir.Int(3)}, column(rows, "id"))
}

func TestList_NestedJoin(t *testing.T) {
	s := createTestStore(t)
	def := testutil.PostFilter(testutil.Posts(), testutil.Users())

	rows := run(t, s, def, map[string]any{"author__name": "Alice"})
	assert.Equal(t, []any{ir.Int(3), ir.Int(1)}, column(rows, "id"), "default ordering -id")

	rows = run(t, s, def, map[string]any{"author__name": "Alice", "published": "true"})
	assert.Equal(t, []any{ir.Int(1)}, column(rows, "id"))
	assert.NotContains(t, rows[0], "name", "joined columns are not selected")
}

func TestList_DialectMismatch(t *testing.T) {
	s := createTestStore(t)
	sel := querysql.NewSelect(querysql.Postgres, querysql.SourceOf(testutil.Users()))
	_, err := s.List(context.Background(), sel)
	assert.ErrorContains(t, err, "compiled for postgres")
}

func TestList_EmptyResult(t *testing.T) {
	s := createTestStore(t)
	rows := run(t, s, testutil.UserFilter(testutil.Users()), map[string]any{"name": "Nobody"})
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRowMarshalJSON(t *testing.T) {
	row := Row{"id": ir.Int(1), "name": ir.String("Alice"), "email": ir.Null{}}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"email":null,"id":1,"name":"Alice"}`, string(data))
}
