package store

import (
	"context"
	"testing"

	"github.com/roach88/sift/internal/filter"
	"github.com/roach88/sift/internal/queryir"
	"github.com/roach88/sift/internal/querysql"
	"github.com/roach88/sift/internal/schema"
	"github.com/roach88/sift/internal/testutil"
	"github.com/stretchr/testify/require"
)

// createTestStore opens an in-memory SQLite store holding the fixture rows.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, "sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Exec(ctx, testutil.SchemaSQL))
	require.NoError(t, s.Exec(ctx, testutil.SeedSQL))
	return s
}

// run validates raw against def and lists the matching rows.
func run(t *testing.T, s *Store, def *schema.Definition, raw map[string]any) []Row {
	t.Helper()
	in, err := filter.Validate(def, raw)
	require.NoError(t, err)

	var q queryir.Query = s.Select(querysql.SourceOf(def.Entity()))
	q, err = in.Filter(q)
	require.NoError(t, err)
	if _, ok := def.Ordering(); ok {
		q, err = in.Sort(q)
		require.NoError(t, err)
	}

	rows, err := s.List(context.Background(), q.(querysql.Select))
	require.NoError(t, err)
	return rows
}

// column extracts one attribute from every row.
func column(rows []Row, attr string) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r[attr]
	}
	return out
}
