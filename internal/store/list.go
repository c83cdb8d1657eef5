package store

import (
	"context"
	"fmt"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/querysql"
)

// Row is one result row keyed by attribute name. Values are ir.Value.
type Row map[string]any

// MarshalJSON renders the row as canonical JSON.
func (r Row) MarshalJSON() ([]byte, error) {
	return ir.MarshalCanonical(map[string]any(r))
}

// List compiles sel and returns every matching row in query order.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) List(ctx context.Context, sel querysql.Select) ([]Row, error) {
	if sel.Dialect() != s.dialect {
		return nil, fmt.Errorf("query compiled for %s, store is %s", sel.Dialect(), s.dialect)
	}

	query, args, err := sel.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := []Row{}
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = toValue(dest[i])
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
