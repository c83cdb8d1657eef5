package querysql

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder style and the few operators that differ
// between backends.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ParseDialect maps a database/sql driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Quote double-quotes an identifier.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
