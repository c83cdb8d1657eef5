// Package store runs compiled filter queries against SQLite or PostgreSQL.
//
// SQLite goes through github.com/mattn/go-sqlite3 and PostgreSQL through
// pgx's database/sql adapter, so both share one *sql.DB code path.
//
// # SQLite Configuration
//
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - case_sensitive_like=ON: LIKE matches case as PostgreSQL does
//   - A single open connection, so in-memory databases are shared
//
// Rows come back keyed by attribute name with values converted to ir.Value.
package store
