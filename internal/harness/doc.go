// Package harness provides conformance testing for sift filter schemas.
//
// A scenario compiles a set of CUE schema files, seeds a fresh in-memory
// SQLite database and runs request cases through the same path the HTTP
// endpoint uses: bind, validate, compile, execute.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schemas: ../schemas          # CUE directory or file, relative to this file
//	setup:
//	  - CREATE TABLE users (...);
//	cases:
//	  - name: adults
//	    filter: UserFilter
//	    query: "age__gte=30&order_by=-age"
//	    expect:
//	      keys: [3, 1]
//	      count: 2
//	      rows: [{name: Carol}]
//	      sql_contains: ['ORDER BY "users"."age" DESC']
//	  - name: bad_ordering
//	    filter: UserFilter
//	    query: "order_by=zzz"
//	    expect:
//	      errors:
//	        - {kind: invalid_ordering_field, field: order_by}
//
// # Expectations
//
//   - keys: entity key values of the returned rows, in order
//   - count: number of returned rows
//   - rows: subset match against the returned rows, in order
//   - sql_contains: fragments of the compiled SQL
//   - errors: the request must be rejected with exactly these entries
//
// # Golden Files
//
// RunWithGolden snapshots every case (plan, SQL and rows, or the rejection
// report) as canonical JSON under testdata/golden/{name}.golden.
package harness
