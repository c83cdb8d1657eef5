// Package ir provides the typed value model shared by every sift package.
//
// Raw request parameters are untyped strings. Validation turns them into
// Values of a declared Type, and everything downstream (predicates, SQL
// parameters, snapshots) works with Values only.
//
// This package imports nothing internal. Key constraints:
//   - Value is sealed: String, Int, Float, Bool, UUID, Time, List and Null
//   - String() on a scalar renders a form that Coerce parses back to the same value
//   - MarshalCanonical is the only serialization used for golden snapshots
//     and schema fingerprints
package ir
