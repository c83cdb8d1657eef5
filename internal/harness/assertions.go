package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/store"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Expectation that failed, e.g. "keys"
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateExpect checks cr against c.Expect and returns one message per
// failed expectation. key is the entity key attribute used by keys.
func EvaluateExpect(c Case, cr *CaseResult, key string) []string {
	if c.Expect == nil {
		return nil
	}
	var failures []string
	add := func(err error) {
		if err != nil {
			failures = append(failures, err.Error())
		}
	}

	e := c.Expect
	if len(e.Errors) > 0 {
		add(assertErrors(cr, e.Errors))
		return failures
	}
	if cr.Report != nil {
		return []string{(&AssertionError{
			Type:     "rows",
			Expected: "the request to succeed",
			Actual:   "rejection: " + cr.Report.Error(),
		}).Error()}
	}

	if e.Count != nil {
		add(assertCount(cr.Rows, *e.Count))
	}
	if e.Keys != nil {
		add(assertKeys(cr.Rows, key, e.Keys))
	}
	if e.Rows != nil {
		add(assertRows(cr.Rows, e.Rows))
	}
	for _, frag := range e.SQLContains {
		if !strings.Contains(cr.SQL, frag) {
			add(&AssertionError{Type: "sql_contains", Expected: fmt.Sprintf("SQL containing %q", frag), Actual: cr.SQL})
		}
	}
	return failures
}

func assertCount(rows []store.Row, want int) error {
	if len(rows) == want {
		return nil
	}
	return &AssertionError{Type: "count", Expected: fmt.Sprint(want), Actual: fmt.Sprint(len(rows))}
}

// assertKeys compares key values in order. Values are compared by their
// text form, so YAML integers match database integers.
func assertKeys(rows []store.Row, key string, want []any) error {
	if key == "" {
		return &AssertionError{Type: "keys", Expected: "an entity with a key", Actual: "no key declared"}
	}
	got := make([]string, len(rows))
	for i, row := range rows {
		got[i] = render(row[key])
	}
	exp := make([]string, len(want))
	for i, w := range want {
		exp[i] = render(w)
	}
	if slices.Equal(got, exp) {
		return nil
	}
	return &AssertionError{
		Type:     "keys",
		Expected: "[" + strings.Join(exp, " ") + "]",
		Actual:   "[" + strings.Join(got, " ") + "]",
	}
}

// assertRows applies subset matching: every listed attribute of the i-th
// expected row must equal the i-th returned row's value.
func assertRows(rows []store.Row, want []map[string]any) error {
	if len(rows) < len(want) {
		return &AssertionError{Type: "rows", Expected: fmt.Sprintf("at least %d rows", len(want)), Actual: fmt.Sprint(len(rows))}
	}
	for i, w := range want {
		for attr, v := range w {
			got, ok := rows[i][attr]
			if !ok {
				return &AssertionError{Type: "rows", Expected: fmt.Sprintf("row %d to have %q", i, attr), Actual: "no such column"}
			}
			if render(got) != render(v) {
				return &AssertionError{
					Type:     "rows",
					Expected: fmt.Sprintf("row %d %s=%s", i, attr, render(v)),
					Actual:   render(got),
				}
			}
		}
	}
	return nil
}

// assertErrors requires a rejection whose entries are exactly the expected
// (kind, field) pairs, in any order.
func assertErrors(cr *CaseResult, want []ExpectedError) error {
	if cr.Report == nil {
		return &AssertionError{Type: "errors", Expected: "a rejected request", Actual: fmt.Sprintf("%d rows", len(cr.Rows))}
	}
	got := make([]string, len(cr.Report.Errors))
	for i, fe := range cr.Report.Errors {
		got[i] = string(fe.Kind) + "@" + fe.Field
	}
	exp := make([]string, len(want))
	for i, w := range want {
		exp[i] = w.Kind + "@" + w.Field
	}
	slices.Sort(got)
	slices.Sort(exp)
	if slices.Equal(got, exp) {
		return nil
	}
	return &AssertionError{
		Type:     "errors",
		Expected: strings.Join(exp, ", "),
		Actual:   strings.Join(got, ", "),
	}
}

func render(v any) string {
	switch val := v.(type) {
	case nil, ir.Null:
		return "null"
	case ir.Value:
		return val.String()
	}
	return fmt.Sprint(v)
}
