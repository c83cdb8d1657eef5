package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sift/internal/ir"
)

// Snapshot returns a canonical-JSON friendly description of the result.
// ir.MarshalCanonical only handles IR values and primitives, so every
// case is rendered into plain maps and slices first.
func (r *Result) Snapshot(scenarioName string) map[string]any {
	cases := make([]any, len(r.Cases))
	for i, cr := range r.Cases {
		entry := map[string]any{
			"name":   cr.Name,
			"filter": cr.Filter,
			"query":  cr.Query,
		}
		if cr.Report != nil {
			errs := make([]any, len(cr.Report.Errors))
			for j, fe := range cr.Report.Errors {
				e := map[string]any{
					"kind":    string(fe.Kind),
					"field":   fe.Field,
					"message": fe.Message,
				}
				if len(fe.Names) > 0 {
					names := make([]any, len(fe.Names))
					for k, n := range fe.Names {
						names[k] = n
					}
					e["names"] = names
				}
				errs[j] = e
			}
			entry["rejected"] = map[string]any{
				"stage":  string(cr.Report.Stage),
				"errors": errs,
			}
		} else {
			rows := make([]any, len(cr.Rows))
			for j, row := range cr.Rows {
				rows[j] = map[string]any(row)
			}
			entry["plan"] = cr.Plan
			entry["sql"] = cr.SQL
			entry["rows"] = rows
		}
		cases[i] = entry
	}
	return map[string]any{
		"scenario_name": scenarioName,
		"cases":         cases,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(result.Snapshot(scenarioName))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
