package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sift/internal/harness"
	"github.com/roach88/sift/internal/ir"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Cases  int      `json:"cases"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-path>...",
		Short: "Run scenario files against an in-memory database",
		Long: `Run YAML scenarios: each one names its schemas, seeds a fresh in-memory
SQLite database and checks request outcomes against expectations.

Paths may be scenario files or directories searched recursively. When a
golden file exists at <scenario dir>/golden/<scenario file>.golden the
full result must also match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  sift test ./scenarios
  sift test ./scenarios --filter "user-*"
  sift test ./scenarios/blog.yaml --update
  sift test ./scenarios --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	var scenarioFiles []string
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", p))
		}
		files, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		scenarioFiles = append(scenarioFiles, files...)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, opts, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}

	return outputTestText(cmd, result)
}

// findScenarioFiles returns path itself when it is a file, or every YAML
// file below it when it is a directory. Golden directories are skipped.
func findScenarioFiles(path string, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if p != path && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario and returns the result.
func runScenario(scenarioFile string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	text := opts.Format != "json"
	res := ScenarioResult{Name: filepath.Base(scenarioFile), File: scenarioFile}

	fail := func(errs ...string) ScenarioResult {
		if text {
			fmt.Fprintf(w, "✗ %s\n", res.Name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		res.Errors = errs
		return res
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return fail(fmt.Sprintf("failed to load scenario: %v", err))
	}
	res.Name = scenario.Name
	res.Cases = len(scenario.Cases)

	var harnessOpts []harness.Option
	if opts.Verbose {
		harnessOpts = append(harnessOpts, harness.WithLogger(
			slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})),
		))
	}
	result, err := harness.Run(scenario, harnessOpts...)
	if err != nil {
		return fail(fmt.Sprintf("execution failed: %v", err))
	}

	goldenPath := goldenFilePath(scenarioFile)
	if opts.Update {
		if err := writeGolden(goldenPath, scenario, result); err != nil {
			return fail(fmt.Sprintf("failed to update golden file: %v", err))
		}
		if !result.Pass {
			return fail(result.Errors...)
		}
		if text {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", scenario.Name)
		}
		res.Pass = true
		return res
	}

	errs := append([]string(nil), result.Errors...)
	if _, err := os.Stat(goldenPath); err == nil {
		match, err := compareWithGolden(goldenPath, scenario, result)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("golden comparison failed: %v", err))
		case !match:
			errs = append(errs, "result does not match golden file (run with --update to regenerate)")
		}
	}
	if len(errs) > 0 {
		return fail(errs...)
	}

	if text {
		fmt.Fprintf(w, "✓ %s (%d cases)\n", scenario.Name, res.Cases)
	}
	res.Pass = true
	return res
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func snapshotBytes(scenario *harness.Scenario, result *harness.Result) ([]byte, error) {
	data, err := ir.MarshalCanonical(result.Snapshot(scenario.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return data, nil
}

// writeGolden writes the current result snapshot as the golden file.
func writeGolden(goldenPath string, scenario *harness.Scenario, result *harness.Result) error {
	data, err := snapshotBytes(scenario, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the result snapshot against the golden file.
func compareWithGolden(goldenPath string, scenario *harness.Scenario, result *harness.Result) (bool, error) {
	want, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := snapshotBytes(scenario, result)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
