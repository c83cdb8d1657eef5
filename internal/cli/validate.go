package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Filters  []string     `json:"filters"`
	Entities []string     `json:"entities"`
	Errors   []Diagnostic `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schemas-path>",
		Short: "Check schema declarations without serving them",
		Long: `Load the CUE schema files at a directory or single file and compile every
entity and filter declaration. All problems are reported, not just the first.

Exit codes:
  0 - All schemas valid
  1 - One or more declarations rejected
  2 - Schemas could not be loaded (missing path, CUE syntax error)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, diags, loadFailed := loadRegistry(path)
	if loadFailed {
		first := diags[0]
		_ = formatter.Error(first.Code, first.text(), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", first.Code, first.Message))
	}

	result := ValidationResult{
		Valid:    len(diags) == 0,
		Filters:  reg.Names(),
		Entities: reg.EntityNames(),
		Errors:   diags,
	}
	for _, name := range result.Filters {
		formatter.VerboseLog("Compiled filter: %s", name)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	return formatter.Success(
		fmt.Sprintf("✓ All schemas valid (%d filters, %d entities)", len(result.Filters), len(result.Entities)),
		result,
	)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, d := range errs {
		if d.File != "" {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", d.File, d.Line, d.Column)
		}
		if d.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", d.Code, d.Field, d.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", d.Code, d.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
