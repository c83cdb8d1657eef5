package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/queryir"
	"github.com/roach88/sift/internal/querysql"
	"github.com/roach88/sift/internal/transport"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Query         string // raw query string, e.g. "age__gte=18&order_by=-age"
	Dialect       string // sqlite | postgres
	IgnoreUnknown bool
}

// CompilationResult is the json payload of the compile command.
type CompilationResult struct {
	Filter string            `json:"filter"`
	Params map[string]string `json:"params"`
	Plan   json.RawMessage   `json:"plan"`
	SQL    string            `json:"sql"`
	Args   []any             `json:"args"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schemas-path> <filter>",
		Short: "Show the query a request compiles to",
		Long: `Bind a query string against a filter and print the resulting plan and the
SQL statement it renders to. Nothing is executed.

A rejected request prints its validation report and exits with code 1.

Examples:
  sift compile ./schemas UserFilter --query "age__gte=18&order_by=-age"
  sift compile ./schemas PostFilter --query "author__name=bob" --dialect postgres`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query string to bind")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "sqlite", "SQL dialect (sqlite|postgres)")
	cmd.Flags().BoolVar(&opts.IgnoreUnknown, "ignore-unknown", false, "drop undeclared parameters instead of rejecting them")

	return cmd
}

func runCompile(opts *CompileOptions, path, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	dialect, err := querysql.ParseDialect(opts.Dialect)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid dialect", err)
	}
	values, err := url.ParseQuery(strings.TrimPrefix(opts.Query, "?"))
	if err != nil {
		_ = formatter.Error(ErrCodeBadQuery, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid query string", err)
	}

	reg, err := mustLoadRegistry(formatter, path)
	if err != nil {
		return err
	}
	def, err := lookupFilter(formatter, reg, name)
	if err != nil {
		return err
	}

	var bindOpts []transport.Option
	if opts.IgnoreUnknown {
		bindOpts = append(bindOpts, transport.IgnoreUnknown())
	}
	req, err := transport.ShadowOf(def).Bind(values, bindOpts...)
	if err != nil {
		return outputRejected(formatter, err)
	}

	q, err := req.Apply(queryir.Plan{})
	if err != nil {
		return outputRejected(formatter, err)
	}
	plan := q.(queryir.Plan)
	formatter.VerboseLog("Bound %d parameter(s) for %s", len(req.Values()), def.Name())

	q, err = req.Apply(querysql.NewSelect(dialect, querysql.SourceOf(def.Entity())))
	if err != nil {
		return outputRejected(formatter, err)
	}
	query, args, err := q.(querysql.Select).Compile()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to render SQL", err)
	}

	snapshot, err := ir.MarshalCanonical(plan.Snapshot())
	if err != nil {
		return err
	}
	result := CompilationResult{
		Filter: def.Name(),
		Params: req.Values(),
		Plan:   snapshot,
		SQL:    query,
		Args:   args,
	}
	if result.Args == nil {
		result.Args = []any{}
	}
	return formatter.Success(compileText(plan, query, args), result)
}

func compileText(plan queryir.Plan, query string, args []any) string {
	var b strings.Builder
	if plan.Empty() {
		b.WriteString("(no predicates, no ordering)\n")
	} else {
		b.WriteString(plan.String())
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	b.WriteString(query)
	for i, a := range args {
		fmt.Fprintf(&b, "\n  $%d = %#v", i+1, a)
	}
	return b.String()
}

// outputRejected reports a request that failed validation. Anything that
// is not a validation failure is a command error.
func outputRejected(formatter *OutputFormatter, err error) error {
	re, ok := transport.AsRequestError(err)
	if !ok {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to apply request", err)
	}

	if formatter.Format == "json" {
		_ = formatter.Error(ErrCodeRejected, "request rejected", re.Report)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Request rejected (%s stage)\n\n", re.Report.Stage)
		for _, fe := range re.Report.Errors {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", fe.Kind, fe.Field, fe.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("request rejected with %d error(s)", len(re.Report.Errors)))
}
