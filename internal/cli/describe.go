package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/transport"
)

// Description is the json payload of the describe command.
type Description struct {
	Filter      string            `json:"filter"`
	Entity      string            `json:"entity"`
	Fingerprint string            `json:"fingerprint"`
	Params      []transport.Param `json:"params"`
	Schema      json.RawMessage   `json:"schema"` // canonical form of the definition
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <schemas-path> <filter>",
		Short: "Show the query parameters a filter accepts",
		Long: `Describe one compiled filter: the flat query parameters it accepts on the
wire, their types and defaults, and the schema fingerprint.

Examples:
  sift describe ./schemas UserFilter
  sift describe ./schemas PostFilter --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runDescribe(opts *RootOptions, path, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, err := mustLoadRegistry(formatter, path)
	if err != nil {
		return err
	}
	def, err := lookupFilter(formatter, reg, name)
	if err != nil {
		return err
	}

	canonical, err := ir.MarshalCanonical(def.Describe())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to describe filter", err)
	}
	desc := Description{
		Filter:      def.Name(),
		Entity:      def.Entity().Name,
		Fingerprint: def.Fingerprint(),
		Params:      transport.ShadowOf(def).Params(),
		Schema:      canonical,
	}
	return formatter.Success(describeText(desc), desc)
}

func describeText(d Description) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (entity %s, fingerprint %s)\n\n", d.Filter, d.Entity, d.Fingerprint)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAM\tTYPE\tREQUIRED\tDEFAULT\tDESCRIPTION")
	for _, p := range d.Params {
		def := "-"
		if p.Default != nil {
			def = *p.Default
		}
		req := "no"
		if p.Required {
			req = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Type, req, def, p.Description)
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}
