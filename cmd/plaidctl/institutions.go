package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/plaid-connect/internal/cli"
	"github.com/Veraticus/plaid-connect/internal/common"
	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// outputFlags are shared by commands that print structured results.
type outputFlags struct {
	format string
	jq     string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "output", "o", "table", "output format (table, json, yaml)")
	cmd.Flags().StringVar(&f.jq, "jq", "", "jq filter applied to the JSON result")
}

// render prints data in the requested format, or the jq filter's results.
func (a *app) render(flags outputFlags, data any, table func() cli.Table) error {
	if flags.jq != "" {
		filter, err := cli.CompileFilter(flags.jq)
		if err != nil {
			return common.NewUserError("invalid --jq filter", err)
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return cli.RenderJQ(a.out, filter, raw)
	}

	format, err := cli.ParseOutputFormat(flags.format)
	if err != nil {
		return common.NewUserError("invalid --output", err)
	}
	return cli.Render(a.out, format, data, table)
}

func (a *app) institutionsCmd() *cobra.Command {
	var (
		out    outputFlags
		source string
		count  int
		skip   int
	)

	cmd := &cobra.Command{
		Use:   "institutions [query]",
		Short: "List institutions that can be linked",
		Long: `List the institutions Plaid can link, optionally filtered by name.

The plaid source is Plaid's own catalog; the intuit source is the long tail
of smaller institutions, fetched a page at a time with --count and --skip.

Examples:
  plaidctl institutions
  plaidctl institutions "bank of america"
  plaidctl institutions --source intuit --count 100 --skip 200`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.newAPI()
			if err != nil {
				return err
			}

			var list []model.Institution
			switch model.InstitutionSource(source) {
			case model.SourcePlaid:
				list = api.ListInstitutions(cmd.Context()).Institutions
			case model.SourceIntuit:
				list = api.ListIntuitInstitutions(cmd.Context(), count, skip).Institutions
			default:
				return common.NewUserError(fmt.Sprintf("unknown source %q (want plaid or intuit)", source), nil)
			}

			if len(args) == 1 {
				query := strings.ToLower(args[0])
				list = lo.Filter(list, func(inst model.Institution, _ int) bool {
					return strings.Contains(strings.ToLower(inst.Name), query)
				})
			}

			if len(list) == 0 && out.jq == "" && out.format == string(cli.OutputTable) {
				a.printf("%s", cli.FormatInfo("No institutions found"))
				return nil
			}

			return a.render(out, list, func() cli.Table {
				return institutionTable(list)
			})
		},
	}

	out.register(cmd)
	cmd.Flags().StringVar(&source, "source", string(model.SourcePlaid), "catalog to list (plaid, intuit)")
	cmd.Flags().IntVar(&count, "count", 50, "intuit page size")
	cmd.Flags().IntVar(&skip, "skip", 0, "intuit entries to skip")

	cmd.AddCommand(a.institutionShowCmd())

	return cmd
}

func (a *app) institutionShowCmd() *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "show INSTITUTION_ID",
		Short: "Show one institution's credential and MFA requirements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.newAPI()
			if err != nil {
				return err
			}

			result := api.GetInstitution(cmd.Context(), args[0])
			if result.Institution == nil {
				return institutionNotFound(args[0], result.Response)
			}

			inst := *result.Institution
			return a.render(out, inst, func() cli.Table {
				return institutionTable([]model.Institution{inst})
			})
		},
	}

	out.register(cmd)
	return cmd
}

func institutionTable(list []model.Institution) cli.Table {
	table := cli.Table{Headers: []string{"ID", "NAME", "TYPE", "SOURCE", "MFA", "PIN"}}
	for _, inst := range list {
		mfa := "no"
		if inst.HasMFA {
			mfa = "yes"
			if len(inst.MFA) > 0 {
				mfa = strings.Join(inst.MFA, ",")
			}
		}
		pin := "no"
		if inst.RequiresPIN() {
			pin = "yes"
		}
		table.Rows = append(table.Rows, []string{inst.ID, inst.Name, inst.Type, string(inst.Source), mfa, pin})
	}
	return table
}
