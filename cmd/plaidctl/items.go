package main

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/plaid-connect/internal/cli"
	"github.com/Veraticus/plaid-connect/internal/common"
	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/spf13/cobra"
)

func (a *app) itemsCmd() *cobra.Command {
	var (
		out        outputFlags
		showTokens bool
	)

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List linked institutions",
		Long: `List the items plaidctl has linked, with their status and last sync.

Access tokens are shortened in the table; use --show-tokens or -o json to see
them in full.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			items, err := store.ListItems(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list items: %w", err)
			}

			if len(items) == 0 && out.jq == "" && out.format == string(cli.OutputTable) {
				a.printf("%s", cli.FormatInfo("No linked items; run 'plaidctl link INSTITUTION_ID'"))
				return nil
			}

			return a.render(out, items, func() cli.Table {
				return itemTable(items, showTokens)
			})
		},
	}

	out.register(cmd)
	cmd.Flags().BoolVar(&showTokens, "show-tokens", false, "print full access tokens")

	cmd.AddCommand(a.itemAccountsCmd())
	cmd.AddCommand(a.itemRemoveCmd())

	return cmd
}

func (a *app) itemAccountsCmd() *cobra.Command {
	var (
		out      outputFlags
		currency string
	)

	cmd := &cobra.Command{
		Use:   "accounts ACCESS_TOKEN",
		Short: "Show the accounts and balances of an item as of its last sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.storage(ctx)
			if err != nil {
				return err
			}
			if _, err := store.GetItem(ctx, args[0]); err != nil {
				return common.NewUserError("unknown item", err)
			}

			accounts, err := store.GetAccounts(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get accounts: %w", err)
			}

			if len(accounts) == 0 && out.jq == "" && out.format == string(cli.OutputTable) {
				a.printf("%s", cli.FormatInfo("No accounts yet; run 'plaidctl sync "+args[0]+"'"))
				return nil
			}

			return a.render(out, accounts, func() cli.Table {
				table := cli.Table{Headers: []string{"ID", "NAME", "TYPE", "AVAILABLE", "CURRENT"}}
				for _, acct := range accounts {
					kind := acct.Type
					if acct.Subtype != "" {
						kind += "/" + acct.Subtype
					}
					table.Rows = append(table.Rows, []string{
						acct.ID,
						acct.DisplayName(),
						kind,
						cli.FormatBalance(acct.Balance.Available, currency),
						cli.FormatBalance(acct.Balance.Current, currency),
					})
				}
				return table
			})
		},
	}

	out.register(cmd)
	cmd.Flags().StringVar(&currency, "currency", cli.DefaultCurrency, "currency balances are shown in")
	return cmd
}

func (a *app) itemRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ACCESS_TOKEN",
		Short: "Forget an item and everything synced for it",
		Long: `Forget an item locally, with its accounts and their transactions.
The link itself is not revoked at the provider.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			if err := store.DeleteItem(cmd.Context(), args[0]); err != nil {
				return common.NewUserError("could not remove item", err)
			}

			a.printf("%s", cli.FormatSuccess("Removed item "+model.RedactToken(args[0])))
			return nil
		},
	}
}

func itemTable(items []model.Item, showTokens bool) cli.Table {
	table := cli.Table{Headers: []string{"TOKEN", "INSTITUTION", "STATUS", "LAST SYNC", "CODE"}}
	for _, item := range items {
		token := item.AccessToken
		if !showTokens {
			token = model.RedactToken(token)
		}

		status := string(item.Status)
		switch item.Status {
		case model.ItemLinked:
			status = cli.SuccessStyle.Render(status)
		case model.ItemNotConnected:
			status = cli.ErrorStyle.Render(status)
		case model.ItemPendingMFA:
			status = cli.WarningStyle.Render(status)
		}

		lastSync := "never"
		if item.LastSyncedAt != nil {
			lastSync = item.LastSyncedAt.Local().Format("2006-01-02 15:04")
		}

		code := ""
		if item.LastCode != 0 {
			code = strconv.Itoa(item.LastCode)
		}

		table.Rows = append(table.Rows, []string{token, item.InstitutionName, status, lastSync, code})
	}
	return table
}
