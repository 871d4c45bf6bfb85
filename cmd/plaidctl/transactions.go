package main

import (
	"fmt"

	"github.com/Veraticus/plaid-connect/internal/cli"
	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/Veraticus/plaid-connect/internal/service"
	"github.com/spf13/cobra"
)

// periodFlags select a date range and whether pending entries count.
type periodFlags struct {
	from    string
	to      string
	pending bool
}

func (f *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "latest date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&f.pending, "pending", false, "include pending transactions")
}

func (f periodFlags) filter(accountID string) (service.TransactionFilter, error) {
	from, err := parseDateFlag("from", f.from)
	if err != nil {
		return service.TransactionFilter{}, err
	}
	to, err := parseDateFlag("to", f.to)
	if err != nil {
		return service.TransactionFilter{}, err
	}
	return service.TransactionFilter{
		AccountID:      accountID,
		From:           from,
		To:             to,
		ExcludePending: !f.pending,
	}, nil
}

func (a *app) transactionsCmd() *cobra.Command {
	var (
		out      outputFlags
		period   periodFlags
		currency string
	)

	cmd := &cobra.Command{
		Use:   "transactions [ACCOUNT_ID]",
		Short: "List synced transactions",
		Long: `List transactions stored by previous syncs, newest last.

Examples:
  plaidctl transactions acct_123 --from 2024-01-01
  plaidctl transactions --pending -o json --jq '.[] | select(.amount > 100)'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID := ""
			if len(args) == 1 {
				accountID = args[0]
			}
			filter, err := period.filter(accountID)
			if err != nil {
				return err
			}

			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			txns, err := store.GetTransactions(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}

			if len(txns) == 0 && out.jq == "" && out.format == string(cli.OutputTable) {
				a.printf("%s", cli.FormatInfo("No transactions found"))
				return nil
			}

			return a.render(out, txns, func() cli.Table {
				return transactionTable(txns, currency)
			})
		},
	}

	out.register(cmd)
	period.register(cmd)
	cmd.Flags().StringVar(&currency, "currency", cli.DefaultCurrency, "currency amounts are shown in")
	return cmd
}

func transactionTable(txns []model.Transaction, currency string) cli.Table {
	table := cli.Table{Headers: []string{"DATE", "ACCOUNT", "MERCHANT", "AMOUNT", "CATEGORY", "PENDING"}}
	for _, txn := range txns {
		merchant := txn.MerchantName
		if merchant == "" {
			merchant = txn.Name
		}
		pending := ""
		if txn.Pending {
			pending = "yes"
		}
		table.Rows = append(table.Rows, []string{
			txn.Date.Format(model.DateLayout),
			txn.AccountID,
			merchant,
			cli.FormatTransactionAmount(txn, currency),
			txn.CategoryPath(),
			pending,
		})
	}
	return table
}
