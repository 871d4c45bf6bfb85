package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/Veraticus/plaid-connect/internal/cli"
	"github.com/Veraticus/plaid-connect/internal/common"
	"github.com/Veraticus/plaid-connect/internal/config"
	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/Veraticus/plaid-connect/internal/ofx"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// exportDocument is the structured form of an export.
type exportDocument struct {
	Account      model.Account       `json:"account" yaml:"account"`
	Transactions []model.Transaction `json:"transactions" yaml:"transactions"`
}

func (a *app) exportCmd() *cobra.Command {
	var (
		period   periodFlags
		format   string
		file     string
		bankID   string
		currency string
		verify   bool
	)

	cmd := &cobra.Command{
		Use:   "export ACCOUNT_ID",
		Short: "Export an account's synced transactions as OFX",
		Long: `Write an account's synced transactions as an OFX statement that personal
finance tools can import, or as JSON or YAML.

OFX amounts are signed the bank's way: money leaving the account is negative.
Pending transactions are left out unless --pending is given.

Examples:
  plaidctl export acct_123 --from 2024-01-01 --file ~/Downloads/checking.ofx
  plaidctl export acct_123 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			filter, err := period.filter(args[0])
			if err != nil {
				return err
			}

			store, err := a.storage(ctx)
			if err != nil {
				return err
			}

			account, err := store.GetAccount(ctx, args[0])
			if err != nil {
				return common.NewUserError("unknown account; sync its item first", err)
			}

			txns, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}

			var buf bytes.Buffer
			count := len(txns)
			switch format {
			case "ofx":
				stmt := statement(*account, txns, filter.From, filter.To, a.now())
				stmt.BankID = bankID
				stmt.Currency = currency

				writer := ofx.NewWriter(ofx.WithPending(period.pending), ofx.WithClock(a.now))
				written, err := writer.Write(&buf, stmt)
				if err != nil {
					return fmt.Errorf("failed to export OFX: %w", err)
				}
				count = written
				if verify {
					if err := verifyExport(buf.Bytes(), *account, txns, written, period.pending); err != nil {
						return err
					}
				}
			case "json", "yaml":
				doc := exportDocument{Account: *account, Transactions: txns}
				if err := cli.Render(&buf, cli.OutputFormat(format), doc, nil); err != nil {
					return err
				}
			default:
				return common.NewUserError(fmt.Sprintf("unknown export format %q (want ofx, json or yaml)", format), nil)
			}

			return a.writeExport(file, &buf, count)
		},
	}

	period.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "ofx", "export format (ofx, json, yaml)")
	cmd.Flags().StringVar(&file, "file", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&bankID, "bank-id", "", "routing number written to bank statements")
	cmd.Flags().StringVar(&currency, "currency", cli.DefaultCurrency, "statement currency")
	cmd.Flags().BoolVar(&verify, "verify", false, "parse the OFX back and check it matches before writing")

	return cmd
}

// statement spans the requested range, or the transactions themselves when
// a bound is open.
func statement(account model.Account, txns []model.Transaction, from, to *time.Time, now time.Time) ofx.Statement {
	stmt := ofx.Statement{Account: account, Transactions: txns, End: now}
	if len(txns) > 0 {
		dates := lo.Map(txns, func(t model.Transaction, _ int) time.Time { return t.Date })
		stmt.Start = lo.MinBy(dates, func(a, b time.Time) bool { return a.Before(b) })
		stmt.End = lo.MaxBy(dates, func(a, b time.Time) bool { return a.After(b) })
	}
	if from != nil {
		stmt.Start = *from
	}
	if to != nil {
		stmt.End = *to
	}
	if stmt.Start.IsZero() {
		stmt.Start = stmt.End
	}
	return stmt
}

// verifyExport reads the document back and compares it with what was exported.
func verifyExport(doc []byte, account model.Account, txns []model.Transaction, written int, pending bool) error {
	stmt, err := ofx.ReadStatement(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("exported OFX does not parse: %w", err)
	}
	if stmt.Account.ID != account.ID {
		return fmt.Errorf("exported OFX is for account %s, want %s", stmt.Account.ID, account.ID)
	}

	exported := lo.Filter(txns, func(t model.Transaction, _ int) bool { return pending || !t.Pending })
	if len(stmt.Transactions) != written || len(stmt.Transactions) != len(exported) {
		return fmt.Errorf("exported OFX has %d transactions, want %d", len(stmt.Transactions), len(exported))
	}

	want := lo.SumBy(exported, func(t model.Transaction) float64 { return t.Amount })
	got := lo.SumBy(stmt.Transactions, func(t model.Transaction) float64 { return t.Amount })
	if math.Abs(want-got) > 0.005*float64(len(exported)+1) {
		return fmt.Errorf("exported OFX totals %.2f, want %.2f", got, want)
	}

	slog.Debug("Verified OFX export", "transactions", len(stmt.Transactions), "total", got)
	return nil
}

func (a *app) writeExport(file string, buf *bytes.Buffer, count int) error {
	if file == "" {
		_, err := io.Copy(a.out, buf)
		return err
	}

	path := config.ExpandPath(file)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	a.printf("%s", cli.FormatSuccess(fmt.Sprintf("Exported %d transactions to %s", count, path)))
	return nil
}
