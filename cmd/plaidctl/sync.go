package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Veraticus/plaid-connect/internal/cli"
	"github.com/Veraticus/plaid-connect/internal/common"
	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/Veraticus/plaid-connect/internal/plaid"
	"github.com/Veraticus/plaid-connect/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// syncOptions are the download parameters shared by every item in a run.
type syncOptions struct {
	from    *time.Time
	to      *time.Time
	account string
	pending bool
	wait    bool
}

// syncResult is one item's outcome, as printed in the summary table.
type syncResult struct {
	Err          error  `json:"-"`
	AccessToken  string `json:"access_token"`
	Institution  string `json:"institution"`
	Outcome      string `json:"outcome"`
	Account      string `json:"account,omitempty"`
	Error        string `json:"error,omitempty"`
	Transactions int    `json:"transactions"`
	Skipped      int    `json:"skipped,omitempty"`
	Code         int    `json:"code,omitempty"`
}

func (a *app) syncCmd() *cobra.Command {
	var (
		out         outputFlags
		all         bool
		account     string
		pending     bool
		fromFlag    string
		toFlag      string
		wait        bool
		watch       time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "sync [ACCESS_TOKEN]",
		Short: "Download transactions for linked items",
		Long: `Download transactions and account balances for one item, or for every
linked item with --all.

Items reported as not connected are marked and must be re-verified with
"plaidctl update". A freshly linked item may not have data yet; --wait polls
until it does.

Examples:
  plaidctl sync --all
  plaidctl sync test_bofa --account acct_123 --from 2024-01-01
  plaidctl sync --all --watch 1h --metrics-addr :9091`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if all == (len(args) == 1) {
				return common.NewUserError("give an access token or --all", nil)
			}

			opts := syncOptions{account: account, pending: pending, wait: wait}
			var err error
			if opts.from, err = parseDateFlag("from", fromFlag); err != nil {
				return err
			}
			if opts.to, err = parseDateFlag("to", toFlag); err != nil {
				return err
			}

			api, err := a.newAPI()
			if err != nil {
				return err
			}
			store, err := a.storage(ctx)
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				stop := a.serveMetrics(metricsAddr)
				defer stop()
			}

			run := func() error {
				items, err := a.itemsToSync(ctx, store, args)
				if err != nil {
					return err
				}
				results := a.syncItems(ctx, api, store, items, opts)
				if err := a.render(out, results, func() cli.Table { return syncTable(results) }); err != nil {
					return err
				}
				if failed := lo.CountBy(results, func(r syncResult) bool { return r.Err != nil }); failed > 0 && watch == 0 {
					return fmt.Errorf("%d of %d items failed to sync", failed, len(results))
				}
				return nil
			}

			if watch == 0 {
				return run()
			}

			ticker := time.NewTicker(watch)
			defer ticker.Stop()
			for {
				if err := run(); err != nil {
					return err
				}
				slog.Info("Waiting for next sync", "interval", watch)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	out.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "sync every linked item")
	cmd.Flags().StringVar(&account, "account", "", "only download this account; continues from its latest synced date")
	cmd.Flags().BoolVar(&pending, "pending", false, "include pending transactions")
	cmd.Flags().StringVar(&fromFlag, "from", "", "earliest date to download (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toFlag, "to", "", "latest date to download (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until a freshly linked item has data")
	cmd.Flags().DurationVar(&watch, "watch", 0, "keep syncing at this interval")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while syncing")

	return cmd
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := plaid.NewDateFormatter(time.UTC).Parse(value)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("--%s must be a YYYY-MM-DD date", name), err)
	}
	return &parsed, nil
}

// itemsToSync resolves the command arguments to stored items. Items still
// waiting on MFA are left out of --all.
func (a *app) itemsToSync(ctx context.Context, store service.Storage, args []string) ([]model.Item, error) {
	if len(args) == 1 {
		item, err := store.GetItem(ctx, args[0])
		if err != nil {
			return nil, common.NewUserError("unknown item; link it first", err)
		}
		return []model.Item{*item}, nil
	}

	items, err := store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	ready := lo.Filter(items, func(item model.Item, _ int) bool {
		return item.Status != model.ItemPendingMFA
	})
	if len(ready) == 0 {
		return nil, common.NewUserError("no linked items to sync; run 'plaidctl link' first", nil)
	}
	return ready, nil
}

// syncItems downloads every item concurrently and reports progress as each
// finishes. Results keep the order of items.
func (a *app) syncItems(ctx context.Context, api plaid.Syncer, store service.Storage, items []model.Item, opts syncOptions) []syncResult {
	bar := cli.NewSyncProgress(a.errOut, len(items))

	var (
		mu       sync.Mutex
		reported sync.WaitGroup
	)
	futures := make([]*plaid.Future[syncResult], len(items))
	for i, item := range items {
		futures[i] = plaid.Go(ctx, func(ctx context.Context) syncResult {
			return a.syncItem(ctx, api, store, item, opts)
		})
		reported.Add(1)
		futures[i].OnComplete(func(syncResult) {
			defer reported.Done()
			mu.Lock()
			defer mu.Unlock()
			_ = bar.Add(1)
		})
	}

	results := make([]syncResult, len(items))
	for i, future := range futures {
		result, err := future.Await(ctx)
		if err != nil {
			result = syncResult{
				AccessToken: items[i].AccessToken,
				Institution: items[i].InstitutionName,
				Outcome:     "canceled",
				Err:         err,
				Error:       err.Error(),
			}
		}
		results[i] = result
	}

	if ctx.Err() == nil {
		reported.Wait()
	}
	return results
}

func (a *app) syncItem(ctx context.Context, api plaid.Syncer, store service.Storage, item model.Item, opts syncOptions) syncResult {
	result := syncResult{AccessToken: item.AccessToken, Institution: item.InstitutionName}
	fail := func(err error) syncResult {
		result.Err = err
		result.Error = err.Error()
		return result
	}

	from := opts.from
	if from == nil && opts.account != "" {
		latest, err := store.GetLatestTransactionDate(ctx, opts.account)
		switch {
		case err == nil:
			from = &latest
		case !errors.Is(err, common.ErrNotFound):
			return fail(fmt.Errorf("failed to find latest transaction: %w", err))
		}
	}

	outcome, err := a.download(ctx, api, item.AccessToken, opts, from)
	result.Outcome = outcome.Kind.String()
	result.Code = outcome.Code
	if err != nil {
		return fail(err)
	}

	switch outcome.Kind {
	case plaid.OutcomeData:
		result.Account = outcome.Account.DisplayName()
		storable, skipped := lo.FilterReject(outcome.Transactions, func(tx model.Transaction, _ int) bool {
			return tx.ID != "" && tx.AccountID != "" && !tx.Date.IsZero()
		})
		result.Transactions = len(storable)
		result.Skipped = len(skipped)
		if len(skipped) > 0 {
			slog.Warn("Skipping transactions without an ID, account or date",
				"institution", item.InstitutionID,
				"skipped", len(skipped))
		}
		if err := store.RecordSync(ctx, item.AccessToken, outcome.Account, storable, a.now()); err != nil {
			return fail(fmt.Errorf("failed to store sync: %w", err))
		}
		slog.Info("Synced item",
			"institution", item.InstitutionID,
			"account", outcome.Account.ID,
			"transactions", len(outcome.Transactions))

	case plaid.OutcomeNotConnected:
		if err := store.UpdateItemStatus(ctx, item.AccessToken, model.ItemNotConnected, outcome.Code); err != nil {
			return fail(fmt.Errorf("failed to mark item not connected: %w", err))
		}
		slog.Warn("Item is no longer connected; run 'plaidctl update'",
			"institution", item.InstitutionID,
			"code", outcome.Code)
		return fail(common.NewUserError(fmt.Sprintf("%s needs 'plaidctl update'", item.InstitutionName), outcome.Err))

	default:
		slog.Info("No data yet", "institution", item.InstitutionID, "outcome", outcome.Kind, "code", outcome.Code)
	}

	return result
}

// download fetches once, or with wait polls while the provider has nothing
// to report yet.
func (a *app) download(ctx context.Context, api plaid.Syncer, token string, opts syncOptions, from *time.Time) (plaid.SyncOutcome, error) {
	var outcome plaid.SyncOutcome
	fetch := func() error {
		outcome = api.Download(ctx, token, opts.account, opts.pending, from, opts.to)
		if !opts.wait {
			return nil
		}
		if outcome.Kind == plaid.OutcomeEmpty || outcome.Kind == plaid.OutcomeIndeterminate {
			return &common.RetryableError{Err: common.ErrNoData, Retryable: true}
		}
		return nil
	}

	err := common.WithRetry(ctx, fetch, a.retry)
	if errors.Is(err, common.ErrMaxRetries) {
		slog.Warn("Gave up waiting for data", "attempts", a.retry.MaxAttempts)
		return outcome, nil
	}
	return outcome, err
}

// serveMetrics exposes the client metrics until the returned func is called.
func (a *app) serveMetrics(addr string) func() {
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Starting metrics HTTP server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown metrics server", "error", err)
		}
	}
}

func syncTable(results []syncResult) cli.Table {
	table := cli.Table{Headers: []string{"INSTITUTION", "TOKEN", "OUTCOME", "ACCOUNT", "TRANSACTIONS", "NOTE"}}
	for _, r := range results {
		note := ""
		if r.Err != nil {
			note = r.Error
		} else if r.Code != 0 {
			note = "code " + strconv.Itoa(r.Code)
		} else if r.Skipped > 0 {
			note = strconv.Itoa(r.Skipped) + " skipped"
		}
		table.Rows = append(table.Rows, []string{
			r.Institution,
			model.RedactToken(r.AccessToken),
			r.Outcome,
			r.Account,
			strconv.Itoa(r.Transactions),
			note,
		})
	}
	return table
}
