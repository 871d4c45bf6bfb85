package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Veraticus/plaid-connect/internal/cli"
	"github.com/Veraticus/plaid-connect/internal/common"
	"github.com/Veraticus/plaid-connect/internal/config"
	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/Veraticus/plaid-connect/internal/plaid"
	"github.com/Veraticus/plaid-connect/internal/service"
	"github.com/Veraticus/plaid-connect/internal/storage"
	"github.com/Veraticus/plaid-connect/internal/tui"
	"github.com/prometheus/client_golang/prometheus"
)

// app holds what the commands share. Tests swap the factories for fakes.
type app struct {
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	registry *prometheus.Registry

	newAPI            func() (plaid.API, error)
	openStore         func(ctx context.Context) (service.Storage, error)
	promptCredentials func(ctx context.Context, inst model.Institution) (tui.Credentials, error)
	now               func() time.Time
	retry             common.RetryOptions

	cfgFile  string
	store    service.Storage
	prompter *cli.MFAPrompter
	metrics  *plaid.Metrics

	metricsOnce sync.Once
}

func newApp() *app {
	a := &app{
		in:       os.Stdin,
		out:      os.Stdout,
		errOut:   os.Stderr,
		registry: prometheus.NewRegistry(),
		now:      time.Now,
		retry:    common.DefaultRetryOptions(),
	}
	a.newAPI = a.plaidClient
	a.openStore = openStorage
	a.promptCredentials = func(ctx context.Context, inst model.Institution) (tui.Credentials, error) {
		return tui.PromptCredentials(ctx, inst)
	}
	return a
}

func (a *app) plaidClient() (plaid.API, error) {
	cfg, err := config.LoadPlaidConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load Plaid configuration: %w", err)
	}

	slog.Debug("Creating Plaid client", "config", cfg.String())

	client, err := plaid.NewClient(*cfg, plaid.WithMetrics(a.plaidMetrics()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Plaid client: %w", err)
	}
	return client, nil
}

// plaidMetrics registers the collectors once per process.
func (a *app) plaidMetrics() *plaid.Metrics {
	a.metricsOnce.Do(func() {
		a.metrics = plaid.NewMetrics(a.registry)
	})
	return a.metrics
}

// storage opens the database on first use.
func (a *app) storage(ctx context.Context) (service.Storage, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

func (a *app) mfaPrompter() *cli.MFAPrompter {
	if a.prompter == nil {
		a.prompter = cli.NewMFAPrompter(a.in, a.out)
	}
	return a.prompter
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
	a.store = nil
}

// openStorage initializes the storage service with proper path expansion.
func openStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// printf writes a line of user-facing output.
func (a *app) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(a.out, format+"\n", args...); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}
