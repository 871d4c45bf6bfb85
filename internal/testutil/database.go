// Package testutil provides shared test setup: an in-memory item store and
// sandbox fixtures modeled on the provider's test institutions.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/Veraticus/plaid-connect/internal/service"
	"github.com/Veraticus/plaid-connect/internal/storage"
)

// TestDB is a migrated in-memory database that is closed when the test ends.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// TestDBOptions configures SetupTestDBWithOptions.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Items          []model.Item
	SkipMigrations bool
}

// SetupTestDB creates a new in-memory test database with all migrations applied.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.MustSaveItem("test_bofa", testutil.BankOfAmerica(), model.ItemLinked)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Logf("failed to close test database: %v", closeErr)
		}
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	for i := range opts.Items {
		if err := store.SaveItem(ctx, &opts.Items[i]); err != nil {
			t.Fatalf("failed to seed item %q: %v", opts.Items[i].InstitutionName, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{Storage: store, t: t}
}

// MustSaveItem stores an item for inst under token.
func (db *TestDB) MustSaveItem(token string, inst model.Institution, status model.ItemStatus) model.Item {
	db.t.Helper()
	item := model.NewItem(inst, token, status)
	if err := db.Storage.SaveItem(context.Background(), &item); err != nil {
		db.t.Fatalf("failed to save item %s: %v", token, err)
	}
	return item
}

// MustRecordSync stores a completed download for token.
func (db *TestDB) MustRecordSync(token string, account model.Account, txns []model.Transaction, at time.Time) {
	db.t.Helper()
	if err := db.Storage.RecordSync(context.Background(), token, &account, txns, at); err != nil {
		db.t.Fatalf("failed to record sync for %s: %v", token, err)
	}
}
