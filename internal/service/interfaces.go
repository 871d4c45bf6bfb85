// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/plaid-connect/internal/model"
)

// TransactionFilter narrows a transaction query. Zero values match everything.
type TransactionFilter struct {
	From           *time.Time
	To             *time.Time
	AccountID      string
	ExcludePending bool
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Item operations
	SaveItem(ctx context.Context, item *model.Item) error
	GetItem(ctx context.Context, accessToken string) (*model.Item, error)
	ListItems(ctx context.Context) ([]model.Item, error)
	UpdateItemStatus(ctx context.Context, accessToken string, status model.ItemStatus, code int) error
	ReplaceItemToken(ctx context.Context, oldToken, newToken string) error
	DeleteItem(ctx context.Context, accessToken string) error
	RecordSync(ctx context.Context, accessToken string, account *model.Account, transactions []model.Transaction, syncedAt time.Time) error

	// Account operations
	SaveAccount(ctx context.Context, accessToken string, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetAccounts(ctx context.Context, accessToken string) ([]model.Account, error)

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetLatestTransactionDate(ctx context.Context, accountID string) (time.Time, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
