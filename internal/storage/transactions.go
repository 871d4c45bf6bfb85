package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/plaid-connect/internal/common"
	"github.com/Veraticus/plaid-connect/internal/model"
	"github.com/Veraticus/plaid-connect/internal/service"
)

const transactionColumns = `id, account_id, date, name, merchant_name, amount,
	categories, category_id, transaction_type, location, pending`

// SaveTransactions saves multiple transactions to the database. A transaction
// that already exists is updated in place, so pending entries settle.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveTransactionsTx(ctx, tx, transactions)
	})
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			date = excluded.date,
			name = excluded.name,
			merchant_name = excluded.merchant_name,
			amount = excluded.amount,
			categories = excluded.categories,
			category_id = excluded.category_id,
			transaction_type = excluded.transaction_type,
			location = excluded.location,
			pending = excluded.pending,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, txn := range transactions {
		categoriesJSON := ""
		if len(txn.Category) > 0 {
			if categoriesBytes, marshalErr := json.Marshal(txn.Category); marshalErr == nil {
				categoriesJSON = string(categoriesBytes)
			}
		}

		locationJSON := ""
		if txn.Location != (model.Location{}) {
			if locationBytes, marshalErr := json.Marshal(txn.Location); marshalErr == nil {
				locationJSON = string(locationBytes)
			}
		}

		_, err = stmt.ExecContext(ctx,
			txn.ID,
			txn.AccountID,
			txn.Date.Format(model.DateLayout),
			txn.Name,
			txn.MerchantName,
			txn.Amount,
			categoriesJSON,
			txn.CategoryID,
			txn.Type,
			locationJSON,
			txn.Pending,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return nil
}

// GetTransactions returns stored transactions matching filter, oldest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.To, *filter.From)
	}

	var (
		clauses []string
		args    []any
	)
	if filter.AccountID != "" {
		clauses = append(clauses, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.From != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.From.Format(model.DateLayout))
	}
	if filter.To != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.To.Format(model.DateLayout))
	}
	if filter.ExcludePending {
		clauses = append(clauses, "pending = 0")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// GetTransactionByID retrieves a single transaction by its ID.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}

	return &transactions[0], nil
}

// GetTransactionCount returns the total number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetLatestTransactionDate returns the date of the newest settled transaction
// of an account, the natural lower bound of the next sync.
func (s *SQLiteStorage) GetLatestTransactionDate(ctx context.Context, accountID string) (time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return time.Time{}, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return time.Time{}, err
	}

	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(date) FROM transactions WHERE account_id = ? AND pending = 0
	`, accountID).Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("failed to get latest transaction date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, common.ErrNotFound
	}

	date, err := time.Parse(model.DateLayout, latest.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: stored date %q", common.ErrDatabaseCorrupted, latest.String)
	}
	return date, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		var (
			txn            model.Transaction
			date           string
			merchantName   sql.NullString
			categoriesJSON sql.NullString
			categoryID     sql.NullString
			txType         sql.NullString
			locationJSON   sql.NullString
		)

		err := rows.Scan(
			&txn.ID,
			&txn.AccountID,
			&date,
			&txn.Name,
			&merchantName,
			&txn.Amount,
			&categoriesJSON,
			&categoryID,
			&txType,
			&locationJSON,
			&txn.Pending,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		txn.Date, err = time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %s has date %q", common.ErrDatabaseCorrupted, txn.ID, date)
		}

		if categoriesJSON.Valid && categoriesJSON.String != "" {
			if err := json.Unmarshal([]byte(categoriesJSON.String), &txn.Category); err != nil {
				slog.Warn("Failed to parse categories JSON", "error", err, "json", categoriesJSON.String)
			}
		}
		if locationJSON.Valid && locationJSON.String != "" {
			if err := json.Unmarshal([]byte(locationJSON.String), &txn.Location); err != nil {
				slog.Warn("Failed to parse location JSON", "error", err, "json", locationJSON.String)
			}
		}

		txn.MerchantName = merchantName.String
		txn.CategoryID = categoryID.String
		txn.Type = txType.String

		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
