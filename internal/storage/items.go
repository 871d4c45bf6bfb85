package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/plaid-connect/internal/common"
	"github.com/Veraticus/plaid-connect/internal/model"
)

const itemColumns = `access_token, institution_id, institution_name, institution_type,
	status, created_at, updated_at, last_synced_at, last_code`

// SaveItem inserts or updates a linked item keyed by its access token.
func (s *SQLiteStorage) SaveItem(ctx context.Context, item *model.Item) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateItem(item); err != nil {
		return err
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(access_token) DO UPDATE SET
			institution_id = excluded.institution_id,
			institution_name = excluded.institution_name,
			institution_type = excluded.institution_type,
			status = excluded.status,
			updated_at = excluded.updated_at,
			last_code = excluded.last_code
	`,
		item.AccessToken,
		item.InstitutionID,
		item.InstitutionName,
		item.InstitutionType,
		string(item.Status),
		item.CreatedAt,
		item.UpdatedAt,
		nullTime(item.LastSyncedAt),
		item.LastCode,
	)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}

	return nil
}

// GetItem returns the item with the given access token.
func (s *SQLiteStorage) GetItem(ctx context.Context, accessToken string) (*model.Item, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accessToken, "accessToken"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE access_token = ?`, accessToken)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", model.RedactToken(accessToken), common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// ListItems returns every item ordered by institution name.
func (s *SQLiteStorage) ListItems(ctx context.Context) ([]model.Item, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM items
		ORDER BY institution_name, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.Item
	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan item: %w", scanErr)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

// UpdateItemStatus records the latest known status and provider code of an item.
func (s *SQLiteStorage) UpdateItemStatus(ctx context.Context, accessToken string, status model.ItemStatus, code int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accessToken, "accessToken"); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET status = ?, last_code = ?, updated_at = ?
		WHERE access_token = ?
	`, string(status), code, time.Now().UTC(), accessToken)
	if err != nil {
		return fmt.Errorf("failed to update item status: %w", err)
	}

	return requireAffected(result, accessToken)
}

// ReplaceItemToken moves an item to a new access token, for links whose final
// token differs from the one issued with the MFA challenge. Accounts follow
// through the foreign key.
func (s *SQLiteStorage) ReplaceItemToken(ctx context.Context, oldToken, newToken string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(oldToken, "oldToken"); err != nil {
		return err
	}
	if err := validateString(newToken, "newToken"); err != nil {
		return err
	}
	if oldToken == newToken {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE items SET access_token = ?, updated_at = ? WHERE access_token = ?
		`, newToken, time.Now().UTC(), oldToken)
		if err != nil {
			return fmt.Errorf("failed to replace item token: %w", err)
		}
		return requireAffected(result, oldToken)
	})
}

// DeleteItem removes an item together with its account snapshots and their
// transactions.
func (s *SQLiteStorage) DeleteItem(ctx context.Context, accessToken string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accessToken, "accessToken"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM transactions WHERE account_id IN (
				SELECT id FROM accounts WHERE access_token = ?
			)
		`, accessToken); err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE access_token = ?`, accessToken); err != nil {
			return fmt.Errorf("failed to delete accounts: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE access_token = ?`, accessToken)
		if err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		return requireAffected(result, accessToken)
	})
}

// RecordSync stores the result of a successful download in one transaction:
// the account snapshot, the transactions and the item's sync timestamp.
func (s *SQLiteStorage) RecordSync(ctx context.Context, accessToken string, account *model.Account, transactions []model.Transaction, syncedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accessToken, "accessToken"); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	if len(transactions) > 0 {
		if err := validateTransactions(transactions); err != nil {
			return err
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.saveAccountTx(ctx, tx, accessToken, account); err != nil {
			return err
		}
		if len(transactions) > 0 {
			if err := s.saveTransactionsTx(ctx, tx, transactions); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE items SET status = ?, last_code = 0, last_synced_at = ?, updated_at = ?
			WHERE access_token = ?
		`, string(model.ItemLinked), syncedAt.UTC(), time.Now().UTC(), accessToken)
		if err != nil {
			return fmt.Errorf("failed to mark item synced: %w", err)
		}
		return requireAffected(result, accessToken)
	})
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item     model.Item
		status   string
		lastSync sql.NullTime
		lastCode sql.NullInt64
	)

	err := row.Scan(
		&item.AccessToken,
		&item.InstitutionID,
		&item.InstitutionName,
		&item.InstitutionType,
		&status,
		&item.CreatedAt,
		&item.UpdatedAt,
		&lastSync,
		&lastCode,
	)
	if err != nil {
		return nil, err
	}

	item.Status = model.ItemStatus(status)
	if lastSync.Valid {
		synced := lastSync.Time
		item.LastSyncedAt = &synced
	}
	item.LastCode = int(lastCode.Int64)

	return &item, nil
}

func requireAffected(result sql.Result, accessToken string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %s: %w", model.RedactToken(accessToken), common.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
