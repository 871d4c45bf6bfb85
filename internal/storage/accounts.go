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

const accountColumns = `id, access_token, name, number, type, subtype, institution_type,
	balance_available, balance_current`

// SaveAccount stores the latest snapshot of an account linked through accessToken.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, accessToken string, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accessToken, "accessToken"); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveAccountTx(ctx, tx, accessToken, account)
	})
}

func (s *SQLiteStorage) saveAccountTx(ctx context.Context, q queryable, accessToken string, account *model.Account) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			name = excluded.name,
			number = excluded.number,
			type = excluded.type,
			subtype = excluded.subtype,
			institution_type = excluded.institution_type,
			balance_available = excluded.balance_available,
			balance_current = excluded.balance_current,
			updated_at = excluded.updated_at
	`,
		account.ID,
		accessToken,
		account.Name,
		account.Number,
		account.Type,
		account.Subtype,
		account.InstitutionType,
		nullFloat(account.Balance.Available),
		nullFloat(account.Balance.Current),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// GetAccount returns the stored snapshot of one account.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// GetAccounts returns the account snapshots linked through accessToken.
func (s *SQLiteStorage) GetAccounts(ctx context.Context, accessToken string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accessToken, "accessToken"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE access_token = ?
		ORDER BY name, id
	`, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan account: %w", scanErr)
		}
		accounts = append(accounts, *account)
	}

	return accounts, rows.Err()
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account         model.Account
		accessToken     string
		number          sql.NullString
		accountType     sql.NullString
		subtype         sql.NullString
		institutionType sql.NullString
		available       sql.NullFloat64
		current         sql.NullFloat64
	)

	err := row.Scan(
		&account.ID,
		&accessToken,
		&account.Name,
		&number,
		&accountType,
		&subtype,
		&institutionType,
		&available,
		&current,
	)
	if err != nil {
		return nil, err
	}

	account.Number = number.String
	account.Type = accountType.String
	account.Subtype = subtype.String
	account.InstitutionType = institutionType.String
	if available.Valid {
		account.Balance.Available = &available.Float64
	}
	if current.Valid {
		account.Balance.Current = &current.Float64
	}

	return &account, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
