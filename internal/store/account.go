package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bookify/apiserver/internal/dbx"
	"github.com/bookify/apiserver/types"
	"github.com/google/uuid"
)

const accountColumns = `id, email, username, password_hash, verification_token, verification_issued_at, email_confirmed, created_at, updated_at`

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (types.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail looks an account up by email, ignoring case.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

func (r *AccountRepository) GetByVerificationToken(ctx context.Context, token uuid.UUID) (types.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE verification_token = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, token))
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	const query = `
		INSERT INTO accounts (id, email, username, password_hash, verification_token, verification_issued_at, email_confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Email,
		account.Username,
		account.PasswordHash,
		nullUUID(account.VerificationToken),
		nullTime(account.VerificationIssuedAt),
		account.EmailConfirmed,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return types.Account{}, translateError(err)
	}
	return account, nil
}

// ConfirmEmail flips email_confirmed to true only if it is still false.
// It reports whether this call performed the transition, so that of two
// concurrent confirmations exactly one observes true.
func (r *AccountRepository) ConfirmEmail(ctx context.Context, id string) (bool, error) {
	const query = `
		UPDATE accounts
		SET email_confirmed = TRUE,
			updated_at = $1
		WHERE id = $2 AND email_confirmed = FALSE`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Delete removes an account together with its role assignments and claims.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM account_claims WHERE account_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM account_roles WHERE account_id = $1`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanAccount(row *sql.Row) (types.Account, error) {
	var account types.Account
	var token uuid.NullUUID
	var issuedAt sql.NullTime
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&token,
		&issuedAt,
		&account.EmailConfirmed,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	if token.Valid {
		account.VerificationToken = &token.UUID
	}
	if issuedAt.Valid {
		t := issuedAt.Time.UTC()
		account.VerificationIssuedAt = &t
	}
	return account, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
