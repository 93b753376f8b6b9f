package store

import (
	"context"
	"database/sql"

	"github.com/bookify/apiserver/types"
)

// ClaimRepository handles persistence for account claims.
type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) Add(ctx context.Context, accountID string, claim types.Claim) error {
	const query = `INSERT INTO account_claims (account_id, claim_type, claim_value) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, accountID, claim.Type, claim.Value); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *ClaimRepository) ListForAccount(ctx context.Context, accountID string) ([]types.Claim, error) {
	const query = `
		SELECT claim_type, claim_value
		FROM account_claims
		WHERE account_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := make([]types.Claim, 0, 1)
	for rows.Next() {
		var claim types.Claim
		if err := rows.Scan(&claim.Type, &claim.Value); err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return claims, nil
}
