package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bookify/apiserver/types"
)

// RoleRepository handles persistence for roles and role assignments.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetByName(ctx context.Context, name types.RoleName) (types.Role, error) {
	const query = `SELECT id, name FROM roles WHERE name = $1`
	var role types.Role
	err := r.db.QueryRowContext(ctx, query, string(name)).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Role{}, ErrNotFound
		}
		return types.Role{}, err
	}
	return role, nil
}

func (r *RoleRepository) AssignToAccount(ctx context.Context, accountID string, role types.Role) error {
	const query = `INSERT INTO account_roles (account_id, role_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, accountID, role.ID); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *RoleRepository) ListForAccount(ctx context.Context, accountID string) ([]types.Role, error) {
	const query = `
		SELECT r.id, r.name
		FROM roles r
		JOIN account_roles ar ON ar.role_id = r.id
		WHERE ar.account_id = $1
		ORDER BY r.id`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]types.Role, 0, 1)
	for rows.Next() {
		var role types.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}
