package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bookify/apiserver/types"
)

// EmailTemplateRepository handles persistence for email templates.
type EmailTemplateRepository struct {
	db *sql.DB
}

func NewEmailTemplateRepository(db *sql.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db}
}

func (r *EmailTemplateRepository) GetByName(ctx context.Context, name string) (types.EmailTemplate, error) {
	const query = `SELECT id, name, subject, body FROM email_templates WHERE name = $1`
	var tmpl types.EmailTemplate
	err := r.db.QueryRowContext(ctx, query, name).Scan(&tmpl.ID, &tmpl.Name, &tmpl.Subject, &tmpl.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.EmailTemplate{}, ErrNotFound
		}
		return types.EmailTemplate{}, err
	}
	return tmpl, nil
}
