package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when an account with the same email exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrTokenTaken is returned when a verification token is already in use.
	ErrTokenTaken = errors.New("verification token already in use")

	// ErrConflict is returned for any other unique constraint violation.
	ErrConflict = errors.New("conflict")

	// ErrInvalidReference is returned when a foreign key points nowhere.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

const (
	uniqueViolation     = pq.ErrorCode("23505")
	foreignKeyViolation = pq.ErrorCode("23503")

	constraintAccountEmail = "accounts_email_key"
	constraintAccountToken = "accounts_verification_token_key"
)

// translateError maps Postgres unique and foreign key violations onto store
// sentinels. Other errors are returned unchanged.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	if pqErr.Code == foreignKeyViolation {
		return ErrInvalidReference
	}
	if pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case constraintAccountEmail:
		return ErrEmailTaken
	case constraintAccountToken:
		return ErrTokenTaken
	default:
		return ErrConflict
	}
}
