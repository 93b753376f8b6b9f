package types

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered user of the system.
// It contains identity, credential, and email-verification metadata.
type Account struct {
	// ID is the stable unique identifier of the account.
	ID string `json:"id" db:"id"`

	// Email is the account's email address, stored lower-cased.
	// It is unique across all accounts.
	Email string `json:"email" db:"email"`

	// Username mirrors Email.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hashed representation of the account password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// VerificationToken is the opaque identifier mailed to the owner of Email.
	// It is unique across all accounts while set.
	VerificationToken *uuid.UUID `json:"-" db:"verification_token"`

	// VerificationIssuedAt is the UTC instant the verification token was issued.
	VerificationIssuedAt *time.Time `json:"-" db:"verification_issued_at"`

	// EmailConfirmed is set once the verification link has been followed.
	// It never transitions back to false.
	EmailConfirmed bool `json:"email_confirmed" db:"email_confirmed"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// VerificationStatus is the position of an account in the email
// verification lifecycle.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusVerified   VerificationStatus = "verified"
)

// Status reports the verification status of the account.
func (a Account) Status() VerificationStatus {
	if a.EmailConfirmed {
		return StatusVerified
	}
	return StatusUnverified
}
