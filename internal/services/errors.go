package services

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a failure of an account operation.
type Kind string

const (
	KindInvalidRequest       Kind = "invalid_request"
	KindAlreadyExists        Kind = "already_exists"
	KindRoleNotConfigured    Kind = "role_not_configured"
	KindRoleAssignmentFailed Kind = "role_assignment_failed"
	KindInvalidLinkFormat    Kind = "invalid_link_format"
	KindAccountNotFound      Kind = "account_not_found"
	KindTokenExpired         Kind = "token_expired"
	KindAlreadyConfirmed     Kind = "already_confirmed"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindEmailNotConfirmed    Kind = "email_not_confirmed"
	KindPersistence          Kind = "persistence_error"
	KindTokenExchange        Kind = "token_exchange_failed"
)

// Error is a failure that the HTTP layer can render directly: it carries the
// response status and the messages shown to the caller. Err holds the
// underlying cause, if any, and is never shown to the caller.
type Error struct {
	Kind     Kind
	Status   int
	Messages []string
	Err      error
}

func (e *Error) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Err != nil {
		if msg == "" {
			return string(e.Kind) + ": " + e.Err.Error()
		}
		return string(e.Kind) + ": " + msg + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, status int, cause error, messages ...string) *Error {
	return &Error{Kind: kind, Status: status, Messages: messages, Err: cause}
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

func errInvalidRequest(messages ...string) *Error {
	return newError(KindInvalidRequest, http.StatusBadRequest, nil, messages...)
}

func errAlreadyExists(cause error) *Error {
	return newError(KindAlreadyExists, http.StatusBadRequest, cause, "User already exists.")
}

func errRoleNotConfigured(cause error) *Error {
	return newError(KindRoleNotConfigured, http.StatusNotFound, cause, "The role does not exist")
}

func errRoleAssignmentFailed(cause error, messages ...string) *Error {
	return newError(KindRoleAssignmentFailed, http.StatusBadRequest, cause, messages...)
}

func errInvalidLinkFormat(cause error) *Error {
	return newError(KindInvalidLinkFormat, http.StatusBadRequest, cause, "Invalid confirmation link.")
}

func errAccountNotFound(cause error) *Error {
	return newError(KindAccountNotFound, http.StatusBadRequest, cause, "Unable to load the user.")
}

func errTokenExpired() *Error {
	return newError(KindTokenExpired, http.StatusBadRequest, nil, "The confirmation link has expired.")
}

func errAlreadyConfirmed() *Error {
	return newError(KindAlreadyConfirmed, http.StatusBadRequest, nil, "The e-mail address is already confirmed.")
}

func errAuthenticationFailed(cause error) *Error {
	return newError(KindAuthenticationFailed, http.StatusUnauthorized, cause, "Log in failed.")
}

func errEmailNotConfirmed() *Error {
	return newError(KindEmailNotConfirmed, http.StatusUnauthorized, nil, "Please confirm your e-mail.")
}

func errPersistence(cause error) *Error {
	return newError(KindPersistence, http.StatusInternalServerError, cause, "Email is not confirmed.")
}

func errTokenExchange(status int, message string, cause error) *Error {
	return newError(KindTokenExchange, status, cause, message)
}
