package services

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	passwordSymbols = "#?!@$%^&*-"

	// bcrypt only accepts this many bytes of input.
	maxPasswordBytes = 72
)

// RegistrationRequest is the input of AccountService.Register.
type RegistrationRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate checks email syntax, the password policy (8..72 characters and
// at most 72 bytes, with an uppercase letter, a digit and a symbol) and the
// confirmation.
func (r RegistrationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 256), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, maxPasswordBytes), validation.By(passwordByteLength), validation.By(passwordComplexity)),
		validation.Field(&r.ConfirmPassword, validation.By(equalsString(r.Password))),
	)
}

// LoginRequest is the input of AccountService.Login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func passwordByteLength(value interface{}) error {
	password, _ := value.(string)
	if len(password) > maxPasswordBytes {
		return errors.New("the length must be no more than 72 bytes")
	}
	return nil
}

func passwordComplexity(value interface{}) error {
	password, _ := value.(string)
	var upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if !upper || !digit || !symbol {
		return errors.New("at least 1 uppercase, at least 1 number, at least 1 special character")
	}
	return nil
}

func equalsString(expected string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != expected {
			return errors.New("the password and confirmation password do not match")
		}
		return nil
	}
}

// validationError converts ozzo validation errors into an invalid request
// error with one "field: message" entry per failing field.
func validationError(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return errInvalidRequest(err.Error())
	}
	fields := make([]string, 0, len(fieldErrs))
	for field := range fieldErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, field+": "+fieldErrs[field].Error())
	}
	return errInvalidRequest(messages...)
}
