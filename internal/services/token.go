package services

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var errNonCanonicalToken = errors.New("token is not in canonical form")

// EncodeToken renders a verification token in its URL-safe form: unpadded
// base64url of the token's canonical text.
func EncodeToken(token uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(token.String()))
}

// DecodeToken reverses EncodeToken. Trailing padding is tolerated; any
// other deviation from the canonical form is rejected.
func DecodeToken(encoded string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return uuid.Nil, err
	}
	text := string(raw)
	token, err := uuid.Parse(text)
	if err != nil {
		return uuid.Nil, err
	}
	if token.String() != strings.ToLower(text) {
		return uuid.Nil, errNonCanonicalToken
	}
	return token, nil
}
