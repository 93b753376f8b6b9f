package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       RegistrationRequest
		wantField string
	}{
		{
			name: "valid",
			req:  RegistrationRequest{Email: testEmail, Password: testPassword, ConfirmPassword: testPassword},
		},
		{
			name:      "missing email",
			req:       RegistrationRequest{Password: testPassword, ConfirmPassword: testPassword},
			wantField: "email",
		},
		{
			name:      "email without domain",
			req:       RegistrationRequest{Email: "alice@", Password: testPassword, ConfirmPassword: testPassword},
			wantField: "email",
		},
		{
			name:      "email with space",
			req:       RegistrationRequest{Email: "alice smith@example.com", Password: testPassword, ConfirmPassword: testPassword},
			wantField: "email",
		},
		{
			name: "password of 72 bytes",
			req: RegistrationRequest{
				Email:           testEmail,
				Password:        "Aa1!" + strings.Repeat("x", 68),
				ConfirmPassword: "Aa1!" + strings.Repeat("x", 68),
			},
		},
		{
			name: "password over 72 characters",
			req: RegistrationRequest{
				Email:           testEmail,
				Password:        "Aa1!" + strings.Repeat("x", 76),
				ConfirmPassword: "Aa1!" + strings.Repeat("x", 76),
			},
			wantField: "password",
		},
		{
			name: "multibyte password over 72 bytes",
			req: RegistrationRequest{
				Email:           testEmail,
				Password:        "Aa1!" + strings.Repeat("é", 40),
				ConfirmPassword: "Aa1!" + strings.Repeat("é", 40),
			},
			wantField: "password",
		},
		{
			name:      "no uppercase",
			req:       RegistrationRequest{Email: testEmail, Password: "secr3t!pass", ConfirmPassword: "secr3t!pass"},
			wantField: "password",
		},
		{
			name:      "no digit",
			req:       RegistrationRequest{Email: testEmail, Password: "Secret!pass", ConfirmPassword: "Secret!pass"},
			wantField: "password",
		},
		{
			name:      "no symbol",
			req:       RegistrationRequest{Email: testEmail, Password: "Secr3tpass", ConfirmPassword: "Secr3tpass"},
			wantField: "password",
		},
		{
			name:      "too short",
			req:       RegistrationRequest{Email: testEmail, Password: "Ab1!", ConfirmPassword: "Ab1!"},
			wantField: "password",
		},
		{
			name:      "confirmation mismatch",
			req:       RegistrationRequest{Email: testEmail, Password: testPassword, ConfirmPassword: testPassword + "x"},
			wantField: "confirmPassword",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			svcErr := requireKind(t, validationError(err), KindInvalidRequest, 400)
			require.Len(t, svcErr.Messages, 1)
			assert.Contains(t, svcErr.Messages[0], tt.wantField+": ")
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	assert.NoError(t, LoginRequest{Email: testEmail, Password: "x"}.Validate())
	assert.Error(t, LoginRequest{Email: testEmail}.Validate())
}
