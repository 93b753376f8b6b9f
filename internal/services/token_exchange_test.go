package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bookify/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, discoveryHits *int32) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case discoveryPath:
			atomic.AddInt32(discoveryHits, 1)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"token_endpoint": server.URL + "/connect/token",
			})
		case "/connect/token":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "password", r.PostForm.Get("grant_type"))
			assert.Equal(t, "bookify", r.PostForm.Get("client_id"))
			assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
			assert.Equal(t, testEmail, r.PostForm.Get("username"))

			w.Header().Set("Content-Type", "application/json")
			var description string
			switch r.PostForm.Get("password") {
			case testPassword:
				_ = json.NewEncoder(w).Encode(map[string]any{
					"access_token": "opaque-token",
					"token_type":   "Bearer",
					"expires_in":   3600,
				})
				return
			case "forbidden":
				description = "Forbidden"
			case "notfound":
				description = "NotFound"
			case "unauthorized":
				description = "Unauthorized"
			default:
				description = "Lock"
			}
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": description,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTokenExchange_DiscoversEndpointOnce(t *testing.T) {
	var hits int32
	server := newTokenServer(t, &hits)
	ex := NewTokenExchange(config.OAuthConfig{
		Authority:    server.URL + "/",
		ClientID:     "bookify",
		ClientSecret: "s3cret",
	}, server.Client())

	for i := 0; i < 2; i++ {
		tok, err := ex.Exchange(context.Background(), testEmail, testPassword)
		require.NoError(t, err)
		assert.Equal(t, "opaque-token", tok.AccessToken)
		assert.Equal(t, "Bearer", tok.TokenType)
		assert.InDelta(t, 3600, tok.ExpiresIn, 5)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestTokenExchange_ErrorMapping(t *testing.T) {
	var hits int32
	server := newTokenServer(t, &hits)
	ex := NewTokenExchange(config.OAuthConfig{
		TokenURL:     server.URL + "/connect/token",
		ClientID:     "bookify",
		ClientSecret: "s3cret",
	}, server.Client())

	tests := []struct {
		password string
		status   int
		message  string
	}{
		{password: "forbidden", status: http.StatusForbidden, message: "Email is not verified."},
		{password: "notfound", status: http.StatusUnauthorized, message: "Login and Password do not match."},
		{password: "unauthorized", status: http.StatusUnauthorized, message: "Login and Password do not match."},
		{password: "locked", status: http.StatusBadRequest, message: "Lock"},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			_, err := ex.Exchange(context.Background(), testEmail, tt.password)
			svcErr := requireKind(t, err, KindTokenExchange, tt.status)
			assert.Equal(t, []string{tt.message}, svcErr.Messages)
		})
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestTokenExchange_DiscoveryFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	ex := NewTokenExchange(config.OAuthConfig{Authority: server.URL, ClientID: "bookify"}, server.Client())

	_, err := ex.Exchange(context.Background(), testEmail, testPassword)
	require.Error(t, err)
	assert.Empty(t, KindOf(err))
}
