package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bookify/apiserver/config"
	"golang.org/x/oauth2"
)

const discoveryPath = "/.well-known/openid-configuration"

// AccessToken is the bearer token obtained from the external token endpoint.
type AccessToken struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn,omitempty"`
}

// TokenExchange trades account credentials for a bearer token using the
// OAuth2 resource-owner password grant. When no token URL is configured it
// is discovered from the authority's OpenID configuration on first use.
type TokenExchange struct {
	authority    string
	clientID     string
	clientSecret string
	scopes       []string
	client       *http.Client
	now          func() time.Time

	mu       sync.Mutex
	tokenURL string
}

func NewTokenExchange(cfg config.OAuthConfig, client *http.Client) *TokenExchange {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenExchange{
		authority:    strings.TrimRight(cfg.Authority, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scopes:       strings.Fields(cfg.Scope),
		client:       client,
		now:          time.Now,
		tokenURL:     strings.TrimSpace(cfg.TokenURL),
	}
}

// Exchange requests a token for email/password and maps the remote error
// description onto an *Error.
func (t *TokenExchange) Exchange(ctx context.Context, email, password string) (AccessToken, error) {
	tokenURL, err := t.endpoint(ctx)
	if err != nil {
		return AccessToken{}, err
	}

	conf := oauth2.Config{
		ClientID:     t.clientID,
		ClientSecret: t.clientSecret,
		Scopes:       t.scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	// The email travels as the standard password-grant "username" field.
	// Token endpoints expecting a separate "email" parameter must map it.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.client)
	tok, err := conf.PasswordCredentialsToken(ctx, normalizeEmail(email), password)
	if err != nil {
		return AccessToken{}, mapRetrieveError(err)
	}

	result := AccessToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
	}
	if !tok.Expiry.IsZero() {
		if remaining := tok.Expiry.Sub(t.now()); remaining > 0 {
			result.ExpiresIn = int64(remaining / time.Second)
		}
	}
	return result, nil
}

func mapRetrieveError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return fmt.Errorf("request token: %w", err)
	}

	switch strings.TrimSpace(retrieveErr.ErrorDescription) {
	case "Forbidden":
		return errTokenExchange(http.StatusForbidden, "Email is not verified.", err)
	case "NotFound", "Unauthorized":
		return errTokenExchange(http.StatusUnauthorized, "Login and Password do not match.", err)
	}

	detail := retrieveErr.ErrorDescription
	if detail == "" {
		detail = retrieveErr.ErrorCode
	}
	if detail == "" {
		detail = "Unable to obtain an access token."
	}
	return errTokenExchange(http.StatusBadRequest, detail, err)
}

func (t *TokenExchange) endpoint(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tokenURL != "" {
		return t.tokenURL, nil
	}
	if t.authority == "" {
		return "", errors.New("oauth token url or authority is required")
	}

	tokenURL, err := t.discover(ctx)
	if err != nil {
		return "", err
	}
	t.tokenURL = tokenURL
	return tokenURL, nil
}

func (t *TokenExchange) discover(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.authority+discoveryPath, nil)
	if err != nil {
		return "", fmt.Errorf("build discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch discovery document: unexpected status %d", resp.StatusCode)
	}

	var doc struct {
		TokenEndpoint string `json:"token_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode discovery document: %w", err)
	}
	if doc.TokenEndpoint == "" {
		return "", errors.New("discovery document has no token_endpoint")
	}
	return doc.TokenEndpoint, nil
}
