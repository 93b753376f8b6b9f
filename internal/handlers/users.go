package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bookify/apiserver/internal/logging"
	"github.com/bookify/apiserver/internal/services"
	"github.com/bookify/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AccountService is the account lifecycle used by the user routes.
type AccountService interface {
	RoleChecker
	Register(ctx context.Context, req services.RegistrationRequest) (services.AccountView, error)
	Verify(ctx context.Context, encodedToken string) error
	Login(ctx context.Context, req services.LoginRequest) (services.LoginResult, error)
	GetByID(ctx context.Context, accountID string) (services.Profile, error)
}

// VerificationMailer sends the verification link after registration.
type VerificationMailer interface {
	SendVerification(ctx context.Context, to, encodedToken string) error
}

// TokenExchanger obtains a bearer token from an external token endpoint.
type TokenExchanger interface {
	Exchange(ctx context.Context, email, password string) (services.AccessToken, error)
}

// UserHandler serves the /users routes.
type UserHandler struct {
	accounts AccountService
	mailer   VerificationMailer
	exchange TokenExchanger
	logger   logging.Logger
	secret   []byte
	now      func() time.Time
}

// NewUserHandler constructs a UserHandler. mailer and exchange may be nil.
func NewUserHandler(accounts AccountService, mailer VerificationMailer, exchange TokenExchanger, jwtSecret string, logger logging.Logger) *UserHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &UserHandler{
		accounts: accounts,
		mailer:   mailer,
		exchange: exchange,
		logger:   logger,
		secret:   []byte(jwtSecret),
		now:      time.Now,
	}
}

// UsersRouter registers the account routes on r. The access token route is
// only mounted when exchange is non-nil.
func UsersRouter(r chi.Router, h *UserHandler) {
	r.Post("/", h.Register)
	r.Put("/verifications/{token}", h.Verify)
	r.Post("/authorization", h.Login)
	if h.exchange != nil {
		r.Post("/accessToken", h.AccessToken)
	}

	auth := requireAuth(h.secret)
	r.With(auth).Get("/me", h.Me)
	r.With(auth, RequireRole(h.accounts, types.RoleAdmin, h.logger)).Get("/{accountID}", h.GetAccount)
}

// Register creates an account and mails its verification link.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendVerification(r.Context(), view.Email, view.EncodedToken); err != nil {
			h.logger.Error(r.Context(), "verification mail not sent", "email", view.Email, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, view)
}

// Verify confirms the email address owning the token in the path.
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if err := h.accounts.Verify(r.Context(), token); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccountID string        `json:"accountId"`
	Email     string        `json:"email"`
	Username  string        `json:"username"`
	Claims    []types.Claim `json:"claims"`
	Token     string        `json:"token"`
}

// Login checks credentials and issues a JWT.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	ttl := defaultTokenTTL
	if result.RememberMe {
		ttl = rememberMeTokenTTL
	}
	token, err := issueToken(result.AccountID, h.secret, h.now(), ttl)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	claims := result.Claims
	if claims == nil {
		claims = []types.Claim{}
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		AccountID: result.AccountID,
		Email:     result.Email,
		Username:  result.Username,
		Claims:    claims,
		Token:     token,
	})
}

type accessTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccessToken exchanges credentials for a bearer token at the external
// token endpoint.
func (h *UserHandler) AccessToken(w http.ResponseWriter, r *http.Request) {
	var req accessTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, err := h.exchange.Exchange(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// Me returns the authenticated account.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.writeProfile(w, r, accountID, http.StatusUnauthorized)
}

// GetAccount returns any account by id. Admin only.
func (h *UserHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	h.writeProfile(w, r, chi.URLParam(r, "accountID"), http.StatusNotFound)
}

func (h *UserHandler) writeProfile(w http.ResponseWriter, r *http.Request, accountID string, missingStatus int) {
	profile, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		if services.KindOf(err) == services.KindAccountNotFound {
			writeError(w, missingStatus, http.StatusText(missingStatus))
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
