package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookify/apiserver/internal/logging"
	"github.com/bookify/apiserver/internal/store"
	"github.com/bookify/apiserver/types"
	"github.com/google/uuid"
)

const (
	defaultVerificationTTL = 24 * time.Hour

	// A v4 UUID carries 122 random bits, so a collision is not expected in
	// practice; the store's unique index still guards it and a clash is
	// retried with a fresh token a bounded number of times.
	maxTokenAttempts = 3
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	GetByVerificationToken(ctx context.Context, token uuid.UUID) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	ConfirmEmail(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// RoleRepository defines persistence operations for roles.
type RoleRepository interface {
	GetByName(ctx context.Context, name types.RoleName) (types.Role, error)
	AssignToAccount(ctx context.Context, accountID string, role types.Role) error
	ListForAccount(ctx context.Context, accountID string) ([]types.Role, error)
}

// ClaimRepository defines persistence operations for claims.
type ClaimRepository interface {
	Add(ctx context.Context, accountID string, claim types.Claim) error
	ListForAccount(ctx context.Context, accountID string) ([]types.Claim, error)
}

// AccountView is the externally safe projection of an account returned by
// registration.
type AccountView struct {
	Email          string `json:"email"`
	Username       string `json:"username"`
	EmailConfirmed bool   `json:"emailConfirmed"`
	EncodedToken   string `json:"encodedToken"`
	JwtToken       string `json:"jwtToken"`
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	AccountID  string        `json:"accountId"`
	Email      string        `json:"email"`
	Username   string        `json:"username"`
	Claims     []types.Claim `json:"claims"`
	RememberMe bool          `json:"-"`
}

// Profile is an account together with its roles and claims.
type Profile struct {
	ID             string                   `json:"id"`
	Email          string                   `json:"email"`
	Username       string                   `json:"username"`
	EmailConfirmed bool                     `json:"emailConfirmed"`
	Status         types.VerificationStatus `json:"status"`
	Roles          []string                 `json:"roles"`
	Claims         []types.Claim            `json:"claims"`
	CreatedAt      time.Time                `json:"createdAt"`
}

// NewAccountView projects an account for API responses.
func NewAccountView(account types.Account) AccountView {
	view := AccountView{
		Email:          account.Email,
		Username:       account.Username,
		EmailConfirmed: account.EmailConfirmed,
	}
	if account.VerificationToken != nil {
		view.EncodedToken = EncodeToken(*account.VerificationToken)
	}
	return view
}

// AccountOption customizes an AccountService.
type AccountOption func(*AccountService)

// WithClock injects the time source. Times are always converted to UTC.
func WithClock(now func() time.Time) AccountOption {
	return func(s *AccountService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger logging.Logger) AccountOption {
	return func(s *AccountService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPasswordHasher overrides the bcrypt hasher.
func WithPasswordHasher(hasher PasswordHasher) AccountOption {
	return func(s *AccountService) {
		if hasher != nil {
			s.hasher = hasher
		}
	}
}

// WithVerificationTTL overrides how long a verification link stays valid.
func WithVerificationTTL(ttl time.Duration) AccountOption {
	return func(s *AccountService) {
		if ttl > 0 {
			s.verificationTTL = ttl
		}
	}
}

// WithTokenGenerator overrides verification token generation.
func WithTokenGenerator(gen func() uuid.UUID) AccountOption {
	return func(s *AccountService) {
		if gen != nil {
			s.newToken = gen
		}
	}
}

// AccountService runs the account lifecycle: registration, email
// verification and login.
type AccountService struct {
	accounts        AccountRepository
	roles           RoleRepository
	claims          ClaimRepository
	hasher          PasswordHasher
	logger          logging.Logger
	now             func() time.Time
	newToken        func() uuid.UUID
	verificationTTL time.Duration
	decoy           decoyHash
}

func NewAccountService(accounts AccountRepository, roles RoleRepository, claims ClaimRepository, opts ...AccountOption) *AccountService {
	s := &AccountService{
		accounts:        accounts,
		roles:           roles,
		claims:          claims,
		hasher:          NewBcryptHasher(0),
		logger:          logging.Nop(),
		now:             time.Now,
		newToken:        uuid.New,
		verificationTTL: defaultVerificationTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unverified account holding the User role and a
// Role=User claim, and issues its verification token.
//
// If the role or claim cannot be attached the new account is deleted again,
// so a failed registration never blocks the email address.
func (s *AccountService) Register(ctx context.Context, req RegistrationRequest) (AccountView, error) {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return AccountView{}, validationError(err)
	}

	if _, err := s.accounts.GetByEmail(ctx, req.Email); err == nil {
		return AccountView{}, errAlreadyExists(nil)
	} else if !errors.Is(err, store.ErrNotFound) {
		return AccountView{}, fmt.Errorf("check existing account: %w", err)
	}

	role, err := s.roles.GetByName(ctx, types.RoleUser)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AccountView{}, errRoleNotConfigured(err)
		}
		return AccountView{}, fmt.Errorf("load default role: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return AccountView{}, errInvalidRequest("password: " + ErrPasswordTooLong.Error())
		}
		return AccountView{}, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.createWithToken(ctx, types.Account{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return AccountView{}, err
	}

	if err := s.attachDefaultRole(ctx, account.ID, role); err != nil {
		s.rollback(ctx, account.ID)
		return AccountView{}, err
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID)
	return NewAccountView(account), nil
}

func (s *AccountService) createWithToken(ctx context.Context, account types.Account) (types.Account, error) {
	var lastErr error
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token := s.newToken()
		issuedAt := s.now().UTC()
		account.VerificationToken = &token
		account.VerificationIssuedAt = &issuedAt
		account.EmailConfirmed = false

		created, err := s.accounts.Create(ctx, account)
		switch {
		case err == nil:
			return created, nil
		case errors.Is(err, store.ErrEmailTaken):
			return types.Account{}, errAlreadyExists(err)
		case errors.Is(err, store.ErrTokenTaken):
			s.logger.Warn(ctx, "verification token collision, regenerating", "attempt", attempt+1)
			lastErr = err
		default:
			return types.Account{}, fmt.Errorf("create account: %w", err)
		}
	}
	return types.Account{}, fmt.Errorf("create account: %w", lastErr)
}

func (s *AccountService) attachDefaultRole(ctx context.Context, accountID string, role types.Role) error {
	if err := s.roles.AssignToAccount(ctx, accountID, role); err != nil {
		return roleAssignmentError("assign role "+string(role.Name), err)
	}
	claim := types.Claim{Type: types.ClaimTypeRole, Value: string(role.Name)}
	if err := s.claims.Add(ctx, accountID, claim); err != nil {
		return roleAssignmentError("add claim "+claim.Type+"="+claim.Value, err)
	}
	return nil
}

// roleAssignmentError reports store validation failures as
// KindRoleAssignmentFailed carrying the store detail. Anything else is an
// infrastructure failure and stays untyped.
func roleAssignmentError(step string, err error) error {
	for _, validationErr := range []error{store.ErrConflict, store.ErrInvalidReference, store.ErrNotFound} {
		if errors.Is(err, validationErr) {
			return errRoleAssignmentFailed(err, step+": "+validationErr.Error())
		}
	}
	return fmt.Errorf("%s: %w", step, err)
}

func (s *AccountService) rollback(ctx context.Context, accountID string) {
	if err := s.accounts.Delete(context.WithoutCancel(ctx), accountID); err != nil {
		s.logger.Error(ctx, "rollback of partially registered account failed", "account_id", accountID, "error", err)
	}
}

// Verify confirms the email address of the account owning encodedToken.
// An account is confirmed at most once; every later attempt fails with
// KindAlreadyConfirmed.
func (s *AccountService) Verify(ctx context.Context, encodedToken string) error {
	token, err := DecodeToken(encodedToken)
	if err != nil {
		return errInvalidLinkFormat(err)
	}

	account, err := s.accounts.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errAccountNotFound(err)
		}
		return fmt.Errorf("load account by token: %w", err)
	}

	if s.expired(account) {
		return errTokenExpired()
	}
	if account.EmailConfirmed {
		return errAlreadyConfirmed()
	}

	changed, err := s.accounts.ConfirmEmail(ctx, account.ID)
	if err != nil {
		return errPersistence(err)
	}
	if !changed {
		return errAlreadyConfirmed()
	}

	s.logger.Info(ctx, "email confirmed", "account_id", account.ID)
	return nil
}

// expired reports whether the verification link is past its lifetime.
// A token without an issue time is treated as expired.
func (s *AccountService) expired(account types.Account) bool {
	if account.VerificationIssuedAt == nil {
		return true
	}
	expiry := account.VerificationIssuedAt.UTC().Add(s.verificationTTL)
	return s.now().UTC().After(expiry)
}

// Login checks the password first and only then the confirmation state, so
// an unconfirmed account with a wrong password reports an authentication
// failure.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return LoginResult{}, validationError(err)
	}

	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, fmt.Errorf("load account: %w", err)
		}
		_ = s.hasher.Compare(s.decoy.get(s.hasher), req.Password)
		return LoginResult{}, errAuthenticationFailed(err)
	}

	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return LoginResult{}, errAuthenticationFailed(err)
		}
		return LoginResult{}, fmt.Errorf("compare password: %w", err)
	}

	account, err = s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("reload account: %w", err)
	}
	if !account.EmailConfirmed {
		return LoginResult{}, errEmailNotConfirmed()
	}

	claims, err := s.claims.ListForAccount(ctx, account.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("load claims: %w", err)
	}

	return LoginResult{
		AccountID:  account.ID,
		Email:      account.Email,
		Username:   account.Username,
		Claims:     claims,
		RememberMe: req.RememberMe,
	}, nil
}

// GetByID loads an account with its roles and claims.
func (s *AccountService) GetByID(ctx context.Context, accountID string) (Profile, error) {
	// ids are UUIDs; anything else cannot name an account.
	if _, err := uuid.Parse(accountID); err != nil {
		return Profile{}, errAccountNotFound(err)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Profile{}, errAccountNotFound(err)
		}
		return Profile{}, fmt.Errorf("load account: %w", err)
	}

	roles, err := s.roles.ListForAccount(ctx, account.ID)
	if err != nil {
		return Profile{}, fmt.Errorf("load roles: %w", err)
	}
	claims, err := s.claims.ListForAccount(ctx, account.ID)
	if err != nil {
		return Profile{}, fmt.Errorf("load claims: %w", err)
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role.Name))
	}

	return Profile{
		ID:             account.ID,
		Email:          account.Email,
		Username:       account.Username,
		EmailConfirmed: account.EmailConfirmed,
		Status:         account.Status(),
		Roles:          names,
		Claims:         claims,
		CreatedAt:      account.CreatedAt,
	}, nil
}

// HasRole reports whether the account holds the named role.
func (s *AccountService) HasRole(ctx context.Context, accountID string, name types.RoleName) (bool, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return false, nil
	}
	roles, err := s.roles.ListForAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if role.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
