// Package services – AccountService
//
// This file implements the AccountService, which manages user registration,
// login, logout, and session refresh. Passwords are stored as bcrypt hashes;
// refresh tokens are opaque values whose SHA-256 hash backs a sessions row;
// access tokens are short-lived JWTs minted by the token package.
//
// Authentication failures are deliberately vague: unknown email and wrong
// password both surface as ErrInvalidCredentials, and the attempt limiter is
// consulted only after the input passes syntactic validation, so malformed
// submissions never burn an attempt.
package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Georgechisom/alx-polling/internal/domain"
	"github.com/Georgechisom/alx-polling/internal/ratelimit"
	"github.com/Georgechisom/alx-polling/internal/repo"
	"github.com/Georgechisom/alx-polling/internal/sanitize"
	"github.com/Georgechisom/alx-polling/internal/token"
	"github.com/Georgechisom/alx-polling/internal/validate"
)

// Credentials bundles the tokens issued for one authenticated session.
type Credentials struct {
	// AccessToken is the short-lived JWT presented on API calls.
	AccessToken string
	// RefreshToken is the opaque value stored in the session cookie. Only its
	// hash is persisted.
	RefreshToken string
	// RefreshExpiresAt is when the refresh session stops being accepted.
	RefreshExpiresAt time.Time
}

// AccountService implements the identity use-cases. All fields must be set
// before use; the router wires them from configuration.
type AccountService struct {
	// DB is the database handle used for user and session rows.
	DB *gorm.DB
	// Limiter throttles repeated login and registration attempts per email.
	Limiter *ratelimit.Limiter
	// Tokens mints and verifies access tokens.
	Tokens *token.Issuer

	// RefreshTTL is the lifetime of a refresh session.
	RefreshTTL time.Duration
	// LoginPolicy and RegisterPolicy are the attempt ceilings per action.
	LoginPolicy    ratelimit.Policy
	RegisterPolicy ratelimit.Policy
	// StoreTimeout bounds each store call; zero disables the bound.
	StoreTimeout time.Duration

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// Register creates a new account.
//
// Name is cleaned, email is normalized to lowercase, and all three fields
// are validated before the attempt limiter is consulted, so malformed input
// never counts against the registration ceiling. A duplicate email yields
// ErrEmailTaken; too many attempts yield ErrRateLimited.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = sanitize.Clean(name)
	email = normalizeEmail(email)

	var msgs []string
	for _, err := range []error{validate.Name(name), validate.Email(email), validate.Password(password)} {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if err := newValidationError(msgs); err != nil {
		return nil, err
	}

	if s.Limiter.Check(email, ratelimit.ActionRegister, s.RegisterPolicy) {
		return nil, ErrRateLimited
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()
	u, err := repo.CreateUser(cctx, s.DB, email, name, string(hash))
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, storeErr(ctx, "account.register", err)
	}

	s.Limiter.Clear(email, ratelimit.ActionRegister)
	return u, nil
}

// Login authenticates email/password and opens a refresh session.
//
// Unknown accounts and wrong passwords both yield ErrInvalidCredentials; the
// caller never learns which. Validation runs before the limiter, and a
// successful login clears the email's failed-attempt record.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.User, *Credentials, error) {
	email = normalizeEmail(email)

	var msgs []string
	if err := validate.Email(email); err != nil {
		msgs = append(msgs, err.Error())
	}
	if password == "" {
		msgs = append(msgs, "password is required")
	}
	if err := newValidationError(msgs); err != nil {
		return nil, nil, err
	}

	if s.Limiter.Check(email, ratelimit.ActionLogin, s.LoginPolicy) {
		return nil, nil, ErrRateLimited
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	u, err := repo.GetUserByEmail(cctx, s.DB, email)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, storeErr(ctx, "account.login", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	creds, err := s.issueSession(cctx, u)
	if err != nil {
		return nil, nil, err
	}

	s.Limiter.Clear(email, ratelimit.ActionLogin)
	return u, creds, nil
}

// Logout revokes the refresh session behind refreshToken. Unknown, expired,
// and already-revoked tokens are treated as success; logout is idempotent.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	sess, err := repo.GetSessionByHash(cctx, s.DB, token.HashRefresh(refreshToken), s.now())
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return storeErr(ctx, "account.logout", err)
	}
	if err := repo.RevokeSession(cctx, s.DB, sess.ID); err != nil && !isNotFound(err) {
		return storeErr(ctx, "account.logout", err)
	}
	return nil
}

// Refresh rotates a refresh session: the presented token is revoked and a
// fresh session plus access token are issued. An unknown, expired, or
// revoked token yields ErrUnauthenticated.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *Credentials, error) {
	if refreshToken == "" {
		return nil, nil, ErrUnauthenticated
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	sess, err := repo.GetSessionByHash(cctx, s.DB, token.HashRefresh(refreshToken), s.now())
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, storeErr(ctx, "account.refresh", err)
	}

	u, err := repo.GetUserByID(cctx, s.DB, sess.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, storeErr(ctx, "account.refresh", err)
	}

	// Rotation: the presented token stops working even if the new issue fails.
	if err := repo.RevokeSession(cctx, s.DB, sess.ID); err != nil && !isNotFound(err) {
		return nil, nil, storeErr(ctx, "account.refresh", err)
	}

	creds, err := s.issueSession(cctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, creds, nil
}

// CurrentUser resolves an access token to its user. Invalid or expired
// tokens, and tokens for users that no longer exist, yield ErrUnauthenticated.
func (s *AccountService) CurrentUser(ctx context.Context, accessToken string) (*domain.User, error) {
	userID, err := s.Tokens.Verify(accessToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	cctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	u, err := repo.GetUserByID(cctx, s.DB, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, storeErr(ctx, "account.current", err)
	}
	return u, nil
}

// issueSession mints a refresh token, persists its hash, and signs an access
// token for u.
func (s *AccountService) issueSession(ctx context.Context, u *domain.User) (*Credentials, error) {
	refresh, err := token.NewRefresh()
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(s.RefreshTTL)

	if _, err := repo.CreateSession(ctx, s.DB, u.ID, token.HashRefresh(refresh), expires); err != nil {
		return nil, storeErr(ctx, "account.session", err)
	}

	access, err := s.Tokens.Access(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expires,
	}, nil
}

// now returns the service clock, defaulting to UTC wall time.
func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// normalizeEmail lowercases and trims an address so lookups and limiter keys
// agree on one canonical form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
