package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// UserStore exposes the account operations required by the auth service.
type UserStore interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	UpdateDisplayName(ctx context.Context, id, displayName string, updatedAt time.Time) (User, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// PasswordHasher derives the stored hash of a password.
type PasswordHasher func(password string) (string, error)

// AuthService coordinates registration, login and session validation.
type AuthService struct {
	users          UserStore
	sessions       SessionRepository
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users UserStore, sessions SessionRepository, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(users, sessions, nil, nil, idGenerator, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with custom password
// functions and a specified logger. Nil password functions use argon2id.
func NewAuthServiceWithLogger(users UserStore, sessions SessionRepository, hash PasswordHasher, verify PasswordVerifier, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if hash == nil {
		hash = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if verify == nil {
		verify = VerifyPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = idGenerator
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		hashPassword:   hash,
		verifyPassword: verify,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. The display name defaults to the local part
// of the email address.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("user store not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	vErr := &ValidationError{}
	if _, parseErr := mail.ParseAddress(email); email == "" || parseErr != nil {
		vErr.add("email", "invalid")
	}
	if len(params.Password) < MinPasswordLen {
		vErr.add("password", "too_short")
	}
	name := cleanLine(params.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if tooLong(name, MaxHandleLength) {
		vErr.add("display_name", "too_long")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	if hash, err = s.hashPassword(params.Password); err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user, err = s.users.CreateUser(ctx, User{
		ID:          s.idGenerator(),
		Email:       email,
		DisplayName: name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, hash)
	err = mapRepoError(err)
	return
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil || s.users == nil || s.sessions == nil {
		err = fmt.Errorf("auth stores not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if verifyErr := s.verifyPassword(creds.PasswordHash, params.Password); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	session := Session{
		ID:        s.idGenerator(),
		UserID:    creds.User.ID,
		Token:     s.tokenGenerator(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if session.Token == "" {
		session.Token = session.ID
	}

	session, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	result = AuthenticateResult{User: creds.User, Session: session}
	return
}

// ValidateSession verifies that token belongs to an active session and
// returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil || s.users == nil || s.sessions == nil {
		err = fmt.Errorf("auth stores not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	if session.RevokedAt != nil {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.After(s.now()) {
		err = ErrSessionExpired
		return
	}

	var user User
	user, err = s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{UserID: user.ID, DisplayName: user.DisplayName}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "RevokeSession")
	if _, err := s.sessions.RevokeSession(ctx, trimmed, s.now()); err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// Profile returns the account of the principal.
func (s *AuthService) Profile(ctx context.Context, principal Principal) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	if principal.UserID == "" {
		return User{}, ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, principal.UserID)
	return user, mapRepoError(err)
}

// UpdateDisplayName changes the display name shown on joins and messages.
func (s *AuthService) UpdateDisplayName(ctx context.Context, principal Principal, displayName string) (user User, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("user store not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateDisplayName", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update display name", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "display name updated")
	}()

	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	name := cleanLine(displayName)
	vErr := &ValidationError{}
	switch {
	case name == "":
		vErr.add("display_name", "required")
	case tooLong(name, MaxHandleLength):
		vErr.add("display_name", "too_long")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	user, err = s.users.UpdateDisplayName(ctx, principal.UserID, name, s.now())
	err = mapRepoError(err)
	return
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	if s == nil || s.sessions == nil {
		return 0, fmt.Errorf("session repository not configured")
	}
	removed, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		s.loggerWith(ctx, "PurgeExpiredSessions").ErrorContext(ctx, "failed to purge sessions", "error", err)
		return 0, err
	}
	if removed > 0 {
		s.loggerWith(ctx, "PurgeExpiredSessions").InfoContext(ctx, "expired sessions purged", "count", removed)
	}
	return removed, nil
}
