// Package auth implements administrator login, session tokens and the
// password reset flow.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/datafirstseo/booking-backend/pkg/logging"
)

// ErrInvalidCredentials covers both unknown usernames and wrong
// passwords; callers must not distinguish the two.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// ErrWeakPassword means the new password fails the minimum length.
var ErrWeakPassword = errors.New("auth: password must be at least 8 characters")

const resetTokenTTL = time.Hour

// UserStore is the slice of the auth store the service needs.
type UserStore interface {
	UserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	InsertResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token string, now time.Time) (int64, error)
}

// ResetNotifier delivers the password reset link.
type ResetNotifier interface {
	PasswordReset(email, token string)
}

// Service implements login and password management.
type Service struct {
	store      UserStore
	notifier   ResetNotifier
	logger     *logging.Logger
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

// NewService constructs an auth service. notifier may be nil.
func NewService(store UserStore, notifier ResetNotifier, logger *logging.Logger, secret string, sessionTTL time.Duration) *Service {
	if store == nil {
		panic("auth: user store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:      store,
		notifier:   notifier,
		logger:     logger,
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration { return s.sessionTTL }

// Login verifies credentials and returns the user and a signed session
// token. Unknown users and wrong passwords are indistinguishable.
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.store.UserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		// Burn comparable time so the two failure modes look alike.
		VerifyPassword("0.0", password)
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("auth: sign session token: %w", err)
	}
	s.logger.Info("user logged in", "username", user.Username)
	return user, token, nil
}

// CurrentUser resolves the session subject back to a user row.
func (s *Service) CurrentUser(ctx context.Context, username string) (*User, error) {
	return s.store.UserByUsername(ctx, username)
}

// EnsureAdminUser seeds the admin account at startup when it does not
// exist yet. Safe to call on every boot.
func (s *Service) EnsureAdminUser(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.store.UserByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := s.store.CreateUser(ctx, username, hash); err != nil {
		if errors.Is(err, ErrUserExists) {
			// Lost a boot race with another instance.
			return nil
		}
		return err
	}
	s.logger.Info("admin user created", "username", username)
	return nil
}

// RequestReset issues a reset token for the account. It reveals nothing
// about whether the account exists: unknown usernames succeed silently.
func (s *Service) RequestReset(ctx context.Context, username string) error {
	user, err := s.store.UserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("auth: generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if err := s.store.InsertResetToken(ctx, user.ID, token, s.now().Add(resetTokenTTL)); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.PasswordReset(user.Username, token)
	}
	s.logger.Info("password reset requested", "username", user.Username)
	return nil
}

// ResetPassword consumes a reset token and sets the new password. Each
// token works exactly once.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	userID, err := s.store.ConsumeResetToken(ctx, token, s.now())
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.logger.Info("password reset completed", "user_id", userID)
	return nil
}
