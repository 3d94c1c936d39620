package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// User is an administrator account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

var (
	// ErrUserNotFound means no user row matched.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrUserExists means the username is already taken.
	ErrUserExists = errors.New("auth: username already exists")
	// ErrInvalidResetToken means the reset token is unknown, expired or
	// already used.
	ErrInvalidResetToken = errors.New("auth: invalid or expired reset token")
)

// PgxPool is the subset of pgxpool.Pool the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists users and password reset tokens.
type Store struct {
	pool PgxPool
}

// NewStore creates the auth store.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("auth: pgx pool required")
	}
	return &Store{pool: pool}
}

// UserByUsername loads a user by username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`
	var u User
	err := s.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a user; the username must be free.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, created_at
	`
	u := &User{Username: username, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx, query, username, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return u, nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("auth: update password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// InsertResetToken stores a single-use password reset token.
func (s *Store) InsertResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	query := `INSERT INTO password_reset_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, userID, token, expiresAt); err != nil {
		return fmt.Errorf("auth: insert reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken marks the token used and returns the owning user id.
// The UPDATE's guards make consumption single-use under concurrency: of
// two racing requests exactly one sees a row returned.
func (s *Store) ConsumeResetToken(ctx context.Context, token string, now time.Time) (int64, error) {
	query := `
		UPDATE password_reset_tokens
		SET used = TRUE
		WHERE token = $1 AND NOT used AND expires_at > $2
		RETURNING user_id
	`
	var userID int64
	err := s.pool.QueryRow(ctx, query, token, now).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInvalidResetToken
	}
	if err != nil {
		return 0, fmt.Errorf("auth: consume reset token: %w", err)
	}
	return userID, nil
}
