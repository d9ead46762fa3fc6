package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"shopfront/webshop/internal/apperr"
)

const pgUniqueViolation = "23505"

// PostgresUserStore reads and writes the users table created by the
// migrations package.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) (*PostgresUserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &PostgresUserStore{db: db}, nil
}

const selectUser = `SELECT id, email, password_hash, reset_token_hash, reset_token_expires_at, cart, created_at FROM users`

func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, ErrUserNotFound
	}
	return s.findOne(ctx, "users.find_by_id", selectUser+` WHERE id = $1`, id)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	if email == "" {
		return User{}, ErrUserNotFound
	}
	return s.findOne(ctx, "users.find_by_email", selectUser+` WHERE email = $1`, email)
}

func (s *PostgresUserStore) FindByResetTokenHash(ctx context.Context, hash string) (User, error) {
	if hash == "" {
		return User{}, ErrUserNotFound
	}
	return s.findOne(ctx, "users.find_by_reset_token", selectUser+` WHERE reset_token_hash = $1`, hash)
}

func (s *PostgresUserStore) findOne(ctx context.Context, op, q string, arg string) (User, error) {
	var (
		u         User
		resetHash sql.NullString
		resetExp  sql.NullTime
		cartJSON  []byte
	)
	err := s.db.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &resetHash, &resetExp, &cartJSON, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, apperr.StoreUnavailable(op, err)
	}
	u.ResetTokenHash = resetHash.String
	if resetExp.Valid {
		u.ResetTokenExpiresAt = resetExp.Time
	}
	if len(cartJSON) > 0 {
		if err := json.Unmarshal(cartJSON, &u.Cart); err != nil {
			return User{}, apperr.StoreUnavailable(op, fmt.Errorf("decode cart: %w", err))
		}
	}
	return u, nil
}

func (s *PostgresUserStore) Save(ctx context.Context, user User) error {
	if user.ID == "" || user.Email == "" || user.PasswordHash == "" {
		return fmt.Errorf("id, email, and password hash are required")
	}
	cart := user.Cart
	if cart == nil {
		cart = []CartItem{}
	}
	cartJSON, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	var resetExp sql.NullTime
	if !user.ResetTokenExpiresAt.IsZero() {
		resetExp = sql.NullTime{Time: user.ResetTokenExpiresAt, Valid: true}
	}
	resetHash := sql.NullString{String: user.ResetTokenHash, Valid: user.ResetTokenHash != ""}

	const q = `
INSERT INTO users (id, email, password_hash, reset_token_hash, reset_token_expires_at, cart, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE
SET email = EXCLUDED.email,
	password_hash = EXCLUDED.password_hash,
	reset_token_hash = EXCLUDED.reset_token_hash,
	reset_token_expires_at = EXCLUDED.reset_token_expires_at,
	cart = EXCLUDED.cart`
	_, err = s.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash, resetHash, resetExp, cartJSON, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrEmailTaken
		}
		return apperr.StoreUnavailable("users.save", err)
	}
	return nil
}
