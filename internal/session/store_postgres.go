package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopfront/webshop/internal/apperr"
)

// PostgresStore keeps one row per session in the sessions table created by
// the migrations package.
type PostgresStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &PostgresStore{db: db, nowFunc: time.Now}, nil
}

func (p *PostgresStore) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	const q = `
SELECT id, is_logged_in, user_id, csrf_secret, flash, created_at, expires_at
FROM sessions
WHERE id = $1 AND expires_at > $2`
	var (
		s         Session
		userID    sql.NullString
		flashJSON []byte
	)
	err := p.db.QueryRowContext(ctx, q, id, p.nowFunc()).
		Scan(&s.ID, &s.IsLoggedIn, &userID, &s.CSRFSecret, &flashJSON, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.StoreUnavailable("postgres load session", err)
	}
	s.UserID = userID.String
	if len(flashJSON) > 0 {
		if err := json.Unmarshal(flashJSON, &s.Flash); err != nil {
			return nil, apperr.StoreUnavailable("decode session flash", err)
		}
	}
	return &s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session: missing id")
	}
	flashJSON, err := json.Marshal(s.Flash)
	if err != nil {
		return fmt.Errorf("session: encode flash: %w", err)
	}
	userID := sql.NullString{String: s.UserID, Valid: s.UserID != ""}

	const q = `
INSERT INTO sessions (id, is_logged_in, user_id, csrf_secret, flash, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE
SET is_logged_in = EXCLUDED.is_logged_in,
	user_id = EXCLUDED.user_id,
	csrf_secret = EXCLUDED.csrf_secret,
	flash = EXCLUDED.flash,
	expires_at = EXCLUDED.expires_at`
	if _, err := p.db.ExecContext(ctx, q, s.ID, s.IsLoggedIn, userID, s.CSRFSecret, flashJSON, s.CreatedAt, s.ExpiresAt); err != nil {
		return apperr.StoreUnavailable("postgres save session", err)
	}
	return nil
}

func (p *PostgresStore) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return apperr.StoreUnavailable("postgres destroy session", err)
	}
	return nil
}

// DeleteExpired prunes rows past their expiry and returns how many went.
func (p *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, p.nowFunc())
	if err != nil {
		return 0, apperr.StoreUnavailable("postgres prune sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read prune affected rows: %w", err)
	}
	return n, nil
}
