// Package session holds the server-side session record and its stores.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Session correlates a client cookie with login state. It references the
// user by id only.
type Session struct {
	ID         string              `json:"id"`
	IsLoggedIn bool                `json:"is_logged_in"`
	UserID     string              `json:"user_id,omitempty"`
	CSRFSecret string              `json:"csrf_secret,omitempty"`
	Flash      map[string][]string `json:"flash,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	ExpiresAt  time.Time           `json:"expires_at"`

	dirty      bool
	destroyed  bool
	previousID string
}

// Store persists sessions keyed by id. Load returns (nil, nil) for unknown
// or expired ids. Backend failures are reported as apperr.ErrStoreUnavailable.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Destroy(ctx context.Context, id string) error
}

// New returns an anonymous, not yet persisted session.
func New(now time.Time, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// GenerateID returns 256 bits of randomness, base64url encoded.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SignIn marks the session as belonging to userID and rotates its id so a
// pre-login id cannot be replayed.
func (s *Session) SignIn(userID string) error {
	newID, err := GenerateID()
	if err != nil {
		return err
	}
	if s.previousID == "" {
		s.previousID = s.ID
	}
	s.ID = newID
	s.IsLoggedIn = true
	s.UserID = userID
	s.dirty = true
	return nil
}

// SignOut clears login state and schedules the record for destruction.
// Calling it twice is harmless.
func (s *Session) SignOut() {
	s.IsLoggedIn = false
	s.UserID = ""
	s.destroyed = true
	s.dirty = true
}

// EnsureCSRFSecret returns the session's CSRF secret, creating one if needed.
func (s *Session) EnsureCSRFSecret(gen func() (string, error)) (string, error) {
	if s.CSRFSecret != "" {
		return s.CSRFSecret, nil
	}
	secret, err := gen()
	if err != nil {
		return "", err
	}
	s.CSRFSecret = secret
	s.dirty = true
	return secret, nil
}

// AddFlash queues a message for the next rendered view.
func (s *Session) AddFlash(key, msg string) {
	if s.Flash == nil {
		s.Flash = make(map[string][]string)
	}
	s.Flash[key] = append(s.Flash[key], msg)
	s.dirty = true
}

// PopFlash returns and removes the messages queued under key.
func (s *Session) PopFlash(key string) []string {
	msgs, ok := s.Flash[key]
	if !ok {
		return nil
	}
	delete(s.Flash, key)
	s.dirty = true
	return msgs
}

func (s *Session) Dirty() bool        { return s.dirty }
func (s *Session) Destroyed() bool    { return s.destroyed }
func (s *Session) PreviousID() string { return s.previousID }

// Commit writes pending changes to store: destroyed sessions are removed,
// dirty ones saved (dropping the pre-rotation record).
func Commit(ctx context.Context, store Store, s *Session) error {
	if s == nil || !s.dirty {
		return nil
	}
	if s.previousID != "" {
		if err := store.Destroy(ctx, s.previousID); err != nil {
			return err
		}
	}
	if s.destroyed {
		if err := store.Destroy(ctx, s.ID); err != nil {
			return err
		}
	} else if err := store.Save(ctx, s); err != nil {
		return err
	}
	s.dirty = false
	s.previousID = ""
	return nil
}
