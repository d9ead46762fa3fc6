package auth

import (
	"context"
	"errors"

	"shopfront/webshop/internal/apperr"
	"shopfront/webshop/internal/session"
)

// Hydrator loads the user a session points at, once per request.
type Hydrator struct {
	users UserStore
}

func NewHydrator(users UserStore) *Hydrator {
	return &Hydrator{users: users}
}

// Hydrate returns nil for anonymous sessions without touching the store.
// A session whose user has since been deleted also yields nil so the
// request continues anonymously.
func (h *Hydrator) Hydrate(ctx context.Context, sess *session.Session) (*User, error) {
	if sess == nil || !sess.IsLoggedIn || sess.UserID == "" {
		return nil, nil
	}
	u, err := h.users.FindByID(ctx, sess.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.StoreUnavailable("users.hydrate", err)
	}
	return &u, nil
}
