package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"shopfront/webshop/internal/apperr"
	"shopfront/webshop/internal/session"
)

const (
	DefaultResetTokenTTL = time.Hour
	// DefaultForbiddenEmail is rejected at signup.
	DefaultForbiddenEmail = "test@test.com"

	dummyPassword = "timing0equalizer"
)

// Service is the credential service: login, logout, signup and password
// reset. It is the only writer of a session's login state.
type Service struct {
	users     UserStore
	hasher    PasswordHasher
	resetTTL  time.Duration
	forbidden map[string]struct{}
	nowFunc   func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type ServiceConfig struct {
	ResetTokenTTL time.Duration
	// ForbiddenEmails defaults to DefaultForbiddenEmail when nil.
	ForbiddenEmails []string
}

func NewService(users UserStore, hasher PasswordHasher, cfg ServiceConfig) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if cfg.ResetTokenTTL < 0 {
		return nil, fmt.Errorf("reset token TTL must be >= 0")
	}
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = DefaultResetTokenTTL
	}
	if cfg.ForbiddenEmails == nil {
		cfg.ForbiddenEmails = []string{DefaultForbiddenEmail}
	}

	forbidden := make(map[string]struct{}, len(cfg.ForbiddenEmails))
	for _, e := range cfg.ForbiddenEmails {
		forbidden[NormalizeEmail(e)] = struct{}{}
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		resetTTL:  cfg.ResetTokenTTL,
		forbidden: forbidden,
		nowFunc:   time.Now,
	}, nil
}

// Login checks email/password and, on success, signs sess in under a fresh
// session id. Unknown email and wrong password both return
// ErrInvalidCredentials and leave sess untouched.
func (s *Service) Login(ctx context.Context, sess *session.Session, email, password string) (User, error) {
	if sess == nil {
		return User{}, fmt.Errorf("session is required")
	}
	email = NormalizeEmail(email)
	if !validEmail(email) {
		var verr ValidationError
		verr.Add("email", msgInvalidEmail, ErrInvalidEmail)
		return User{}, verr.Err()
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.burnCompare(password)
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, apperr.StoreUnavailable("auth.login", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil || checkPasswordPolicy(password) != nil {
		return User{}, ErrInvalidCredentials
	}

	if err := sess.SignIn(u.ID); err != nil {
		return User{}, oops.In("auth").Code("SESSION_ROTATE_FAILED").With("user_id", u.ID).Wrap(err)
	}
	return u, nil
}

// Logout clears the session's login state. Repeated calls are harmless.
func (s *Service) Logout(sess *session.Session) {
	if sess == nil {
		return
	}
	sess.SignOut()
}

// Signup registers a new user. Email rules short-circuit in order (format,
// forbidden, uniqueness); password and confirmation failures are collected
// after them.
func (s *Service) Signup(ctx context.Context, email, password, confirm string) (User, error) {
	email = NormalizeEmail(email)

	var verr ValidationError
	switch {
	case !validEmail(email):
		verr.Add("email", msgInvalidEmail, ErrInvalidEmail)
	case s.isForbidden(email):
		verr.Add("email", msgForbiddenEmail, ErrForbiddenEmail)
	default:
		_, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			verr.Add("email", msgEmailTaken, ErrEmailTaken)
		case !errors.Is(err, ErrUserNotFound):
			return User{}, apperr.StoreUnavailable("auth.signup", err)
		}
	}
	if checkPasswordPolicy(password) != nil {
		verr.Add("password", msgWeakPassword, ErrWeakPassword)
	}
	if confirm != password {
		verr.Add("confirmPassword", msgPasswordMismatch, ErrPasswordMismatch)
	}
	if err := verr.Err(); err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, oops.In("auth").Code("HASH_FAILED").Wrap(err)
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Cart:         []CartItem{},
		CreatedAt:    s.nowFunc().UTC(),
	}
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			// Lost a race with a concurrent signup for the same email.
			verr.Add("email", msgEmailTaken, ErrEmailTaken)
			return User{}, verr.Err()
		}
		return User{}, apperr.StoreUnavailable("auth.signup", err)
	}
	return u, nil
}

// RequestReset stores a fresh reset token on the user and returns it. An
// unknown email yields an empty token and no error.
func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperr.StoreUnavailable("auth.request_reset", err)
	}

	token, hash, err := newResetToken()
	if err != nil {
		return "", oops.In("auth").Code("RESET_TOKEN_FAILED").Wrap(err)
	}
	u.ResetTokenHash = hash
	u.ResetTokenExpiresAt = s.nowFunc().Add(s.resetTTL).UTC()
	if err := s.users.Save(ctx, u); err != nil {
		return "", apperr.StoreUnavailable("auth.request_reset", err)
	}
	return token, nil
}

// ValidateResetToken returns the user holding token, without consuming it.
func (s *Service) ValidateResetToken(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrTokenNotFound
	}
	u, err := s.users.FindByResetTokenHash(ctx, hashResetToken(token))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrTokenNotFound
	}
	if err != nil {
		return User{}, apperr.StoreUnavailable("auth.validate_reset", err)
	}
	if !s.nowFunc().Before(u.ResetTokenExpiresAt) {
		return User{}, ErrTokenExpired
	}
	return u, nil
}

// CompleteReset sets a new password and invalidates token.
func (s *Service) CompleteReset(ctx context.Context, token, newPassword string) (User, error) {
	u, err := s.ValidateResetToken(ctx, token)
	if err != nil {
		return User{}, err
	}
	if checkPasswordPolicy(newPassword) != nil {
		var verr ValidationError
		verr.Add("password", msgWeakPassword, ErrWeakPassword)
		return User{}, verr.Err()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return User{}, oops.In("auth").Code("HASH_FAILED").Wrap(err)
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = time.Time{}
	if err := s.users.Save(ctx, u); err != nil {
		return User{}, apperr.StoreUnavailable("auth.complete_reset", err)
	}
	return u, nil
}

// AddToCart adds one unit of productID to u's cart and saves u.
func (s *Service) AddToCart(ctx context.Context, u *User, productID string) error {
	u.AddToCart(productID)
	return apperr.StoreUnavailable("auth.add_to_cart", s.users.Save(ctx, *u))
}

func (s *Service) RemoveFromCart(ctx context.Context, u *User, productID string) error {
	u.RemoveFromCart(productID)
	return apperr.StoreUnavailable("auth.remove_from_cart", s.users.Save(ctx, *u))
}

func (s *Service) isForbidden(email string) bool {
	_, ok := s.forbidden[email]
	return ok
}

// burnCompare spends the same bcrypt work as a real comparison.
func (s *Service) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}
