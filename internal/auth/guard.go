package auth

import "shopfront/webshop/internal/session"

// IsAuthorized reports whether sess may reach a protected route. A failed
// check is answered with a redirect to the login view, never an error.
func IsAuthorized(sess *session.Session) bool {
	return sess != nil && sess.IsLoggedIn
}
