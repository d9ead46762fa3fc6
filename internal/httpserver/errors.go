package httpserver

import (
	"errors"
	"net/http"

	"shopfront/webshop/internal/csrf"
	"shopfront/webshop/internal/product"
)

var (
	errBadForm  = errors.New("malformed request body")
	errNotFound = errors.New("page not found")
)

const (
	msgBadRequest = "The request could not be read."
	msgForbidden  = "Your form has expired. Please reload the page and try again."
)

// statusFor is the single place errors become HTTP statuses. Anything not
// recognized here is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadForm):
		return http.StatusBadRequest
	case errors.Is(err, csrf.ErrInvalidToken):
		return http.StatusForbidden
	case errors.Is(err, errNotFound), errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorPageCopy returns the title and extra message for the error view; the
// template carries the fixed 404 and 500 wording.
func errorPageCopy(status int) (title, message string) {
	switch status {
	case http.StatusBadRequest:
		return "Bad Request", msgBadRequest
	case http.StatusForbidden:
		return "Forbidden", msgForbidden
	case http.StatusNotFound:
		return "Page Not Found", ""
	default:
		return "Error!", ""
	}
}
