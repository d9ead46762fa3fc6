// Package mail hands password-reset links to the user. Delivery is logged
// only; no mail transport is wired.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

type ResetNotifier interface {
	SendReset(ctx context.Context, email, token string) error
}

// LogNotifier writes the reset link to the structured log.
type LogNotifier struct {
	baseURL string
	logger  *slog.Logger
}

func NewLogNotifier(baseURL string, logger *slog.Logger) (*LogNotifier, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid public base url %q: %w", baseURL, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{baseURL: baseURL, logger: logger}, nil
}

// ResetLink is the URL a user follows to choose a new password.
func (n *LogNotifier) ResetLink(token string) string {
	return n.baseURL + "/reset/" + url.PathEscape(token)
}

func (n *LogNotifier) SendReset(ctx context.Context, email, token string) error {
	n.logger.InfoContext(ctx, "password reset requested", "email", email, "link", n.ResetLink(token))
	return nil
}
