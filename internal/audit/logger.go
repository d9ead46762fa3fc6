// Package audit appends authentication and catalog events to a JSON-lines
// file. An empty path disables it.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	ActionLogin         = "auth.login"
	ActionLogout        = "auth.logout"
	ActionSignup        = "auth.signup"
	ActionResetRequest  = "auth.reset.request"
	ActionResetComplete = "auth.reset.complete"
	ActionProductCreate = "product.create"
	ActionProductUpdate = "product.update"
	ActionProductDelete = "product.delete"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Event struct {
	At      string `json:"at"`
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	Target  string `json:"target,omitempty"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
	// RemoteAddr is the client address as seen by the server.
	RemoteAddr string `json:"remote_addr,omitempty"`
}

type Logger struct {
	path    string
	nowFunc func() time.Time
	mu      sync.Mutex
}

func NewLogger(path string) *Logger {
	return &Logger{path: path, nowFunc: time.Now}
}

// Log records e, stamping At. Actor is a user id or, for failed logins,
// the submitted email; passwords and tokens never reach the log.
func (l *Logger) Log(e Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	e.At = l.nowFunc().UTC().Format(time.RFC3339)
	if e.Actor == "" {
		e.Actor = "anonymous"
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write audit log entry: %w", err)
	}
	return nil
}
