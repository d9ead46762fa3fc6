package mail

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifierWritesLink(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewLogNotifier("http://shop.local:3000/", slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, err)

	require.NoError(t, n.SendReset(context.Background(), "a@b.com", "abc123"))
	assert.Contains(t, buf.String(), `"link":"http://shop.local:3000/reset/abc123"`)
	assert.Contains(t, buf.String(), `"email":"a@b.com"`)
}

func TestNewLogNotifierRejectsBadURL(t *testing.T) {
	_, err := NewLogNotifier("not a url", nil)
	assert.Error(t, err)
}
