package httpserver

import (
	"strings"

	"shopfront/webshop/internal/audit"
)

type handlers struct {
	deps Deps
}

func (h *handlers) audit(rc *RequestContext, actor, action, target, outcome string) {
	if h.deps.Audit == nil {
		return
	}
	r := rc.Request
	err := h.deps.Audit.Log(audit.Event{
		Actor:      actor,
		Action:     action,
		Target:     target,
		Outcome:    outcome,
		Detail:     "rid=" + requestIDFromContext(r.Context()),
		RemoteAddr: clientIP(r),
	})
	if err != nil {
		h.deps.Logger.WarnContext(r.Context(), "audit log write failed", "action", action, "error", err)
	}
}

func formValue(rc *RequestContext, key string) string {
	return strings.TrimSpace(rc.Request.PostFormValue(key))
}

// firstFlash pops the messages queued under key and returns the first one.
func firstFlash(rc *RequestContext, key string) string {
	msgs := rc.Session.PopFlash(key)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}
