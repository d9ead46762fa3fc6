package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"runtime/debug"
	"time"

	"shopfront/webshop/internal/apperr"
	"shopfront/webshop/internal/auth"
	"shopfront/webshop/internal/csrf"
	"shopfront/webshop/internal/logging"
	"shopfront/webshop/internal/session"
	"shopfront/webshop/internal/view"
)

const (
	maxBodyBytes       = 12 << 20
	multipartMaxMemory = 4 << 20
)

// RequestContext is what a handler sees: the loaded session, the hydrated
// user (nil for anonymous requests) and the CSRF token for forms it renders.
type RequestContext struct {
	Request   *http.Request
	Session   *session.Session
	User      *auth.User
	CSRFToken string
}

type Handler func(rc *RequestContext) (Result, error)

type pipeline struct {
	deps    Deps
	nowFunc func() time.Time
}

func newPipeline(deps Deps) *pipeline {
	return &pipeline{deps: deps, nowFunc: time.Now}
}

// public runs h for anyone; protected redirects to /login unless the
// session is signed in and its user still exists.
func (p *pipeline) public(h Handler) http.Handler    { return p.handle(h, false) }
func (p *pipeline) protected(h Handler) http.Handler { return p.handle(h, true) }

func (p *pipeline) handle(h Handler, protected bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := &RequestContext{Request: r}
		defer func() {
			if v := recover(); v != nil {
				p.deps.Logger.ErrorContext(r.Context(), "panic serving request",
					"panic", fmt.Sprint(v),
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				p.writeError(w, rc, http.StatusInternalServerError)
			}
		}()
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		res, err := p.run(w, rc, h, protected)
		if err != nil {
			p.fail(w, rc, err)
			return
		}
		if err := p.commit(w, rc); err != nil {
			p.fail(w, rc, err)
			return
		}
		p.write(w, rc, res)
	})
}

// run executes the stages in order: body, session, CSRF, hydration, guard,
// dispatch. Any stage error stops the request.
func (p *pipeline) run(w http.ResponseWriter, rc *RequestContext, h Handler, protected bool) (Result, error) {
	r := rc.Request
	if err := parseBody(w, r); err != nil {
		return Result{}, err
	}

	sess, err := p.loadSession(r)
	if err != nil {
		return Result{}, err
	}
	rc.Session = sess

	secret, err := sess.EnsureCSRFSecret(csrf.NewSecret)
	if err != nil {
		return Result{}, err
	}
	token, err := csrf.Token(secret)
	if err != nil {
		return Result{}, err
	}
	rc.CSRFToken = token
	if !csrf.SafeMethod(r.Method) {
		if err := csrf.Verify(secret, csrf.FromRequest(r)); err != nil {
			return Result{}, err
		}
	}

	if sess.IsLoggedIn {
		u, err := p.deps.Hydrator.Hydrate(r.Context(), sess)
		if err != nil {
			return Result{}, err
		}
		rc.User = u
	}

	if protected && (!auth.IsAuthorized(sess) || rc.User == nil) {
		return Redirect("/login"), nil
	}
	return h(rc)
}

func parseBody(w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil
	}
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(multipartMaxMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", errBadForm, err)
	}
	return nil
}

// loadSession returns the session named by the cookie, or a fresh
// anonymous one when the cookie is missing, unknown or expired.
func (p *pipeline) loadSession(r *http.Request) (*session.Session, error) {
	now := p.nowFunc()
	if id := session.ReadCookie(r, p.deps.Cookie); id != "" {
		sess, err := p.deps.Sessions.Load(r.Context(), id)
		if err != nil {
			return nil, err
		}
		if sess != nil && !sess.Expired(now) {
			return sess, nil
		}
	}
	return session.New(now, p.deps.SessionTTL)
}

// commit persists pending session changes and issues or clears the cookie.
// It must run before anything is written to w.
func (p *pipeline) commit(w http.ResponseWriter, rc *RequestContext) error {
	sess := rc.Session
	if sess == nil || !sess.Dirty() {
		return nil
	}
	destroyed := sess.Destroyed()
	if !destroyed {
		sess.ExpiresAt = p.nowFunc().Add(p.deps.SessionTTL)
	}
	if err := session.Commit(rc.Request.Context(), p.deps.Sessions, sess); err != nil {
		p.deps.Metrics.ObserveStoreError()
		return err
	}
	if destroyed {
		session.ClearCookie(w, p.deps.Cookie)
		return nil
	}
	session.SetCookie(w, sess.ID, sess.ExpiresAt, p.deps.Cookie)
	return nil
}

func (p *pipeline) write(w http.ResponseWriter, rc *RequestContext, res Result) {
	switch res.kind {
	case kindRedirect:
		http.Redirect(w, rc.Request, res.location, res.status)
	case kindJSON:
		writeJSON(w, res.status, res.body)
	case kindRender:
		p.render(w, rc, res.status, res.view, res.page)
	default:
		p.deps.Logger.ErrorContext(rc.Request.Context(), "handler returned an empty result", "path", rc.Request.URL.Path)
		p.writeError(w, rc, http.StatusInternalServerError)
	}
}

func (p *pipeline) render(w http.ResponseWriter, rc *RequestContext, status int, name string, page view.Viewer) {
	base := page.Base()
	base.Path = rc.Request.URL.Path
	base.CSRFToken = rc.CSRFToken
	base.IsAuthenticated = rc.Session != nil && rc.Session.IsLoggedIn && rc.User != nil

	var buf bytes.Buffer
	if err := p.deps.Views.Render(&buf, name, page); err != nil {
		logging.LogError(rc.Request.Context(), p.deps.Logger, "render view", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail maps err to a status and renders the error view. Client errors still
// commit the session so a fresh visitor keeps their cookie.
func (p *pipeline) fail(w http.ResponseWriter, rc *RequestContext, err error) {
	status := statusFor(err)
	ctx := rc.Request.Context()
	if status >= http.StatusInternalServerError {
		if apperr.IsStoreUnavailable(err) {
			p.deps.Metrics.ObserveStoreError()
		}
		logging.LogError(ctx, p.deps.Logger, "request failed", err)
	} else {
		p.deps.Logger.InfoContext(ctx, "request rejected", "status", status, "error", err)
		if cerr := p.commit(w, rc); cerr != nil {
			logging.LogError(ctx, p.deps.Logger, "commit session", cerr)
		}
	}
	p.writeError(w, rc, status)
}

func (p *pipeline) writeError(w http.ResponseWriter, rc *RequestContext, status int) {
	title, message := errorPageCopy(status)
	p.render(w, rc, status, view.Error, &view.ErrorPage{
		Page:    view.Page{Title: title},
		Status:  status,
		Message: message,
	})
}

func notFound(*RequestContext) (Result, error) {
	return Result{}, errNotFound
}

// isValidation unwraps collected field errors from err.
func isValidation(err error) (*auth.ValidationError, bool) {
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
