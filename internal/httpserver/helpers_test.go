package httpserver

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"shopfront/webshop/internal/audit"
	"shopfront/webshop/internal/auth"
	"shopfront/webshop/internal/product"
	"shopfront/webshop/internal/session"
	"shopfront/webshop/internal/upload"
	"shopfront/webshop/internal/view"
)

const testCookieName = "shop.sid"

type countingHydrator struct {
	inner *auth.Hydrator
	mu    sync.Mutex
	calls int
}

func (c *countingHydrator) Hydrate(ctx context.Context, sess *session.Session) (*auth.User, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Hydrate(ctx, sess)
}

func (c *countingHydrator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeImages struct {
	mu      sync.Mutex
	saved   []string
	removed []string
}

func (f *fakeImages) Save(fh *multipart.FileHeader) (string, error) {
	if !upload.IsImage(fh.Header.Get("Content-Type")) {
		return "", nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := upload.URLPrefix + fh.Filename
	f.saved = append(f.saved, u)
	return u, nil
}

func (f *fakeImages) Remove(u string) {
	if u == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, u)
}

func (f *fakeImages) Dir() string { return "." }

func (f *fakeImages) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

type sentReset struct {
	email string
	token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentReset
}

func (f *fakeNotifier) SendReset(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentReset{email: email, token: token})
	return nil
}

func (f *fakeNotifier) Last() (sentReset, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentReset{}, false
	}
	return f.sent[len(f.sent)-1], true
}

type testEnv struct {
	handler  http.Handler
	deps     Deps
	users    *auth.InMemoryUserStore
	creds    *auth.Service
	products *product.Service
	sessions *session.MemoryStore
	hydrator *countingHydrator
	images   *fakeImages
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := auth.NewInMemoryUserStore()
	creds, err := auth.NewService(users, auth.NewBcryptHasher(bcrypt.MinCost), auth.ServiceConfig{})
	if err != nil {
		t.Fatalf("auth.NewService() error: %v", err)
	}
	views, err := view.New()
	if err != nil {
		t.Fatalf("view.New() error: %v", err)
	}
	env := &testEnv{
		users:    users,
		creds:    creds,
		products: product.NewService(),
		sessions: session.NewMemoryStore(),
		hydrator: &countingHydrator{inner: auth.NewHydrator(users)},
		images:   &fakeImages{},
		notifier: &fakeNotifier{},
	}
	env.deps = Deps{
		Sessions:    env.sessions,
		Credentials: creds,
		Hydrator:    env.hydrator,
		Products:    env.products,
		Images:      env.images,
		Notifier:    env.notifier,
		Views:       views,
		Audit:       audit.NewLogger(""),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cookie:      session.CookieOptions{Name: testCookieName},
		SessionTTL:  time.Hour,
	}
	env.handler = NewHandler(env.deps)
	return env
}

// browser replays the session cookie between requests like a real client.
type browser struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
	token  string
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, h: e.handler}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	if b.cookie != nil {
		req.AddCookie(&http.Cookie{Name: b.cookie.Name, Value: b.cookie.Value})
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name != testCookieName {
			continue
		}
		if c.MaxAge < 0 {
			b.cookie = nil
		} else {
			b.cookie = c
		}
	}
	if tok := csrfFromBody(rec.Body.String()); tok != "" {
		b.token = tok
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, target, nil))
}

// postForm submits form with the last CSRF token seen, fetching one from
// /login first when none is known yet.
func (b *browser) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	if b.token == "" {
		b.get("/login")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("_csrf", b.token)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

type testFile struct {
	field       string
	name        string
	contentType string
	body        []byte
}

func (b *browser) postMultipart(target string, fields map[string]string, file *testFile) *httptest.ResponseRecorder {
	b.t.Helper()
	if b.token == "" {
		b.get("/login")
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			b.t.Fatalf("WriteField(%q) error: %v", k, err)
		}
	}
	if err := mw.WriteField("_csrf", b.token); err != nil {
		b.t.Fatalf("WriteField(_csrf) error: %v", err)
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			b.t.Fatalf("CreatePart() error: %v", err)
		}
		if _, err := part.Write(file.body); err != nil {
			b.t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		b.t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func (b *browser) sessionID() string {
	if b.cookie == nil {
		return ""
	}
	return b.cookie.Value
}

func (b *browser) signupAndLogin(email, password string) {
	b.t.Helper()
	rec := b.postForm("/signup", url.Values{
		"email":           {email},
		"password":        {password},
		"confirmPassword": {password},
	})
	if rec.Code != http.StatusFound {
		b.t.Fatalf("signup: expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = b.postForm("/login", url.Values{"email": {email}, "password": {password}})
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		b.t.Fatalf("login: expected 302 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

var csrfFieldRE = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func csrfFromBody(body string) string {
	m := csrfFieldRE.FindStringSubmatch(body)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}
