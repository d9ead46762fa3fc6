package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"shopfront/webshop/internal/audit"
	"shopfront/webshop/internal/auth"
	"shopfront/webshop/internal/config"
	"shopfront/webshop/internal/mail"
	"shopfront/webshop/internal/observability"
	"shopfront/webshop/internal/product"
	"shopfront/webshop/internal/session"
	"shopfront/webshop/internal/view"
)

type CredentialService interface {
	Login(ctx context.Context, sess *session.Session, email, password string) (auth.User, error)
	Logout(sess *session.Session)
	Signup(ctx context.Context, email, password, confirm string) (auth.User, error)
	RequestReset(ctx context.Context, email string) (string, error)
	ValidateResetToken(ctx context.Context, token string) (auth.User, error)
	CompleteReset(ctx context.Context, token, newPassword string) (auth.User, error)
	AddToCart(ctx context.Context, u *auth.User, productID string) error
	RemoveFromCart(ctx context.Context, u *auth.User, productID string) error
}

type UserHydrator interface {
	Hydrate(ctx context.Context, sess *session.Session) (*auth.User, error)
}

type ImageStorage interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(url string)
	Dir() string
}

type ViewRenderer interface {
	Render(w io.Writer, name string, data view.Viewer) error
}

type AuditLogger interface {
	Log(e audit.Event) error
}

// ReadinessChecker reports whether backing stores are reachable.
type ReadinessChecker func(ctx context.Context) error

type Deps struct {
	Sessions    session.Store
	Credentials CredentialService
	Hydrator    UserHydrator
	Products    product.Catalog
	Images      ImageStorage
	Notifier    mail.ResetNotifier
	Views       ViewRenderer
	Audit       AuditLogger
	Metrics     *observability.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
	Ready          ReadinessChecker

	Cookie     session.CookieOptions
	SessionTTL time.Duration
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewHandler(deps),
			ReadTimeout:       cfg.ReadTimeout(),
			ReadHeaderTimeout: cfg.ReadTimeout(),
			WriteTimeout:      cfg.WriteTimeout(),
			IdleTimeout:       60 * time.Second,
		},
	}
}

// NewHandler builds the full handler: health, metrics and image routes are
// served directly; every other route runs through the session pipeline.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 2 * time.Hour
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				deps.Logger.WarnContext(r.Context(), "readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if deps.MetricsHandler != nil {
		mux.Handle("GET /metrics", deps.MetricsHandler)
	}
	if deps.Images != nil {
		mux.Handle("GET /images/", http.StripPrefix("/images/", noDirListing(http.FileServer(http.Dir(deps.Images.Dir())))))
	}

	p := newPipeline(deps)
	h := &handlers{deps: deps}
	registerShopRoutes(mux, p, h)
	registerAuthRoutes(mux, p, h)
	registerAdminRoutes(mux, p, h)
	mux.Handle("GET /500", p.public(h.getServerError))
	mux.Handle("/", p.public(notFound))

	return withSecurityHeaders(withRequestID(withTracing(withAccessLog(deps.Logger, deps.Metrics, mux))))
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
