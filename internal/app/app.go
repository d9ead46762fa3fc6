package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"shopfront/webshop/internal/audit"
	"shopfront/webshop/internal/auth"
	"shopfront/webshop/internal/config"
	"shopfront/webshop/internal/httpserver"
	"shopfront/webshop/internal/mail"
	"shopfront/webshop/internal/observability"
	"shopfront/webshop/internal/product"
	"shopfront/webshop/internal/session"
	"shopfront/webshop/internal/upload"
	"shopfront/webshop/internal/view"
)

const (
	connectTimeout       = 30 * time.Second
	pingTimeout          = 2 * time.Second
	defaultPruneInterval = 10 * time.Minute
)

// sessionPruner is implemented by session stores without native expiry.
type sessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type App struct {
	cfg     config.Config
	log     *slog.Logger
	db      *sql.DB
	redis   *redis.Client
	metrics *observability.Metrics
	pruner  sessionPruner
	server  *httpserver.Server

	pruneInterval time.Duration
}

// New connects the configured backends and builds the HTTP server. Backends
// that are not configured fall back to local files (users, products) and
// memory (sessions).
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, log: logger, pruneInterval: defaultPruneInterval}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg
	var err error
	if cfg.DatabaseURL != "" {
		if a.db, err = openDatabase(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
	}

	backend := cfg.SessionBackend()
	if backend == config.BackendRedis {
		if a.redis, err = openRedis(ctx, cfg.Redis); err != nil {
			return err
		}
	}
	sessions, err := a.sessionStore(backend)
	if err != nil {
		return err
	}
	a.log.Info("session store selected", "backend", backend)

	var users auth.UserStore
	var products product.Catalog
	if a.db != nil {
		if users, err = auth.NewPostgresUserStore(a.db); err != nil {
			return fmt.Errorf("create postgres user store: %w", err)
		}
		if products, err = product.NewPGService(a.db); err != nil {
			return fmt.Errorf("create postgres product service: %w", err)
		}
	} else {
		if users, err = auth.NewFileUserStore(cfg.Auth.UserStateFile); err != nil {
			return fmt.Errorf("create user store: %w", err)
		}
		if products, err = product.NewServiceWithFile(cfg.ProductStateFile); err != nil {
			return fmt.Errorf("create product service: %w", err)
		}
	}

	credentials, err := auth.NewService(users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), auth.ServiceConfig{
		ResetTokenTTL: cfg.Auth.ResetTokenTTL(),
	})
	if err != nil {
		return fmt.Errorf("create credential service: %w", err)
	}
	images, err := upload.NewDiskStorage(cfg.ImagesDir, a.log)
	if err != nil {
		return fmt.Errorf("create image storage: %w", err)
	}
	notifier, err := mail.NewLogNotifier(cfg.PublicBaseURL, a.log)
	if err != nil {
		return fmt.Errorf("create reset notifier: %w", err)
	}
	views, err := view.New()
	if err != nil {
		return fmt.Errorf("parse views: %w", err)
	}

	reg := observability.NewRegistry()
	a.metrics = observability.NewMetrics(reg)

	a.server = httpserver.New(cfg.HTTP, httpserver.Deps{
		Sessions:       sessions,
		Credentials:    credentials,
		Hydrator:       auth.NewHydrator(users),
		Products:       products,
		Images:         images,
		Notifier:       notifier,
		Views:          views,
		Audit:          audit.NewLogger(cfg.AuditLogFile),
		Metrics:        a.metrics,
		MetricsHandler: observability.Handler(reg),
		Logger:         a.log,
		Ready:          a.ready,
		Cookie: session.CookieOptions{
			Name:   cfg.Session.CookieName,
			Path:   cfg.Session.CookiePath,
			Secure: cfg.Session.CookieSecure,
		},
		SessionTTL: cfg.Session.TTL(),
	})
	return nil
}

func (a *App) sessionStore(backend string) (session.Store, error) {
	switch backend {
	case config.BackendRedis:
		s, err := session.NewRedisStore(a.redis)
		if err != nil {
			return nil, fmt.Errorf("create redis session store: %w", err)
		}
		return s, nil
	case config.BackendPostgres:
		if a.db == nil {
			return nil, errors.New("postgres session store requires DATABASE_URL")
		}
		s, err := session.NewPostgresStore(a.db)
		if err != nil {
			return nil, fmt.Errorf("create postgres session store: %w", err)
		}
		a.pruner = s
		return s, nil
	default:
		a.log.Warn("sessions are kept in memory and are lost on restart")
		return session.NewMemoryStore(), nil
	}
}

// Handler exposes the full HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

func (a *App) Run(ctx context.Context) error {
	defer a.close()

	var wg sync.WaitGroup
	pruneCtx, stopPrune := context.WithCancel(ctx)
	defer func() {
		stopPrune()
		wg.Wait()
	}()
	if a.pruner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.pruneSessions(pruneCtx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout())
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}

func (a *App) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(a.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.pruner.DeleteExpired(ctx)
			if err != nil {
				a.metrics.ObserveStoreError()
				a.log.WarnContext(ctx, "prune expired sessions", "error", err)
				continue
			}
			a.metrics.ObserveSessionsPruned(n)
			if n > 0 {
				a.log.InfoContext(ctx, "expired sessions pruned", "count", n)
			}
		}
	}
}

// ready pings every remote backend in use.
func (a *App) ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *App) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", "error", err)
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close database", "error", err)
		}
		a.db = nil
	}
}

func connectBackoff() retry.Backoff {
	return retry.WithMaxDuration(connectTimeout, retry.NewExponential(250*time.Millisecond))
}

// openDatabase opens the pool and waits for Postgres to answer a ping.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	err = retry.Do(ctx, connectBackoff(), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// openRedis builds a client from REDIS_URL when set, else from the
// address fields, and waits for a ping.
func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	}
	rdb := redis.NewClient(opts)

	err := retry.Do(ctx, connectBackoff(), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
